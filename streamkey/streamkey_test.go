/*
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 *
 * Copyright (c) 2026, Joyent Inc
 */

package streamkey

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptChunkSequence(t *testing.T) {
	payloadKey := make([]byte, 32)
	for i := range payloadKey {
		payloadKey[i] = byte(i)
	}

	enc, err := InitEncrypt(payloadKey)
	require.NoError(t, err)
	dec, err := InitDecrypt(payloadKey)
	require.NoError(t, err)

	chunks := [][]byte{[]byte("first chunk"), []byte("second chunk"), []byte("third chunk")}
	var ciphertexts [][]byte
	for _, c := range chunks {
		ct, err := enc.Put(c)
		require.NoError(t, err)
		ciphertexts = append(ciphertexts, ct)
	}

	for i, ct := range ciphertexts {
		pt, err := dec.Get(ct)
		require.NoError(t, err)
		require.Equal(t, chunks[i], pt)
	}
}

func TestOutOfOrderChunkFailsAuthentication(t *testing.T) {
	payloadKey := make([]byte, 32)
	enc, err := InitEncrypt(payloadKey)
	require.NoError(t, err)
	dec, err := InitDecrypt(payloadKey)
	require.NoError(t, err)

	ct0, err := enc.Put([]byte("chunk zero"))
	require.NoError(t, err)
	ct1, err := enc.Put([]byte("chunk one"))
	require.NoError(t, err)

	_, err = dec.Get(ct1)
	require.Error(t, err)
	_ = ct0
}

func TestDifferentPayloadKeysDeriveDifferentStreamKeys(t *testing.T) {
	keyA := make([]byte, 32)
	keyB := make([]byte, 32)
	keyB[0] = 1

	encA, err := InitEncrypt(keyA)
	require.NoError(t, err)
	decB, err := InitDecrypt(keyB)
	require.NoError(t, err)

	ct, err := encA.Put([]byte("secret"))
	require.NoError(t, err)
	_, err = decB.Get(ct)
	require.Error(t, err)
}
