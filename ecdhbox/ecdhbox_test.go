/*
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 *
 * Copyright (c) 2026, Joyent Inc
 */

package ecdhbox

import (
	"crypto/ecdh"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func genKeypair(t *testing.T) (*ecdh.PrivateKey, *ecdh.PublicKey) {
	t.Helper()
	priv, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)
	return priv, priv.PublicKey()
}

func TestSealUnsealRoundTrip(t *testing.T) {
	priv, pub := genKeypair(t)

	box, err := Seal(pub, []byte("the quick brown fox"), []byte("ebox-part-v1"), nil)
	require.NoError(t, err)

	pt, err := Unseal(priv, box, []byte("ebox-part-v1"), nil)
	require.NoError(t, err)
	require.Equal(t, "the quick brown fox", string(pt))
}

func TestSealUnsealWithAAD(t *testing.T) {
	priv, pub := genKeypair(t)
	aad := []byte("part-guid-1234")

	box, err := Seal(pub, []byte("payload"), []byte("ebox-part-v1"), aad)
	require.NoError(t, err)

	pt, err := Unseal(priv, box, []byte("ebox-part-v1"), aad)
	require.NoError(t, err)
	require.Equal(t, "payload", string(pt))

	_, err = Unseal(priv, box, []byte("ebox-part-v1"), []byte("wrong-aad"))
	require.Error(t, err)
}

func TestUnsealWrongKeyFails(t *testing.T) {
	_, pub := genKeypair(t)
	otherPriv, _ := genKeypair(t)

	box, err := Seal(pub, []byte("secret"), []byte("ebox-part-v1"), nil)
	require.NoError(t, err)

	_, err = Unseal(otherPriv, box, []byte("ebox-part-v1"), nil)
	require.Error(t, err)
}

func TestUnsealMismatchedInfoFails(t *testing.T) {
	priv, pub := genKeypair(t)

	box, err := Seal(pub, []byte("secret"), []byte("ebox-part-v1"), nil)
	require.NoError(t, err)

	_, err = Unseal(priv, box, []byte("some-other-info"), nil)
	require.Error(t, err)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	_, pub := genKeypair(t)
	box, err := Seal(pub, []byte("payload"), []byte("ebox-part-v1"), nil)
	require.NoError(t, err)

	encoded := Encode(box)
	decoded, err := Decode(encoded)
	require.NoError(t, err)
	require.Equal(t, box.Enc, decoded.Enc)
	require.Equal(t, box.Ciphertext, decoded.Ciphertext)
}

func TestDecodeTruncated(t *testing.T) {
	_, err := Decode([]byte{0, 0, 0, 5, 1, 2})
	require.Error(t, err)
}

func TestSealNilRecipientFails(t *testing.T) {
	_, err := Seal(nil, []byte("x"), []byte("info"), nil)
	require.Error(t, err)
}
