/*
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 *
 * Copyright (c) 2026, Joyent Inc
 */

package shamir

import (
	"crypto/rand"
	"testing"

	"github.com/joyent/go-ebox/eboxerr"
	"github.com/stretchr/testify/require"
)

func randSecret(t *testing.T) [SecretLen]byte {
	t.Helper()
	var s [SecretLen]byte
	_, err := rand.Read(s[:])
	require.NoError(t, err)
	return s
}

func TestSplitCombineRoundTrip(t *testing.T) {
	secret := randSecret(t)

	shares, err := Split(secret, 2, 3)
	require.NoError(t, err)
	require.Len(t, shares, 3)

	got, err := Combine(shares[:2])
	require.NoError(t, err)
	require.Equal(t, secret, got)
}

func TestCombineAnySubsetOfThreshold(t *testing.T) {
	secret := randSecret(t)
	shares, err := Split(secret, 3, 5)
	require.NoError(t, err)

	subsets := [][]int{{0, 1, 2}, {1, 2, 3}, {0, 2, 4}, {2, 3, 4}}
	for _, idx := range subsets {
		picked := make([]Share, 0, len(idx))
		for _, i := range idx {
			picked = append(picked, shares[i])
		}
		got, err := Combine(picked)
		require.NoError(t, err)
		require.Equal(t, secret, got)
	}
}

func TestCombineInsufficientSharesReturnsError(t *testing.T) {
	_, err := Combine(nil)
	require.True(t, eboxerr.Is(err, eboxerr.KindInsufficientShares))
}

func TestShareWireRoundTrip(t *testing.T) {
	secret := randSecret(t)
	shares, err := Split(secret, 2, 3)
	require.NoError(t, err)

	encoded := shares[0].Encode()
	require.Len(t, encoded, 33)

	decoded, err := DecodeShare(encoded)
	require.NoError(t, err)
	require.Equal(t, shares[0], decoded)
}

func TestDecodeShareBadLength(t *testing.T) {
	_, err := DecodeShare([]byte{1, 2, 3})
	require.True(t, eboxerr.Is(err, eboxerr.KindBadLength))
}

func TestSplitInvalidThreshold(t *testing.T) {
	secret := randSecret(t)
	_, err := Split(secret, 3, 2)
	require.Error(t, err)
}
