/*
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 *
 * Copyright (c) 2026, Joyent Inc
 */

package wire

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTripPrimitives(t *testing.T) {
	w := NewWriter()
	w.PutU8(0xAB)
	w.PutU32(0xDEADBEEF)
	w.PutU64(0x0102030405060708)
	w.PutFixed([]byte{1, 2, 3, 4})
	w.PutString([]byte("hello ebox"))
	w.PutBignum(big.NewInt(123456789))

	r := NewReader(w.Bytes())

	u8, err := r.U8()
	require.NoError(t, err)
	require.EqualValues(t, 0xAB, u8)

	u32, err := r.U32()
	require.NoError(t, err)
	require.EqualValues(t, 0xDEADBEEF, u32)

	u64, err := r.U64()
	require.NoError(t, err)
	require.EqualValues(t, 0x0102030405060708, u64)

	fixed, err := r.Fixed(4)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4}, fixed)

	str, err := r.String()
	require.NoError(t, err)
	require.Equal(t, "hello ebox", string(str))

	bn, err := r.Bignum()
	require.NoError(t, err)
	require.Equal(t, int64(123456789), bn.Int64())

	require.Zero(t, r.Len())
}

func TestTruncatedReads(t *testing.T) {
	r := NewReader([]byte{0x01, 0x02})
	_, err := r.U32()
	require.ErrorIs(t, err, ErrTruncated)

	r2 := NewReader([]byte{0, 0, 0, 5, 'h', 'i'})
	_, err = r2.String()
	require.ErrorIs(t, err, ErrTruncated)
}

func TestZeroBignum(t *testing.T) {
	w := NewWriter()
	w.PutBignum(nil)
	w.PutBignum(big.NewInt(0))

	r := NewReader(w.Bytes())
	n1, err := r.Bignum()
	require.NoError(t, err)
	require.Zero(t, n1.Sign())

	n2, err := r.Bignum()
	require.NoError(t, err)
	require.Zero(t, n2.Sign())
}
