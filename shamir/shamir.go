/*
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 *
 * Copyright (c) 2026, Joyent Inc
 */

// Package shamir implements Shamir (N, M) threshold splitting of a
// 32-byte configuration key: a recovery config's key is split into M
// shares such that any N of them reconstruct it, and fewer than N
// reveal nothing. The polynomial arithmetic itself is delegated to
// github.com/hashicorp/vault/shamir, the same library Vault uses to
// split its root key; this package only adapts that library's
// []byte-slice shape to a fixed Share type and 32-byte secret
// convention.
package shamir

import (
	vaultshamir "github.com/hashicorp/vault/shamir"
	"github.com/joyent/go-ebox/eboxerr"
)

// SecretLen is the fixed size of the configuration key Split/Combine
// operate on: a 32-byte key, never the raw payload.
const SecretLen = 32

// Share is one threshold share: a 1-byte index (the polynomial's x
// coordinate, as vault/shamir appends it) and the 32-byte y value.
// Its wire form is the 33-byte concatenation Index||Value, the share
// size embedded inside each recovery part's box.
type Share struct {
	Index byte
	Value [SecretLen]byte
}

// Encode returns the 33-byte wire form of a share.
func (s Share) Encode() []byte {
	out := make([]byte, 0, 1+SecretLen)
	out = append(out, s.Index)
	out = append(out, s.Value[:]...)
	return out
}

// DecodeShare parses the 33-byte wire form Encode produced.
func DecodeShare(b []byte) (Share, error) {
	if len(b) != 1+SecretLen {
		return Share{}, eboxerr.Newf("shamir.DecodeShare", eboxerr.KindBadLength, "share is %d bytes, want %d", len(b), 1+SecretLen)
	}
	var s Share
	s.Index = b[0]
	copy(s.Value[:], b[1:])
	return s, nil
}

// Split divides secret into m shares such that any n of them
// reconstruct it. n and m must satisfy 1 <= n <= m <= 255 (the
// RECOVERY invariant: M >= N >= 1, M >= 2).
func Split(secret [SecretLen]byte, n, m int) ([]Share, error) {
	const op = "shamir.Split"
	if n < 1 || m < n {
		return nil, eboxerr.Newf(op, eboxerr.KindBadLength, "invalid threshold n=%d m=%d", n, m)
	}
	raw, err := vaultshamir.Split(secret[:], m, n)
	if err != nil {
		return nil, eboxerr.New(op, eboxerr.KindSealFailed, err)
	}
	shares := make([]Share, 0, len(raw))
	for _, r := range raw {
		if len(r) != 1+SecretLen {
			return nil, eboxerr.Newf(op, eboxerr.KindSealFailed, "unexpected share length %d", len(r))
		}
		var s Share
		s.Index = r[len(r)-1]
		copy(s.Value[:], r[:SecretLen])
		shares = append(shares, s)
	}
	return shares, nil
}

// Combine reconstructs the secret from shares. At least n of the
// shares Split produced must be present; fewer, or shares from a
// different split, yield KindInsufficientShares or a garbage result
// the caller authenticates downstream: combine is blind, the AEAD tag
// over the recovery ciphertext is what actually detects a wrong key.
func Combine(shares []Share) ([SecretLen]byte, error) {
	const op = "shamir.Combine"
	var out [SecretLen]byte
	if len(shares) < 1 {
		return out, eboxerr.New(op, eboxerr.KindInsufficientShares, nil)
	}
	raw := make([][]byte, 0, len(shares))
	for _, s := range shares {
		point := make([]byte, 0, 1+SecretLen)
		point = append(point, s.Value[:]...)
		point = append(point, s.Index)
		raw = append(raw, point)
	}
	secret, err := vaultshamir.Combine(raw)
	if err != nil {
		return out, eboxerr.New(op, eboxerr.KindInsufficientShares, err)
	}
	if len(secret) != SecretLen {
		return out, eboxerr.Newf(op, eboxerr.KindCorruptRecovery, "combined secret is %d bytes, want %d", len(secret), SecretLen)
	}
	copy(out[:], secret)
	return out, nil
}
