/*
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 *
 * Copyright (c) 2026, Joyent Inc
 */

// Package scrub overwrites secret buffers before they are released, so
// key material does not linger in memory past its useful lifetime.
package scrub

import "runtime"

// Bytes overwrites b with zeros. Every function that materializes a
// payload key, Shamir share, recovery-ciphertext plaintext, or
// ephemeral private key scalar must scrub it on every exit path,
// success or failure.
func Bytes(b []byte) {
	if b == nil {
		return
	}
	for i := range b {
		b[i] = 0
	}
	// Prevent the compiler from eliding the zeroing loop as dead stores.
	runtime.KeepAlive(b)
}

// Many scrubs a set of buffers in one call, so defer sites can scrub
// everything they touched without enumerating each slice.
func Many(bs ...[]byte) {
	for _, b := range bs {
		Bytes(b)
	}
}
