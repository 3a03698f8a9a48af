/*
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 *
 * Copyright (c) 2026, Joyent Inc
 */

package eboxerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsMatchesKind(t *testing.T) {
	err := New("recovery.AcceptResponse", KindDuplicate, errors.New("already responded"))
	require.True(t, Is(err, KindDuplicate))
	require.False(t, Is(err, KindBadResponse))
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("truncated buffer")
	err := New("tlv.Decode", KindIoTruncated, cause)
	require.ErrorIs(t, err, cause)
}

func TestErrorMessageIncludesOpAndKind(t *testing.T) {
	err := New("ebox.Unlock", KindNotUnlocked, nil)
	require.Contains(t, err.Error(), "ebox.Unlock")
	require.Contains(t, err.Error(), "not_unlocked")
}
