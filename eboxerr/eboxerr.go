/*
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 *
 * Copyright (c) 2026, Joyent Inc
 */

// Package eboxerr defines the structured error value returned by every
// exported ebox operation. It follows the Op/Err wrapping idiom common
// to structured Go error types, combined with a plain sentinel-error
// style: every error carries a Kind for programmatic dispatch plus an
// Op and wrapped cause for diagnostics.
package eboxerr

import (
	"errors"
	"fmt"
)

// Kind enumerates the error kinds ebox operations report.
type Kind string

const (
	KindIoTruncated        Kind = "io_truncated"
	KindBadMagic           Kind = "bad_magic"
	KindUnsupportedVersion Kind = "unsupported_version"
	KindBadTag             Kind = "bad_tag"
	KindBadLength          Kind = "bad_length"
	KindPubkeyUnusable     Kind = "pubkey_unusable"
	KindSealFailed         Kind = "seal_failed"
	KindUnsealFailed       Kind = "unseal_failed"
	KindNotUnlocked        Kind = "not_unlocked"
	KindInsufficientShares Kind = "insufficient_shares"
	KindBadResponse        Kind = "bad_response"
	KindDuplicate          Kind = "duplicate"
	KindDescTooLong        Kind = "desc_too_long"
	KindCorruptRecovery    Kind = "corrupt_recovery"
	KindAlreadyRecovered   Kind = "already_recovered"
	KindOutOfMemory        Kind = "out_of_memory"
)

// Error is the structured value returned by ebox operations. Op names
// the failing operation ("template.FromTLV", "ebox.Seal", ...); Err is
// the wrapped cause, often itself an *Error one layer down (e.g. a
// codec error surfacing through Seal).
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ebox: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("ebox: %s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, eboxerr.Of(kind)) match: Error compares by
// Kind, so errors.Is(err, &Error{Kind: KindDuplicate}) also matches. A
// target with an empty Kind matches nothing.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind == "" {
		return false
	}
	return e.Kind == t.Kind
}

// New builds a structured error for the given op/kind with an
// optional wrapped cause.
func New(op string, kind Kind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// Newf builds a structured error with a formatted cause.
func Newf(op string, kind Kind, format string, args ...interface{}) *Error {
	return &Error{Op: op, Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Of returns a sentinel *Error carrying only a Kind, suitable for use
// with errors.Is: errors.Is(err, eboxerr.Of(eboxerr.KindDuplicate)).
func Of(kind Kind) *Error { return &Error{Kind: kind} }

// Is reports whether err's Kind matches kind, walking the error chain.
func Is(err error, kind Kind) bool {
	return errors.Is(err, Of(kind))
}
