/*
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 *
 * Copyright (c) 2026, Joyent Inc
 */

// Package streamkey implements a chunked bulk-encryption surface
// corresponding to ebox_stream_init_encrypt/decrypt and
// ebox_stream_put/get: once an ebox payload key is unlocked or
// recovered, data is encrypted in fixed-size chunks under a key
// schedule derived from that payload key, rather than reusing the
// payload key directly for bulk AEAD. This stays a thin, host-facing
// convenience built on the same HKDF + ChaCha20-Poly1305 primitives as
// package ebox.
package streamkey

import (
	"crypto/sha256"
	"encoding/binary"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/joyent/go-ebox/eboxerr"
	"github.com/joyent/go-ebox/internal/scrub"
)

const (
	keyInfo = "ebox-stream-key-v1"
	keyLen  = chacha20poly1305.KeySize
)

// Mode mirrors ebox.h's enum ebox_stream_mode.
type Mode uint8

const (
	ModeEncrypt Mode = 0x01
	ModeDecrypt Mode = 0x02
)

// Stream encrypts or decrypts a sequence of chunks under a key derived
// once, at construction, from an unlocked ebox payload key. Each
// chunk's AEAD nonce is the chunk's sequence number, so chunks must be
// processed in order and a stream may not be reused across encrypt and
// decrypt; construct a new one for the opposite direction.
type Stream struct {
	mode  Mode
	aead  interface {
		Seal(dst, nonce, plaintext, aad []byte) []byte
		Open(dst, nonce, ciphertext, aad []byte) ([]byte, error)
		NonceSize() int
	}
	seq uint64
}

func deriveKey(payloadKey []byte) ([keyLen]byte, error) {
	var key [keyLen]byte
	r := hkdf.New(sha256.New, payloadKey, nil, []byte(keyInfo))
	_, err := io.ReadFull(r, key[:])
	return key, err
}

// InitEncrypt derives a fresh stream key from payloadKey and returns a
// Stream ready to encrypt chunks (ebox_stream_init_encrypt).
func InitEncrypt(payloadKey []byte) (*Stream, error) {
	return newStream(payloadKey, ModeEncrypt)
}

// InitDecrypt derives the same stream key from payloadKey and returns
// a Stream ready to decrypt chunks (ebox_stream_init_decrypt).
func InitDecrypt(payloadKey []byte) (*Stream, error) {
	return newStream(payloadKey, ModeDecrypt)
}

func newStream(payloadKey []byte, mode Mode) (*Stream, error) {
	const op = "streamkey.newStream"
	key, err := deriveKey(payloadKey)
	if err != nil {
		return nil, eboxerr.New(op, eboxerr.KindSealFailed, err)
	}
	defer scrub.Bytes(key[:])
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, eboxerr.New(op, eboxerr.KindSealFailed, err)
	}
	return &Stream{mode: mode, aead: aead}, nil
}

func (s *Stream) nonce() []byte {
	n := make([]byte, s.aead.NonceSize())
	binary.BigEndian.PutUint64(n[len(n)-8:], s.seq)
	return n
}

// Put encrypts the next chunk in sequence (ebox_stream_put).
func (s *Stream) Put(chunk []byte) ([]byte, error) {
	const op = "streamkey.Put"
	if s.mode != ModeEncrypt {
		return nil, eboxerr.New(op, eboxerr.KindSealFailed, nil)
	}
	ct := s.aead.Seal(nil, s.nonce(), chunk, nil)
	s.seq++
	return ct, nil
}

// Get decrypts the next chunk in sequence (ebox_stream_get).
func (s *Stream) Get(chunk []byte) ([]byte, error) {
	const op = "streamkey.Get"
	if s.mode != ModeDecrypt {
		return nil, eboxerr.New(op, eboxerr.KindUnsealFailed, nil)
	}
	pt, err := s.aead.Open(nil, s.nonce(), chunk, nil)
	if err != nil {
		return nil, eboxerr.New(op, eboxerr.KindUnsealFailed, err)
	}
	s.seq++
	return pt, nil
}
