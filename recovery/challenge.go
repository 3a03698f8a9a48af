/*
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 *
 * Copyright (c) 2026, Joyent Inc
 */

// Package recovery implements the challenge/response state machine and
// wire codec: driving a RECOVERY configuration's per-part Idle ->
// Challenged -> Responded -> Combined lifecycle and, on reaching a
// threshold of Responded parts, combining shares to recover the
// payload key. The per-part state tracking is grounded on a
// savePending/takePending pendingState map pattern, generalized from
// one outstanding handshake per peer to one outstanding challenge per
// recovery part; session identifiers use github.com/google/uuid the
// same way a handshake session layer would.
package recovery

import (
	"crypto/ecdh"
	"crypto/sha256"
	"crypto/rand"
	"time"

	"github.com/joyent/go-ebox/ecdhbox"
	"github.com/joyent/go-ebox/eboxerr"
	"github.com/joyent/go-ebox/shamir"
	"github.com/joyent/go-ebox/wire"
)

const (
	typeRequest  = 1
	typeResponse = 2

	maxDescriptionLen = 254
	challengeIDLen    = 8
	nonceLen          = 32
)

// Challenge is one per-part, per-attempt record.
type Challenge struct {
	ID              [challengeIDLen]byte
	Nonce           [nonceLen]byte
	Hostname        string
	CreatedAt       time.Time
	Description     string
	SlotPubKey      *ecdh.PublicKey
	Name            string
	CAK             *ecdh.PublicKey
	EphemeralPubKey *ecdh.PublicKey
}

// Words returns the four human-verification tokens derived from this
// challenge's ID and nonce, displayed at both ends of the exchange.
func (c *Challenge) Words() [4]string {
	h := sha256.Sum256(append(append([]byte(nil), c.ID[:]...), c.Nonce[:]...))
	return [4]string{word(h[0]), word(h[1]), word(h[2]), word(h[3])}
}

func newChallengeID() ([challengeIDLen]byte, error) {
	var id [challengeIDLen]byte
	_, err := rand.Read(id[:])
	return id, err
}

// encode serializes the challenge in its REQUEST wire layout.
func (c *Challenge) encode() []byte {
	w := wire.NewWriter()
	w.PutU8(1)
	w.PutU8(typeRequest)
	w.PutFixed(c.ID[:])
	w.PutString([]byte(c.Hostname))
	w.PutU64(uint64(c.CreatedAt.Unix()))
	w.PutString([]byte(c.Description))
	w.PutString(c.SlotPubKey.Bytes())
	w.PutString([]byte(c.Name))
	if c.CAK != nil {
		w.PutString(c.CAK.Bytes())
	} else {
		w.PutString(nil)
	}
	w.PutString(c.EphemeralPubKey.Bytes())
	w.PutFixed(c.Nonce[:])
	return w.Bytes()
}

// ParseChallenge decodes a challenge previously unsealed by the
// recipient's card (the external PIV unseal is the caller's
// responsibility; this only parses the resulting plaintext).
func ParseChallenge(plaintext []byte) (*Challenge, error) {
	const op = "recovery.ParseChallenge"
	r := wire.NewReader(plaintext)
	ver, err := r.U8()
	if err != nil {
		return nil, eboxerr.New(op, eboxerr.KindIoTruncated, err)
	}
	if ver != 1 {
		return nil, eboxerr.Newf(op, eboxerr.KindUnsupportedVersion, "version %d", ver)
	}
	typ, err := r.U8()
	if err != nil {
		return nil, eboxerr.New(op, eboxerr.KindIoTruncated, err)
	}
	if typ != typeRequest {
		return nil, eboxerr.Newf(op, eboxerr.KindBadTag, "type %d, want REQUEST", typ)
	}
	c := &Challenge{}
	idBytes, err := r.Fixed(challengeIDLen)
	if err != nil {
		return nil, eboxerr.New(op, eboxerr.KindIoTruncated, err)
	}
	copy(c.ID[:], idBytes)

	hostname, err := r.String()
	if err != nil {
		return nil, eboxerr.New(op, eboxerr.KindIoTruncated, err)
	}
	c.Hostname = string(hostname)

	createdAt, err := r.U64()
	if err != nil {
		return nil, eboxerr.New(op, eboxerr.KindIoTruncated, err)
	}
	c.CreatedAt = time.Unix(int64(createdAt), 0).UTC()

	desc, err := r.String()
	if err != nil {
		return nil, eboxerr.New(op, eboxerr.KindIoTruncated, err)
	}
	if len(desc) > maxDescriptionLen {
		return nil, eboxerr.New(op, eboxerr.KindDescTooLong, nil)
	}
	c.Description = string(desc)

	slotKeyBytes, err := r.String()
	if err != nil {
		return nil, eboxerr.New(op, eboxerr.KindIoTruncated, err)
	}
	slotKey, err := ecdh.P256().NewPublicKey(slotKeyBytes)
	if err != nil {
		return nil, eboxerr.New(op, eboxerr.KindPubkeyUnusable, err)
	}
	c.SlotPubKey = slotKey

	name, err := r.String()
	if err != nil {
		return nil, eboxerr.New(op, eboxerr.KindIoTruncated, err)
	}
	c.Name = string(name)

	cakBytes, err := r.String()
	if err != nil {
		return nil, eboxerr.New(op, eboxerr.KindIoTruncated, err)
	}
	if len(cakBytes) > 0 {
		cak, err := ecdh.P256().NewPublicKey(cakBytes)
		if err != nil {
			return nil, eboxerr.New(op, eboxerr.KindPubkeyUnusable, err)
		}
		c.CAK = cak
	}

	ephBytes, err := r.String()
	if err != nil {
		return nil, eboxerr.New(op, eboxerr.KindIoTruncated, err)
	}
	ephKey, err := ecdh.P256().NewPublicKey(ephBytes)
	if err != nil {
		return nil, eboxerr.New(op, eboxerr.KindPubkeyUnusable, err)
	}
	c.EphemeralPubKey = ephKey

	nonceBytes, err := r.Fixed(nonceLen)
	if err != nil {
		return nil, eboxerr.New(op, eboxerr.KindIoTruncated, err)
	}
	copy(c.Nonce[:], nonceBytes)

	return c, nil
}

// response is the plaintext sealed back to the challenge's ephemeral
// public key, in its RESPONSE wire layout.
type response struct {
	ChallengeID [challengeIDLen]byte
	Nonce       [nonceLen]byte
	Share       shamir.Share
}

func (r *response) encode() []byte {
	w := wire.NewWriter()
	w.PutU8(1)
	w.PutU8(typeResponse)
	w.PutFixed(r.ChallengeID[:])
	w.PutFixed(r.Nonce[:])
	w.PutString(r.Share.Encode())
	return w.Bytes()
}

func parseResponse(plaintext []byte) (*response, error) {
	const op = "recovery.parseResponse"
	r := wire.NewReader(plaintext)
	ver, err := r.U8()
	if err != nil {
		return nil, eboxerr.New(op, eboxerr.KindIoTruncated, err)
	}
	if ver != 1 {
		return nil, eboxerr.Newf(op, eboxerr.KindUnsupportedVersion, "version %d", ver)
	}
	typ, err := r.U8()
	if err != nil {
		return nil, eboxerr.New(op, eboxerr.KindIoTruncated, err)
	}
	if typ != typeResponse {
		return nil, eboxerr.New(op, eboxerr.KindBadResponse, nil)
	}
	resp := &response{}
	idBytes, err := r.Fixed(challengeIDLen)
	if err != nil {
		return nil, eboxerr.New(op, eboxerr.KindIoTruncated, err)
	}
	copy(resp.ChallengeID[:], idBytes)

	nonceBytes, err := r.Fixed(nonceLen)
	if err != nil {
		return nil, eboxerr.New(op, eboxerr.KindIoTruncated, err)
	}
	copy(resp.Nonce[:], nonceBytes)

	shareBytes, err := r.String()
	if err != nil {
		return nil, eboxerr.New(op, eboxerr.KindIoTruncated, err)
	}
	share, err := shamir.DecodeShare(shareBytes)
	if err != nil {
		return nil, eboxerr.New(op, eboxerr.KindBadResponse, err)
	}
	resp.Share = share

	return resp, nil
}

// BuildResponse is called on the remote side, after it has used its
// own card to unseal the challenge and separately unseal the part's
// ebox box to obtain the share. It builds and seals the response
// transport blob to the challenge's ephemeral public key.
func BuildResponse(c *Challenge, share shamir.Share) (*ecdhbox.Box, error) {
	const op = "recovery.BuildResponse"
	r := &response{ChallengeID: c.ID, Nonce: c.Nonce, Share: share}
	box, err := ecdhbox.Seal(c.EphemeralPubKey, r.encode(), []byte(responseInfo), nil)
	if err != nil {
		return nil, eboxerr.New(op, eboxerr.KindSealFailed, err)
	}
	return box, nil
}

const (
	challengeInfo = "ebox-recovery-challenge-v1"
	responseInfo  = "ebox-recovery-response-v1"
)
