/*
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 *
 * Copyright (c) 2026, Joyent Inc
 */

package recovery

import (
	"crypto/ecdh"
	"crypto/rand"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/joyent/go-ebox/ebox"
	"github.com/joyent/go-ebox/ecdhbox"
	"github.com/joyent/go-ebox/eboxerr"
	"github.com/joyent/go-ebox/internal/scrub"
	"github.com/joyent/go-ebox/shamir"
)

// State is one recovery part's position in the Idle -> Challenged ->
// Responded -> Combined lifecycle.
type State int

const (
	Idle State = iota
	Challenged
	Responded
	Combined
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Challenged:
		return "challenged"
	case Responded:
		return "responded"
	case Combined:
		return "combined"
	default:
		return "unknown"
	}
}

type partState struct {
	state         State
	ephemeralPriv []byte // raw P256 scalar; scrubbed on Close, reconstituted transiently in AcceptResponse
	challengeID   [challengeIDLen]byte
	nonce         [nonceLen]byte
	share         shamir.Share
}

func (ps *partState) scrub() {
	scrub.Bytes(ps.ephemeralPriv)
	scrub.Bytes(ps.nonce[:])
	scrub.Bytes(ps.share.Value[:])
}

// Session drives one recovery attempt over a single RECOVERY
// configuration. It holds at most one outstanding challenge per part,
// mirroring a one-pending-handshake-per-peer pendingState map;
// unlike that map, no mutex guards it, since the core is deliberately
// kept single-threaded with no internal synchronization — concurrent
// access is the caller's responsibility to serialize externally.
type Session struct {
	ID          string
	eb          *ebox.Ebox
	configIndex int
	cfg         *ebox.Config

	parts    map[int]*partState
	combined bool
}

// Begin starts a recovery session over eb's configIndex'th
// configuration, which must be RECOVERY.
func Begin(eb *ebox.Ebox, configIndex int) (*Session, error) {
	const op = "recovery.Begin"
	if configIndex < 0 || configIndex >= len(eb.Configs) {
		return nil, eboxerr.New(op, eboxerr.KindNotUnlocked, nil)
	}
	cfg := eb.Configs[configIndex]
	return &Session{
		ID:          uuid.NewString(),
		eb:          eb,
		configIndex: configIndex,
		cfg:         cfg,
		parts:       make(map[int]*partState),
	}, nil
}

// GenChallenge moves partIndex to Challenged: it generates a fresh
// ephemeral keypair, fills a challenge record, and returns the
// ECDH-box sealed to that part's slot public key for transport. A
// second call for the same part invalidates the first.
func (s *Session) GenChallenge(partIndex int, description string) (*ecdhbox.Box, error) {
	const op = "recovery.GenChallenge"
	if len(description) > maxDescriptionLen {
		return nil, eboxerr.New(op, eboxerr.KindDescTooLong, nil)
	}
	if partIndex < 0 || partIndex >= len(s.cfg.Parts) {
		return nil, eboxerr.New(op, eboxerr.KindBadTag, nil)
	}
	part := s.cfg.Parts[partIndex]

	ephPriv, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return nil, eboxerr.New(op, eboxerr.KindOutOfMemory, err)
	}
	id, err := newChallengeID()
	if err != nil {
		return nil, eboxerr.New(op, eboxerr.KindOutOfMemory, err)
	}
	var nonce [nonceLen]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, eboxerr.New(op, eboxerr.KindOutOfMemory, err)
	}

	hostname, _ := os.Hostname()
	c := &Challenge{
		ID:              id,
		Nonce:           nonce,
		Hostname:        hostname,
		CreatedAt:       time.Now().UTC(),
		Description:     description,
		SlotPubKey:      part.Template.PubKey,
		Name:            part.Template.Name,
		CAK:             part.Template.CAK,
		EphemeralPubKey: ephPriv.PublicKey(),
	}

	box, err := ecdhbox.Seal(part.Template.PubKey, c.encode(), []byte(challengeInfo), nil)
	if err != nil {
		return nil, eboxerr.New(op, eboxerr.KindSealFailed, err)
	}

	if old, ok := s.parts[partIndex]; ok {
		old.scrub()
	}
	s.parts[partIndex] = &partState{
		state:         Challenged,
		ephemeralPriv: ephPriv.Bytes(),
		challengeID:   id,
		nonce:         nonce,
	}
	return box, nil
}

// AcceptResponse unseals box with whichever outstanding challenge's
// ephemeral key opens it, verifies the challenge ID and nonce match,
// and stores the share on that part, moving it to Responded. Returns
// the matched part index.
func (s *Session) AcceptResponse(box *ecdhbox.Box) (int, error) {
	const op = "recovery.AcceptResponse"
	for idx, ps := range s.parts {
		if ps.state != Challenged && ps.state != Responded {
			continue
		}
		ephPriv, err := ecdh.P256().NewPrivateKey(ps.ephemeralPriv)
		if err != nil {
			continue
		}
		plaintext, err := ecdhbox.Unseal(ephPriv, box, []byte(responseInfo), nil)
		if err != nil {
			continue
		}
		resp, err := parseResponse(plaintext)
		if err != nil {
			return 0, eboxerr.New(op, eboxerr.KindBadResponse, err)
		}
		if resp.ChallengeID != ps.challengeID || resp.Nonce != ps.nonce {
			return 0, eboxerr.New(op, eboxerr.KindBadResponse, nil)
		}
		if ps.state == Responded {
			return idx, eboxerr.New(op, eboxerr.KindDuplicate, nil)
		}
		ps.share = resp.Share
		ps.state = Responded
		return idx, nil
	}
	return 0, eboxerr.New(op, eboxerr.KindBadResponse, nil)
}

// Words returns the four human-verification tokens for partIndex's
// outstanding challenge, for display alongside the matching call on
// the member's side (Challenge.Words), so both humans can confirm
// they are looking at the same exchange.
func (s *Session) Words(partIndex int) ([4]string, bool) {
	ps, ok := s.parts[partIndex]
	if !ok {
		return [4]string{}, false
	}
	c := &Challenge{ID: ps.challengeID, Nonce: ps.nonce}
	return c.Words(), true
}

// State reports partIndex's current lifecycle state.
func (s *Session) State(partIndex int) State {
	if ps, ok := s.parts[partIndex]; ok {
		return ps.state
	}
	return Idle
}

// Recover combines the shares of every Responded part; on success it
// installs the recovered payload key on the ebox and marks those parts
// Combined.
func (s *Session) Recover() ([]byte, error) {
	const op = "recovery.Recover"
	if s.combined {
		return nil, eboxerr.New(op, eboxerr.KindAlreadyRecovered, nil)
	}

	var shares []shamir.Share
	var responded []int
	for idx, ps := range s.parts {
		if ps.state == Responded {
			shares = append(shares, ps.share)
			responded = append(responded, idx)
		}
	}
	if len(shares) < s.cfg.Threshold {
		return nil, eboxerr.New(op, eboxerr.KindInsufficientShares, nil)
	}

	key, err := shamir.Combine(shares)
	if err != nil {
		return nil, eboxerr.New(op, eboxerr.KindCorruptRecovery, err)
	}
	defer scrub.Bytes(key[:])

	payload, token, err := s.cfg.DecryptCiphertext(key)
	if err != nil {
		return nil, err
	}

	s.eb.InstallKey(payload, token)
	s.combined = true
	for _, idx := range responded {
		s.parts[idx].state = Combined
	}
	return payload, nil
}

// Close zeroizes all per-part challenge state: ephemeral private key
// scalars, nonces and partial shares. Callers abandon a recovery by
// calling Close instead of letting the session be garbage collected,
// so secret material is overwritten deterministically rather than left
// for the GC to reclaim on its own schedule.
func (s *Session) Close() {
	for _, ps := range s.parts {
		ps.scrub()
	}
}
