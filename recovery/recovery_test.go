/*
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 *
 * Copyright (c) 2026, Joyent Inc
 */

package recovery

import (
	"testing"

	"github.com/joyent/go-ebox/ebox"
	"github.com/joyent/go-ebox/ecdhbox"
	"github.com/joyent/go-ebox/eboxerr"
	"github.com/joyent/go-ebox/piv"
	"github.com/joyent/go-ebox/shamir"
	"github.com/joyent/go-ebox/template"
	"github.com/stretchr/testify/require"
)

const partInfo = "ebox-part-v1"

type fixture struct {
	tpl   *template.Template
	cards []*piv.Card
	eb    *ebox.Ebox
}

func build2of3(t *testing.T, payload []byte) *fixture {
	t.Helper()
	tpl := template.New()
	cfg := &template.Config{Type: template.Recovery, Threshold: 2}
	var cards []*piv.Card
	for i := 0; i < 3; i++ {
		card, err := piv.NewCard("recovery-part", false)
		require.NoError(t, err)
		cards = append(cards, card)
		var guid [16]byte
		copy(guid[:], card.GUID[:])
		cfg.AddPart(&template.Part{PubKey: card.SlotPublicKey(), GUID: guid, Name: "recovery-part"})
	}
	tpl.AddConfig(cfg)

	eb, err := ebox.Seal(tpl, payload, nil)
	require.NoError(t, err)
	return &fixture{tpl: tpl, cards: cards, eb: eb}
}

// respondWithCard simulates the remote side of recovery: unseal the
// challenge with the card, separately unseal the ebox part's own box
// to recover the share, and build the sealed response.
func respondWithCard(t *testing.T, card *piv.Card, part *ebox.Part, challengeBox *ecdhbox.Box) *ecdhbox.Box {
	t.Helper()
	challengePlain, err := card.Unseal(challengeBox, []byte(challengeInfo), nil)
	require.NoError(t, err)
	chal, err := ParseChallenge(challengePlain)
	require.NoError(t, err)

	sealedShare, err := card.Unseal(part.Box, []byte(partInfo), nil)
	require.NoError(t, err)
	require.Len(t, sealedShare, 32+33)
	share, err := shamir.DecodeShare(sealedShare[32:])
	require.NoError(t, err)

	respBox, err := BuildResponse(chal, share)
	require.NoError(t, err)
	return respBox
}

func TestRecoveryTwoOfThree(t *testing.T) {
	payload := make([]byte, 32)
	for i := range payload {
		payload[i] = 0xAA
	}
	f := build2of3(t, payload)

	sess, err := Begin(f.eb, 0)
	require.NoError(t, err)

	cfg := f.eb.Configs[0]
	c1, err := sess.GenChallenge(0, "recover part 1")
	require.NoError(t, err)
	c3, err := sess.GenChallenge(2, "recover part 3")
	require.NoError(t, err)

	r1 := respondWithCard(t, f.cards[0], cfg.Parts[0], c1)
	r3 := respondWithCard(t, f.cards[2], cfg.Parts[2], c3)

	idx, err := sess.AcceptResponse(r1)
	require.NoError(t, err)
	require.Equal(t, 0, idx)
	idx, err = sess.AcceptResponse(r3)
	require.NoError(t, err)
	require.Equal(t, 2, idx)

	key, err := sess.Recover()
	require.NoError(t, err)
	require.Equal(t, payload, key)
	require.Equal(t, payload, f.eb.PayloadKey())
}

func TestRecoveryInsufficientShares(t *testing.T) {
	payload := make([]byte, 32)
	f := build2of3(t, payload)

	sess, err := Begin(f.eb, 0)
	require.NoError(t, err)
	cfg := f.eb.Configs[0]

	c1, err := sess.GenChallenge(0, "recover part 1")
	require.NoError(t, err)
	r1 := respondWithCard(t, f.cards[0], cfg.Parts[0], c1)
	_, err = sess.AcceptResponse(r1)
	require.NoError(t, err)

	_, err = sess.Recover()
	require.True(t, eboxerr.Is(err, eboxerr.KindInsufficientShares))
}

func TestRecoveryTamperedCiphertext(t *testing.T) {
	payload := make([]byte, 32)
	for i := range payload {
		payload[i] = 0xAA
	}
	f := build2of3(t, payload)

	sess, err := Begin(f.eb, 0)
	require.NoError(t, err)
	cfg := f.eb.Configs[0]

	c1, err := sess.GenChallenge(0, "recover part 1")
	require.NoError(t, err)
	c3, err := sess.GenChallenge(2, "recover part 3")
	require.NoError(t, err)
	r1 := respondWithCard(t, f.cards[0], cfg.Parts[0], c1)
	r3 := respondWithCard(t, f.cards[2], cfg.Parts[2], c3)
	_, err = sess.AcceptResponse(r1)
	require.NoError(t, err)
	_, err = sess.AcceptResponse(r3)
	require.NoError(t, err)

	cfg.Ciphertext[0] ^= 0xFF

	_, err = sess.Recover()
	require.True(t, eboxerr.Is(err, eboxerr.KindCorruptRecovery))
}

func TestRecoveryBadResponseStaleChallengeID(t *testing.T) {
	payload := make([]byte, 32)
	f := build2of3(t, payload)

	sess, err := Begin(f.eb, 0)
	require.NoError(t, err)
	cfg := f.eb.Configs[0]

	c2a, err := sess.GenChallenge(1, "first challenge")
	require.NoError(t, err)
	staleResp := respondWithCard(t, f.cards[1], cfg.Parts[1], c2a)

	// Re-challenging the same part invalidates the first ephemeral key,
	// so the stale response (sealed to the old ephemeral key) can no
	// longer be opened by any outstanding challenge.
	_, err = sess.GenChallenge(1, "second challenge")
	require.NoError(t, err)

	_, err = sess.AcceptResponse(staleResp)
	require.True(t, eboxerr.Is(err, eboxerr.KindBadResponse))
}

func TestRecoveryDuplicateResponse(t *testing.T) {
	payload := make([]byte, 32)
	f := build2of3(t, payload)

	sess, err := Begin(f.eb, 0)
	require.NoError(t, err)
	cfg := f.eb.Configs[0]

	c1, err := sess.GenChallenge(0, "recover part 1")
	require.NoError(t, err)
	r1 := respondWithCard(t, f.cards[0], cfg.Parts[0], c1)

	_, err = sess.AcceptResponse(r1)
	require.NoError(t, err)

	_, err = sess.AcceptResponse(r1)
	require.True(t, eboxerr.Is(err, eboxerr.KindDuplicate))
}

func TestRecoveryAlreadyRecovered(t *testing.T) {
	payload := make([]byte, 32)
	f := build2of3(t, payload)

	sess, err := Begin(f.eb, 0)
	require.NoError(t, err)
	cfg := f.eb.Configs[0]

	c1, _ := sess.GenChallenge(0, "p1")
	c2, _ := sess.GenChallenge(1, "p2")
	r1 := respondWithCard(t, f.cards[0], cfg.Parts[0], c1)
	r2 := respondWithCard(t, f.cards[1], cfg.Parts[1], c2)
	_, err = sess.AcceptResponse(r1)
	require.NoError(t, err)
	_, err = sess.AcceptResponse(r2)
	require.NoError(t, err)

	_, err = sess.Recover()
	require.NoError(t, err)

	_, err = sess.Recover()
	require.True(t, eboxerr.Is(err, eboxerr.KindAlreadyRecovered))
}

func TestDescriptionTooLong(t *testing.T) {
	payload := make([]byte, 32)
	f := build2of3(t, payload)
	sess, err := Begin(f.eb, 0)
	require.NoError(t, err)

	longDesc := make([]byte, 255)
	_, err = sess.GenChallenge(0, string(longDesc))
	require.True(t, eboxerr.Is(err, eboxerr.KindDescTooLong))
}

func TestWordsAreStableForSameChallenge(t *testing.T) {
	payload := make([]byte, 32)
	f := build2of3(t, payload)
	sess, err := Begin(f.eb, 0)
	require.NoError(t, err)

	box, err := sess.GenChallenge(0, "verify words")
	require.NoError(t, err)
	plain, err := f.cards[0].Unseal(box, []byte(challengeInfo), nil)
	require.NoError(t, err)
	c, err := ParseChallenge(plain)
	require.NoError(t, err)

	w1 := c.Words()
	w2 := c.Words()
	require.Equal(t, w1, w2)
}

func TestSessionWordsMatchChallengeWords(t *testing.T) {
	payload := make([]byte, 32)
	f := build2of3(t, payload)
	sess, err := Begin(f.eb, 0)
	require.NoError(t, err)

	box, err := sess.GenChallenge(0, "verify words")
	require.NoError(t, err)
	plain, err := f.cards[0].Unseal(box, []byte(challengeInfo), nil)
	require.NoError(t, err)
	c, err := ParseChallenge(plain)
	require.NoError(t, err)

	sessionWords, ok := sess.Words(0)
	require.True(t, ok)
	require.Equal(t, c.Words(), sessionWords)

	_, ok = sess.Words(99)
	require.False(t, ok)
}
