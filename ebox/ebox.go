/*
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 *
 * Copyright (c) 2026, Joyent Inc
 */

// Package ebox implements the sealed-container data model and the
// seal/unlock algorithms: binding a template snapshot to a sealed
// payload, either directly per PRIMARY part or, for RECOVERY
// configurations, as a Shamir-threshold-shared configuration key
// guarding an AEAD-encrypted payload. The key derivation mirrors an
// HKDF-based session key schedule (a deriveKeys pattern generalized
// from a handshake transcript to a (nonce, payload, token) tuple), and
// the AEAD matches the ChaCha20-Poly1305 construction already used by
// ecdhbox for the per-part seal.
package ebox

import (
	"crypto/rand"
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/joyent/go-ebox/ecdhbox"
	"github.com/joyent/go-ebox/eboxerr"
	"github.com/joyent/go-ebox/internal/scrub"
	"github.com/joyent/go-ebox/shamir"
	"github.com/joyent/go-ebox/template"
	"github.com/joyent/go-ebox/tlv"
	"github.com/joyent/go-ebox/wire"
)

const (
	// partInfo binds a per-part ECDH-box seal to its purpose, distinct
	// from a challenge/response seal (recovery package uses its own
	// info strings) so a box from one context can never be replayed in
	// another.
	partInfo       = "ebox-part-v1"
	configKeyInfo  = "ebox-config-key-v1"
	maxPayloadLen  = 255
	maxTokenLen    = 255
	configKeyLen   = shamir.SecretLen
	aeadNonceLen   = chacha20poly1305.NonceSize
	configNonceLen = 32
)

// Part is one configuration's per-card sealed material. For a PRIMARY
// config, Box seals the payload (and token) directly. For a RECOVERY
// config, Box seals (configuration nonce || Shamir share). Unsealed is
// populated by the caller after it has driven the external PIV
// unseal; the core never performs that unseal itself.
type Part struct {
	Template *template.Part
	Box      *ecdhbox.Box

	unsealed []byte
}

// AttachUnsealed records the plaintext an external PIV driver produced
// by unsealing this part's Box. Only meaningful for parts of a PRIMARY
// config; recovery parts are unsealed through the challenge/response
// protocol in package recovery, not through this method.
func (p *Part) AttachUnsealed(plaintext []byte) {
	p.unsealed = plaintext
}

// Config is one instantiated configuration: a type, threshold, and its
// per-part sealed material. RECOVERY configs additionally carry the
// configuration nonce and the AEAD-encrypted recovery ciphertext.
type Config struct {
	Type      template.ConfigType
	Threshold int
	Parts     []*Part

	Nonce      [configNonceLen]byte
	Ciphertext []byte
}

// Ebox is a sealed container: a template snapshot plus, per
// configuration, the sealed material that lets either a single primary
// unseal or a threshold of recovery shares reconstruct the payload key.
type Ebox struct {
	Template *template.Template
	Configs  []*Config

	payloadKey []byte
	token      []byte
}

// deriveConfigKeyAndNonce derives the 32-byte Shamir-shared
// configuration key and the 12-byte AEAD nonce for a recovery config.
// The AEAD nonce is drawn straight from the (public) configuration
// nonce since the key itself is freshly random per seal and never
// reused, so nonce/key pair uniqueness holds without an extra KDF
// call; the configuration key itself is salted by the configuration
// nonce so two seals of the same payload under the same template never
// derive the same key.
func deriveConfigKeyAndNonce(nonce [configNonceLen]byte, payload, token []byte) ([configKeyLen]byte, [aeadNonceLen]byte, error) {
	var key [configKeyLen]byte
	var aeadNonce [aeadNonceLen]byte

	ikm := make([]byte, 0, len(payload)+len(token))
	ikm = append(ikm, payload...)
	ikm = append(ikm, token...)
	defer scrub.Bytes(ikm)

	r := hkdf.New(sha256.New, ikm, nonce[:], []byte(configKeyInfo))
	if _, err := io.ReadFull(r, key[:]); err != nil {
		return key, aeadNonce, err
	}
	copy(aeadNonce[:], nonce[:aeadNonceLen])
	return key, aeadNonce, nil
}

// payloadPlaintext builds the plaintext sealed inside a part's box (for
// PRIMARY) or the recovery ciphertext (for RECOVERY): a tag-based item
// stream, TagPayload always present and TagRecovToken present only when
// a token was supplied, so a reader that does not know about
// TagRecovToken (a Version1 writer never emits it) still recovers
// TagPayload by skipping the unrecognized tag, matching ebox.h's
// EBOX_RECOV_KEY/EBOX_RECOV_TOKEN split.
func payloadPlaintext(payload, token []byte) []byte {
	w := wire.NewWriter()
	tlv.WriteItem(w, tlv.TagPayload, payload)
	if len(token) > 0 {
		tlv.WriteItem(w, tlv.TagRecovToken, token)
	}
	tlv.WriteEnd(w)
	return w.Bytes()
}

func parsePayloadPlaintext(b []byte) (payload, token []byte, err error) {
	const op = "ebox.parsePayloadPlaintext"
	var havePayload bool
	rerr := tlv.ReadItems(wire.NewReader(b), func(it tlv.Item) error {
		switch it.Tag {
		case tlv.TagPayload:
			payload = append([]byte(nil), it.Value...)
			havePayload = true
		case tlv.TagRecovToken:
			token = append([]byte(nil), it.Value...)
		}
		return nil
	})
	if rerr != nil {
		return nil, nil, eboxerr.New(op, eboxerr.KindBadLength, rerr)
	}
	if !havePayload {
		return nil, nil, eboxerr.New(op, eboxerr.KindBadLength, nil)
	}
	return payload, token, nil
}

// Seal produces an ebox from tpl bound to payload (canonically 32
// bytes, up to maxPayloadLen permitted) and an optional token of up to
// maxTokenLen bytes.
func Seal(tpl *template.Template, payload, token []byte) (*Ebox, error) {
	const op = "ebox.Seal"
	if err := tpl.Validate(); err != nil {
		return nil, err
	}
	if len(payload) == 0 || len(payload) > maxPayloadLen {
		return nil, eboxerr.Newf(op, eboxerr.KindBadLength, "payload length %d", len(payload))
	}
	if len(token) > maxTokenLen {
		return nil, eboxerr.Newf(op, eboxerr.KindBadLength, "token length %d", len(token))
	}

	clone := tpl.Clone()
	eb := &Ebox{Template: clone}
	if len(token) > 0 {
		eb.token = append([]byte(nil), token...)
	}

	for _, tc := range clone.Configs {
		switch tc.Type {
		case template.Primary:
			cfg, err := sealPrimary(tc, payload, token)
			if err != nil {
				return nil, err
			}
			eb.Configs = append(eb.Configs, cfg)
		case template.Recovery:
			cfg, err := sealRecovery(tc, payload, token)
			if err != nil {
				return nil, err
			}
			eb.Configs = append(eb.Configs, cfg)
		default:
			return nil, eboxerr.Newf(op, eboxerr.KindBadTag, "unknown config type %d", tc.Type)
		}
	}
	return eb, nil
}

func sealPrimary(tc *template.Config, payload, token []byte) (*Config, error) {
	const op = "ebox.Seal"
	tp := tc.Parts[0]
	plaintext := payloadPlaintext(payload, token)
	defer scrub.Bytes(plaintext)

	box, err := ecdhbox.Seal(tp.PubKey, plaintext, []byte(partInfo), nil)
	if err != nil {
		return nil, eboxerr.New(op, eboxerr.KindSealFailed, err)
	}
	return &Config{
		Type:      template.Primary,
		Threshold: 1,
		Parts:     []*Part{{Template: tp, Box: box}},
	}, nil
}

func sealRecovery(tc *template.Config, payload, token []byte) (*Config, error) {
	const op = "ebox.Seal"
	var nonce [configNonceLen]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, eboxerr.New(op, eboxerr.KindOutOfMemory, err)
	}

	key, aeadNonce, err := deriveConfigKeyAndNonce(nonce, payload, token)
	if err != nil {
		return nil, eboxerr.New(op, eboxerr.KindSealFailed, err)
	}
	defer scrub.Bytes(key[:])

	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, eboxerr.New(op, eboxerr.KindSealFailed, err)
	}
	plaintext := payloadPlaintext(payload, token)
	defer scrub.Bytes(plaintext)
	ciphertext := aead.Seal(nil, aeadNonce[:], plaintext, nil)

	m := len(tc.Parts)
	shares, err := shamir.Split(key, tc.Threshold, m)
	if err != nil {
		return nil, eboxerr.New(op, eboxerr.KindSealFailed, err)
	}
	defer func() {
		for i := range shares {
			scrub.Bytes(shares[i].Value[:])
		}
	}()

	cfg := &Config{
		Type:       template.Recovery,
		Threshold:  tc.Threshold,
		Nonce:      nonce,
		Ciphertext: ciphertext,
	}
	for i, tp := range tc.Parts {
		sealed := make([]byte, 0, configNonceLen+1+configKeyLen)
		sealed = append(sealed, nonce[:]...)
		sealed = append(sealed, shares[i].Encode()...)
		defer scrub.Bytes(sealed)

		box, err := ecdhbox.Seal(tp.PubKey, sealed, []byte(partInfo), nil)
		if err != nil {
			return nil, eboxerr.New(op, eboxerr.KindSealFailed, err)
		}
		cfg.Parts = append(cfg.Parts, &Part{Template: tp, Box: box})
	}
	return cfg, nil
}

// ParseRecoveryShare parses the plaintext a card produces when it
// unseals a recovery part's Box: the configuration nonce followed by
// that part's encoded Shamir share. Used by a recovery member's side
// of the challenge/response exchange to recover its own share before
// calling recovery.BuildResponse.
func ParseRecoveryShare(plaintext []byte) (nonce [configNonceLen]byte, share shamir.Share, err error) {
	const op = "ebox.ParseRecoveryShare"
	want := configNonceLen + 1 + configKeyLen
	if len(plaintext) != want {
		return nonce, share, eboxerr.Newf(op, eboxerr.KindBadLength, "recovery share plaintext is %d bytes, want %d", len(plaintext), want)
	}
	copy(nonce[:], plaintext[:configNonceLen])
	share, err = shamir.DecodeShare(plaintext[configNonceLen:])
	if err != nil {
		return nonce, share, err
	}
	return nonce, share, nil
}

// Unlock scans configIndex (which must name a PRIMARY configuration)
// for a part with attached unsealed plaintext and installs the payload
// key on the ebox. Subsequent calls return the same cached key without
// rescanning.
func (eb *Ebox) Unlock(configIndex int) ([]byte, error) {
	const op = "ebox.Unlock"
	if eb.payloadKey != nil {
		return eb.payloadKey, nil
	}
	if configIndex < 0 || configIndex >= len(eb.Configs) {
		return nil, eboxerr.New(op, eboxerr.KindNotUnlocked, nil)
	}
	cfg := eb.Configs[configIndex]
	for _, p := range cfg.Parts {
		if p.unsealed == nil {
			continue
		}
		payload, token, err := parsePayloadPlaintext(p.unsealed)
		if err != nil {
			return nil, eboxerr.New(op, eboxerr.KindNotUnlocked, err)
		}
		eb.payloadKey = payload
		eb.token = token
		return payload, nil
	}
	return nil, eboxerr.New(op, eboxerr.KindNotUnlocked, nil)
}

// PayloadKey returns the payload key if the ebox has been unlocked or
// recovered, else nil.
func (eb *Ebox) PayloadKey() []byte { return eb.payloadKey }

// Token returns the optional recovery token if present, else nil.
func (eb *Ebox) Token() []byte { return eb.token }

// InstallKey records a recovered payload key and token on the ebox.
// Used by package recovery once Shamir combine and AEAD decryption of
// the recovery ciphertext both succeed.
func (eb *Ebox) InstallKey(payload, token []byte) {
	eb.payloadKey = payload
	eb.token = token
}

// Scrub overwrites the installed payload key and token, if any. Called
// when the caller is done with the ebox: long-lived secrets held on an
// ebox are scrubbed at ebox free.
func (eb *Ebox) Scrub() {
	scrub.Bytes(eb.payloadKey)
	scrub.Bytes(eb.token)
}

// DecryptCiphertext decrypts cfg's recovery ciphertext using a
// Shamir-combined configuration key, returning the payload and
// optional token on AEAD success. A failure here always means
// CorruptRecovery: either the ciphertext was tampered with or the
// combined key is wrong because fewer than N genuine shares were used.
func (cfg *Config) DecryptCiphertext(key [configKeyLen]byte) (payload, token []byte, err error) {
	const op = "ebox.DecryptCiphertext"
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, nil, eboxerr.New(op, eboxerr.KindCorruptRecovery, err)
	}
	var aeadNonce [aeadNonceLen]byte
	copy(aeadNonce[:], cfg.Nonce[:aeadNonceLen])

	plaintext, err := aead.Open(nil, aeadNonce[:], cfg.Ciphertext, nil)
	if err != nil {
		return nil, nil, eboxerr.New(op, eboxerr.KindCorruptRecovery, err)
	}
	defer scrub.Bytes(plaintext)
	payload, token, err = parsePayloadPlaintext(plaintext)
	if err != nil {
		return nil, nil, eboxerr.New(op, eboxerr.KindCorruptRecovery, err)
	}
	return append([]byte(nil), payload...), append([]byte(nil), token...), nil
}
