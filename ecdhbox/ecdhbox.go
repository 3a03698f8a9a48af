/*
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 *
 * Copyright (c) 2026, Joyent Inc
 */

// Package ecdhbox implements the ECDH-box primitive produced by the
// PIV smart-card driver: an opaque seal/unseal blob treated as an
// external collaborator by the rest of the module. There is no real PIV
// hardware behind this module, so this package supplies the concrete
// cryptography the "external" primitive stands for: an HPKE Base-mode
// seal to a recipient's NIST P-256 public key, directly generalizing
// the HPKE seal/export helper pattern used for X25519 peers elsewhere
// in this ecosystem (HPKESealAndExportToX25519Peer /
// HPKEOpenAndExportWithX25519Priv) to the curve PIV slots actually use.
package ecdhbox

import (
	"crypto/ecdh"
	"crypto/rand"

	"github.com/cloudflare/circl/hpke"
	"github.com/joyent/go-ebox/eboxerr"
	"github.com/joyent/go-ebox/wire"
)

// suite is fixed for the whole module: P-256 KEM, HKDF-SHA256 and
// ChaCha20-Poly1305 AEAD, matching the AEAD already in use for the
// recovery ciphertext (ebox package).
var suite = hpke.NewSuite(hpke.KEM_P256_HKDF_SHA256, hpke.KDF_HKDF_SHA256, hpke.AEAD_ChaCha20Poly1305)

// Box is an opaque sealed blob: an HPKE encapsulated key plus the
// AEAD ciphertext. Only the holder of the recipient's private key can
// open it.
type Box struct {
	Enc        []byte
	Ciphertext []byte
}

// Seal seals plaintext to recipientPub. info binds the seal to a
// particular purpose (e.g. "ebox-part-v1" or a challenge's transport
// context) so a box sealed for one purpose cannot be replayed as
// another; aad is additional authenticated (but not encrypted) data,
// typically empty.
func Seal(recipientPub *ecdh.PublicKey, plaintext, info, aad []byte) (*Box, error) {
	const op = "ecdhbox.Seal"
	if recipientPub == nil {
		return nil, eboxerr.New(op, eboxerr.KindPubkeyUnusable, nil)
	}
	kem := hpke.KEM_P256_HKDF_SHA256.Scheme()
	recip, err := kem.UnmarshalBinaryPublicKey(recipientPub.Bytes())
	if err != nil {
		return nil, eboxerr.New(op, eboxerr.KindPubkeyUnusable, err)
	}

	sender, err := suite.NewSender(recip, info)
	if err != nil {
		return nil, eboxerr.New(op, eboxerr.KindSealFailed, err)
	}
	enc, sealer, err := sender.Setup(rand.Reader)
	if err != nil {
		return nil, eboxerr.New(op, eboxerr.KindSealFailed, err)
	}
	ct, err := sealer.Seal(plaintext, aad)
	if err != nil {
		return nil, eboxerr.New(op, eboxerr.KindSealFailed, err)
	}
	return &Box{Enc: enc, Ciphertext: ct}, nil
}

// Unseal opens a Box sealed to recipientPriv, the keypair matching the
// public key Seal was called with. info and aad must match the values
// Seal used.
func Unseal(recipientPriv *ecdh.PrivateKey, box *Box, info, aad []byte) ([]byte, error) {
	const op = "ecdhbox.Unseal"
	if recipientPriv == nil || box == nil {
		return nil, eboxerr.New(op, eboxerr.KindUnsealFailed, nil)
	}
	kem := hpke.KEM_P256_HKDF_SHA256.Scheme()
	priv, err := kem.UnmarshalBinaryPrivateKey(recipientPriv.Bytes())
	if err != nil {
		return nil, eboxerr.New(op, eboxerr.KindUnsealFailed, err)
	}

	receiver, err := suite.NewReceiver(priv, info)
	if err != nil {
		return nil, eboxerr.New(op, eboxerr.KindUnsealFailed, err)
	}
	opener, err := receiver.Setup(box.Enc)
	if err != nil {
		return nil, eboxerr.New(op, eboxerr.KindUnsealFailed, err)
	}
	pt, err := opener.Open(box.Ciphertext, aad)
	if err != nil {
		return nil, eboxerr.New(op, eboxerr.KindUnsealFailed, err)
	}
	return pt, nil
}

// Encode serializes a Box to its opaque transport form.
func Encode(box *Box) []byte {
	w := wire.NewWriter()
	w.PutString(box.Enc)
	w.PutString(box.Ciphertext)
	return w.Bytes()
}

// Decode parses the opaque form Encode produced.
func Decode(b []byte) (*Box, error) {
	const op = "ecdhbox.Decode"
	r := wire.NewReader(b)
	enc, err := r.String()
	if err != nil {
		return nil, eboxerr.New(op, eboxerr.KindIoTruncated, err)
	}
	ct, err := r.String()
	if err != nil {
		return nil, eboxerr.New(op, eboxerr.KindIoTruncated, err)
	}
	return &Box{Enc: enc, Ciphertext: ct}, nil
}
