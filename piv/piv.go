/*
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 *
 * Copyright (c) 2026, Joyent Inc
 */

// Package piv simulates the PIV smart-card driver: an external
// collaborator, since the real system seals and unseals through
// hardware the core never touches directly. There is no hardware
// available here, so this package is the in-memory stand-in exercised
// by tests and by cmd/eboxctl's demo flows: each Card holds its slot
// and optional CAK keypairs in memory, guarded by a mutex.
package piv

import (
	"crypto/ecdh"
	"crypto/rand"
	"sync"

	"github.com/joyent/go-ebox/ecdhbox"
	"github.com/joyent/go-ebox/eboxerr"
)

// Card is a simulated PIV token: a GUID, an optional card-authentication
// keypair, and one slot keypair. Real PIV tokens expose several slots
// (9a, 9c, 9d, 9e, ...); this simulator carries exactly the one slot an
// ebox part needs, since ebox addresses parts by slot public key, not
// by slot name.
type Card struct {
	mu sync.Mutex

	GUID [16]byte
	Name string

	slotPriv *ecdh.PrivateKey
	cakPriv  *ecdh.PrivateKey
}

// NewCard generates a fresh simulated card with a random GUID and slot
// keypair. withCAK additionally generates a card-authentication
// keypair, standing in for a token provisioned with CAK attestation.
func NewCard(name string, withCAK bool) (*Card, error) {
	const op = "piv.NewCard"
	c := &Card{Name: name}
	if _, err := rand.Read(c.GUID[:]); err != nil {
		return nil, eboxerr.New(op, eboxerr.KindOutOfMemory, err)
	}
	priv, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return nil, eboxerr.New(op, eboxerr.KindPubkeyUnusable, err)
	}
	c.slotPriv = priv
	if withCAK {
		cakPriv, err := ecdh.P256().GenerateKey(rand.Reader)
		if err != nil {
			return nil, eboxerr.New(op, eboxerr.KindPubkeyUnusable, err)
		}
		c.cakPriv = cakPriv
	}
	return c, nil
}

// LoadCard reconstructs a Card from previously generated key material,
// the counterpart to SlotPrivateKeyBytes/CAKPrivateKeyBytes. Used by a
// host process (cmd/eboxctl's demo keystore) that persists simulated
// cards across separate invocations, standing in for a real PIV token
// that keeps its keys resident between commands.
func LoadCard(name string, guid [16]byte, slotPriv *ecdh.PrivateKey, cakPriv *ecdh.PrivateKey) *Card {
	return &Card{Name: name, GUID: guid, slotPriv: slotPriv, cakPriv: cakPriv}
}

// SlotPrivateKeyBytes returns the raw slot private key, for a host
// process to persist alongside the card's GUID and name.
func (c *Card) SlotPrivateKeyBytes() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slotPriv.Bytes()
}

// CAKPrivateKeyBytes returns the raw card-authentication private key,
// or nil if this card has none.
func (c *Card) CAKPrivateKeyBytes() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cakPriv == nil {
		return nil
	}
	return c.cakPriv.Bytes()
}

// SlotPublicKey returns the slot's public key, the value recorded in a
// template part.
func (c *Card) SlotPublicKey() *ecdh.PublicKey {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slotPriv.PublicKey()
}

// CAKPublicKey returns the card-authentication public key, or nil if
// this card was provisioned without one.
func (c *Card) CAKPublicKey() *ecdh.PublicKey {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cakPriv == nil {
		return nil
	}
	return c.cakPriv.PublicKey()
}

// Unseal performs the opaque PIV unseal primitive: opens a box sealed
// to this card's slot public key. This is the one operation that might
// block on external hardware in a real deployment; here it is a
// synchronous in-memory ECDH open.
func (c *Card) Unseal(box *ecdhbox.Box, info, aad []byte) ([]byte, error) {
	c.mu.Lock()
	priv := c.slotPriv
	c.mu.Unlock()
	return ecdhbox.Unseal(priv, box, info, aad)
}
