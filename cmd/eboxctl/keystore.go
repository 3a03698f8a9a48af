/*
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 *
 * Copyright (c) 2026, Joyent Inc
 */

package main

import (
	"crypto/ecdh"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/joyent/go-ebox/piv"
)

// cardRecord is the on-disk form of a simulated card: hex-encoded raw
// key material, matching the file-backed key storage idiom of
// persisting exported key bytes as a JSON-wrapped hex string rather
// than a binary blob.
type cardRecord struct {
	Name     string `json:"name"`
	GUID     string `json:"guid"`
	SlotPriv string `json:"slot_priv"`
	CAKPriv  string `json:"cak_priv,omitempty"`
}

type keystore struct {
	Cards []cardRecord `json:"cards"`
}

func saveKeystore(path string, cards []*piv.Card) error {
	var ks keystore
	for _, c := range cards {
		rec := cardRecord{
			Name:     c.Name,
			GUID:     hex.EncodeToString(c.GUID[:]),
			SlotPriv: hex.EncodeToString(c.SlotPrivateKeyBytes()),
		}
		if cak := c.CAKPrivateKeyBytes(); cak != nil {
			rec.CAKPriv = hex.EncodeToString(cak)
		}
		ks.Cards = append(ks.Cards, rec)
	}
	data, err := json.MarshalIndent(&ks, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal keystore: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

func loadKeystore(path string) ([]*piv.Card, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keystore: %w", err)
	}
	var ks keystore
	if err := json.Unmarshal(data, &ks); err != nil {
		return nil, fmt.Errorf("parse keystore: %w", err)
	}
	cards := make([]*piv.Card, 0, len(ks.Cards))
	for _, rec := range ks.Cards {
		guidBytes, err := hex.DecodeString(rec.GUID)
		if err != nil || len(guidBytes) != 16 {
			return nil, fmt.Errorf("card %q: bad guid", rec.Name)
		}
		var guid [16]byte
		copy(guid[:], guidBytes)

		slotBytes, err := hex.DecodeString(rec.SlotPriv)
		if err != nil {
			return nil, fmt.Errorf("card %q: bad slot key: %w", rec.Name, err)
		}
		slotPriv, err := ecdh.P256().NewPrivateKey(slotBytes)
		if err != nil {
			return nil, fmt.Errorf("card %q: bad slot key: %w", rec.Name, err)
		}

		var cakPriv *ecdh.PrivateKey
		if rec.CAKPriv != "" {
			cakBytes, err := hex.DecodeString(rec.CAKPriv)
			if err != nil {
				return nil, fmt.Errorf("card %q: bad cak key: %w", rec.Name, err)
			}
			cakPriv, err = ecdh.P256().NewPrivateKey(cakBytes)
			if err != nil {
				return nil, fmt.Errorf("card %q: bad cak key: %w", rec.Name, err)
			}
		}

		cards = append(cards, piv.LoadCard(rec.Name, guid, slotPriv, cakPriv))
	}
	return cards, nil
}

func findCard(cards []*piv.Card, guid [16]byte) (*piv.Card, bool) {
	for _, c := range cards {
		if c.GUID == guid {
			return c, true
		}
	}
	return nil, false
}
