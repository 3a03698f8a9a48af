/*
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 *
 * Copyright (c) 2026, Joyent Inc
 */

package ebox

import (
	"crypto/ecdh"

	"github.com/joyent/go-ebox/ecdhbox"
	"github.com/joyent/go-ebox/eboxerr"
)

func parseECPublicKey(b []byte) (*ecdh.PublicKey, error) {
	key, err := ecdh.P256().NewPublicKey(b)
	if err != nil {
		return nil, eboxerr.New("ebox.parseECPublicKey", eboxerr.KindPubkeyUnusable, err)
	}
	return key, nil
}

func encodeBox(box *ecdhbox.Box) []byte {
	return ecdhbox.Encode(box)
}

func decodeBox(b []byte) (*ecdhbox.Box, error) {
	return ecdhbox.Decode(b)
}
