/*
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 *
 * Copyright (c) 2026, Joyent Inc
 */

package recovery

// The word list backing the human verification codes: four words,
// each deterministically derived from
// SHA-256(challenge-id || nonce), displayed at both ends of a recovery
// exchange so the two humans can confirm they are looking at the same
// challenge. Rather than embed a large external diceware list, the
// list is the product of a small adjective set and a small noun set,
// giving 256 distinct fixed entries addressable by a single byte.
var adjectives = [16]string{
	"amber", "brave", "calm", "dusty",
	"eager", "faded", "grand", "hollow",
	"inky", "jolly", "keen", "lucky",
	"misty", "noble", "olive", "pale",
}

var nouns = [16]string{
	"anchor", "badger", "canyon", "drum",
	"ember", "falcon", "glacier", "harbor",
	"island", "jasper", "kettle", "lantern",
	"meadow", "nugget", "otter", "pepper",
}

// word returns the fixed word for index b.
func word(b byte) string {
	return adjectives[b>>4] + "-" + nouns[b&0x0f]
}
