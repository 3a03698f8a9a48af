/*
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 *
 * Copyright (c) 2026, Joyent Inc
 */

// Package tlv implements a tag-length-value object codec: a 4-byte
// magic and 1-byte version envelope wrapping
// a stream of (tag uint8, value) items terminated by END=0, with
// unknown tags skipped for forward compatibility. It is built on wire
// (the buffered-primitive layer) and is grounded on ebox.h's
// enum ebox_type / enum ebox_part_tag (original_source/ebox.h).
package tlv

import (
	"github.com/joyent/go-ebox/eboxerr"
	"github.com/joyent/go-ebox/wire"
)

// Kind identifies the outer object kind (ebox.h: enum ebox_type).
type Kind uint8

const (
	KindTemplate Kind = 0x01
	KindEbox     Kind = 0x02
	KindStream   Kind = 0x03
)

// Tag identifies a part-level item (ebox.h: enum ebox_part_tag).
type Tag uint8

const (
	TagEnd    Tag = 0
	TagPubkey Tag = 1
	TagName   Tag = 2
	TagCak    Tag = 3
	TagGuid   Tag = 4
	TagBox    Tag = 5

	// Config/template-level framing tags. Their values are themselves
	// nested item streams (a config's value is a stream of TagPart
	// items terminated by TagEnd; a part's value is a stream of
	// TagPubkey/TagName/TagCak/TagGuid/TagBox terminated by TagEnd),
	// since every item is already opaquely length-framed regardless of
	// what it contains.
	TagConfigType  Tag = 6
	TagThreshold   Tag = 7
	TagPart        Tag = 8
	TagConfig      Tag = 9
	TagNonce       Tag = 10 // recovery config nonce
	TagCiphertext  Tag = 11 // recovery ciphertext
	TagRecovToken  Tag = 12 // sealed recovery token (version 2)

	// TagPayload tags the sealed payload key inside a part's box
	// plaintext (PRIMARY) or the recovery ciphertext plaintext
	// (RECOVERY), alongside the optional TagRecovToken: together they
	// are the EBOX_RECOV_KEY/EBOX_RECOV_TOKEN split ebox.h uses inside
	// the recovery plaintext envelope, generalized to both sealing
	// modes since both share the same (payload, token) plaintext shape.
	TagPayload Tag = 13
)

// Version1 is the original wire version. Version2 adds recovery-token
// support (SPEC_FULL.md §12) without changing the envelope shape.
const (
	Version1 = 1
	Version2 = 2

	maxVersion = Version2
	magicLen   = 4

	// maxItemLen bounds a single item's declared length so a corrupt or
	// hostile length field can't force an enormous allocation; real
	// items (pubkeys, names, boxes) are all well under this.
	maxItemLen = 1 << 20
)

// Magic is the 4-byte envelope magic for every persisted ebox object.
var Magic = [magicLen]byte{'E', 'B', 'O', 'X'}

// Item is one decoded (tag, value) pair from a part's item stream.
type Item struct {
	Tag   Tag
	Value []byte
}

// WriteEnvelope appends the magic, version and kind byte to w.
func WriteEnvelope(w *wire.Writer, version uint8, kind Kind) {
	w.PutFixed(Magic[:])
	w.PutU8(version)
	w.PutU8(uint8(kind))
}

// ReadEnvelope reads and validates the magic/version/kind header,
// rejecting a kind byte other than wantKind, and returns the version
// found. template.FromTLV and ebox.FromTLV discard the version.
func ReadEnvelope(r *wire.Reader, wantKind Kind) (version uint8, err error) {
	magic, err := r.Fixed(magicLen)
	if err != nil {
		return 0, eboxerr.New("tlv.ReadEnvelope", eboxerr.KindIoTruncated, err)
	}
	for i := range magic {
		if magic[i] != Magic[i] {
			return 0, eboxerr.New("tlv.ReadEnvelope", eboxerr.KindBadMagic, nil)
		}
	}
	v, err := r.U8()
	if err != nil {
		return 0, eboxerr.New("tlv.ReadEnvelope", eboxerr.KindIoTruncated, err)
	}
	if v == 0 || v > maxVersion {
		return 0, eboxerr.Newf("tlv.ReadEnvelope", eboxerr.KindUnsupportedVersion, "version %d", v)
	}
	k, err := r.U8()
	if err != nil {
		return 0, eboxerr.New("tlv.ReadEnvelope", eboxerr.KindIoTruncated, err)
	}
	if Kind(k) != wantKind {
		return 0, eboxerr.Newf("tlv.ReadEnvelope", eboxerr.KindBadTag, "kind %d, want %d", k, wantKind)
	}
	return v, nil
}

// WriteItem appends a length-framed (tag, value) item. Every non-END
// item is length-prefixed uniformly so a decoder that does not
// recognize the tag can still skip over it.
func WriteItem(w *wire.Writer, tag Tag, value []byte) {
	w.PutU8(uint8(tag))
	w.PutString(value)
}

// WriteEnd appends the END sentinel (a bare tag byte, no length).
func WriteEnd(w *wire.Writer) {
	w.PutU8(uint8(TagEnd))
}

// ReadItem reads one item. When the returned Item.Tag is TagEnd, the
// stream has ended and Value is empty; callers must stop iterating.
func ReadItem(r *wire.Reader) (Item, error) {
	tagByte, err := r.U8()
	if err != nil {
		return Item{}, eboxerr.New("tlv.ReadItem", eboxerr.KindIoTruncated, err)
	}
	tag := Tag(tagByte)
	if tag == TagEnd {
		return Item{Tag: TagEnd}, nil
	}
	n, err := r.U32()
	if err != nil {
		return Item{}, eboxerr.New("tlv.ReadItem", eboxerr.KindIoTruncated, err)
	}
	if n > maxItemLen {
		return Item{}, eboxerr.Newf("tlv.ReadItem", eboxerr.KindBadLength, "item for tag %d too long: %d", tag, n)
	}
	value, err := r.Fixed(int(n))
	if err != nil {
		return Item{}, eboxerr.New("tlv.ReadItem", eboxerr.KindIoTruncated, err)
	}
	return Item{Tag: tag, Value: value}, nil
}

// ReadItems reads every item up to and including END, invoking fn for
// each non-END item; a non-nil error from fn stops the loop and is
// returned. fn never sees TagEnd. Unknown tags are simply whatever fn does not special
// case — since every item is length-framed, the loop itself never
// needs to understand a tag's meaning to skip it.
func ReadItems(r *wire.Reader, fn func(Item) error) error {
	for {
		item, err := ReadItem(r)
		if err != nil {
			return err
		}
		if item.Tag == TagEnd {
			return nil
		}
		if err := fn(item); err != nil {
			return err
		}
	}
}
