/*
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 *
 * Copyright (c) 2026, Joyent Inc
 */

package ebox

import (
	"github.com/joyent/go-ebox/eboxerr"
	"github.com/joyent/go-ebox/template"
	"github.com/joyent/go-ebox/tlv"
	"github.com/joyent/go-ebox/wire"
)

// ToTLV encodes the ebox in its binary TLV wire form.
// Version2 is written whenever the ebox carries a recovery token,
// matching the supplemented recovery-token wire support (SPEC_FULL.md
// §12); otherwise Version1 is written for maximal compatibility.
func (eb *Ebox) ToTLV() []byte {
	version := uint8(tlv.Version1)
	if len(eb.token) > 0 {
		version = tlv.Version2
	}
	w := wire.NewWriter()
	tlv.WriteEnvelope(w, version, tlv.KindEbox)
	for _, c := range eb.Configs {
		writeConfig(w, c)
	}
	tlv.WriteEnd(w)
	return w.Bytes()
}

func writeConfig(w *wire.Writer, c *Config) {
	cw := wire.NewWriter()
	tlv.WriteItem(cw, tlv.TagConfigType, []byte{byte(c.Type)})
	tw := wire.NewWriter()
	tw.PutU32(uint32(c.Threshold))
	tlv.WriteItem(cw, tlv.TagThreshold, tw.Bytes())
	if c.Type == template.Recovery {
		tlv.WriteItem(cw, tlv.TagNonce, c.Nonce[:])
		tlv.WriteItem(cw, tlv.TagCiphertext, c.Ciphertext)
	}
	for _, p := range c.Parts {
		writePart(cw, p)
	}
	tlv.WriteEnd(cw)
	tlv.WriteItem(w, tlv.TagConfig, cw.Bytes())
}

func writePart(w *wire.Writer, p *Part) {
	pw := wire.NewWriter()
	tlv.WriteItem(pw, tlv.TagPubkey, p.Template.PubKey.Bytes())
	if p.Template.Name != "" {
		tlv.WriteItem(pw, tlv.TagName, []byte(p.Template.Name))
	}
	if p.Template.CAK != nil {
		tlv.WriteItem(pw, tlv.TagCak, p.Template.CAK.Bytes())
	}
	tlv.WriteItem(pw, tlv.TagGuid, p.Template.GUID[:])
	tlv.WriteItem(pw, tlv.TagBox, encodeBox(p.Box))
	tlv.WriteEnd(pw)
	tlv.WriteItem(w, tlv.TagPart, pw.Bytes())
}

// FromTLV decodes an ebox previously produced by ToTLV. Unknown tags
// at any level are skipped for forward compatibility with newer
// writers.
func FromTLV(b []byte) (*Ebox, error) {
	const op = "ebox.FromTLV"
	r := wire.NewReader(b)
	if _, err := tlv.ReadEnvelope(r, tlv.KindEbox); err != nil {
		return nil, err
	}
	eb := &Ebox{Template: template.New()}
	err := tlv.ReadItems(r, func(it tlv.Item) error {
		if it.Tag != tlv.TagConfig {
			return nil
		}
		cfg, tc, err := readConfig(it.Value)
		if err != nil {
			return err
		}
		eb.Configs = append(eb.Configs, cfg)
		eb.Template.AddConfig(tc)
		return nil
	})
	if err != nil {
		return nil, eboxerr.New(op, eboxerr.KindBadTag, err)
	}
	return eb, nil
}

func readConfig(value []byte) (*Config, *template.Config, error) {
	const op = "ebox.readConfig"
	cfg := &Config{}
	tc := &template.Config{}
	var haveType, haveThreshold bool
	err := tlv.ReadItems(wire.NewReader(value), func(it tlv.Item) error {
		switch it.Tag {
		case tlv.TagConfigType:
			if len(it.Value) != 1 {
				return eboxerr.New(op, eboxerr.KindBadLength, nil)
			}
			cfg.Type = template.ConfigType(it.Value[0])
			tc.Type = cfg.Type
			haveType = true
		case tlv.TagThreshold:
			r := wire.NewReader(it.Value)
			n, err := r.U32()
			if err != nil {
				return eboxerr.New(op, eboxerr.KindBadLength, err)
			}
			cfg.Threshold = int(n)
			tc.Threshold = int(n)
			haveThreshold = true
		case tlv.TagNonce:
			if len(it.Value) != configNonceLen {
				return eboxerr.New(op, eboxerr.KindBadLength, nil)
			}
			copy(cfg.Nonce[:], it.Value)
		case tlv.TagCiphertext:
			cfg.Ciphertext = append([]byte(nil), it.Value...)
		case tlv.TagPart:
			p, tp, err := readPart(it.Value)
			if err != nil {
				return err
			}
			cfg.Parts = append(cfg.Parts, p)
			tc.Parts = append(tc.Parts, tp)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if !haveType || !haveThreshold {
		return nil, nil, eboxerr.New(op, eboxerr.KindBadLength, nil)
	}
	return cfg, tc, nil
}

func readPart(value []byte) (*Part, *template.Part, error) {
	const op = "ebox.readPart"
	tp := &template.Part{}
	p := &Part{}
	var haveGUID, haveBox bool
	err := tlv.ReadItems(wire.NewReader(value), func(it tlv.Item) error {
		switch it.Tag {
		case tlv.TagPubkey:
			key, err := parseECPublicKey(it.Value)
			if err != nil {
				return err
			}
			tp.PubKey = key
		case tlv.TagName:
			tp.Name = string(it.Value)
		case tlv.TagCak:
			key, err := parseECPublicKey(it.Value)
			if err != nil {
				return err
			}
			tp.CAK = key
		case tlv.TagGuid:
			if len(it.Value) != 16 {
				return eboxerr.New(op, eboxerr.KindBadLength, nil)
			}
			copy(tp.GUID[:], it.Value)
			haveGUID = true
		case tlv.TagBox:
			box, err := decodeBox(it.Value)
			if err != nil {
				return err
			}
			p.Box = box
			haveBox = true
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if tp.PubKey == nil {
		return nil, nil, eboxerr.New(op, eboxerr.KindPubkeyUnusable, nil)
	}
	if !haveGUID || !haveBox {
		return nil, nil, eboxerr.New(op, eboxerr.KindBadLength, nil)
	}
	p.Template = tp
	return p, tp, nil
}
