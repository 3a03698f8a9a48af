/*
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 *
 * Copyright (c) 2026, Joyent Inc
 */

package template

import (
	"crypto/ecdh"
	"crypto/rand"
	"testing"

	"github.com/joyent/go-ebox/eboxerr"
	"github.com/stretchr/testify/require"
)

func genPart(t *testing.T, name string) *Part {
	t.Helper()
	priv, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)
	p := &Part{PubKey: priv.PublicKey(), Name: name}
	_, err = rand.Read(p.GUID[:])
	require.NoError(t, err)
	return p
}

func primaryTemplate(t *testing.T) *Template {
	t.Helper()
	tpl := New()
	cfg := &Config{Type: Primary, Threshold: 1}
	cfg.AddPart(genPart(t, "slot-9a"))
	tpl.AddConfig(cfg)
	return tpl
}

func recoveryTemplate(t *testing.T, n, m int) *Template {
	t.Helper()
	tpl := New()
	cfg := &Config{Type: Recovery, Threshold: n}
	for i := 0; i < m; i++ {
		cfg.AddPart(genPart(t, "recovery-part"))
	}
	tpl.AddConfig(cfg)
	return tpl
}

func TestValidatePrimary(t *testing.T) {
	tpl := primaryTemplate(t)
	require.NoError(t, tpl.Validate())
}

func TestValidatePrimaryRejectsExtraParts(t *testing.T) {
	tpl := primaryTemplate(t)
	tpl.Configs[0].AddPart(genPart(t, "extra"))
	require.Error(t, tpl.Validate())
}

func TestValidateRecovery(t *testing.T) {
	tpl := recoveryTemplate(t, 2, 3)
	require.NoError(t, tpl.Validate())
}

func TestValidateRecoveryRejectsSingleMember(t *testing.T) {
	tpl := recoveryTemplate(t, 1, 1)
	require.Error(t, tpl.Validate())
}

func TestValidateRecoveryRejectsThresholdAboveMembers(t *testing.T) {
	tpl := recoveryTemplate(t, 5, 3)
	require.Error(t, tpl.Validate())
}

func TestValidateEmptyTemplate(t *testing.T) {
	require.Error(t, New().Validate())
}

func TestCloneIsDeepCopy(t *testing.T) {
	tpl := recoveryTemplate(t, 2, 3)
	clone := tpl.Clone()

	require.Equal(t, len(tpl.Configs), len(clone.Configs))
	clone.Configs[0].AddPart(genPart(t, "added-after-clone"))
	require.NotEqual(t, len(tpl.Configs[0].Parts), len(clone.Configs[0].Parts))
}

func TestTLVRoundTripPrimary(t *testing.T) {
	tpl := primaryTemplate(t)
	decoded, err := FromTLV(tpl.ToTLV())
	require.NoError(t, err)
	require.Len(t, decoded.Configs, 1)
	require.Equal(t, Primary, decoded.Configs[0].Type)
	require.Equal(t, 1, decoded.Configs[0].Threshold)
	require.Len(t, decoded.Configs[0].Parts, 1)
	require.Equal(t, tpl.Configs[0].Parts[0].GUID, decoded.Configs[0].Parts[0].GUID)
	require.Equal(t, tpl.Configs[0].Parts[0].Name, decoded.Configs[0].Parts[0].Name)
	require.True(t, tpl.Configs[0].Parts[0].PubKey.Equal(decoded.Configs[0].Parts[0].PubKey))
}

func TestTLVRoundTripRecovery(t *testing.T) {
	tpl := recoveryTemplate(t, 2, 3)
	decoded, err := FromTLV(tpl.ToTLV())
	require.NoError(t, err)
	require.Len(t, decoded.Configs, 1)
	require.Equal(t, Recovery, decoded.Configs[0].Type)
	require.Equal(t, 2, decoded.Configs[0].Threshold)
	require.Len(t, decoded.Configs[0].Parts, 3)
}

func TestTLVBadMagicRejected(t *testing.T) {
	_, err := FromTLV([]byte{0, 0, 0, 0, 1, byte(1)})
	require.True(t, eboxerr.Is(err, eboxerr.KindBadMagic))
}

func TestPartByGUID(t *testing.T) {
	tpl := recoveryTemplate(t, 2, 3)
	cfg := tpl.Configs[0]
	want := cfg.Parts[1].GUID

	got, ok := cfg.PartByGUID(want)
	require.True(t, ok)
	require.Same(t, cfg.Parts[1], got)

	var missing [16]byte
	_, ok = cfg.PartByGUID(missing)
	require.False(t, ok)
}

func TestYAMLRoundTrip(t *testing.T) {
	tpl := recoveryTemplate(t, 2, 3)
	doc, err := tpl.ToYAML()
	require.NoError(t, err)

	decoded, err := FromYAML(doc)
	require.NoError(t, err)
	require.Len(t, decoded.Configs, 1)
	require.Equal(t, Recovery, decoded.Configs[0].Type)
	require.Equal(t, 2, decoded.Configs[0].Threshold)
	require.Len(t, decoded.Configs[0].Parts, 3)
	for i, p := range decoded.Configs[0].Parts {
		require.True(t, tpl.Configs[0].Parts[i].PubKey.Equal(p.PubKey))
		require.Equal(t, tpl.Configs[0].Parts[i].GUID, p.GUID)
	}
}

func TestYAMLRejectsUnknownConfigType(t *testing.T) {
	_, err := FromYAML([]byte("configs:\n  - type: quorum\n    threshold: 1\n    parts: []\n"))
	require.True(t, eboxerr.Is(err, eboxerr.KindBadTag))
}
