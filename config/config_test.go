/*
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 *
 * Copyright (c) 2026, Joyent Inc
 */

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	opts := Default()
	require.Equal(t, "templates", opts.TemplateDir)
	require.Empty(t, opts.MetricsAddr)
	require.Empty(t, opts.LogLevel)
}

func TestFromEnvOverlaysOnlySetVars(t *testing.T) {
	t.Setenv("EBOX_TEMPLATE_DIR", "/srv/ebox-templates")
	opts := FromEnv(Default())
	require.Equal(t, "/srv/ebox-templates", opts.TemplateDir)
	require.Empty(t, opts.MetricsAddr)
}

func TestFromEnvMetricsAndLogLevel(t *testing.T) {
	t.Setenv("EBOX_METRICS_ADDR", ":9090")
	t.Setenv("EBOX_LOG_LEVEL", "debug")
	opts := FromEnv(Default())
	require.Equal(t, ":9090", opts.MetricsAddr)
	require.Equal(t, "debug", opts.LogLevel)
}

func TestLoadEnvMissingFileIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, LoadEnv(filepath.Join(dir, "does-not-exist.env")))
}

func TestLoadEnvReadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("EBOX_LOG_LEVEL=trace\n"), 0600))

	require.NoError(t, LoadEnv(path))
	defer os.Unsetenv("EBOX_LOG_LEVEL")

	require.Equal(t, "trace", os.Getenv("EBOX_LOG_LEVEL"))
}
