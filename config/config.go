/*
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 *
 * Copyright (c) 2026, Joyent Inc
 */

// Package config carries the tunables the core deliberately keeps out
// of its own packages (host CLI and template file discovery are left
// to callers). It follows the options-struct plus Default()/FromEnv()
// idiom used elsewhere in this module's command-line tooling, cut
// down to what a template-authoring host actually needs: no
// environment-file substitution, since a declarative policy document
// has no per-environment variation to resolve.
package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Options are the process-wide knobs cmd/eboxctl reads before it
// touches any template or ebox.
type Options struct {
	// TemplateDir names a directory of *.yaml policy documents. No
	// eboxctl command reads it; seal takes its template path from the
	// --template flag.
	TemplateDir string
	// MetricsAddr is the listen address for the Prometheus exporter,
	// empty to disable it.
	MetricsAddr string
	// LogLevel is the elog level name; FromEnv sets it from
	// EBOX_LOG_LEVEL when that variable is non-empty.
	LogLevel string
}

// Default returns the baseline options a fresh install starts from.
func Default() Options {
	return Options{
		TemplateDir: "templates",
		MetricsAddr: "",
		LogLevel:    "",
	}
}

// LoadEnv loads a .env file, if present, into the process environment
// before Options are read from it; missing files are not an error,
// matching the optional-overlay convention cmd/sage-crypto's
// godotenv.Load() call follows.
func LoadEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Load(path)
}

// FromEnv overlays environment variables onto opts, matching the
// corresponding Options field names prefixed with EBOX_.
func FromEnv(opts Options) Options {
	if v := os.Getenv("EBOX_TEMPLATE_DIR"); v != "" {
		opts.TemplateDir = v
	}
	if v := os.Getenv("EBOX_METRICS_ADDR"); v != "" {
		opts.MetricsAddr = v
	}
	if v := os.Getenv("EBOX_LOG_LEVEL"); v != "" {
		opts.LogLevel = v
	}
	return opts
}
