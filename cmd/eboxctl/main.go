/*
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 *
 * Copyright (c) 2026, Joyent Inc
 */

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joyent/go-ebox/config"
	"github.com/joyent/go-ebox/internal/elog"
)

var opts config.Options
var log = elog.Default()

var rootCmd = &cobra.Command{
	Use:   "eboxctl",
	Short: "eboxctl manages ebox templates and sealed containers",
	Long: `eboxctl is a demonstration and operational CLI for ebox, the
encrypted-container and threshold-secret-recovery library.

This tool supports:
- Declarative access-policy template authoring (init-tpl)
- Sealing a payload under a template (seal)
- Unlocking a PRIMARY configuration (unlock)
- Driving an end-to-end RECOVERY challenge/response/combine cycle (recover)
- Exporting Prometheus metrics for the above (serve-metrics)`,
}

func main() {
	if err := config.LoadEnv(""); err != nil {
		fmt.Fprintf(os.Stderr, "Error: loading .env: %v\n", err)
		os.Exit(1)
	}
	opts = config.FromEnv(config.Default())
	log.SetLevel(elog.ParseLevel(opts.LogLevel))

	if err := rootCmd.Execute(); err != nil {
		log.Error("command failed", elog.Error(err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	// Note: commands are registered in their respective files
	// - init_tpl.go: initTplCmd
	// - seal.go: sealCmd
	// - unlock.go: unlockCmd
	// - recover.go: recoverCmd
	// - stream.go: streamEncryptCmd, streamDecryptCmd
	// - metrics_cmd.go: serveMetricsCmd
}
