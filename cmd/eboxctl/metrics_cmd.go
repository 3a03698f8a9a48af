/*
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 *
 * Copyright (c) 2026, Joyent Inc
 */

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/joyent/go-ebox/internal/elog"
	"github.com/joyent/go-ebox/internal/metrics"
)

var metricsAddr string

var serveMetricsCmd = &cobra.Command{
	Use:   "serve-metrics",
	Short: "Expose Prometheus metrics for seal/unlock/recovery operations",
	Long: `serve-metrics runs a standalone HTTP server exposing the
counters and histograms seal, unlock, and recover commands record,
under /metrics, until interrupted.`,
	Example: `  eboxctl serve-metrics --addr :9090`,
	RunE:    runServeMetrics,
}

func init() {
	rootCmd.AddCommand(serveMetricsCmd)
	serveMetricsCmd.Flags().StringVar(&metricsAddr, "addr", "", "Listen address (overrides EBOX_METRICS_ADDR / config default)")
}

func runServeMetrics(cmd *cobra.Command, args []string) error {
	addr := metricsAddr
	if addr == "" {
		addr = opts.MetricsAddr
	}
	if addr == "" {
		addr = ":9090"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("serving metrics", elog.String("addr", addr))
	fmt.Printf("Serving metrics on %s/metrics\n", addr)
	return metrics.Serve(ctx, addr)
}
