/*
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 *
 * Copyright (c) 2026, Joyent Inc
 */

package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/joyent/go-ebox/ebox"
	"github.com/joyent/go-ebox/eboxerr"
	"github.com/joyent/go-ebox/internal/elog"
	"github.com/joyent/go-ebox/internal/metrics"
	"github.com/joyent/go-ebox/template"
)

var (
	sealTplIn    string
	sealOut      string
	sealPayload  string
	sealToken    string
	sealPayloadF string
)

var sealCmd = &cobra.Command{
	Use:   "seal",
	Short: "Seal a payload under a template, producing a sealed container",
	Long: `seal reads a declarative YAML template, binds it to a payload
(and optional recovery token), and writes the resulting sealed
container in the binary wire format.`,
	Example: `  eboxctl seal --template out/template.yaml --payload "my secret" --out out/secret.ebox`,
	RunE:    runSeal,
}

func init() {
	rootCmd.AddCommand(sealCmd)

	sealCmd.Flags().StringVar(&sealTplIn, "template", "template.yaml", "Input template file")
	sealCmd.Flags().StringVar(&sealOut, "out", "secret.ebox", "Output sealed container file")
	sealCmd.Flags().StringVar(&sealPayload, "payload", "", "Payload as a UTF-8 string (mutually exclusive with --payload-file)")
	sealCmd.Flags().StringVar(&sealPayloadF, "payload-file", "", "Read the payload from this file")
	sealCmd.Flags().StringVar(&sealToken, "token", "", "Optional recovery token as a UTF-8 string")
}

func runSeal(cmd *cobra.Command, args []string) error {
	const op = "eboxctl.seal"
	start := time.Now()

	doc, err := os.ReadFile(sealTplIn)
	if err != nil {
		return fmt.Errorf("reading template: %w", err)
	}
	tpl, err := template.FromYAML(doc)
	if err != nil {
		return fmt.Errorf("parsing template: %w", err)
	}

	payload, err := resolvePayload()
	if err != nil {
		return err
	}

	eb, err := ebox.Seal(tpl, payload, []byte(sealToken))
	if err != nil {
		recordSealOutcome(tpl, "error")
		metrics.CryptoErrors.WithLabelValues(op, kindOf(err)).Inc()
		log.Error("seal failed", elog.String("template", sealTplIn), elog.Error(err))
		return fmt.Errorf("sealing: %w", err)
	}
	recordSealOutcome(tpl, "ok")
	metrics.OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())

	if err := os.WriteFile(sealOut, eb.ToTLV(), 0600); err != nil {
		return fmt.Errorf("writing container: %w", err)
	}
	log.Info("sealed container", elog.String("out", sealOut), elog.Int("configs", len(eb.Configs)),
		elog.Duration("elapsed", time.Since(start)))
	fmt.Printf("Sealed container written to %s (%d configurations)\n", sealOut, len(eb.Configs))
	return nil
}

func resolvePayload() ([]byte, error) {
	if sealPayload != "" && sealPayloadF != "" {
		return nil, fmt.Errorf("--payload and --payload-file are mutually exclusive")
	}
	if sealPayloadF != "" {
		return os.ReadFile(sealPayloadF)
	}
	if sealPayload == "" {
		return nil, fmt.Errorf("one of --payload or --payload-file is required")
	}
	return []byte(sealPayload), nil
}

func recordSealOutcome(tpl *template.Template, outcome string) {
	for _, c := range tpl.Configs {
		metrics.SealOperations.WithLabelValues(c.Type.String(), outcome).Inc()
	}
}

func kindOf(err error) string {
	var e *eboxerr.Error
	if errors.As(err, &e) {
		return string(e.Kind)
	}
	return "unknown"
}
