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
	"time"

	"github.com/spf13/cobra"

	"github.com/joyent/go-ebox/ebox"
	"github.com/joyent/go-ebox/internal/elog"
	"github.com/joyent/go-ebox/internal/metrics"
)

var (
	unlockIn     string
	unlockCards  string
	unlockConfig int
)

var unlockCmd = &cobra.Command{
	Use:   "unlock",
	Short: "Unlock a PRIMARY configuration of a sealed container",
	Long: `unlock drives the one external operation ebox itself never
performs: finding the part whose card can unseal its box, asking that
card to do so, and handing the plaintext back to complete the unlock.
Here the "card" is the simulated keystore init-tpl provisioned.`,
	Example: `  eboxctl unlock --in out/secret.ebox --cards out/cards.json`,
	RunE:    runUnlock,
}

func init() {
	rootCmd.AddCommand(unlockCmd)

	unlockCmd.Flags().StringVar(&unlockIn, "in", "secret.ebox", "Sealed container file")
	unlockCmd.Flags().StringVar(&unlockCards, "cards", "cards.json", "Card keystore file")
	unlockCmd.Flags().IntVar(&unlockConfig, "config", 0, "Index of the PRIMARY configuration to unlock")
}

func runUnlock(cmd *cobra.Command, args []string) error {
	const op = "eboxctl.unlock"
	start := time.Now()

	data, err := os.ReadFile(unlockIn)
	if err != nil {
		return fmt.Errorf("reading container: %w", err)
	}
	eb, err := ebox.FromTLV(data)
	if err != nil {
		return fmt.Errorf("parsing container: %w", err)
	}
	if unlockConfig < 0 || unlockConfig >= len(eb.Configs) {
		return fmt.Errorf("config index %d out of range", unlockConfig)
	}
	cards, err := loadKeystore(unlockCards)
	if err != nil {
		return err
	}

	cfg := eb.Configs[unlockConfig]
	var unsealed bool
	for _, part := range cfg.Parts {
		card, ok := findCard(cards, part.Template.GUID)
		if !ok {
			continue
		}
		plaintext, err := card.Unseal(part.Box, []byte("ebox-part-v1"), nil)
		if err != nil {
			log.Debug("card unseal failed", elog.String("card", card.Name), elog.Error(err))
			continue
		}
		part.AttachUnsealed(plaintext)
		unsealed = true
		log.Debug("part unsealed", elog.String("card", card.Name))
		break
	}
	if !unsealed {
		metrics.UnlockOperations.WithLabelValues("no_matching_card").Inc()
		log.Warn("no matching card", elog.Int("config", unlockConfig))
		return fmt.Errorf("no card in keystore matches any part of configuration %d", unlockConfig)
	}

	payload, err := eb.Unlock(unlockConfig)
	if err != nil {
		metrics.UnlockOperations.WithLabelValues("error").Inc()
		metrics.CryptoErrors.WithLabelValues(op, kindOf(err)).Inc()
		log.Error("unlock failed", elog.Error(err))
		return fmt.Errorf("unlocking: %w", err)
	}
	metrics.UnlockOperations.WithLabelValues("ok").Inc()
	metrics.OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	log.Info("unlocked container", elog.String("in", unlockIn), elog.Duration("elapsed", time.Since(start)))

	fmt.Printf("Payload (%d bytes): %q\n", len(payload), payload)
	if token := eb.Token(); len(token) > 0 {
		fmt.Printf("Recovery token (%d bytes): %q\n", len(token), token)
	}
	return nil
}
