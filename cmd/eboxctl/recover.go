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

	"github.com/joyent/go-ebox/ebox"
	"github.com/joyent/go-ebox/ecdhbox"
	"github.com/joyent/go-ebox/internal/elog"
	"github.com/joyent/go-ebox/internal/metrics"
	"github.com/joyent/go-ebox/piv"
	"github.com/joyent/go-ebox/recovery"
)

var (
	recoverIn     string
	recoverCards  string
	recoverConfig int
)

var recoverCmd = &cobra.Command{
	Use:   "recover",
	Short: "Run an end-to-end RECOVERY challenge/response/combine cycle",
	Long: `recover demonstrates the full remote-recovery protocol against
a RECOVERY configuration: it challenges every member card in turn,
has each card produce a response (standing in for the out-of-band
exchange a real deployment carries over some transport), accepts the
responses, and combines shares once threshold is reached.

Real deployments run the challenging side and each card holder's side
as separate processes exchanging challenge/response boxes over
whatever channel they choose; this command collapses that exchange
into one process for demonstration.`,
	Example: `  eboxctl recover --in out/secret.ebox --cards out/cards.json`,
	RunE:    runRecover,
}

func init() {
	rootCmd.AddCommand(recoverCmd)

	recoverCmd.Flags().StringVar(&recoverIn, "in", "secret.ebox", "Sealed container file")
	recoverCmd.Flags().StringVar(&recoverCards, "cards", "cards.json", "Card keystore file")
	recoverCmd.Flags().IntVar(&recoverConfig, "config", 1, "Index of the RECOVERY configuration to recover")
}

func runRecover(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(recoverIn)
	if err != nil {
		return fmt.Errorf("reading container: %w", err)
	}
	eb, err := ebox.FromTLV(data)
	if err != nil {
		return fmt.Errorf("parsing container: %w", err)
	}
	cards, err := loadKeystore(recoverCards)
	if err != nil {
		return err
	}
	if recoverConfig < 0 || recoverConfig >= len(eb.Configs) {
		return fmt.Errorf("config index %d out of range", recoverConfig)
	}

	session, err := recovery.Begin(eb, recoverConfig)
	if err != nil {
		return fmt.Errorf("starting session: %w", err)
	}
	defer session.Close()
	log.Info("recovery session started", elog.String("in", recoverIn), elog.Int("config", recoverConfig))

	cfg := eb.Configs[recoverConfig]
	for i, part := range cfg.Parts {
		card, ok := findCard(cards, part.Template.GUID)
		if !ok {
			log.Debug("no matching card for part", elog.Int("part", i))
			fmt.Printf("part %d: no matching card, skipping\n", i)
			continue
		}

		challengeBox, err := session.GenChallenge(i, fmt.Sprintf("recovery of %s", recoverIn))
		if err != nil {
			log.Warn("challenge failed", elog.Int("part", i), elog.Error(err))
			fmt.Printf("part %d: challenge failed: %v\n", i, err)
			continue
		}
		metrics.ChallengesIssued.Inc()

		responseBox, err := respondAsCard(card, part, challengeBox)
		if err != nil {
			log.Warn("response failed", elog.Int("part", i), elog.String("card", card.Name), elog.Error(err))
			fmt.Printf("part %d (%s): %v\n", i, card.Name, err)
			continue
		}

		if _, err := session.AcceptResponse(responseBox); err != nil {
			metrics.ResponsesRejected.WithLabelValues(kindOf(err)).Inc()
			log.Warn("response rejected", elog.Int("part", i), elog.String("card", card.Name), elog.Error(err))
			fmt.Printf("part %d (%s): response rejected: %v\n", i, card.Name, err)
			continue
		}
		metrics.ResponsesAccepted.Inc()
		words, _ := session.Words(i)
		log.Debug("part responded", elog.Int("part", i), elog.String("card", card.Name))
		fmt.Printf("part %d (%s): responded (verification words %v)\n", i, card.Name, words)
	}

	payload, err := session.Recover()
	if err != nil {
		metrics.Recoveries.WithLabelValues("error").Inc()
		log.Error("recovery failed", elog.Error(err))
		return fmt.Errorf("recovering: %w", err)
	}
	metrics.Recoveries.WithLabelValues("ok").Inc()
	log.Info("recovery succeeded", elog.Int("payload_bytes", len(payload)))

	var responded int
	for i := range cfg.Parts {
		if session.State(i) == recovery.Combined {
			responded++
		}
	}
	metrics.PartsPerRecovery.Observe(float64(responded))

	fmt.Printf("Recovered payload (%d bytes): %q\n", len(payload), payload)
	return nil
}

// respondAsCard simulates the remote member side: it unseals the
// challenge with the card's slot key, recovers the part's own
// nonce/share from the ebox part's sealed box (the same out-of-band
// unseal a PRIMARY unlock performs), and builds the sealed response.
func respondAsCard(card *piv.Card, part *ebox.Part, challengeBox *ecdhbox.Box) (*ecdhbox.Box, error) {
	challengePlaintext, err := card.Unseal(challengeBox, []byte("ebox-recovery-challenge-v1"), nil)
	if err != nil {
		return nil, fmt.Errorf("unsealing challenge: %w", err)
	}
	c, err := recovery.ParseChallenge(challengePlaintext)
	if err != nil {
		return nil, fmt.Errorf("parsing challenge: %w", err)
	}

	sealed, err := card.Unseal(part.Box, []byte("ebox-part-v1"), nil)
	if err != nil {
		return nil, fmt.Errorf("unsealing part share: %w", err)
	}
	_, share, err := ebox.ParseRecoveryShare(sealed)
	if err != nil {
		return nil, fmt.Errorf("extracting share: %w", err)
	}

	return recovery.BuildResponse(c, share)
}
