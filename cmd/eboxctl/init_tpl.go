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

	"github.com/joyent/go-ebox/internal/elog"
	"github.com/joyent/go-ebox/piv"
	"github.com/joyent/go-ebox/template"
)

var (
	tplOut        string
	cardsOut      string
	recoveryN     int
	recoveryM     int
	withoutCAK    bool
	primaryCardID string
)

var initTplCmd = &cobra.Command{
	Use:   "init-tpl",
	Short: "Generate a demo template plus its simulated card keystore",
	Long: `init-tpl provisions a set of simulated PIV cards and emits a
declarative access-policy template naming them: one PRIMARY
configuration over a single card, and one RECOVERY configuration over
M cards requiring any N of them to recover.

Real deployments author templates against already-provisioned
hardware cards; init-tpl exists to produce a runnable demo end to end
without real PIV tokens.`,
	Example: `  # One primary card, 2-of-3 recovery
  eboxctl init-tpl --recovery-n 2 --recovery-m 3 --template out/template.yaml --cards out/cards.json`,
	RunE: runInitTpl,
}

func init() {
	rootCmd.AddCommand(initTplCmd)

	initTplCmd.Flags().StringVar(&tplOut, "template", "template.yaml", "Output template file")
	initTplCmd.Flags().StringVar(&cardsOut, "cards", "cards.json", "Output simulated card keystore")
	initTplCmd.Flags().IntVar(&recoveryN, "recovery-n", 2, "Recovery threshold N")
	initTplCmd.Flags().IntVar(&recoveryM, "recovery-m", 3, "Recovery member count M")
	initTplCmd.Flags().BoolVar(&withoutCAK, "without-cak", false, "Skip CAK provisioning on recovery cards")
	initTplCmd.Flags().StringVar(&primaryCardID, "primary-name", "primary", "Name for the primary card")
}

func runInitTpl(cmd *cobra.Command, args []string) error {
	if recoveryN < 1 || recoveryM < recoveryN || recoveryM < 2 {
		return fmt.Errorf("recovery-n/recovery-m must satisfy M>=2 and M>=N>=1, got N=%d M=%d", recoveryN, recoveryM)
	}

	var cards []*piv.Card
	tpl := template.New()

	primaryCard, err := piv.NewCard(primaryCardID, true)
	if err != nil {
		return fmt.Errorf("generating primary card: %w", err)
	}
	log.Debug("generated card", elog.String("name", primaryCard.Name), elog.Bool("primary", true))
	cards = append(cards, primaryCard)
	primaryCfg := &template.Config{Type: template.Primary, Threshold: 1}
	primaryCfg.AddPart(&template.Part{
		PubKey: primaryCard.SlotPublicKey(),
		Name:   primaryCard.Name,
		CAK:    primaryCard.CAKPublicKey(),
		GUID:   primaryCard.GUID,
	})
	tpl.AddConfig(primaryCfg)

	recoveryCfg := &template.Config{Type: template.Recovery, Threshold: recoveryN}
	for i := 0; i < recoveryM; i++ {
		name := fmt.Sprintf("recovery-%d", i+1)
		card, err := piv.NewCard(name, !withoutCAK)
		if err != nil {
			return fmt.Errorf("generating %s: %w", name, err)
		}
		log.Debug("generated card", elog.String("name", card.Name), elog.Bool("primary", false))
		cards = append(cards, card)
		recoveryCfg.AddPart(&template.Part{
			PubKey: card.SlotPublicKey(),
			Name:   card.Name,
			CAK:    card.CAKPublicKey(),
			GUID:   card.GUID,
		})
	}
	tpl.AddConfig(recoveryCfg)

	if err := tpl.Validate(); err != nil {
		return fmt.Errorf("generated template failed validation: %w", err)
	}

	doc, err := tpl.ToYAML()
	if err != nil {
		return fmt.Errorf("rendering template: %w", err)
	}
	if err := os.WriteFile(tplOut, doc, 0644); err != nil {
		return fmt.Errorf("writing template: %w", err)
	}
	if err := saveKeystore(cardsOut, cards); err != nil {
		return fmt.Errorf("writing keystore: %w", err)
	}
	log.Info("template provisioned", elog.String("template", tplOut), elog.String("cards", cardsOut),
		elog.Int("recovery_n", recoveryN), elog.Int("recovery_m", recoveryM))

	fmt.Printf("Template written to %s (1 primary + %d-of-%d recovery)\n", tplOut, recoveryN, recoveryM)
	fmt.Printf("Card keystore written to %s (keep off the machine that would see a sealed ebox)\n", cardsOut)
	return nil
}
