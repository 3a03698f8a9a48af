/*
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 *
 * Copyright (c) 2026, Joyent Inc
 */

package main

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/joyent/go-ebox/ebox"
	"github.com/joyent/go-ebox/internal/elog"
	"github.com/joyent/go-ebox/streamkey"
)

const streamChunkSize = 64 * 1024

var (
	streamIn      string
	streamCards   string
	streamConfig  int
	streamInFile  string
	streamOutFile string
)

var streamEncryptCmd = &cobra.Command{
	Use:   "stream-encrypt",
	Short: "Encrypt a file in chunks under an unlocked container's payload key",
	Long: `stream-encrypt unlocks a sealed container's PRIMARY
configuration and uses the resulting payload key to derive a bulk
stream key, then encrypts --data-in in fixed-size chunks to
--data-out. Each chunk is its own AEAD unit, length-prefixed on the
wire so stream-decrypt can read them back one at a time.`,
	Example: `  eboxctl stream-encrypt --in out/secret.ebox --cards out/cards.json --data-in plain.bin --data-out cipher.stream`,
	RunE:    runStreamEncrypt,
}

var streamDecryptCmd = &cobra.Command{
	Use:     "stream-decrypt",
	Short:   "Decrypt a file previously produced by stream-encrypt",
	Example: `  eboxctl stream-decrypt --in out/secret.ebox --cards out/cards.json --data-in cipher.stream --data-out plain.bin`,
	RunE:    runStreamDecrypt,
}

func init() {
	for _, cmd := range []*cobra.Command{streamEncryptCmd, streamDecryptCmd} {
		rootCmd.AddCommand(cmd)
		cmd.Flags().StringVar(&streamIn, "in", "secret.ebox", "Sealed container file")
		cmd.Flags().StringVar(&streamCards, "cards", "cards.json", "Card keystore file")
		cmd.Flags().IntVar(&streamConfig, "config", 0, "Index of the PRIMARY configuration to unlock")
		cmd.Flags().StringVar(&streamInFile, "data-in", "", "Input data file")
		cmd.Flags().StringVar(&streamOutFile, "data-out", "", "Output data file")
	}
}

func unlockPayloadKey() ([]byte, error) {
	data, err := os.ReadFile(streamIn)
	if err != nil {
		return nil, fmt.Errorf("reading container: %w", err)
	}
	eb, err := ebox.FromTLV(data)
	if err != nil {
		return nil, fmt.Errorf("parsing container: %w", err)
	}
	cards, err := loadKeystore(streamCards)
	if err != nil {
		return nil, err
	}
	if streamConfig < 0 || streamConfig >= len(eb.Configs) {
		return nil, fmt.Errorf("config index %d out of range", streamConfig)
	}
	cfg := eb.Configs[streamConfig]
	for _, part := range cfg.Parts {
		card, ok := findCard(cards, part.Template.GUID)
		if !ok {
			continue
		}
		plaintext, err := card.Unseal(part.Box, []byte("ebox-part-v1"), nil)
		if err != nil {
			continue
		}
		part.AttachUnsealed(plaintext)
		break
	}
	payloadKey, err := eb.Unlock(streamConfig)
	if err != nil {
		return nil, fmt.Errorf("unlocking: %w", err)
	}
	return payloadKey, nil
}

func runStreamEncrypt(cmd *cobra.Command, args []string) error {
	payloadKey, err := unlockPayloadKey()
	if err != nil {
		return err
	}
	in, err := os.Open(streamInFile)
	if err != nil {
		return fmt.Errorf("opening input: %w", err)
	}
	defer in.Close()
	out, err := os.Create(streamOutFile)
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}
	defer out.Close()

	stream, err := streamkey.InitEncrypt(payloadKey)
	if err != nil {
		return fmt.Errorf("initializing stream: %w", err)
	}

	buf := make([]byte, streamChunkSize)
	var chunks int
	for {
		n, err := in.Read(buf)
		if n > 0 {
			ct, sErr := stream.Put(buf[:n])
			if sErr != nil {
				return fmt.Errorf("encrypting chunk %d: %w", chunks, sErr)
			}
			if lErr := writeLengthPrefixed(out, ct); lErr != nil {
				return lErr
			}
			chunks++
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}
	}
	log.Info("stream encrypted", elog.String("in", streamInFile), elog.String("out", streamOutFile), elog.Int("chunks", chunks))
	fmt.Printf("Encrypted %d chunks to %s\n", chunks, streamOutFile)
	return nil
}

func runStreamDecrypt(cmd *cobra.Command, args []string) error {
	payloadKey, err := unlockPayloadKey()
	if err != nil {
		return err
	}
	in, err := os.Open(streamInFile)
	if err != nil {
		return fmt.Errorf("opening input: %w", err)
	}
	defer in.Close()
	out, err := os.Create(streamOutFile)
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}
	defer out.Close()

	stream, err := streamkey.InitDecrypt(payloadKey)
	if err != nil {
		return fmt.Errorf("initializing stream: %w", err)
	}

	var chunks int
	for {
		ct, err := readLengthPrefixed(in)
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading chunk %d: %w", chunks, err)
		}
		pt, err := stream.Get(ct)
		if err != nil {
			return fmt.Errorf("decrypting chunk %d: %w", chunks, err)
		}
		if _, err := out.Write(pt); err != nil {
			return fmt.Errorf("writing chunk %d: %w", chunks, err)
		}
		chunks++
	}
	log.Info("stream decrypted", elog.String("in", streamInFile), elog.String("out", streamOutFile), elog.Int("chunks", chunks))
	fmt.Printf("Decrypted %d chunks to %s\n", chunks, streamOutFile)
	return nil
}

func writeLengthPrefixed(w io.Writer, b []byte) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(b)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readLengthPrefixed(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
