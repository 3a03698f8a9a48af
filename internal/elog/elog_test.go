/*
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 *
 * Copyright (c) 2026, Joyent Inc
 */

package elog

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogLevels(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{DebugLevel, "DEBUG"},
		{InfoLevel, "INFO"},
		{WarnLevel, "WARN"},
		{ErrorLevel, "ERROR"},
		{FatalLevel, "FATAL"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.level.String())
		})
	}
}

func TestStructuredLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, WarnLevel)

	logger.Debug("debug message")
	assert.Empty(t, buf.String(), "debug message should be filtered")

	logger.Info("info message")
	assert.Empty(t, buf.String(), "info message should be filtered")

	logger.Warn("warn message")
	assert.NotEmpty(t, buf.String(), "warn message should be logged")

	buf.Reset()
	logger.Error("error message")
	assert.NotEmpty(t, buf.String(), "error message should be logged")
}

func TestStructuredLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, DebugLevel)

	logger.Info("sealed ebox", String("config", "recovery-1"), Int("parts", 3))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "sealed ebox", entry["message"])
	assert.Equal(t, "recovery-1", entry["config"])
	assert.Equal(t, float64(3), entry["parts"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLevel("debug"))
	assert.Equal(t, DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, WarnLevel, ParseLevel("warn"))
	assert.Equal(t, InfoLevel, ParseLevel(""))
	assert.Equal(t, InfoLevel, ParseLevel("not-a-level"))
}

func TestWithFieldsInherits(t *testing.T) {
	var buf bytes.Buffer
	base := New(&buf, DebugLevel).WithFields(String("component", "recovery"))
	base.Info("challenge issued")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "recovery", entry["component"])
}
