/*
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 *
 * Copyright (c) 2026, Joyent Inc
 */

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ebox"

// Registry is the process-wide Prometheus registry eboxctl's
// serve-metrics command exposes.
var Registry = prometheus.NewRegistry()

var (
	// SealOperations counts Seal calls by configuration type (primary,
	// recovery) and outcome.
	SealOperations = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "crypto",
			Name:      "seal_total",
			Help:      "Total number of Seal operations",
		},
		[]string{"config_type", "outcome"},
	)

	// UnlockOperations counts primary Unlock calls by outcome.
	UnlockOperations = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "crypto",
			Name:      "unlock_total",
			Help:      "Total number of primary Unlock operations",
		},
		[]string{"outcome"},
	)

	// CryptoErrors tracks operation failures by eboxerr.Kind.
	CryptoErrors = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "crypto",
			Name:      "errors_total",
			Help:      "Total number of cryptographic errors by kind",
		},
		[]string{"operation", "kind"},
	)

	// OperationDuration tracks Seal/Unlock latency.
	OperationDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "crypto",
			Name:      "operation_duration_seconds",
			Help:      "Seal/Unlock operation duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 15),
		},
		[]string{"operation"},
	)
)
