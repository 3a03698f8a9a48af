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

var (
	// ChallengesIssued counts GenChallenge calls.
	ChallengesIssued = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "recovery",
			Name:      "challenges_issued_total",
			Help:      "Total number of recovery challenges issued",
		},
	)

	// ResponsesAccepted counts successful AcceptResponse calls.
	ResponsesAccepted = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "recovery",
			Name:      "responses_accepted_total",
			Help:      "Total number of recovery responses accepted",
		},
	)

	// ResponsesRejected counts AcceptResponse calls that failed, by
	// eboxerr.Kind string.
	ResponsesRejected = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "recovery",
			Name:      "responses_rejected_total",
			Help:      "Total number of rejected recovery responses by failure kind",
		},
		[]string{"kind"},
	)

	// Recoveries counts completed Recover calls by outcome.
	Recoveries = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "recovery",
			Name:      "recoveries_total",
			Help:      "Total number of recovery attempts by outcome",
		},
		[]string{"outcome"},
	)

	// PartsPerRecovery tracks how many responded parts a successful
	// recovery combined, useful for spotting configurations where
	// members routinely respond far above threshold.
	PartsPerRecovery = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "recovery",
			Name:      "parts_combined",
			Help:      "Number of responded parts combined per successful recovery",
			Buckets:   prometheus.LinearBuckets(1, 1, 10),
		},
	)
)
