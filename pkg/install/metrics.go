// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package install

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	installAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hpcr_install_attempts_total",
			Help: "Total number of install attempts by package and outcome",
		},
		[]string{"package", "outcome"},
	)

	installDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hpcr_install_duration_seconds",
			Help:    "Install attempt latency in seconds",
			Buckets: []float64{1, 10, 60, 300, 900, 1800, 3600, 7200},
		},
		[]string{"package"},
	)

	installsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hpcr_installs_in_flight",
			Help: "Current number of install attempts in progress",
		},
	)
)

const outcomeSuccess = "success"
