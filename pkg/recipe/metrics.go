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

package recipe

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	recipesRegistered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hpcr_recipes_registered_total",
			Help: "Total number of recipes registered",
		},
	)

	resolveTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hpcr_recipe_resolve_total",
			Help: "Total number of spec resolutions by recipe and result",
		},
		[]string{"recipe", "result"},
	)

	definitionLoadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hpcr_recipe_definition_load_duration_seconds",
			Help:    "Duration of loading and decoding recipe definitions in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 10),
		},
	)
)
