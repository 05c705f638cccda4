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

package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNegotiateAPIVersion(t *testing.T) {
	tests := []struct {
		name   string
		accept string
		want   string
	}{
		{"no accept", "", DefaultAPIVersion},
		{"wildcard", "*/*", DefaultAPIVersion},
		{"plain json", "application/json", DefaultAPIVersion},
		{"hpcr v1", "application/vnd.nvidia.hpcr.v1+json", "v1"},
		{"hpcr v1 without suffix", "application/vnd.nvidia.hpcr.v1", "v1"},
		{"hpcr v1 with quality", "application/vnd.nvidia.hpcr.v1+json; q=0.9", "v1"},
		{"hpcr v1 after json", "application/json, application/vnd.nvidia.hpcr.v1+json", "v1"},
		{"unsupported skipped for supported", "application/vnd.nvidia.hpcr.v9+json, application/vnd.nvidia.hpcr.v1+json", "v1"},
		{"hpcr v2 unsupported", "application/vnd.nvidia.hpcr.v2+json", DefaultAPIVersion},
		{"other nvidia product", "application/vnd.nvidia.cns.v1+json", DefaultAPIVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/recipes", nil)
			if tt.accept != "" {
				req.Header.Set("Accept", tt.accept)
			}
			assert.Equal(t, tt.want, negotiateAPIVersion(req))
		})
	}
}

func TestAPIVersionHeaderOnRoutes(t *testing.T) {
	s := newRecipeServer(t)

	tests := []struct {
		name   string
		path   string
		status int
		want   string
	}{
		{"catalog", "/v1/recipes", http.StatusOK, "v1"},
		{"recipe", "/v1/recipes/cuda", http.StatusOK, "v1"},
		{"error response", "/v1/recipes/nope", http.StatusNotFound, "v1"},
		{"health bypasses middleware", "/health", http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			req.Header.Set("Accept", "application/vnd.nvidia.hpcr.v1+json")
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.want, rec.Header().Get("X-API-Version"))
		})
	}
}
