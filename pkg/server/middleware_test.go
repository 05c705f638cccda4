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
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/NVIDIA/hpc-recipes/pkg/errors"
	"github.com/NVIDIA/hpc-recipes/pkg/serializer"
)

func newBareServer(limiter *rate.Limiter) *Server {
	return &Server{config: NewConfig(), rateLimiter: limiter}
}

func okHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestRequestIDMiddleware(t *testing.T) {
	s := newBareServer(rate.NewLimiter(100, 200))
	provided := uuid.New().String()

	tests := []struct {
		name   string
		header string
		want   string
	}{
		{name: "generated when absent"},
		{name: "kept when valid", header: provided, want: provided},
		{name: "replaced when invalid", header: "invalid-not-a-uuid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var captured string
			handler := s.requestIDMiddleware(func(w http.ResponseWriter, r *http.Request) {
				captured = r.Context().Value(contextKeyRequestID).(string)
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/v1/recipes", nil)
			if tt.header != "" {
				req.Header.Set("X-Request-Id", tt.header)
			}
			rec := httptest.NewRecorder()
			handler(rec, req)

			_, err := uuid.Parse(captured)
			require.NoError(t, err)
			assert.Equal(t, captured, rec.Header().Get("X-Request-Id"))
			if tt.want != "" {
				assert.Equal(t, tt.want, captured)
			}
			assert.NotEqual(t, "invalid-not-a-uuid", captured)
		})
	}
}

func TestVersionMiddleware(t *testing.T) {
	s := newBareServer(rate.NewLimiter(100, 200))

	var captured string
	handler := s.versionMiddleware(func(w http.ResponseWriter, r *http.Request) {
		captured, _ = r.Context().Value(contextKeyAPIVersion).(string)
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/recipes", nil)
	req.Header.Set("Accept", "application/vnd.nvidia.hpcr.v1+json")
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, "v1", captured)
	assert.Equal(t, "v1", rec.Header().Get("X-API-Version"))
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Run("allows and reports limits", func(t *testing.T) {
		s := newBareServer(rate.NewLimiter(100, 200))
		rec := httptest.NewRecorder()
		s.rateLimitMiddleware(okHandler)(rec, httptest.NewRequest(http.MethodGet, "/v1/recipes", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "100", rec.Header().Get("X-RateLimit-Limit"))
		assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Reset"))
	})

	t.Run("rejects when exhausted", func(t *testing.T) {
		s := newBareServer(rate.NewLimiter(0, 0))
		called := false
		handler := s.rateLimitMiddleware(func(w http.ResponseWriter, _ *http.Request) {
			called = true
			w.WriteHeader(http.StatusOK)
		})

		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(http.MethodGet, "/v1/recipes", nil))

		assert.False(t, called)
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "1", rec.Header().Get("Retry-After"))

		var body serializer.ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, errors.ErrCodeRateLimitExceeded, body.Code)
	})
}

func TestPanicRecoveryMiddleware(t *testing.T) {
	s := newBareServer(rate.NewLimiter(100, 200))

	rec := httptest.NewRecorder()
	s.panicRecoveryMiddleware(func(http.ResponseWriter, *http.Request) {
		panic("registry corrupted")
	})(rec, httptest.NewRequest(http.MethodGet, "/v1/recipes", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body serializer.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, errors.ErrCodeInternal, body.Code)
	assert.NotContains(t, body.Message, "registry corrupted")

	rec = httptest.NewRecorder()
	s.panicRecoveryMiddleware(okHandler)(rec, httptest.NewRequest(http.MethodGet, "/v1/recipes", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLoggingMiddlewarePreservesStatus(t *testing.T) {
	s := newBareServer(rate.NewLimiter(100, 200))

	for _, status := range []int{http.StatusOK, http.StatusBadRequest, http.StatusNotFound, http.StatusUnprocessableEntity} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			handler := s.requestIDMiddleware(s.loggingMiddleware(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(status)
			}))
			rec := httptest.NewRecorder()
			handler(rec, httptest.NewRequest(http.MethodGet, "/v1/environment", nil))
			assert.Equal(t, status, rec.Code)
		})
	}
}

func TestMiddlewareChain(t *testing.T) {
	s := newBareServer(rate.NewLimiter(100, 200))

	var hasRequestID, hasAPIVersion bool
	handler := s.withMiddleware(func(w http.ResponseWriter, r *http.Request) {
		hasRequestID = r.Context().Value(contextKeyRequestID) != nil
		hasAPIVersion = r.Context().Value(contextKeyAPIVersion) != nil
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/v1/recipes", nil))

	assert.True(t, hasRequestID)
	assert.True(t, hasAPIVersion)
	for _, h := range []string{"X-Request-Id", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "X-API-Version"} {
		assert.NotEmpty(t, rec.Header().Get(h), h)
	}
}

func TestResponseWriterFirstStatusWins(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := newResponseWriter(rec)

	rw.WriteHeader(http.StatusNotFound)
	rw.WriteHeader(http.StatusOK)
	n, err := rw.Write([]byte("gone"))
	require.NoError(t, err)

	assert.Equal(t, 4, n)
	assert.Equal(t, http.StatusNotFound, rw.Status())
	assert.Equal(t, 4, rw.Size())
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
