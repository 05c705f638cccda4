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
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NVIDIA/hpc-recipes/pkg/builtin"
	"github.com/NVIDIA/hpc-recipes/pkg/errors"
	"github.com/NVIDIA/hpc-recipes/pkg/executil"
	"github.com/NVIDIA/hpc-recipes/pkg/platform"
	"github.com/NVIDIA/hpc-recipes/pkg/recipe"
	"github.com/NVIDIA/hpc-recipes/pkg/serializer"
)

func newRecipeServer(t *testing.T) *Server {
	t.Helper()
	data, err := builtin.DataProvider("")
	require.NoError(t, err)
	reg, err := builtin.NewRegistry(data, builtin.Options{Runner: &executil.Fake{}})
	require.NoError(t, err)

	cfg := NewConfig()
	cfg.InstallRoot = "/opt/test"
	cfg.Host = platform.Host{System: "Linux", Machine: "x86_64"}
	cfg.Version = "v0.0.0-test"
	return New(WithConfig(cfg), WithRegistry(reg))
}

// serve routes a request through the full mux, middleware included.
func serve(t *testing.T, s *Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestNew(t *testing.T) {
	s := New(WithHandler(map[string]http.HandlerFunc{"/test": okHandler}))

	require.NotNil(t, s.config)
	require.NotNil(t, s.httpServer)
	require.NotNil(t, s.rateLimiter)
	assert.Equal(t, "hpcrd", s.config.Name)
	assert.Contains(t, s.config.Handlers, "/test")
	assert.Contains(t, s.config.Handlers, "/")
	assert.NotContains(t, s.config.Handlers, "/v1/recipes", "recipe routes need a registry")
}

func TestOptions(t *testing.T) {
	cfg := NewConfig()
	cfg.Port = 9090
	cfg.RateLimit = 500

	s := New(WithConfig(cfg), WithName("recipes-api"), WithVersion("v1.2.3"))

	assert.Equal(t, "recipes-api", s.config.Name)
	assert.Equal(t, "v1.2.3", s.config.Version)
	assert.Equal(t, 9090, s.config.Port)
	assert.Equal(t, ":9090", s.httpServer.Addr)
}

func TestHealthAndReady(t *testing.T) {
	s := New()

	rec := serve(t, s, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	rec = serve(t, s, http.MethodGet, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "not_ready", decode[HealthResponse](t, rec).Status)

	s.setReady(true)
	rec = serve(t, s, http.MethodGet, "/ready")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, s, http.MethodPost, "/health")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, http.MethodGet, rec.Header().Get("Allow"))
}

func TestRateLimiting(t *testing.T) {
	cfg := NewConfig()
	cfg.RateLimit = 1
	cfg.RateLimitBurst = 1
	cfg.Handlers = map[string]http.HandlerFunc{"/test": okHandler}
	s := New(WithConfig(cfg))

	first := serve(t, s, http.MethodGet, "/test")
	assert.Equal(t, http.StatusOK, first.Code)

	second := serve(t, s, http.MethodGet, "/test")
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))

	// system endpoints are not rate limited
	assert.Equal(t, http.StatusOK, serve(t, s, http.MethodGet, "/health").Code)
}

func TestRootHandler(t *testing.T) {
	s := newRecipeServer(t)

	rec := serve(t, s, http.MethodGet, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	root := decode[RootResponse](t, rec)
	assert.Equal(t, "v0.0.0-test", root.Version)
	assert.Contains(t, root.Routes, "/v1/recipes")
	assert.Contains(t, root.Routes, "/v1/environment")
	assert.Contains(t, root.Routes, "/metrics")
	assert.NotContains(t, root.Routes, "/")

	assert.Equal(t, http.StatusMethodNotAllowed, serve(t, s, http.MethodPost, "/").Code)
	assert.Equal(t, http.StatusNotFound, serve(t, s, http.MethodGet, "/nope").Code)
}

func TestCustomRootHandlerNotOverridden(t *testing.T) {
	called := false
	s := New(WithHandler(map[string]http.HandlerFunc{
		"/": func(w http.ResponseWriter, _ *http.Request) {
			called = true
			w.WriteHeader(http.StatusOK)
		},
	}))

	serve(t, s, http.MethodGet, "/")
	assert.True(t, called)
}

func TestCatalog(t *testing.T) {
	s := newRecipeServer(t)

	rec := serve(t, s, http.MethodGet, "/v1/recipes")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	cat := decode[CatalogResponse](t, rec)
	assert.Equal(t, "Linux-x86_64", cat.Platform)
	assert.Equal(t, "v0.0.0-test", cat.Metadata["version"])

	entries := map[string]CatalogEntry{}
	for _, e := range cat.Recipes {
		entries[e.Name] = e
	}
	require.Contains(t, entries, "cuda")
	require.Contains(t, entries, "cray-mpich")
	require.Contains(t, entries, "gchp")
	assert.Equal(t, 18, entries["cuda"].Versions)
	assert.Equal(t, recipe.StrategyExternalOnly, entries["cray-mpich"].Strategy)
	assert.Equal(t, []string{"cray-mpich"}, cat.Virtuals["mpi"])

	ppc := decode[CatalogResponse](t, serve(t, s, http.MethodGet, "/v1/recipes?platform=Linux-ppc64le"))
	for _, e := range ppc.Recipes {
		if e.Name == "cuda" {
			assert.Equal(t, 10, e.Versions)
		}
	}

	rec = serve(t, s, http.MethodGet, "/v1/recipes?platform=linux")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, errors.ErrCodeInvalidRequest, decode[serializer.ErrorResponse](t, rec).Code)
}

func TestRecipe(t *testing.T) {
	s := newRecipeServer(t)

	rec := serve(t, s, http.MethodGet, "/v1/recipes/gchp")
	require.Equal(t, http.StatusOK, rec.Code)
	def := decode[map[string]any](t, rec)
	assert.Equal(t, "gchp", def["name"])
	assert.Equal(t, "Recipe", def["kind"])
	assert.NotEmpty(t, def["patches"])

	rec = serve(t, s, http.MethodGet, "/v1/recipes/mpi")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decode[serializer.ErrorResponse](t, rec)
	assert.Contains(t, body.Message, "virtual")
	assert.Contains(t, body.Details, "providers")

	assert.Equal(t, http.StatusNotFound, serve(t, s, http.MethodGet, "/v1/recipes/nope").Code)
}

func TestVersions(t *testing.T) {
	s := newRecipeServer(t)

	rec := serve(t, s, http.MethodGet, "/v1/recipes/cuda/versions?platform=Linux-aarch64")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[VersionsResponse](t, rec)
	assert.Equal(t, "cuda", list.Package)
	assert.Equal(t, "Linux-aarch64", list.Platform)
	assert.Len(t, list.Versions, 8)
	require.NotEmpty(t, list.Versions)
	assert.Equal(t, list.Versions[0].Version, list.Preferred)

	darwin := decode[VersionsResponse](t, serve(t, s, http.MethodGet, "/v1/recipes/cuda/versions?platform=Darwin-x86_64"))
	assert.Empty(t, darwin.Versions)
	assert.Empty(t, darwin.Preferred)
}

func TestEnvironment(t *testing.T) {
	s := newRecipeServer(t)

	env := func(params url.Values) *httptest.ResponseRecorder {
		return serve(t, s, http.MethodGet, "/v1/environment?"+params.Encode())
	}

	t.Run("run with explicit prefix", func(t *testing.T) {
		rec := env(url.Values{"spec": {"cuda@11.3.1"}, "prefix": {"/opt/cuda"}})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		doc := decode[EnvironmentResponse](t, rec)
		assert.Equal(t, EnvKindRun, doc.Type)
		assert.Equal(t, "/opt/cuda", doc.Prefix)
		assert.Equal(t, map[string]string{"CUDA_HOME": "/opt/cuda"}, doc.Variables)
	})

	t.Run("prefix derived from install root", func(t *testing.T) {
		doc := decode[EnvironmentResponse](t, env(url.Values{"spec": {"cuda@11.3.1"}}))
		assert.True(t, strings.HasPrefix(doc.Prefix, "/opt/test/cuda-11.3.1-"), doc.Prefix)
		assert.Equal(t, doc.Prefix, doc.Variables["CUDA_HOME"])
	})

	t.Run("build with dependency", func(t *testing.T) {
		rec := env(url.Values{
			"spec": {"cuda@11.3.1"},
			"kind": {EnvKindBuild},
			"dep":  {"libxml2@2.9.10=/opt/libxml2"},
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		doc := decode[EnvironmentResponse](t, rec)
		assert.Equal(t, "/opt/libxml2", doc.Variables["LIBXML2HOME"])
	})

	t.Run("build with virtual provider", func(t *testing.T) {
		rec := env(url.Values{
			"spec": {"gchp"},
			"kind": {EnvKindBuild},
			"dep":  {"cray-mpich@8.1.0=/opt/cray/pe/mpich/8.1.0"},
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		doc := decode[EnvironmentResponse](t, rec)
		assert.Equal(t, "gcc", doc.Variables["MPICH_CC"])
	})

	t.Run("dependent", func(t *testing.T) {
		doc := decode[EnvironmentResponse](t, env(url.Values{"spec": {"cray-mpich@8.1.0"}, "kind": {EnvKindDependent}}))
		assert.Equal(t, "gcc", doc.Variables["MPICH_CC"])
		assert.Equal(t, "gcc", doc.Variables["MPICC"])
	})

	tests := []struct {
		name   string
		params url.Values
		status int
		code   errors.ErrorCode
	}{
		{"missing spec", url.Values{}, http.StatusBadRequest, errors.ErrCodeInvalidRequest},
		{"invalid kind", url.Values{"spec": {"cuda@11.3.1"}, "kind": {"shell"}}, http.StatusBadRequest, errors.ErrCodeInvalidRequest},
		{"invalid dependency", url.Values{"spec": {"cuda@11.3.1"}, "dep": {"libxml2"}}, http.StatusBadRequest, errors.ErrCodeInvalidRequest},
		{"unknown package", url.Values{"spec": {"nope@1.0"}}, http.StatusNotFound, errors.ErrCodeNotFound},
		{"unknown version", url.Values{"spec": {"cuda@1.0.0"}}, http.StatusNotFound, errors.ErrCodeNotFound},
		{"not offered on platform", url.Values{"spec": {"cuda@11.3.1"}, "platform": {"Darwin-x86_64"}}, http.StatusUnprocessableEntity, errors.ErrCodeUnsupportedPlatform},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env(tt.params)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, decode[serializer.ErrorResponse](t, rec).Code)
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newRecipeServer(t)
	serve(t, s, http.MethodGet, "/v1/recipes")

	rec := serve(t, s, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "hpcr_http_requests_total")
}

func TestGracefulShutdown(t *testing.T) {
	cfg := NewConfig()
	cfg.Address = "127.0.0.1"
	cfg.Port = 18080
	cfg.ShutdownTimeout = 100 * time.Millisecond
	s := New(WithConfig(cfg))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.Start(ctx)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errChan:
		assert.NoError(t, err)
		assert.False(t, s.isReady())
	case <-time.After(time.Second):
		t.Error("shutdown timed out")
	}
}

func TestRunStopsWithContext(t *testing.T) {
	cfg := NewConfig()
	cfg.Address = "127.0.0.1"
	cfg.Port = 18081
	cfg.ShutdownTimeout = 100 * time.Millisecond
	s := New(WithConfig(cfg))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Error("run did not stop")
	}
}
