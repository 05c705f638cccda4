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
	"net/http"

	"github.com/NVIDIA/hpc-recipes/pkg/defaults"
	"github.com/NVIDIA/hpc-recipes/pkg/errors"
	"github.com/NVIDIA/hpc-recipes/pkg/header"
	"github.com/NVIDIA/hpc-recipes/pkg/platform"
	"github.com/NVIDIA/hpc-recipes/pkg/recipe"
	"github.com/NVIDIA/hpc-recipes/pkg/serializer"
)

// Environment kinds accepted by the environment endpoint.
const (
	EnvKindBuild     = "build"
	EnvKindRun       = "run"
	EnvKindDependent = "dependent"
)

// CatalogEntry summarizes one registered recipe.
type CatalogEntry struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Homepage    string          `json:"homepage,omitempty"`
	Strategy    recipe.Strategy `json:"strategy"`
	Preferred   string          `json:"preferred,omitempty"`
	Versions    int             `json:"versions"`
	Provides    []string        `json:"provides,omitempty"`
}

// CatalogResponse lists the registered recipes as seen from one platform.
type CatalogResponse struct {
	header.Header `json:",inline"`

	Platform string              `json:"platform"`
	Recipes  []CatalogEntry      `json:"recipes"`
	Virtuals map[string][]string `json:"virtuals,omitempty"`
}

// RecipeResponse is a full recipe definition.
type RecipeResponse struct {
	header.Header     `json:",inline"`
	recipe.Definition `json:",inline"`
}

// VersionsResponse lists the versions of one package offered on a platform.
type VersionsResponse struct {
	header.Header `json:",inline"`

	Package   string                `json:"package"`
	Platform  string                `json:"platform"`
	Preferred string                `json:"preferred,omitempty"`
	Versions  []recipe.VersionEntry `json:"versions"`
}

// EnvironmentResponse is one computed environment export.
type EnvironmentResponse struct {
	header.Header `json:",inline"`

	Spec       string            `json:"spec"`
	Type       string            `json:"type"`
	Prefix     string            `json:"prefix"`
	Operations []recipe.EnvOp    `json:"operations"`
	Variables  map[string]string `json:"variables"`
}

func (s *Server) recipeHandlers() map[string]http.HandlerFunc {
	return map[string]http.HandlerFunc{
		"/v1/recipes":                 s.handleCatalog,
		"/v1/recipes/{name}":          s.handleRecipe,
		"/v1/recipes/{name}/versions": s.handleVersions,
		"/v1/environment":             s.handleEnvironment,
	}
}

// handleCatalog handles GET /v1/recipes?platform=<System-Machine>
func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, r, http.MethodGet)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), defaults.CatalogHandlerTimeout)
	defer cancel()

	host, err := s.hostFor(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	resp := CatalogResponse{
		Header:   *header.New(header.WithKind(header.KindCatalog)),
		Platform: host.Key(),
		Recipes:  make([]CatalogEntry, 0),
		Virtuals: make(map[string][]string),
	}
	for _, name := range s.registry.Names() {
		rec, err := s.registry.Get(name)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		def := rec.Definition()
		entry := CatalogEntry{
			Name:        def.Name,
			Description: def.Description,
			Homepage:    def.Homepage,
			Strategy:    def.Strategy,
			Versions:    len(rec.Versions(host)),
		}
		if pref, ok := def.Preferred(host); ok {
			entry.Preferred = pref.Version
		}
		for _, p := range def.Provides {
			entry.Provides = append(entry.Provides, p.String())
			if _, seen := resp.Virtuals[p.Virtual]; !seen {
				resp.Virtuals[p.Virtual] = s.registry.Providers(p.Virtual)
			}
		}
		resp.Recipes = append(resp.Recipes, entry)
	}
	resp.Stamp(s.config.Version)

	if err := ctx.Err(); err != nil {
		WriteError(w, r, errors.Wrap(errors.ErrCodeTimeout, "catalog request timed out", err))
		return
	}
	serializer.RespondJSON(w, http.StatusOK, resp)
}

// handleRecipe handles GET /v1/recipes/{name}
func (s *Server) handleRecipe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, r, http.MethodGet)
		return
	}

	name := r.PathValue("name")
	rec, err := s.registry.Get(name)
	if err != nil {
		if providers := s.registry.Providers(name); len(providers) > 0 {
			err = errors.NewWithContext(errors.ErrCodeNotFound,
				name+" is a virtual package", map[string]any{"providers": providers})
		}
		WriteError(w, r, err)
		return
	}

	resp := RecipeResponse{
		Header:     *header.New(header.WithKind(header.KindRecipe)),
		Definition: *rec.Definition(),
	}
	resp.Stamp(s.config.Version)
	serializer.RespondJSON(w, http.StatusOK, resp)
}

// handleVersions handles GET /v1/recipes/{name}/versions?platform=<System-Machine>
func (s *Server) handleVersions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, r, http.MethodGet)
		return
	}

	host, err := s.hostFor(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	rec, err := s.registry.Get(r.PathValue("name"))
	if err != nil {
		WriteError(w, r, err)
		return
	}

	resp := VersionsResponse{
		Header:   *header.New(header.WithKind(header.KindCatalog)),
		Package:  rec.Definition().Name,
		Platform: host.Key(),
		Versions: rec.Versions(host),
	}
	if pref, ok := rec.Definition().Preferred(host); ok {
		resp.Preferred = pref.Version
	}
	resp.Stamp(s.config.Version)
	serializer.RespondJSON(w, http.StatusOK, resp)
}

// handleEnvironment handles
// GET /v1/environment?spec=<request>&kind=<build|run|dependent>&platform=&prefix=&dep=<name[@version]=prefix>
func (s *Server) handleEnvironment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, r, http.MethodGet)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), defaults.EnvironmentHandlerTimeout)
	defer cancel()

	q := r.URL.Query()
	kind := q.Get("kind")
	if kind == "" {
		kind = EnvKindRun
	}
	switch kind {
	case EnvKindBuild, EnvKindRun, EnvKindDependent:
	default:
		WriteError(w, r, errors.NewWithContext(errors.ErrCodeInvalidRequest,
			"invalid environment kind", map[string]any{"kind": kind}))
		return
	}

	host, err := s.hostFor(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	req, err := recipe.ParseRequest(q.Get("spec"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	rec, err := s.registry.Get(req.Name)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	opts := []recipe.ResolveOption{recipe.WithPrefix(q.Get("prefix"))}
	for _, v := range q["dep"] {
		dep, err := recipe.ParseDependency(v)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		dep.Host = host
		opts = append(opts, recipe.WithDependency(dep))
	}
	spec, err := recipe.Resolve(s.registry, req, host, opts...)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	if spec.Prefix == "" {
		spec.Prefix = s.installer.Prefix(spec)
	}

	var env recipe.Env
	switch kind {
	case EnvKindBuild:
		env = s.installer.BuildEnvironment(rec, spec)
	case EnvKindDependent:
		env = rec.DependentBuildEnvironment(spec, nil, s.config.Toolchain)
	default:
		env = rec.RunEnvironment(spec, s.config.Toolchain)
	}
	environmentRequests.WithLabelValues(spec.Name, kind).Inc()

	if err := ctx.Err(); err != nil {
		WriteError(w, r, errors.Wrap(errors.ErrCodeTimeout, "environment request timed out", err))
		return
	}

	resp := EnvironmentResponse{
		Header:     *header.New(header.WithKind(header.KindEnvironment)),
		Spec:       spec.String(),
		Type:       kind,
		Prefix:     spec.Prefix,
		Operations: env.Ops(),
		Variables:  env.Map(),
	}
	resp.Stamp(s.config.Version)
	serializer.RespondJSON(w, http.StatusOK, resp)
}

// hostFor returns the platform named by the request, or the server's own.
func (s *Server) hostFor(r *http.Request) (platform.Host, error) {
	key := r.URL.Query().Get("platform")
	if key == "" {
		return s.config.Host, nil
	}
	host, err := platform.ParseKey(key)
	if err != nil {
		return platform.Host{}, errors.WrapWithContext(errors.ErrCodeInvalidRequest,
			"invalid platform", err, map[string]any{"platform": key})
	}
	return host, nil
}
