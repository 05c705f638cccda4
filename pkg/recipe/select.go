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
	"fmt"
	"strings"

	"github.com/NVIDIA/hpc-recipes/pkg/errors"
	"github.com/NVIDIA/hpc-recipes/pkg/platform"
	"github.com/NVIDIA/hpc-recipes/pkg/version"
)

// Request is an explicit user request such as "cuda@11.3.1+dev".
type Request struct {
	Name     string
	Version  string
	Variants map[string]bool
	Params   map[string]string
}

// ParseRequest parses "name[@version][+variant|~variant...] [key=value...]".
// Later terms override earlier ones.
func ParseRequest(s string) (Request, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return Request{}, errors.New(errors.ErrCodeInvalidRequest, "empty package request")
	}

	req := Request{Variants: map[string]bool{}, Params: map[string]string{}}
	head := fields[0]

	end := strings.IndexAny(head, "@+~")
	if end < 0 {
		end = len(head)
	}
	req.Name = head[:end]
	if req.Name == "" {
		return Request{}, errors.New(errors.ErrCodeInvalidRequest, fmt.Sprintf("request %q has no package name", s))
	}
	rest := head[end:]

	if strings.HasPrefix(rest, "@") {
		vend := strings.IndexAny(rest, "+~")
		if vend < 0 {
			vend = len(rest)
		}
		req.Version = rest[1:vend]
		if req.Version == "" {
			return Request{}, errors.New(errors.ErrCodeInvalidRequest, fmt.Sprintf("request %q has an empty version", s))
		}
		rest = rest[vend:]
	}
	if err := parseVariantTerms(rest, req.Variants); err != nil {
		return Request{}, errors.Wrap(errors.ErrCodeInvalidRequest, fmt.Sprintf("invalid request %q", s), err)
	}

	for _, f := range fields[1:] {
		if k, v, ok := strings.Cut(f, "="); ok {
			if k == "" {
				return Request{}, errors.New(errors.ErrCodeInvalidRequest, fmt.Sprintf("invalid parameter %q", f))
			}
			req.Params[k] = v
			continue
		}
		if err := parseVariantTerms(f, req.Variants); err != nil {
			return Request{}, errors.Wrap(errors.ErrCodeInvalidRequest, fmt.Sprintf("invalid request %q", s), err)
		}
	}
	return req, nil
}

// parseVariantTerms reads a run like "+dev~ofi" into out.
func parseVariantTerms(s string, out map[string]bool) error {
	for s != "" {
		on := s[0] == '+'
		if !on && s[0] != '~' && s[0] != '-' {
			return fmt.Errorf("unexpected %q", s)
		}
		s = s[1:]
		end := strings.IndexAny(s, "+~")
		if end < 0 {
			end = len(s)
		}
		name := s[:end]
		if name == "" {
			return fmt.Errorf("empty variant name")
		}
		out[name] = on
		s = s[end:]
	}
	return nil
}

// ParseDependency parses an already installed dependency written as
// "name[@version]=prefix".
func ParseDependency(v string) (*ResolvedSpec, error) {
	head, prefix, ok := strings.Cut(v, "=")
	if !ok || head == "" || prefix == "" {
		return nil, errors.NewWithContext(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("invalid dependency %q, want name[@version]=prefix", v),
			map[string]any{"dependency": v})
	}
	dep := &ResolvedSpec{Name: head, Prefix: prefix}
	if n, ver, ok := strings.Cut(head, "@"); ok {
		parsed, err := version.ParseVersion(ver)
		if err != nil {
			return nil, errors.WrapWithContext(errors.ErrCodeInvalidRequest,
				"invalid dependency version", err, map[string]any{"dependency": v})
		}
		dep.Name = n
		dep.Version = parsed
	}
	if dep.Name == "" {
		return nil, errors.NewWithContext(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("invalid dependency %q, name is empty", v),
			map[string]any{"dependency": v})
	}
	return dep, nil
}

// ResolveOption customizes Resolve.
type ResolveOption func(*ResolvedSpec)

// WithDependency attaches an already resolved dependency.
func WithDependency(dep *ResolvedSpec) ResolveOption {
	return func(s *ResolvedSpec) {
		if s.Dependencies == nil {
			s.Dependencies = make(map[string]*ResolvedSpec)
		}
		s.Dependencies[dep.Name] = dep
	}
}

// WithPrefix sets the install prefix.
func WithPrefix(prefix string) ResolveOption {
	return func(s *ResolvedSpec) {
		s.Prefix = prefix
	}
}

// Resolve turns an explicit request into a ResolvedSpec for host. It does
// not search: the version must be named or preferred, and dependencies are
// only those attached with WithDependency.
func Resolve(reg *Registry, req Request, host platform.Host, opts ...ResolveOption) (*ResolvedSpec, error) {
	spec, err := resolve(reg, req, host, opts...)
	result := "ok"
	if err != nil {
		result = strings.ToLower(string(errors.CodeOf(err)))
	}
	resolveTotal.WithLabelValues(req.Name, result).Inc()
	return spec, err
}

func resolve(reg *Registry, req Request, host platform.Host, opts ...ResolveOption) (*ResolvedSpec, error) {
	r, err := reg.Get(req.Name)
	if err != nil {
		return nil, err
	}
	def := r.Definition()

	var entry VersionEntry
	var ok bool
	if req.Version == "" {
		entry, ok = def.Preferred(host)
	} else {
		entry, ok = r.SelectPlatformArtifact(req.Version, host)
	}
	if !ok {
		if req.Version != "" && !defines(def, req.Version) {
			return nil, errors.NewWithContext(errors.ErrCodeNotFound,
				fmt.Sprintf("%s has no version %s", def.Name, req.Version),
				map[string]any{"package": def.Name, "version": req.Version})
		}
		return nil, UnsupportedPlatformError(def.Name, req.Version, host)
	}

	v, err := version.ParseVersion(entry.Version)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "invalid version in definition", err)
	}

	spec := &ResolvedSpec{
		Name:     def.Name,
		Version:  v,
		Artifact: entry,
		Variants: make(map[string]bool, len(def.Variants)),
		Params:   make(map[string]string, len(req.Params)),
		Host:     host,
	}
	for _, vs := range def.Variants {
		spec.Variants[vs.Name] = vs.Default
	}
	for name, on := range req.Variants {
		if _, known := def.Variant(name); !known {
			return nil, errors.NewWithContext(errors.ErrCodeInvalidRequest,
				fmt.Sprintf("%s has no variant %s", def.Name, name),
				map[string]any{"package": def.Name, "variant": name})
		}
		spec.Variants[name] = on
	}
	for k, val := range req.Params {
		spec.Params[k] = val
	}
	for _, opt := range opts {
		opt(spec)
	}

	if c, conflicted := def.ConflictFor(spec); conflicted {
		msg := c.Message
		if msg == "" {
			msg = fmt.Sprintf("%s conflicts with %s", def.Name, c.Platform)
		}
		return nil, errors.NewWithContext(errors.ErrCodeUnsupportedPlatform, msg,
			map[string]any{"package": def.Name, "platform": host.Triple()})
	}
	return spec, nil
}

func defines(def *Definition, id string) bool {
	for _, v := range def.Versions {
		if v.Version == id {
			return true
		}
	}
	return false
}
