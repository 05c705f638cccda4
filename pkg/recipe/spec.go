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
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"sort"
	"strings"

	"github.com/NVIDIA/hpc-recipes/pkg/platform"
	"github.com/NVIDIA/hpc-recipes/pkg/version"
)

// ResolvedSpec is one concrete configuration of a package: a version, every
// variant decided, the host, the dependencies it was built against and the
// install prefix. Recipes only read it.
type ResolvedSpec struct {
	Name         string                   `json:"name" yaml:"name"`
	Version      version.Version          `json:"version" yaml:"version"`
	Artifact     VersionEntry             `json:"artifact" yaml:"artifact"`
	Variants     map[string]bool          `json:"variants,omitempty" yaml:"variants,omitempty"`
	Params       map[string]string        `json:"params,omitempty" yaml:"params,omitempty"`
	Host         platform.Host            `json:"host" yaml:"host"`
	Dependencies map[string]*ResolvedSpec `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Prefix       string                   `json:"prefix,omitempty" yaml:"prefix,omitempty"`
}

// Satisfies reports whether the spec's version is inside r.
func (s *ResolvedSpec) Satisfies(r version.Range) bool {
	return r.Contains(s.Version)
}

// SatisfiesExpr parses expr as a range and reports whether the spec is
// inside it. Invalid expressions never match.
func (s *ResolvedSpec) SatisfiesExpr(expr string) bool {
	r, err := version.ParseRange(expr)
	if err != nil {
		return false
	}
	return s.Satisfies(r)
}

// Variant returns the decided value of a boolean variant. Unknown variants
// are false.
func (s *ResolvedSpec) Variant(name string) bool {
	return s.Variants[name]
}

// Param returns a non-boolean setting such as "abi=5".
func (s *ResolvedSpec) Param(name string) (string, bool) {
	v, ok := s.Params[name]
	return v, ok
}

// Dependency returns the resolved spec of a named dependency.
func (s *ResolvedSpec) Dependency(name string) (*ResolvedSpec, bool) {
	d, ok := s.Dependencies[name]
	return d, ok && d != nil
}

// String renders the spec like "cuda@11.3.1+dev arch=Linux-x86_64".
func (s *ResolvedSpec) String() string {
	var b strings.Builder
	b.WriteString(s.Name)
	b.WriteString("@")
	b.WriteString(s.Version.Full())

	names := make([]string, 0, len(s.Variants))
	for name := range s.Variants {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if s.Variants[name] {
			b.WriteString("+" + name)
		} else {
			b.WriteString("~" + name)
		}
	}

	params := make([]string, 0, len(s.Params))
	for k, v := range s.Params {
		params = append(params, k+"="+v)
	}
	sort.Strings(params)
	for _, p := range params {
		b.WriteString(" " + p)
	}

	if s.Host.System != "" {
		b.WriteString(" arch=" + s.Host.Key())
	}
	return b.String()
}

// Hash returns a short digest of the spec and its dependencies.
func (s *ResolvedSpec) Hash() string {
	h := sha256.New()
	h.Write([]byte(s.String()))

	deps := make([]string, 0, len(s.Dependencies))
	for name := range s.Dependencies {
		deps = append(deps, name)
	}
	sort.Strings(deps)
	for _, name := range deps {
		if d := s.Dependencies[name]; d != nil {
			h.Write([]byte("^" + d.String() + ":" + d.Prefix))
		}
	}
	return hex.EncodeToString(h.Sum(nil))[:8]
}

// PrefixUnder returns the install prefix for the spec below root,
// "<root>/<name>-<version>-<hash>".
func (s *ResolvedSpec) PrefixUnder(root string) string {
	return filepath.Join(root, s.Name+"-"+s.Version.Full()+"-"+s.Hash())
}

// VersionString returns the version as written.
func (s *ResolvedSpec) VersionString() string {
	return s.Version.Full()
}
