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
	"slices"
	"strings"

	"github.com/NVIDIA/hpc-recipes/pkg/version"
)

// Strategy is how a recipe turns a staged source into an installed prefix.
type Strategy string

const (
	// StrategyCustom runs the recipe's own Install callback.
	StrategyCustom Strategy = "custom"
	// StrategyCMake configures, builds and installs with CMake.
	StrategyCMake Strategy = "cmake"
	// StrategyExternalOnly never installs; the package must already exist.
	StrategyExternalOnly Strategy = "external"
)

// IsValid reports whether s is a known strategy.
func (s Strategy) IsValid() bool {
	switch s {
	case StrategyCustom, StrategyCMake, StrategyExternalOnly:
		return true
	default:
		return false
	}
}

// SourceKind classifies where a version's source comes from.
type SourceKind string

const (
	SourceNone SourceKind = ""
	SourceURL  SourceKind = "url"
	SourceGit  SourceKind = "git"
)

// VersionEntry is one downloadable version of a package. Platform-specific
// vendor artifacts carry a Platform key such as "Linux-x86_64"; everything
// else leaves it empty.
type VersionEntry struct {
	Version  string `json:"version" yaml:"version"`
	Platform string `json:"platform,omitempty" yaml:"platform,omitempty"`

	SHA256 string `json:"sha256,omitempty" yaml:"sha256,omitempty"`
	URL    string `json:"url,omitempty" yaml:"url,omitempty"`
	// Expand is false for artifacts used as-is, such as a self-extracting
	// installer. Nil means true.
	Expand *bool `json:"expand,omitempty" yaml:"expand,omitempty"`

	Git        string `json:"git,omitempty" yaml:"git,omitempty"`
	Commit     string `json:"commit,omitempty" yaml:"commit,omitempty"`
	Tag        string `json:"tag,omitempty" yaml:"tag,omitempty"`
	Submodules bool   `json:"submodules,omitempty" yaml:"submodules,omitempty"`

	Preferred  bool `json:"preferred,omitempty" yaml:"preferred,omitempty"`
	Deprecated bool `json:"deprecated,omitempty" yaml:"deprecated,omitempty"`
}

// Source returns the kind of source locator the entry carries.
func (e VersionEntry) Source() SourceKind {
	switch {
	case e.Git != "":
		return SourceGit
	case e.URL != "":
		return SourceURL
	default:
		return SourceNone
	}
}

// ShouldExpand reports whether a fetched archive is unpacked into the stage.
func (e VersionEntry) ShouldExpand() bool {
	return e.Expand == nil || *e.Expand
}

// clone returns a copy that shares no memory with e.
func (e VersionEntry) clone() VersionEntry {
	if e.Expand != nil {
		expand := *e.Expand
		e.Expand = &expand
	}
	return e
}

// Parsed returns the entry's version.
func (e VersionEntry) Parsed() (version.Version, error) {
	return version.ParseVersion(e.Version)
}

func (e VersionEntry) validate() error {
	if _, err := e.Parsed(); err != nil {
		return fmt.Errorf("version %q: %w", e.Version, err)
	}
	switch e.Source() {
	case SourceURL:
		if e.SHA256 == "" {
			return fmt.Errorf("version %s: url source requires a sha256 checksum", e.Version)
		}
	case SourceGit:
		if e.Commit == "" && e.Tag == "" {
			return fmt.Errorf("version %s: git source requires a commit or tag", e.Version)
		}
	case SourceNone:
	}
	return nil
}

// VariantSpec declares a boolean build option.
type VariantSpec struct {
	Name        string `json:"name" yaml:"name"`
	Default     bool   `json:"default" yaml:"default"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// DepType is how a dependency is used.
type DepType string

const (
	DepBuild DepType = "build"
	DepLink  DepType = "link"
	DepRun   DepType = "run"
)

// DependencyEdge declares a dependency on another package.
type DependencyEdge struct {
	Name string `json:"name" yaml:"name"`
	// Versions constrains the dependency's version. Zero means any.
	Versions version.Range `json:"versions,omitzero" yaml:"versions,omitempty"`
	// Variants holds variant settings required of the dependency,
	// written like "+dev ~pio abi=5".
	Variants string `json:"variants,omitempty" yaml:"variants,omitempty"`
	// When restricts the edge to matching specs.
	When Condition `json:"when,omitzero" yaml:"when,omitempty"`
	// Types defaults to build and link.
	Types []DepType `json:"types,omitempty" yaml:"types,omitempty"`
}

// DefaultDepTypes applies when an edge lists no types.
var DefaultDepTypes = []DepType{DepBuild, DepLink}

// EffectiveTypes returns the edge's types, or DefaultDepTypes.
func (d DependencyEdge) EffectiveTypes() []DepType {
	if len(d.Types) == 0 {
		return DefaultDepTypes
	}
	return d.Types
}

// HasType reports whether the edge is used as t.
func (d DependencyEdge) HasType(t DepType) bool {
	return slices.Contains(d.EffectiveTypes(), t)
}

// String renders the edge like "esmf@8.0.1: ~pio when @13.0.0-rc.0".
func (d DependencyEdge) String() string {
	var b strings.Builder
	b.WriteString(d.Name)
	if !d.Versions.IsAny() {
		b.WriteString("@" + d.Versions.String())
	}
	if d.Variants != "" {
		b.WriteString(" " + d.Variants)
	}
	if !d.When.IsEmpty() {
		b.WriteString(" when " + d.When.String())
	}
	return b.String()
}

// Provides declares that a package implements a virtual package.
type Provides struct {
	Virtual  string        `json:"virtual" yaml:"virtual"`
	Versions version.Range `json:"versions,omitzero" yaml:"versions,omitempty"`
	When     Condition     `json:"when,omitzero" yaml:"when,omitempty"`
}

// String renders the declaration like "opencl@:1.2 when @7:".
func (p Provides) String() string {
	s := p.Virtual
	if !p.Versions.IsAny() {
		s += "@" + p.Versions.String()
	}
	if !p.When.IsEmpty() {
		s += " when " + p.When.String()
	}
	return s
}

// Conflict marks platforms a package cannot be installed on.
type Conflict struct {
	// Platform is a "platform-os-target" pattern, e.g. "darwin-mojave-x86_64".
	Platform string    `json:"platform" yaml:"platform"`
	When     Condition `json:"when,omitzero" yaml:"when,omitempty"`
	Message  string    `json:"message,omitempty" yaml:"message,omitempty"`
}

// Patch is a file applied to the staged source before building.
type Patch struct {
	File string    `json:"file" yaml:"file"`
	When Condition `json:"when,omitzero" yaml:"when,omitempty"`
}

// Toolchain names the compiler commands used for a build. Recipes never
// read compiler identity from anywhere else.
type Toolchain struct {
	Name string `json:"name,omitempty" yaml:"name,omitempty" toml:"name,omitempty"`
	CC   string `json:"cc" yaml:"cc" toml:"cc"`
	CXX  string `json:"cxx" yaml:"cxx" toml:"cxx"`
	F77  string `json:"f77" yaml:"f77" toml:"f77"`
	FC   string `json:"fc" yaml:"fc" toml:"fc"`
}

// DefaultToolchain is the GNU toolchain found on PATH.
var DefaultToolchain = Toolchain{
	Name: "gcc",
	CC:   "gcc",
	CXX:  "g++",
	F77:  "gfortran",
	FC:   "gfortran",
}
