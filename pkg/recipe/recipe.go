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
	"context"
	"fmt"
	"sort"

	"github.com/Masterminds/semver/v3"

	"github.com/NVIDIA/hpc-recipes/pkg/errors"
	"github.com/NVIDIA/hpc-recipes/pkg/modulecmd"
	"github.com/NVIDIA/hpc-recipes/pkg/platform"
)

// Recipe is the contract between a package and the install pipeline.
//
// Everything except Install is pure: it depends only on its arguments and
// the immutable Definition, and never reads or writes process state.
type Recipe interface {
	// Definition returns the package's static description.
	Definition() *Definition

	// Versions returns the versions offered on host, newest first.
	Versions(host platform.Host) []VersionEntry

	// SelectPlatformArtifact returns the artifact for version id on host.
	// False means the version is not offered there.
	SelectPlatformArtifact(id string, host platform.Host) (VersionEntry, bool)

	// BuildEnvironment is applied while the package itself builds.
	BuildEnvironment(spec *ResolvedSpec, tc Toolchain) Env

	// RunEnvironment is exported for running the installed package.
	RunEnvironment(spec *ResolvedSpec, tc Toolchain) Env

	// DependentBuildEnvironment is injected into packages building
	// against this one. It is never merged with RunEnvironment.
	DependentBuildEnvironment(spec, dependent *ResolvedSpec, tc Toolchain) Env

	// Install populates prefix from the staged source. Any error means
	// nothing usable was produced.
	Install(ctx context.Context, spec *ResolvedSpec, prefix, stage string) error
}

// HeaderProvider is implemented by recipes that can locate their installed headers.
type HeaderProvider interface {
	Headers(prefix string) (HeaderSet, error)
}

// LibraryProvider is implemented by recipes that can locate their installed
// libraries. Query terms select optional parts, such as "cxx" or "f90".
type LibraryProvider interface {
	Libraries(prefix string, query ...string) (LibrarySet, error)
}

// ExternalProvider is implemented by recipes whose prefix is discovered on
// the host instead of installed.
type ExternalProvider interface {
	ExternalPrefix(ctx context.Context, spec *ResolvedSpec, lookup modulecmd.Lookup) (string, error)
}

// VersionDetector is implemented by recipes that can recognize an existing
// installation from an executable's output.
type VersionDetector interface {
	// DetectCommand is the command whose output DetermineVersion reads.
	DetectCommand() []string
	DetermineVersion(output string) (string, bool)
}

// DependentAttributer exposes values such as compiler wrapper paths to
// packages building against this one.
type DependentAttributer interface {
	DependentAttributes(spec *ResolvedSpec, tc Toolchain) map[string]string
}

// ArgValidator is implemented by recipes with conditional argument lists;
// registration fails when it returns an error.
type ArgValidator interface {
	ValidateArgs() error
}

// Base implements the declarative half of Recipe from a Definition.
// Concrete recipes embed it and override what they need.
type Base struct {
	Def *Definition
}

// Definition returns the package's static description.
func (b *Base) Definition() *Definition { return b.Def }

// Versions returns the versions offered on host, newest first.
func (b *Base) Versions(host platform.Host) []VersionEntry {
	return b.Def.Offered(host)
}

// SelectPlatformArtifact returns the artifact for version id on host.
func (b *Base) SelectPlatformArtifact(id string, host platform.Host) (VersionEntry, bool) {
	return b.Def.SelectPlatformArtifact(id, host)
}

// BuildEnvironment returns an empty Env.
func (b *Base) BuildEnvironment(*ResolvedSpec, Toolchain) Env { return Env{} }

// RunEnvironment returns an empty Env.
func (b *Base) RunEnvironment(*ResolvedSpec, Toolchain) Env { return Env{} }

// DependentBuildEnvironment returns an empty Env.
func (b *Base) DependentBuildEnvironment(_, _ *ResolvedSpec, _ Toolchain) Env { return Env{} }

// Install refuses external-only packages and otherwise reports that the
// recipe has no install procedure.
func (b *Base) Install(_ context.Context, spec *ResolvedSpec, _, _ string) error {
	if b.Def.Strategy == StrategyExternalOnly {
		return NotInstallableError(b.Def.Name)
	}
	return errors.NewWithContext(errors.ErrCodeInstallation,
		fmt.Sprintf("%s has no install procedure", b.Def.Name),
		map[string]any{"spec": spec.String()})
}

// Definition is the immutable description of a package.
type Definition struct {
	Name         string           `json:"name" yaml:"name"`
	Homepage     string           `json:"homepage,omitempty" yaml:"homepage,omitempty"`
	Description  string           `json:"description,omitempty" yaml:"description,omitempty"`
	Strategy     Strategy         `json:"strategy" yaml:"strategy"`
	Maintainers  []string         `json:"maintainers,omitempty" yaml:"maintainers,omitempty"`
	Versions     []VersionEntry   `json:"versions" yaml:"versions"`
	Variants     []VariantSpec    `json:"variants,omitempty" yaml:"variants,omitempty"`
	Dependencies []DependencyEdge `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Provides     []Provides       `json:"provides,omitempty" yaml:"provides,omitempty"`
	Conflicts    []Conflict       `json:"conflicts,omitempty" yaml:"conflicts,omitempty"`
	Patches      []Patch          `json:"patches,omitempty" yaml:"patches,omitempty"`
}

// Validate checks the definition's internal consistency and sorts its
// versions newest first.
func (d *Definition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("recipe name is empty")
	}
	if !d.Strategy.IsValid() {
		return fmt.Errorf("recipe %s: unknown strategy %q", d.Name, d.Strategy)
	}

	type key struct{ id, platform string }
	seen := make(map[key]bool, len(d.Versions))
	for _, v := range d.Versions {
		if err := v.validate(); err != nil {
			return fmt.Errorf("recipe %s: %w", d.Name, err)
		}
		k := key{v.Version, v.Platform}
		if seen[k] {
			return fmt.Errorf("recipe %s: duplicate version %s for platform %q", d.Name, v.Version, v.Platform)
		}
		seen[k] = true
	}

	variants := make(map[string]bool, len(d.Variants))
	for _, v := range d.Variants {
		if v.Name == "" {
			return fmt.Errorf("recipe %s: variant with empty name", d.Name)
		}
		if variants[v.Name] {
			return fmt.Errorf("recipe %s: duplicate variant %s", d.Name, v.Name)
		}
		variants[v.Name] = true
	}

	for _, dep := range d.Dependencies {
		if dep.Name == "" {
			return fmt.Errorf("recipe %s: dependency with empty name", d.Name)
		}
		for _, t := range dep.Types {
			if t != DepBuild && t != DepLink && t != DepRun {
				return fmt.Errorf("recipe %s: dependency %s has unknown type %q", d.Name, dep.Name, t)
			}
		}
	}

	sortVersions(d.Versions)
	return nil
}

// sortVersions orders entries newest first, then by platform key.
func sortVersions(entries []VersionEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if c := compareVersions(a.Version, b.Version); c != 0 {
			return c > 0
		}
		return a.Platform < b.Platform
	})
}

// compareVersions orders by semantic version, so prereleases sort below
// their release. Unparseable strings fall back to lexical order.
func compareVersions(a, b string) int {
	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)
	if errA != nil || errB != nil {
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		default:
			return 0
		}
	}
	return va.Compare(vb)
}

// Offered returns one entry per version available on host, newest first.
// A host-specific artifact wins over a platform-neutral entry.
func (d *Definition) Offered(host platform.Host) []VersionEntry {
	var out []VersionEntry
	index := make(map[string]int)
	for _, v := range d.Versions {
		if v.Platform != "" && v.Platform != host.Key() {
			continue
		}
		if i, ok := index[v.Version]; ok {
			if out[i].Platform == "" && v.Platform != "" {
				out[i] = v.clone()
			}
			continue
		}
		index[v.Version] = len(out)
		out = append(out, v.clone())
	}
	sortVersions(out)
	return out
}

// SelectPlatformArtifact returns the entry for version id on host.
func (d *Definition) SelectPlatformArtifact(id string, host platform.Host) (VersionEntry, bool) {
	for _, v := range d.Offered(host) {
		if v.Version == id {
			return v, true
		}
	}
	return VersionEntry{}, false
}

// Preferred returns the version to use when a request names none: the
// newest entry marked preferred, else the newest non-deprecated entry.
func (d *Definition) Preferred(host platform.Host) (VersionEntry, bool) {
	offered := d.Offered(host)
	for _, v := range offered {
		if v.Preferred {
			return v, true
		}
	}
	for _, v := range offered {
		if !v.Deprecated {
			return v, true
		}
	}
	return VersionEntry{}, false
}

// Variant returns the declaration of a variant.
func (d *Definition) Variant(name string) (VariantSpec, bool) {
	for _, v := range d.Variants {
		if v.Name == name {
			return v, true
		}
	}
	return VariantSpec{}, false
}

// ActiveDependencies returns the edges whose conditions match spec.
func (d *Definition) ActiveDependencies(spec *ResolvedSpec) []DependencyEdge {
	var out []DependencyEdge
	for _, dep := range d.Dependencies {
		if dep.When.Matches(spec) {
			out = append(out, dep)
		}
	}
	return out
}

// ActiveProvides returns the virtual packages spec provides.
func (d *Definition) ActiveProvides(spec *ResolvedSpec) []Provides {
	var out []Provides
	for _, p := range d.Provides {
		if p.When.Matches(spec) {
			out = append(out, p)
		}
	}
	return out
}

// ActivePatches returns the patches that apply to spec.
func (d *Definition) ActivePatches(spec *ResolvedSpec) []Patch {
	var out []Patch
	for _, p := range d.Patches {
		if p.When.Matches(spec) {
			out = append(out, p)
		}
	}
	return out
}

// ConflictFor returns the first conflict matching spec's host.
func (d *Definition) ConflictFor(spec *ResolvedSpec) (Conflict, bool) {
	for _, c := range d.Conflicts {
		if spec.Host.MatchesTriple(c.Platform) && c.When.Matches(spec) {
			return c, true
		}
	}
	return Conflict{}, false
}
