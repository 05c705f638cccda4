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

package craympich

import (
	"context"
	"path/filepath"
	"slices"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/NVIDIA/hpc-recipes/pkg/modulecmd"
	"github.com/NVIDIA/hpc-recipes/pkg/recipe"
)

// Name is the recipe name.
const Name = "cray-mpich"

// canonicalNames maps toolchain names to the compiler family names the
// Cray Programming Environment uses in its paths and modules.
var canonicalNames = map[string]string{
	"gcc":   "GNU",
	"cce":   "CRAY",
	"intel": "INTEL",
	"clang": "ALLINEA",
	"aocc":  "AOCC",
}

// CanonicalName returns the Cray compiler family for a toolchain name.
// Unknown names are upper-cased.
func CanonicalName(compiler string) string {
	if n, ok := canonicalNames[compiler]; ok {
		return n
	}
	return cases.Upper(language.Und).String(compiler)
}

// library sets selected by query terms
var (
	baseLibraries = []string{"libmpich"}
	cxxLibraries  = []string{"libmpicxx", "libmpichcxx"}
	f77Libraries  = []string{"libmpifort", "libmpichfort", "libfmpi", "libfmpich"}
	f90Libraries  = []string{"libmpif90", "libmpichf90"}
)

// Recipe describes an externally provided Cray MPICH.
type Recipe struct {
	recipe.Base
}

// New returns the cray-mpich recipe for def.
func New(def *recipe.Definition) *Recipe {
	return &Recipe{Base: recipe.Base{Def: def}}
}

// ModuleName returns the environment module providing spec.
func ModuleName(spec *recipe.ResolvedSpec) string {
	return Name + "/" + spec.VersionString()
}

// ExternalPrefix reads the install prefix from the cray-mpich module of
// the spec's version.
func (r *Recipe) ExternalPrefix(ctx context.Context, spec *recipe.ResolvedSpec, lookup modulecmd.Lookup) (string, error) {
	module := ModuleName(spec)
	prefix, ok := lookup.LookupInstallPath(ctx, module)
	if !ok {
		return "", recipe.DiscoveryError(Name, "install prefix", "module "+module)
	}
	return prefix, nil
}

// RunEnvironment points the MPI compiler variables at the toolchain.
// Cray compiler wrappers add MPI flags themselves.
func (r *Recipe) RunEnvironment(_ *recipe.ResolvedSpec, tc recipe.Toolchain) recipe.Env {
	var env recipe.Env
	env.Set("MPICC", tc.CC)
	env.Set("MPICXX", tc.CXX)
	env.Set("MPIF77", tc.FC)
	env.Set("MPIF90", tc.FC)
	return env
}

// DependentBuildEnvironment adds the MPICH_* compiler overrides to the run
// environment for packages building against MPI.
func (r *Recipe) DependentBuildEnvironment(spec, _ *recipe.ResolvedSpec, tc recipe.Toolchain) recipe.Env {
	env := r.RunEnvironment(spec, tc)
	env.Set("MPICH_CC", tc.CC)
	env.Set("MPICH_CXX", tc.CXX)
	env.Set("MPICH_F77", tc.F77)
	env.Set("MPICH_F90", tc.FC)
	env.Set("MPICH_FC", tc.FC)
	return env
}

// DependentAttributes exposes the MPI compiler wrappers to dependents.
func (r *Recipe) DependentAttributes(_ *recipe.ResolvedSpec, tc recipe.Toolchain) map[string]string {
	return map[string]string{
		"mpicc":           tc.CC,
		"mpicxx":          tc.CXX,
		"mpifc":           tc.FC,
		"mpif77":          tc.F77,
		"compiler_family": CanonicalName(tc.Name),
	}
}

// Install always fails: the package must be declared as an external.
func (r *Recipe) Install(context.Context, *recipe.ResolvedSpec, string, string) error {
	return recipe.NotInstallableError(Name)
}

// Headers returns mpi.h from the prefix's include tree, reporting only
// the directory of the first match.
func (r *Recipe) Headers(prefix string) (recipe.HeaderSet, error) {
	include := filepath.Join(prefix, "include")
	set, err := recipe.FindHeaders([]string{include}, []string{"mpi"}, recipe.SearchOptions{Recursive: true})
	if err != nil {
		return recipe.HeaderSet{}, err
	}
	if set.Empty() {
		return recipe.HeaderSet{}, recipe.DiscoveryError(Name, "mpi.h", include)
	}
	set.Directories = []string{filepath.Dir(set.Files[0])}
	return set, nil
}

// Libraries returns libmpich plus the language bindings selected by
// query terms "cxx", "f77" and "f90", searched in lib and lib64.
func (r *Recipe) Libraries(prefix string, query ...string) (recipe.LibrarySet, error) {
	names := slices.Clone(baseLibraries)
	if slices.Contains(query, "cxx") {
		names = append(names, cxxLibraries...)
	}
	if slices.Contains(query, "f77") {
		names = append(names, f77Libraries...)
	}
	if slices.Contains(query, "f90") {
		names = append(names, f90Libraries...)
	}

	opts := recipe.SearchOptions{Recursive: true}
	var out recipe.LibrarySet
	for _, dir := range []string{"lib", "lib64"} {
		set, err := recipe.FindLibraries([]string{filepath.Join(prefix, dir)}, names, true, opts)
		if err != nil {
			return recipe.LibrarySet{}, err
		}
		out.Files = append(out.Files, set.Files...)
		out.Directories = append(out.Directories, set.Directories...)
	}
	if out.Empty() {
		return recipe.LibrarySet{}, recipe.DiscoveryError(Name, "libmpich", prefix)
	}
	return out, nil
}
