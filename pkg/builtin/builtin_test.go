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

package builtin

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NVIDIA/hpc-recipes/pkg/builtin/craympich"
	"github.com/NVIDIA/hpc-recipes/pkg/builtin/cuda"
	"github.com/NVIDIA/hpc-recipes/pkg/builtin/gchp"
	"github.com/NVIDIA/hpc-recipes/pkg/errors"
	"github.com/NVIDIA/hpc-recipes/pkg/executil"
	"github.com/NVIDIA/hpc-recipes/pkg/platform"
	"github.com/NVIDIA/hpc-recipes/pkg/recipe"
)

var (
	linuxX86     = platform.Host{System: "Linux", Machine: "x86_64"}
	linuxPPC     = platform.Host{System: "Linux", Machine: "ppc64le"}
	linuxAArch64 = platform.Host{System: "Linux", Machine: "aarch64"}
)

func newEmbeddedRegistry(t *testing.T) *recipe.Registry {
	t.Helper()
	p, err := DataProvider("")
	require.NoError(t, err)
	reg, err := NewRegistry(p, Options{Runner: &executil.Fake{}})
	require.NoError(t, err)
	return reg
}

func versionIDs(entries []recipe.VersionEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Version)
	}
	return out
}

func writeRecipe(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "recipes"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "recipes", name+".yaml"), []byte(content), 0o644))
}

func TestNewRegistry(t *testing.T) {
	reg := newEmbeddedRegistry(t)
	assert.Equal(t, []string{"cray-mpich", "cuda", "gchp"}, reg.Names())

	r, err := reg.Get("cuda")
	require.NoError(t, err)
	assert.IsType(t, &cuda.Recipe{}, r)

	r, err = reg.Get("cray-mpich")
	require.NoError(t, err)
	assert.IsType(t, &craympich.Recipe{}, r)
	assert.Equal(t, recipe.StrategyExternalOnly, r.Definition().Strategy)

	r, err = reg.Get("gchp")
	require.NoError(t, err)
	assert.IsType(t, &gchp.Recipe{}, r)
	assert.Equal(t, recipe.StrategyCMake, r.Definition().Strategy)

	assert.Equal(t, []string{"cray-mpich"}, reg.Providers("mpi"))
	assert.Equal(t, []string{"cuda"}, reg.Providers("opencl"))
}

func TestCUDAVersionsByHost(t *testing.T) {
	reg := newEmbeddedRegistry(t)
	r, err := reg.Get("cuda")
	require.NoError(t, err)

	x86 := r.Versions(linuxX86)
	require.Len(t, x86, 18)
	assert.Equal(t, "11.3.1", x86[0].Version)
	assert.Equal(t, "6.5.14", x86[len(x86)-1].Version)
	assert.Equal(t, "ad93ea98efced35855c58d3a0fc326377c60917cb3e8c017d3e6d88819bf2934", x86[0].SHA256)
	assert.False(t, x86[0].ShouldExpand())

	// deterministic across calls
	for range 3 {
		assert.Equal(t, x86, r.Versions(linuxX86))
	}

	assert.Equal(t, []string{
		"11.3.1", "11.3.0", "11.2.2", "11.2.1", "11.2.0", "11.1.1", "11.1.0", "11.0.2",
		"10.2.89", "10.1.243",
	}, versionIDs(r.Versions(linuxPPC)))
	assert.Len(t, r.Versions(linuxAArch64), 8)
	assert.Empty(t, r.Versions(platform.Host{System: "Darwin", Machine: "x86_64"}))

	_, ok := r.SelectPlatformArtifact("10.0.130", linuxPPC)
	assert.False(t, ok, "x86_64-only version must not be offered on ppc64le")

	ppc, ok := r.SelectPlatformArtifact("11.3.1", linuxPPC)
	require.True(t, ok)
	assert.Equal(t, "Linux-ppc64le", ppc.Platform)
	assert.Contains(t, ppc.URL, "ppc64le.run")
}

func TestPPCOnlyVersionNotOfferedOnX86(t *testing.T) {
	ext := t.TempDir()
	writeRecipe(t, ext, "cuda", `kind: Recipe
name: cuda
artifacts:
  expand: false
  versions:
    "10.1.243":
      Linux-ppc64le:
        sha256: b198002eef010bab9e745ae98e47567c955d00cf34cc8f8d2f0a6feb810523bf
        url: https://developer.download.nvidia.com/compute/cuda/10.1/Prod/local_installers/cuda_10.1.243_418.87.00_linux_ppc64le.run
`)

	p, err := DataProvider(ext)
	require.NoError(t, err)
	reg, err := NewRegistry(p, Options{Runner: &executil.Fake{}})
	require.NoError(t, err)

	r, err := reg.Get("cuda")
	require.NoError(t, err)

	_, ok := r.SelectPlatformArtifact("10.1.243", linuxX86)
	assert.False(t, ok)
	assert.Empty(t, r.Versions(linuxX86))

	_, err = recipe.Resolve(reg, recipe.Request{Name: "cuda", Version: "10.1.243"}, linuxX86)
	assert.True(t, errors.HasCode(err, errors.ErrCodeUnsupportedPlatform))

	spec, err := recipe.Resolve(reg, recipe.Request{Name: "cuda", Version: "10.1.243"}, linuxPPC)
	require.NoError(t, err)
	assert.Equal(t, "Linux-ppc64le", spec.Artifact.Platform)
}

func TestCUDADeclarations(t *testing.T) {
	reg := newEmbeddedRegistry(t)
	r, err := reg.Get("cuda")
	require.NoError(t, err)
	def := r.Definition()

	spec, err := recipe.Resolve(reg, recipe.Request{Name: "cuda", Version: "11.3.1"}, linuxX86)
	require.NoError(t, err)
	deps := def.ActiveDependencies(spec)
	require.Len(t, deps, 1)
	assert.Equal(t, "libxml2", deps[0].Name)

	dev, err := recipe.Resolve(reg, recipe.Request{Name: "cuda", Version: "11.3.1", Variants: map[string]bool{"dev": true}}, linuxX86)
	require.NoError(t, err)
	deps = def.ActiveDependencies(dev)
	require.Len(t, deps, 2)
	assert.Equal(t, "ncurses", deps[1].Name)
	assert.Equal(t, []recipe.DepType{recipe.DepRun}, deps[1].Types)

	old, err := recipe.Resolve(reg, recipe.Request{Name: "cuda", Version: "6.5.14"}, linuxX86)
	require.NoError(t, err)
	assert.Empty(t, def.ActiveDependencies(old))
	provides := def.ActiveProvides(old)
	require.Len(t, provides, 1)
	assert.Equal(t, "opencl@:1.1 when @:6", provides[0].String())

	_, err = recipe.Resolve(reg, recipe.Request{Name: "cuda", Version: "11.3.1"},
		platform.Host{System: "Darwin", Machine: "x86_64", OS: "mojave"})
	assert.True(t, errors.HasCode(err, errors.ErrCodeUnsupportedPlatform))
}

func TestNotInstallableRegardlessOfSpec(t *testing.T) {
	reg := newEmbeddedRegistry(t)
	r, err := reg.Get("cray-mpich")
	require.NoError(t, err)
	assert.Len(t, r.Versions(linuxX86), 9)

	for _, host := range []platform.Host{linuxX86, linuxPPC, linuxAArch64} {
		for _, entry := range r.Versions(host) {
			spec, err := recipe.Resolve(reg, recipe.Request{Name: "cray-mpich", Version: entry.Version}, host)
			require.NoError(t, err)
			err = r.Install(context.Background(), spec, t.TempDir(), t.TempDir())
			assert.True(t, errors.HasCode(err, errors.ErrCodeNotInstallable), "%s on %s", entry.Version, host)
		}
	}
}

func TestGCHPDefinition(t *testing.T) {
	reg := newEmbeddedRegistry(t)
	r, err := reg.Get("gchp")
	require.NoError(t, err)
	def := r.Definition()

	assert.Equal(t, []string{"13.0.1", "13.0.0"}, versionIDs(r.Versions(linuxX86)))
	e, ok := r.SelectPlatformArtifact("13.0.1", linuxAArch64)
	require.True(t, ok)
	assert.Equal(t, recipe.SourceGit, e.Source())
	assert.Equal(t, "f40a2476fda901eacf78c0972fdb6c20e5a06700", e.Commit)
	assert.True(t, e.Submodules)

	spec, err := recipe.Resolve(reg, recipe.Request{Name: "gchp"}, linuxAArch64)
	require.NoError(t, err)
	assert.Equal(t, "13.0.1", spec.VersionString())
	assert.True(t, spec.Variant("real8"))
	assert.False(t, spec.Variant("omp"))
	assert.Len(t, def.ActivePatches(spec), 1)

	x86, err := recipe.Resolve(reg, recipe.Request{Name: "gchp", Version: "13.0.0", Variants: map[string]bool{"ofi": true}}, linuxX86)
	require.NoError(t, err)
	assert.Empty(t, def.ActivePatches(x86))

	var names []string
	for _, d := range def.ActiveDependencies(x86) {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"esmf", "mpi", "netcdf-fortran", "cmake", "libfabric", "m4"}, names)
}

func TestGenericRecipe(t *testing.T) {
	ext := t.TempDir()
	writeRecipe(t, ext, "zlib", `name: zlib
strategy: cmake
versions:
  - version: "1.2.11"
    url: https://zlib.net/zlib-1.2.11.tar.gz
    sha256: c3e5e9fdd5004dcb542feda5ee4f0ff0744628baf8ed2dd5d66f8ca1197cb1a1
`)
	writeRecipe(t, ext, "site-mpi", `name: site-mpi
strategy: external
versions:
  - version: "1.0"
`)

	fake := &executil.Fake{}
	p, err := DataProvider(ext)
	require.NoError(t, err)
	reg, err := NewRegistry(p, Options{Runner: fake})
	require.NoError(t, err)
	assert.Equal(t, []string{"cray-mpich", "cuda", "gchp", "site-mpi", "zlib"}, reg.Names())

	zlib, err := reg.Get("zlib")
	require.NoError(t, err)
	spec, err := recipe.Resolve(reg, recipe.Request{Name: "zlib"}, linuxX86)
	require.NoError(t, err)
	source := filepath.Join(t.TempDir(), "src")
	require.NoError(t, zlib.Install(context.Background(), spec, "/opt/zlib", source))
	assert.Len(t, fake.Calls(), 3)

	site, err := reg.Get("site-mpi")
	require.NoError(t, err)
	spec, err = recipe.Resolve(reg, recipe.Request{Name: "site-mpi"}, linuxX86)
	require.NoError(t, err)
	err = site.Install(context.Background(), spec, "/opt/x", source)
	assert.True(t, errors.HasCode(err, errors.ErrCodeNotInstallable))
}
