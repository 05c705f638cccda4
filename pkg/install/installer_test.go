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

package install

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NVIDIA/hpc-recipes/pkg/builtin"
	"github.com/NVIDIA/hpc-recipes/pkg/errors"
	"github.com/NVIDIA/hpc-recipes/pkg/executil"
	"github.com/NVIDIA/hpc-recipes/pkg/header"
	"github.com/NVIDIA/hpc-recipes/pkg/modulecmd"
	"github.com/NVIDIA/hpc-recipes/pkg/platform"
	"github.com/NVIDIA/hpc-recipes/pkg/recipe"
	"github.com/NVIDIA/hpc-recipes/pkg/stage"
	"github.com/NVIDIA/hpc-recipes/pkg/version"
)

var (
	linuxX86     = platform.Host{System: "Linux", Machine: "x86_64"}
	linuxAArch64 = platform.Host{System: "Linux", Machine: "aarch64"}
)

type fixture struct {
	fake      *executil.Fake
	reg       *recipe.Registry
	data      recipe.DataProvider
	root      string
	stageRoot string
	log       string
}

func newFixture(t *testing.T, externalDir string) *fixture {
	t.Helper()
	f := &fixture{
		fake:      &executil.Fake{},
		root:      t.TempDir(),
		stageRoot: t.TempDir(),
		log:       filepath.Join(t.TempDir(), "cuda-installer.log"),
	}
	p, err := builtin.DataProvider(externalDir)
	require.NoError(t, err)
	f.data = p
	f.reg, err = builtin.NewRegistry(p, builtin.Options{Runner: f.fake, CUDAInstallerLog: f.log})
	require.NoError(t, err)
	return f
}

func (f *fixture) installer(opts ...Option) *Installer {
	base := []Option{
		WithRegistry(f.reg),
		WithDataProvider(f.data),
		WithRunner(f.fake),
		WithStageManager(stage.NewManager(f.stageRoot)),
		WithToolVersion("v0.0.0-test"),
		WithBaseEnvironment(func() map[string]string {
			return map[string]string{"PATH": "/usr/bin"}
		}),
	}
	return New(f.root, append(base, opts...)...)
}

func (f *fixture) get(t *testing.T, name string) recipe.Recipe {
	t.Helper()
	r, err := f.reg.Get(name)
	require.NoError(t, err)
	return r
}

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, nil, 0o644))
}

// localRunfile points spec at a fake runfile on disk.
func localRunfile(t *testing.T, spec *recipe.ResolvedSpec) {
	t.Helper()
	body := []byte("#!/bin/sh\nexit 0\n")
	path := filepath.Join(t.TempDir(), "cuda_"+spec.VersionString()+"_465.19.01_linux.run")
	require.NoError(t, os.WriteFile(path, body, 0o755))
	sum := sha256.Sum256(body)
	spec.Artifact.URL = "file://" + path
	spec.Artifact.SHA256 = hex.EncodeToString(sum[:])
}

func stageEntries(t *testing.T, root string) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	return entries
}

func TestInstallCUDA(t *testing.T) {
	f := newFixture(t, "")
	r := f.get(t, "cuda")

	libxml2 := &recipe.ResolvedSpec{
		Name:    "libxml2",
		Version: version.MustParseVersion("2.9.10"),
		Prefix:  "/opt/libxml2",
	}
	spec, err := recipe.Resolve(f.reg, recipe.Request{Name: "cuda", Version: "11.3.1"}, linuxX86, recipe.WithDependency(libxml2))
	require.NoError(t, err)
	localRunfile(t, spec)

	inst := f.installer()
	prefix := inst.Prefix(spec)

	f.fake.OnRun = func(cmd executil.Command) error {
		if cmd.Name == "sh" {
			touch(t, filepath.Join(prefix, "include", "cuda.h"))
			touch(t, filepath.Join(prefix, "lib64", "libcudart.so"))
			touch(t, filepath.Join(prefix, "lib64", "stubs", "libcudart.so"))
			touch(t, filepath.Join(prefix, "compat", "libcudart.so"))
		}
		return nil
	}

	before := testutil.ToFloat64(installAttempts.WithLabelValues("cuda", outcomeSuccess))
	rc, err := inst.Install(context.Background(), r, spec)
	require.NoError(t, err)
	assert.Equal(t, before+1, testutil.ToFloat64(installAttempts.WithLabelValues("cuda", outcomeSuccess)))

	calls := f.fake.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "sh", calls[0].Name)
	assert.Contains(t, calls[0].Args, "--installpath="+prefix)
	assert.NotContains(t, calls[0].Args, "--toolkitpath="+prefix)
	assert.Contains(t, calls[0].Env, "LIBXML2HOME=/opt/libxml2")
	assert.Contains(t, calls[0].Env, "LD_LIBRARY_PATH=/opt/libxml2/lib")
	assert.Contains(t, calls[0].Env, "PATH=/usr/bin")

	assert.Equal(t, header.KindInstallReceipt, rc.Kind)
	assert.Equal(t, "v0.0.0-test", rc.Metadata["version"])
	assert.Equal(t, prefix, rc.Spec.Prefix)
	assert.Empty(t, spec.Prefix, "caller spec must not be modified")
	assert.Equal(t, []recipe.EnvOp{{Action: recipe.EnvSet, Name: "CUDA_HOME", Value: prefix}}, rc.RunEnvironment)
	assert.Equal(t, "CUDAHOSTCXX", rc.DependentEnvironment[0].Name)
	require.NotNil(t, rc.Libraries)
	assert.Equal(t, []string{filepath.Join(prefix, "lib64", "libcudart.so")}, rc.Libraries.Files)
	require.NotNil(t, rc.Headers)
	assert.Equal(t, []string{filepath.Join(prefix, "include", "cuda.h")}, rc.Headers.Files)

	saved, err := ReadReceipt(prefix)
	require.NoError(t, err)
	assert.Equal(t, "cuda", saved.Spec.Name)
	assert.Equal(t, "11.3.1", saved.Spec.VersionString())
	assert.Empty(t, stageEntries(t, f.stageRoot), "stage must be removed")

	t.Run("already installed", func(t *testing.T) {
		again, err := inst.Install(context.Background(), r, spec)
		require.NoError(t, err)
		assert.Equal(t, prefix, again.Spec.Prefix)
		assert.Len(t, f.fake.Calls(), 1)
	})
}

func TestInstallFailureRemovesPrefix(t *testing.T) {
	f := newFixture(t, "")
	r := f.get(t, "cuda")
	spec, err := recipe.Resolve(f.reg, recipe.Request{Name: "cuda", Version: "11.3.1"}, linuxX86)
	require.NoError(t, err)
	localRunfile(t, spec)

	inst := f.installer()
	prefix := inst.Prefix(spec)
	f.fake.OnRun = func(cmd executil.Command) error {
		touch(t, filepath.Join(prefix, "bin", "nvcc"))
		return assert.AnError
	}

	_, err = inst.Install(context.Background(), r, spec)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInstallation))
	assert.NoDirExists(t, prefix)
	assert.Empty(t, stageEntries(t, f.stageRoot))
}

func TestInstallDiscoveryFailureRemovesPrefix(t *testing.T) {
	f := newFixture(t, "")
	r := f.get(t, "cuda")
	spec, err := recipe.Resolve(f.reg, recipe.Request{Name: "cuda", Version: "11.3.1"}, linuxX86)
	require.NoError(t, err)
	localRunfile(t, spec)

	inst := f.installer()
	_, err = inst.Install(context.Background(), r, spec)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeDiscovery))
	assert.NoDirExists(t, inst.Prefix(spec))
}

func TestInstallHazardStopsBeforeInstaller(t *testing.T) {
	f := newFixture(t, "")
	touch(t, filepath.Join(f.log, "keep"))

	r := f.get(t, "cuda")
	spec, err := recipe.Resolve(f.reg, recipe.Request{Name: "cuda", Version: "10.1.243"}, linuxX86)
	require.NoError(t, err)
	localRunfile(t, spec)

	inst := f.installer()
	before := testutil.ToFloat64(installAttempts.WithLabelValues("cuda", string(errors.ErrCodeEnvironmentHazard)))
	_, err = inst.Install(context.Background(), r, spec)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeEnvironmentHazard))
	assert.Contains(t, err.Error(), "please remove the file and try again")
	assert.Empty(t, f.fake.Calls())
	assert.NoDirExists(t, inst.Prefix(spec))
	assert.Equal(t, before+1, testutil.ToFloat64(installAttempts.WithLabelValues("cuda", string(errors.ErrCodeEnvironmentHazard))))
}

func TestInstallNotInstallable(t *testing.T) {
	f := newFixture(t, "")
	r := f.get(t, "cray-mpich")
	spec, err := recipe.Resolve(f.reg, recipe.Request{Name: "cray-mpich", Version: "8.1.0"}, linuxX86)
	require.NoError(t, err)

	inst := f.installer()
	_, err = inst.Install(context.Background(), r, spec)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeNotInstallable))
	assert.NoDirExists(t, inst.Prefix(spec))
	assert.Empty(t, stageEntries(t, f.stageRoot))
}

func TestInstallRequiresRecipeAndSpec(t *testing.T) {
	f := newFixture(t, "")
	_, err := f.installer().Install(context.Background(), nil, nil)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidRequest))
}

func TestExternal(t *testing.T) {
	f := newFixture(t, "")
	r := f.get(t, "cray-mpich")
	spec, err := recipe.Resolve(f.reg, recipe.Request{Name: "cray-mpich", Version: "8.1.0"}, linuxX86)
	require.NoError(t, err)

	host := t.TempDir()
	touch(t, filepath.Join(host, "include", "mpi.h"))
	touch(t, filepath.Join(host, "lib", "libmpich.so"))

	t.Run("found", func(t *testing.T) {
		inst := f.installer(WithLookup(modulecmd.Static{"cray-mpich/8.1.0": host}))
		rc, err := inst.External(context.Background(), r, spec)
		require.NoError(t, err)
		assert.True(t, rc.External)
		assert.Equal(t, host, rc.Spec.Prefix)
		assert.Equal(t, "gcc", rc.Attributes["mpicc"])
		assert.Equal(t, "GNU", rc.Attributes["compiler_family"])
		assert.Equal(t, []string{filepath.Join(host, "lib", "libmpich.so")}, rc.Libraries.Files)
		assert.NoFileExists(t, ReceiptPath(host))
	})

	t.Run("module missing", func(t *testing.T) {
		inst := f.installer(WithLookup(modulecmd.Static{}))
		_, err := inst.External(context.Background(), r, spec)
		assert.True(t, errors.HasCode(err, errors.ErrCodeDiscovery))
	})

	t.Run("not external", func(t *testing.T) {
		cuda := f.get(t, "cuda")
		cs, err := recipe.Resolve(f.reg, recipe.Request{Name: "cuda"}, linuxX86)
		require.NoError(t, err)
		_, err = f.installer().External(context.Background(), cuda, cs)
		assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidRequest))
	})
}

type fakeCloner struct {
	requests []stage.CloneRequest
}

func (c *fakeCloner) Clone(_ context.Context, req stage.CloneRequest) error {
	c.requests = append(c.requests, req)
	if err := os.MkdirAll(req.Dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(req.Dir, "CMakeLists.txt"), []byte("project(GCHP)\n"), 0o644)
}

func TestInstallGCHPAppliesPatch(t *testing.T) {
	ext := t.TempDir()
	touch(t, filepath.Join(ext, "patches", "gchp", "for_aarch64.patch"))

	f := newFixture(t, ext)
	r := f.get(t, "gchp")
	spec, err := recipe.Resolve(f.reg, recipe.Request{Name: "gchp"}, linuxAArch64)
	require.NoError(t, err)

	cloner := &fakeCloner{}
	inst := f.installer(WithStageManager(stage.NewManager(f.stageRoot, stage.WithCloner(cloner))))
	prefix := inst.Prefix(spec)

	rc, err := inst.Install(context.Background(), r, spec)
	require.NoError(t, err)
	assert.Equal(t, recipe.StrategyCMake, rc.Strategy)

	require.Len(t, cloner.requests, 1)
	assert.Equal(t, "f40a2476fda901eacf78c0972fdb6c20e5a06700", cloner.requests[0].Commit)
	assert.True(t, cloner.requests[0].Submodules)

	calls := f.fake.Calls()
	require.Len(t, calls, 4)
	assert.Equal(t, "patch", calls[0].Name)
	assert.Equal(t, "for_aarch64.patch", filepath.Base(calls[0].Args[len(calls[0].Args)-1]))
	assert.Equal(t, cloner.requests[0].Dir, calls[0].Dir)
	for _, c := range calls[1:] {
		assert.Equal(t, "cmake", c.Name)
	}
	assert.True(t, slices.Contains(calls[1].Args, "-DCMAKE_INSTALL_PREFIX="+prefix))

	assert.FileExists(t, filepath.Join(prefix, "source_code", "CMakeLists.txt"))
	assert.FileExists(t, ReceiptPath(prefix))
}

func TestInstallMissingPatch(t *testing.T) {
	f := newFixture(t, "")
	r := f.get(t, "gchp")
	spec, err := recipe.Resolve(f.reg, recipe.Request{Name: "gchp"}, linuxAArch64)
	require.NoError(t, err)

	inst := f.installer(WithStageManager(stage.NewManager(f.stageRoot, stage.WithCloner(&fakeCloner{}))))
	_, err = inst.Install(context.Background(), r, spec)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInstallation))
	assert.Contains(t, err.Error(), "for_aarch64.patch")
	assert.Empty(t, f.fake.Calls())
	assert.NoDirExists(t, inst.Prefix(spec))
}

func TestBuildEnvironmentIncludesDependents(t *testing.T) {
	f := newFixture(t, "")
	gchp := f.get(t, "gchp")
	mpi, err := recipe.Resolve(f.reg, recipe.Request{Name: "cray-mpich", Version: "8.1.0"}, linuxX86, recipe.WithPrefix("/opt/cray/pe/mpich/8.1.0"))
	require.NoError(t, err)

	renamed := *mpi
	renamed.Name = "mpi"

	tests := []struct {
		name string
		deps map[string]*recipe.ResolvedSpec
		want bool
	}{
		{name: "attached under provider name", deps: map[string]*recipe.ResolvedSpec{"cray-mpich": mpi}, want: true},
		{name: "attached under virtual name", deps: map[string]*recipe.ResolvedSpec{"mpi": mpi}, want: true},
		{name: "virtual name on the spec itself", deps: map[string]*recipe.ResolvedSpec{"mpi": &renamed}, want: true},
		{name: "not attached", deps: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := recipe.Resolve(f.reg, recipe.Request{Name: "gchp"}, linuxX86)
			require.NoError(t, err)
			spec.Dependencies = tt.deps

			env := f.installer().BuildEnvironment(gchp, spec).Map()
			if !tt.want {
				assert.NotContains(t, env, "MPICH_CC")
				return
			}
			assert.Equal(t, "gcc", env["MPICH_CC"])
		})
	}
}

func TestInstallCUDABeforeInstallPath(t *testing.T) {
	f := newFixture(t, "")
	r := f.get(t, "cuda")
	spec, err := recipe.Resolve(f.reg, recipe.Request{Name: "cuda", Version: "10.0.130"}, linuxX86)
	require.NoError(t, err)
	localRunfile(t, spec)

	inst := f.installer()
	prefix := inst.Prefix(spec)
	f.fake.OnRun = func(cmd executil.Command) error {
		touch(t, filepath.Join(prefix, "include", "cuda.h"))
		touch(t, filepath.Join(prefix, "lib64", "libcudart.so"))
		return nil
	}

	_, err = inst.Install(context.Background(), r, spec)
	require.NoError(t, err)

	calls := f.fake.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Args, "--toolkitpath="+prefix)
	assert.Contains(t, calls[0].Args, "--verbose")
	assert.NotContains(t, calls[0].Args, "--installpath="+prefix)
}

func TestInstallCUDAVendorLayout(t *testing.T) {
	f := newFixture(t, "")
	r := f.get(t, "cuda")
	spec, err := recipe.Resolve(f.reg, recipe.Request{Name: "cuda", Version: "11.3.1"}, linuxX86)
	require.NoError(t, err)
	localRunfile(t, spec)

	inst := f.installer()
	prefix := inst.Prefix(spec)
	f.fake.OnRun = func(cmd executil.Command) error {
		touch(t, filepath.Join(prefix, "targets", "x86_64-linux", "include", "cuda.h"))
		touch(t, filepath.Join(prefix, "targets", "x86_64-linux", "lib", "libcudart.so"))
		if err := os.Symlink(filepath.Join("targets", "x86_64-linux", "include"), filepath.Join(prefix, "include")); err != nil {
			return err
		}
		return os.Symlink(filepath.Join("targets", "x86_64-linux", "lib"), filepath.Join(prefix, "lib64"))
	}

	rc, err := inst.Install(context.Background(), r, spec)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(prefix, "include", "cuda.h")}, rc.Headers.Files)
	assert.Equal(t, []string{filepath.Join(prefix, "lib64", "libcudart.so")}, rc.Libraries.Files)
	assert.FileExists(t, ReceiptPath(prefix))
}

func TestInstallFailureKeepsExistingPrefix(t *testing.T) {
	tests := []struct {
		name    string
		version string
		hazard  bool
		onRun   func(t *testing.T, prefix string) error
		code    errors.ErrorCode
	}{
		{
			name:    "installer fails",
			version: "11.3.1",
			onRun: func(t *testing.T, prefix string) error {
				touch(t, filepath.Join(prefix, "bin", "nvcc"))
				touch(t, filepath.Join(prefix, "include", "cuda.h"))
				return assert.AnError
			},
			code: errors.ErrCodeInstallation,
		},
		{
			name:    "discovery misses",
			version: "11.3.1",
			onRun: func(t *testing.T, prefix string) error {
				touch(t, filepath.Join(prefix, "bin", "nvcc"))
				return nil
			},
			code: errors.ErrCodeDiscovery,
		},
		{
			name:    "hazard",
			version: "10.1.243",
			hazard:  true,
			code:    errors.ErrCodeEnvironmentHazard,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, "")
			if tt.hazard {
				touch(t, filepath.Join(f.log, "keep"))
			}
			r := f.get(t, "cuda")

			userPrefix := t.TempDir()
			touch(t, filepath.Join(userPrefix, "bin", "unrelated-tool"))
			touch(t, filepath.Join(userPrefix, "share", "doc", "README"))

			spec, err := recipe.Resolve(f.reg, recipe.Request{Name: "cuda", Version: tt.version}, linuxX86, recipe.WithPrefix(userPrefix))
			require.NoError(t, err)
			localRunfile(t, spec)

			f.fake.OnRun = func(executil.Command) error {
				if tt.onRun == nil {
					return nil
				}
				return tt.onRun(t, userPrefix)
			}

			_, err = f.installer().Install(context.Background(), r, spec)
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, tt.code), err.Error())

			assert.FileExists(t, filepath.Join(userPrefix, "bin", "unrelated-tool"))
			assert.FileExists(t, filepath.Join(userPrefix, "share", "doc", "README"))
			assert.NoFileExists(t, filepath.Join(userPrefix, "bin", "nvcc"))
			assert.NoDirExists(t, filepath.Join(userPrefix, "include"))
			assert.NoFileExists(t, ReceiptPath(userPrefix))
		})
	}
}
