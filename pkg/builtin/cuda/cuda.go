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

package cuda

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"

	"github.com/NVIDIA/hpc-recipes/pkg/executil"
	"github.com/NVIDIA/hpc-recipes/pkg/recipe"
	"github.com/NVIDIA/hpc-recipes/pkg/version"
)

// Name is the recipe name.
const Name = "cuda"

// InstallerLog is where the vendor installer keeps its log. Installers
// from 10.1 on crash when a log left by another user is present.
const InstallerLog = "/tmp/cuda-installer.log"

var (
	// the installer segfaults on a stale log from 10.1 on
	hazardRange = version.MustParseRange("10.1:")
	// libxml2 is needed by the installer from 10.1.243 on
	libxml2Range = version.MustParseRange("10.1.243:")
	// 10.1.243 on ppc64le fails to copy part of the include tree
	ppcWorkaround = version.MustParseRange("10.1.243")

	nvccVersion = regexp.MustCompile(`Cuda compilation tools, release .*?, V(\S+)`)
)

// installerArgs is the runfile command line. From 10.1 on the installer
// takes --installpath; older ones need --toolkitpath and log verbosely.
var installerArgs = recipe.ArgList{
	recipe.Always("{runfile}", "--silent", "--override", "--toolkit"),
	recipe.ByVersion([]string{"--verbose", "--toolkitpath={prefix}"},
		recipe.Case("10.1:", "--installpath={prefix}"),
	),
}

// Option configures the recipe.
type Option func(*Recipe)

// WithInstallerLog overrides the installer log path checked before install.
func WithInstallerLog(path string) Option {
	return func(r *Recipe) {
		r.installerLog = path
	}
}

// WithOutput sets where installer output is written.
func WithOutput(w io.Writer) Option {
	return func(r *Recipe) {
		r.output = w
	}
}

// Recipe installs the CUDA toolkit from the vendor runfile.
type Recipe struct {
	recipe.Base
	runner       executil.Runner
	installerLog string
	output       io.Writer
}

// New returns the cuda recipe for def.
func New(def *recipe.Definition, runner executil.Runner, opts ...Option) *Recipe {
	r := &Recipe{
		Base:         recipe.Base{Def: def},
		runner:       runner,
		installerLog: InstallerLog,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ValidateArgs checks the installer branches.
func (r *Recipe) ValidateArgs() error {
	return installerArgs.Validate()
}

// BuildEnvironment points the installer at libxml2 from 10.1.243 on.
func (r *Recipe) BuildEnvironment(spec *recipe.ResolvedSpec, _ recipe.Toolchain) recipe.Env {
	var env recipe.Env
	if !spec.Satisfies(libxml2Range) {
		return env
	}
	if dep, ok := spec.Dependency("libxml2"); ok {
		env.Set("LIBXML2HOME", dep.Prefix)
		env.AppendPath("LD_LIBRARY_PATH", filepath.Join(dep.Prefix, "lib"))
	}
	return env
}

// RunEnvironment exports CUDA_HOME.
func (r *Recipe) RunEnvironment(spec *recipe.ResolvedSpec, _ recipe.Toolchain) recipe.Env {
	var env recipe.Env
	env.Set("CUDA_HOME", spec.Prefix)
	return env
}

// DependentBuildEnvironment sets the host compiler nvcc uses for
// dependents to their C++ compiler.
func (r *Recipe) DependentBuildEnvironment(_, _ *recipe.ResolvedSpec, tc recipe.Toolchain) recipe.Env {
	var env recipe.Env
	env.Set("CUDAHOSTCXX", tc.CXX)
	return env
}

// Install runs the vendor runfile found in stage with sh.
func (r *Recipe) Install(ctx context.Context, spec *recipe.ResolvedSpec, prefix, stage string) error {
	if err := r.clearInstallerLog(spec); err != nil {
		return err
	}

	runfile, err := findRunfile(stage)
	if err != nil {
		return recipe.InstallationError(spec, "locate runfile", err)
	}

	if spec.Satisfies(ppcWorkaround) && spec.Host.Machine == "ppc64le" {
		if err := prepareIncludeTree(prefix); err != nil {
			return recipe.InstallationError(spec, "prepare ppc64le include tree", err)
		}
	}

	args := installerArgs.Build(spec, map[string]string{"runfile": runfile, "prefix": prefix})
	slog.Info("running cuda installer", "version", spec.VersionString(), "runfile", filepath.Base(runfile), "prefix", prefix)

	err = r.runner.Run(ctx, executil.Command{
		Name:   "sh",
		Args:   args,
		Dir:    stage,
		Env:    recipe.EnvironFromContext(ctx),
		Stdout: r.output,
		Stderr: r.output,
	})
	if err != nil {
		return recipe.InstallationError(spec, "cuda installer", err)
	}

	if err := os.Remove(r.installerLog); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
		slog.Debug("installer log not removed", "path", r.installerLog, "error", err)
	}
	return nil
}

// clearInstallerLog removes a stale installer log. Absence is fine; a log
// that cannot be removed is fatal for installers known to crash on it.
func (r *Recipe) clearInstallerLog(spec *recipe.ResolvedSpec) error {
	err := os.Remove(r.installerLog)
	switch {
	case err == nil:
		slog.Debug("removed stale installer log", "path", r.installerLog)
		return nil
	case stderrors.Is(err, fs.ErrNotExist):
		return nil
	case spec.Satisfies(hazardRange):
		return recipe.EnvironmentHazardError(Name,
			fmt.Sprintf("The cuda installer will segfault due to the presence of %s please remove the file and try again", r.installerLog),
			err)
	default:
		slog.Warn("stale installer log not removed", "path", r.installerLog, "error", err)
		return nil
	}
}

// findRunfile returns the first file in stage named like a Linux runfile.
func findRunfile(stage string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(stage, "cuda*_linux*"))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no cuda runfile in %s", stage)
	}
	return matches[0], nil
}

// prepareIncludeTree pre-creates the directories the 10.1.243 ppc64le
// installer fails to create.
func prepareIncludeTree(prefix string) error {
	includeDir := filepath.Join("targets", "ppc64le-linux", "include")
	if err := os.MkdirAll(filepath.Join(prefix, includeDir), 0o755); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Join(prefix, "src"), 0o755); err != nil {
		return err
	}
	return os.Symlink(includeDir, filepath.Join(prefix, "include"))
}

// Headers returns the toolkit's cuda.h.
func (r *Recipe) Headers(prefix string) (recipe.HeaderSet, error) {
	include := filepath.Join(prefix, "include")
	set, err := recipe.FindHeaders([]string{include}, []string{"cuda"}, recipe.SearchOptions{})
	if err != nil {
		return recipe.HeaderSet{}, err
	}
	if set.Empty() {
		return recipe.HeaderSet{}, recipe.DiscoveryError(Name, "cuda.h", include)
	}
	return set, nil
}

// Libraries returns the shared CUDA runtime. Copies below compat and
// stubs directories are never returned.
func (r *Recipe) Libraries(prefix string, _ ...string) (recipe.LibrarySet, error) {
	set, err := recipe.FindLibraries([]string{prefix}, []string{"libcudart"}, true,
		recipe.SearchOptions{Recursive: true})
	if err != nil {
		return recipe.LibrarySet{}, err
	}
	if set.Empty() {
		return recipe.LibrarySet{}, recipe.DiscoveryError(Name, "libcudart", prefix)
	}
	return set, nil
}

// DetectCommand runs nvcc to report its version.
func (r *Recipe) DetectCommand() []string {
	return []string{"nvcc", "--version"}
}

// DetermineVersion reads the toolkit version from nvcc --version output.
func (r *Recipe) DetermineVersion(output string) (string, bool) {
	m := nvccVersion.FindStringSubmatch(output)
	if m == nil {
		return "", false
	}
	return m[1], true
}
