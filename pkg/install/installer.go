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
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/NVIDIA/hpc-recipes/pkg/defaults"
	"github.com/NVIDIA/hpc-recipes/pkg/errors"
	"github.com/NVIDIA/hpc-recipes/pkg/executil"
	"github.com/NVIDIA/hpc-recipes/pkg/header"
	"github.com/NVIDIA/hpc-recipes/pkg/modulecmd"
	"github.com/NVIDIA/hpc-recipes/pkg/recipe"
	"github.com/NVIDIA/hpc-recipes/pkg/stage"
)

// Installer drives recipes through the install lifecycle:
// stage and fetch, patch, build environment, install, discovery, receipt.
//
// Thread-safety: Installer is safe for concurrent use. Every attempt gets
// its own stage directory.
type Installer struct {
	root        string
	registry    *recipe.Registry
	data        recipe.DataProvider
	stages      *stage.Manager
	runner      executil.Runner
	lookup      modulecmd.Lookup
	toolchain   recipe.Toolchain
	toolVersion string
	output      io.Writer
	keepStage   bool
	baseEnv     func() map[string]string
}

// Option configures an Installer.
type Option func(*Installer)

// WithRegistry sets the registry used to find dependency recipes, whose
// dependent build environments are applied before the package's own.
func WithRegistry(reg *recipe.Registry) Option {
	return func(i *Installer) {
		i.registry = reg
	}
}

// WithDataProvider sets where patch files are read from.
func WithDataProvider(p recipe.DataProvider) Option {
	return func(i *Installer) {
		i.data = p
	}
}

// WithStageManager sets the stage manager.
func WithStageManager(m *stage.Manager) Option {
	return func(i *Installer) {
		if m != nil {
			i.stages = m
		}
	}
}

// WithRunner sets the command runner used to apply patches.
func WithRunner(r executil.Runner) Option {
	return func(i *Installer) {
		if r != nil {
			i.runner = r
		}
	}
}

// WithLookup sets the module lookup used for external packages.
func WithLookup(l modulecmd.Lookup) Option {
	return func(i *Installer) {
		i.lookup = l
	}
}

// WithToolchain sets the compilers passed to environment callbacks.
func WithToolchain(tc recipe.Toolchain) Option {
	return func(i *Installer) {
		i.toolchain = tc
	}
}

// WithToolVersion sets the version stamped into receipts.
func WithToolVersion(v string) Option {
	return func(i *Installer) {
		i.toolVersion = v
	}
}

// WithOutput sets where patch output goes. Nil discards it.
func WithOutput(w io.Writer) Option {
	return func(i *Installer) {
		i.output = w
	}
}

// WithKeepStage leaves stage directories in place after an attempt.
func WithKeepStage(keep bool) Option {
	return func(i *Installer) {
		i.keepStage = keep
	}
}

// WithBaseEnvironment sets the environment the build environment is
// applied to. Default is the process environment.
func WithBaseEnvironment(fn func() map[string]string) Option {
	return func(i *Installer) {
		if fn != nil {
			i.baseEnv = fn
		}
	}
}

// New returns an Installer creating prefixes below root.
func New(root string, opts ...Option) *Installer {
	if root == "" {
		root = defaults.InstallRoot
	}
	i := &Installer{
		root:      root,
		runner:    executil.NewRunner(),
		toolchain: recipe.DefaultToolchain,
		baseEnv:   recipe.ProcessEnv,
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.stages == nil {
		i.stages = stage.NewManager(defaults.StageRoot)
	}
	return i
}

// Prefix returns the prefix spec installs into.
func (i *Installer) Prefix(spec *recipe.ResolvedSpec) string {
	if spec.Prefix != "" {
		return spec.Prefix
	}
	return spec.PrefixUnder(i.root)
}

// Install runs one attempt for spec. A prefix that already holds a receipt
// is returned as is. On failure a prefix the attempt created is removed; in
// a prefix that existed before, only the entries the attempt added are.
func (i *Installer) Install(ctx context.Context, r recipe.Recipe, spec *recipe.ResolvedSpec) (*Receipt, error) {
	if r == nil || spec == nil {
		return nil, errors.New(errors.ErrCodeInvalidRequest, "recipe and spec are required")
	}

	start := time.Now()
	installsInFlight.Inc()
	defer installsInFlight.Dec()

	rc, err := i.install(ctx, r, spec, start)

	outcome := outcomeSuccess
	if err != nil {
		outcome = string(errors.CodeOf(err))
		if outcome == "" {
			outcome = string(errors.ErrCodeInternal)
		}
	}
	installAttempts.WithLabelValues(spec.Name, outcome).Inc()
	installDuration.WithLabelValues(spec.Name).Observe(time.Since(start).Seconds())
	return rc, err
}

func (i *Installer) install(ctx context.Context, r recipe.Recipe, spec *recipe.ResolvedSpec, start time.Time) (*Receipt, error) {
	def := r.Definition()
	if def.Strategy == recipe.StrategyExternalOnly {
		return nil, r.Install(ctx, spec, "", "")
	}

	prefix := i.Prefix(spec)
	if existing, err := ReadReceipt(prefix); err == nil {
		slog.Info("already installed", "spec", spec.String(), "prefix", prefix)
		return existing, nil
	}

	s := *spec
	s.Prefix = prefix
	i.warnMissingDependencies(def, &s)

	st, err := i.stages.Create(&s)
	if err != nil {
		return nil, recipe.InstallationError(&s, "stage", err)
	}
	defer func() {
		if i.keepStage {
			slog.Info("keeping stage", "path", st.Root)
			return
		}
		if derr := st.Destroy(); derr != nil {
			slog.Warn("failed to remove stage", "path", st.Root, "error", derr)
		}
	}()

	if s.Artifact.Source() != recipe.SourceNone {
		fetchCtx, cancel := context.WithTimeout(ctx, defaults.FetchTimeout)
		err = i.stages.Fetch(fetchCtx, st, s.Artifact)
		cancel()
		if err != nil {
			return nil, recipe.InstallationError(&s, "fetch", err)
		}
	}

	if err := i.applyPatches(ctx, def, &s, st); err != nil {
		return nil, err
	}

	environ := recipe.Environ(i.BuildEnvironment(r, &s).Apply(i.baseEnv()))
	ictx := recipe.ContextWithEnviron(ctx, environ)

	claim, err := claimPrefix(prefix)
	if err != nil {
		return nil, recipe.InstallationError(&s, "prefix", err)
	}

	slog.Info("installing", "spec", s.String(), "prefix", prefix, "stage", st.ID)
	if err := r.Install(ictx, &s, prefix, st.Source); err != nil {
		claim.release()
		if errors.CodeOf(err) == "" {
			err = recipe.InstallationError(&s, "install", err)
		}
		return nil, err
	}

	rc, err := i.describe(ctx, r, &s)
	if err != nil {
		claim.release()
		return nil, err
	}
	rc.Duration = time.Since(start).Round(time.Millisecond)

	if err := writeReceipt(ctx, prefix, rc); err != nil {
		claim.release()
		return nil, recipe.InstallationError(&s, "receipt", err)
	}

	slog.Info("installed", "spec", s.String(), "prefix", prefix, "duration", rc.Duration)
	return rc, nil
}

// External resolves the prefix of an external package and describes it.
// Nothing is written to the host prefix.
func (i *Installer) External(ctx context.Context, r recipe.Recipe, spec *recipe.ResolvedSpec) (*Receipt, error) {
	ep, ok := r.(recipe.ExternalProvider)
	if !ok {
		return nil, errors.NewWithContext(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("%s cannot be discovered as an external package", spec.Name),
			map[string]any{"package": spec.Name})
	}

	lookup := i.lookup
	if lookup == nil {
		lookup = modulecmd.NewFinder(i.runner)
	}

	prefix, err := ep.ExternalPrefix(ctx, spec, lookup)
	if err != nil {
		return nil, err
	}

	s := *spec
	s.Prefix = prefix
	rc, err := i.describe(ctx, r, &s)
	if err != nil {
		return nil, err
	}
	rc.External = true
	slog.Info("external package registered", "spec", s.String(), "prefix", prefix)
	return rc, nil
}

// BuildEnvironment returns the dependent build environments of every
// registered dependency followed by the package's own build environment.
// A virtual dependency such as "mpi" is satisfied by a spec attached under
// the virtual name or under any of its providers' names.
func (i *Installer) BuildEnvironment(r recipe.Recipe, spec *recipe.ResolvedSpec) recipe.Env {
	var env recipe.Env
	if i.registry != nil {
		for _, edge := range r.Definition().ActiveDependencies(spec) {
			dr, dep, ok := i.dependency(edge.Name, spec)
			if !ok {
				continue
			}
			env.Extend(dr.DependentBuildEnvironment(dep, spec, i.toolchain))
		}
	}
	env.Extend(r.BuildEnvironment(spec, i.toolchain))
	return env
}

// dependency returns the attached spec for the dependency name and the
// recipe that built it.
func (i *Installer) dependency(name string, spec *recipe.ResolvedSpec) (recipe.Recipe, *recipe.ResolvedSpec, bool) {
	providers := i.registry.Providers(name)
	for _, attached := range append([]string{name}, providers...) {
		dep, ok := spec.Dependency(attached)
		if !ok {
			continue
		}
		candidates := []string{dep.Name, attached}
		if len(providers) > 0 {
			candidates = append(candidates, providers[0])
		}
		for _, rn := range candidates {
			dr, err := i.registry.Get(rn)
			if err != nil {
				continue
			}
			if rn != name && len(providers) > 0 && !slices.Contains(providers, rn) {
				continue
			}
			return dr, dep, true
		}
	}
	return nil, nil, false
}

func (i *Installer) describe(ctx context.Context, r recipe.Recipe, spec *recipe.ResolvedSpec) (*Receipt, error) {
	h := header.New(header.WithKind(header.KindInstallReceipt))
	h.Stamp(i.toolVersion)

	rc := &Receipt{
		Header:               *h,
		Spec:                 spec,
		Strategy:             r.Definition().Strategy,
		RunEnvironment:       r.RunEnvironment(spec, i.toolchain).Ops(),
		DependentEnvironment: r.DependentBuildEnvironment(spec, nil, i.toolchain).Ops(),
	}

	if hp, ok := r.(recipe.HeaderProvider); ok {
		hs, err := hp.Headers(spec.Prefix)
		if err != nil {
			return nil, err
		}
		rc.Headers = &hs
	}
	if lp, ok := r.(recipe.LibraryProvider); ok {
		ls, err := lp.Libraries(spec.Prefix)
		if err != nil {
			return nil, err
		}
		rc.Libraries = &ls
	}
	if da, ok := r.(recipe.DependentAttributer); ok {
		rc.Attributes = da.DependentAttributes(spec, i.toolchain)
	}
	return rc, ctx.Err()
}

func (i *Installer) attached(name string, spec *recipe.ResolvedSpec) bool {
	if _, ok := spec.Dependency(name); ok {
		return true
	}
	if i.registry == nil {
		return false
	}
	for _, p := range i.registry.Providers(name) {
		if _, ok := spec.Dependency(p); ok {
			return true
		}
	}
	return false
}

func (i *Installer) warnMissingDependencies(def *recipe.Definition, spec *recipe.ResolvedSpec) {
	for _, edge := range def.ActiveDependencies(spec) {
		if !i.attached(edge.Name, spec) {
			slog.Warn("dependency not provided, assuming it is on the host",
				"spec", spec.Name, "dependency", edge.String())
		}
	}
}

// prefixClaim records what a prefix held before an attempt so a failed
// attempt removes only what it wrote.
type prefixClaim struct {
	path    string
	created bool
	before  map[string]bool
}

// claimPrefix creates prefix, or records every path below it when it
// already exists.
func claimPrefix(prefix string) (*prefixClaim, error) {
	c := &prefixClaim{path: prefix}
	if _, err := os.Lstat(prefix); err != nil {
		if !stderrors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		if err := os.MkdirAll(prefix, 0o755); err != nil {
			return nil, err
		}
		c.created = true
		return c, nil
	}

	c.before = make(map[string]bool)
	err := filepath.WalkDir(prefix, func(path string, _ fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != prefix {
			rel, rerr := filepath.Rel(prefix, path)
			if rerr != nil {
				return rerr
			}
			c.before[rel] = true
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to inspect existing prefix %s: %w", prefix, err)
	}
	if len(c.before) > 0 {
		slog.Warn("installing into a non-empty prefix", "prefix", prefix, "entries", len(c.before))
	}
	return c, nil
}

// release removes the prefix when the attempt created it, otherwise only
// the paths that were not there before.
func (c *prefixClaim) release() {
	if c.created {
		if err := os.RemoveAll(c.path); err != nil {
			slog.Error("failed to remove partial prefix", "prefix", c.path, "error", err)
		}
		return
	}

	removed := 0
	err := filepath.WalkDir(c.path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == c.path {
			return nil
		}
		rel, err := filepath.Rel(c.path, path)
		if err != nil {
			return err
		}
		if c.before[rel] {
			return nil
		}
		if err := os.RemoveAll(path); err != nil {
			return err
		}
		removed++
		if d.IsDir() {
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		slog.Error("failed to clean partial install", "prefix", c.path, "error", err)
		return
	}
	slog.Warn("prefix existed before the attempt, only new paths were removed",
		"prefix", c.path, "removed", removed)
}

func (i *Installer) applyPatches(ctx context.Context, def *recipe.Definition, spec *recipe.ResolvedSpec, st *stage.Stage) error {
	patches := def.ActivePatches(spec)
	if len(patches) == 0 {
		return nil
	}
	if i.data == nil {
		return recipe.InstallationError(spec, "patch", fmt.Errorf("no data provider for %d patches", len(patches)))
	}

	for _, p := range patches {
		data, err := recipe.ReadPatch(i.data, def.Name, p)
		if err != nil {
			return recipe.InstallationError(spec, "patch "+p.File, err)
		}
		path := filepath.Join(st.Root, filepath.Base(p.File))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return recipe.InstallationError(spec, "patch "+p.File, err)
		}

		slog.Info("applying patch", "spec", spec.Name, "patch", p.File)
		err = i.runner.Run(ctx, executil.Command{
			Name:   "patch",
			Args:   []string{"-s", "-p1", "-i", path},
			Dir:    st.Source,
			Stdout: i.output,
			Stderr: i.output,
		})
		if err != nil {
			return recipe.InstallationError(spec, "patch "+p.File, err)
		}
	}
	return nil
}
