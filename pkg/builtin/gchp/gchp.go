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

package gchp

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/NVIDIA/hpc-recipes/pkg/executil"
	"github.com/NVIDIA/hpc-recipes/pkg/recipe"
)

// Name is the recipe name.
const Name = "gchp"

// SourceDir is where the source tree is kept inside the prefix. Run
// directory creation reads it after install.
const SourceDir = "source_code"

// variantDefines maps CMake options to boolean variants.
var variantDefines = []struct{ option, variant string }{
	{"OMP", "omp"},
	{"USE_REAL8", "real8"},
	{"APM", "apm"},
	{"RRTMG", "rrtmg"},
	{"LUO_WETDEP", "luo"},
	{"TOMAS", "tomas"},
}

// Option configures the recipe.
type Option func(*Recipe)

// WithOutput sets where build output is written.
func WithOutput(w io.Writer) Option {
	return func(r *Recipe) {
		r.cmake.Output = w
	}
}

// WithJobs sets the parallel build level.
func WithJobs(n int) Option {
	return func(r *Recipe) {
		r.cmake.Jobs = n
	}
}

// Recipe builds GCHP with CMake.
type Recipe struct {
	recipe.Base
	cmake recipe.CMake
}

// New returns the gchp recipe for def.
func New(def *recipe.Definition, runner executil.Runner, opts ...Option) *Recipe {
	r := &Recipe{
		Base:  recipe.Base{Def: def},
		cmake: recipe.CMake{Runner: runner},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CMakeArgs returns the configure options for spec installed at prefix.
func CMakeArgs(spec *recipe.ResolvedSpec, prefix string) []string {
	args := []string{recipe.DefineString("RUNDIR", prefix)}
	for _, d := range variantDefines {
		args = append(args, recipe.DefineFromVariant(spec, d.option, d.variant))
	}
	return args
}

// Install builds and installs, then moves the source tree into the
// prefix.
func (r *Recipe) Install(ctx context.Context, spec *recipe.ResolvedSpec, prefix, stage string) error {
	if err := r.cmake.Install(ctx, spec, stage, prefix, CMakeArgs(spec, prefix), recipe.EnvironFromContext(ctx)); err != nil {
		return err
	}

	dest := filepath.Join(prefix, SourceDir)
	if err := moveTree(stage, dest); err != nil {
		return recipe.InstallationError(spec, "preserve source", err)
	}
	slog.Info("source preserved", "path", dest)
	return nil
}

// moveTree renames src to dest, copying when they are on different
// filesystems.
func moveTree(src, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	if err := os.Rename(src, dest); err == nil {
		return nil
	}
	if err := copyTree(src, dest); err != nil {
		return fmt.Errorf("failed to copy %s to %s: %w", src, dest, err)
	}
	return os.RemoveAll(src)
}

func copyTree(src, dest string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dest, rel)

		info, err := d.Info()
		if err != nil {
			return err
		}
		switch {
		case d.IsDir():
			return os.MkdirAll(target, info.Mode().Perm()|0o700)
		case d.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		case info.Mode().IsRegular():
			return copyFile(path, target, info.Mode().Perm())
		default:
			return nil
		}
	})
}

func copyFile(src, dest string, mode fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
