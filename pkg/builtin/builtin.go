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
	"embed"
	"fmt"
	"io"
	"log/slog"

	"github.com/NVIDIA/hpc-recipes/pkg/builtin/craympich"
	"github.com/NVIDIA/hpc-recipes/pkg/builtin/cuda"
	"github.com/NVIDIA/hpc-recipes/pkg/builtin/gchp"
	"github.com/NVIDIA/hpc-recipes/pkg/executil"
	"github.com/NVIDIA/hpc-recipes/pkg/recipe"
)

//go:embed data
var dataFS embed.FS

// Options configures the recipes built by NewRegistry.
type Options struct {
	// Runner executes installers and build tools. Nil uses executil.NewRunner.
	Runner executil.Runner
	// Output receives installer and build output. Nil discards it.
	Output io.Writer
	// Jobs is the parallel build level for CMake builds.
	Jobs int
	// CUDAInstallerLog overrides the cuda installer log hazard path.
	CUDAInstallerLog string
}

// DataProvider returns the embedded recipe data, overlaid with externalDir
// when it is non-empty.
func DataProvider(externalDir string) (recipe.DataProvider, error) {
	embedded := recipe.NewEmbeddedDataProvider(dataFS, "data")
	if externalDir == "" {
		return embedded, nil
	}
	return recipe.NewLayeredDataProvider(embedded, recipe.LayeredProviderConfig{ExternalDir: externalDir})
}

// NewRegistry loads every definition p provides and registers it. The
// cuda, cray-mpich and gchp definitions get their recipes; any other
// definition gets a Generic recipe for its strategy.
func NewRegistry(p recipe.DataProvider, opts Options) (*recipe.Registry, error) {
	if opts.Runner == nil {
		opts.Runner = executil.NewRunner()
	}

	names, err := recipe.DefinitionNames(p)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipe definitions: %w", err)
	}

	reg := recipe.NewRegistry()
	for _, name := range names {
		def, err := recipe.LoadDefinition(p, name)
		if err != nil {
			return nil, err
		}
		if err := reg.Register(New(def, opts)); err != nil {
			return nil, fmt.Errorf("failed to register %s: %w", name, err)
		}
	}
	slog.Debug("recipes loaded", "count", len(names))
	return reg, nil
}

// New returns the recipe implementation for def.
func New(def *recipe.Definition, opts Options) recipe.Recipe {
	switch def.Name {
	case cuda.Name:
		copts := []cuda.Option{cuda.WithOutput(opts.Output)}
		if opts.CUDAInstallerLog != "" {
			copts = append(copts, cuda.WithInstallerLog(opts.CUDAInstallerLog))
		}
		return cuda.New(def, opts.Runner, copts...)
	case craympich.Name:
		return craympich.New(def)
	case gchp.Name:
		return gchp.New(def, opts.Runner, gchp.WithOutput(opts.Output), gchp.WithJobs(opts.Jobs))
	default:
		return NewGeneric(def, opts)
	}
}
