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

	"github.com/NVIDIA/hpc-recipes/pkg/recipe"
)

// Generic serves definitions that ship without code, such as recipes
// added through an external data directory. CMake definitions are built
// with default options; external definitions are never installable.
type Generic struct {
	recipe.Base
	cmake recipe.CMake
}

// NewGeneric returns a Generic recipe for def.
func NewGeneric(def *recipe.Definition, opts Options) *Generic {
	return &Generic{
		Base:  recipe.Base{Def: def},
		cmake: recipe.CMake{Runner: opts.Runner, Jobs: opts.Jobs, Output: opts.Output},
	}
}

// Install builds CMake definitions and defers to Base otherwise.
func (g *Generic) Install(ctx context.Context, spec *recipe.ResolvedSpec, prefix, stage string) error {
	if g.Def.Strategy != recipe.StrategyCMake {
		return g.Base.Install(ctx, spec, prefix, stage)
	}
	return g.cmake.Install(ctx, spec, stage, prefix, nil, recipe.EnvironFromContext(ctx))
}
