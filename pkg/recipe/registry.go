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
	"log/slog"
	"sort"
	"sync"

	"github.com/NVIDIA/hpc-recipes/pkg/errors"
)

// Registry holds validated recipes by name.
type Registry struct {
	mu      sync.RWMutex
	recipes map[string]Recipe
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{recipes: make(map[string]Recipe)}
}

// Register validates r and adds it. Definitions must not change afterwards.
func (reg *Registry) Register(r Recipe) error {
	def := r.Definition()
	if def == nil {
		return errors.New(errors.ErrCodeInvalidRequest, "recipe has no definition")
	}
	if err := def.Validate(); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidRequest, "invalid recipe definition", err)
	}
	if v, ok := r.(ArgValidator); ok {
		if err := v.ValidateArgs(); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidRequest,
				fmt.Sprintf("recipe %s has conflicting argument branches", def.Name), err)
		}
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	if _, exists := reg.recipes[def.Name]; exists {
		return errors.New(errors.ErrCodeInvalidRequest, fmt.Sprintf("recipe %s is already registered", def.Name))
	}
	reg.recipes[def.Name] = r
	recipesRegistered.Inc()
	slog.Debug("recipe registered", "name", def.Name, "versions", len(def.Versions), "strategy", def.Strategy)
	return nil
}

// Get returns the recipe registered under name.
func (reg *Registry) Get(name string) (Recipe, error) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	r, ok := reg.recipes[name]
	if !ok {
		return nil, errors.NewWithContext(errors.ErrCodeNotFound,
			fmt.Sprintf("no recipe named %s", name), map[string]any{"package": name})
	}
	return r, nil
}

// Names returns the registered names in sorted order.
func (reg *Registry) Names() []string {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	names := make([]string, 0, len(reg.recipes))
	for n := range reg.recipes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Providers returns the names of recipes declaring the virtual package,
// sorted.
func (reg *Registry) Providers(virtual string) []string {
	var out []string
	for _, name := range reg.Names() {
		r, err := reg.Get(name)
		if err != nil {
			continue
		}
		for _, p := range r.Definition().Provides {
			if p.Virtual == virtual {
				out = append(out, name)
				break
			}
		}
	}
	return out
}
