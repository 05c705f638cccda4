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
	"os"
	"sort"
	"strings"
)

// EnvAction is one kind of environment modification.
type EnvAction string

const (
	EnvSet         EnvAction = "set"
	EnvUnset       EnvAction = "unset"
	EnvAppendPath  EnvAction = "append-path"
	EnvPrependPath EnvAction = "prepend-path"
)

// EnvOp is a single recorded modification.
type EnvOp struct {
	Action EnvAction `json:"action" yaml:"action"`
	Name   string    `json:"name" yaml:"name"`
	Value  string    `json:"value,omitempty" yaml:"value,omitempty"`
}

// Env is an ordered list of environment modifications. Recipes build one
// from a spec without touching the process environment; callers apply it to
// a base environment when they need concrete values.
type Env struct {
	ops []EnvOp
}

// Set records NAME=value.
func (e *Env) Set(name, value string) {
	e.ops = append(e.ops, EnvOp{Action: EnvSet, Name: name, Value: value})
}

// Unset records removal of NAME.
func (e *Env) Unset(name string) {
	e.ops = append(e.ops, EnvOp{Action: EnvUnset, Name: name})
}

// AppendPath records appending value to a path-list variable.
func (e *Env) AppendPath(name, value string) {
	e.ops = append(e.ops, EnvOp{Action: EnvAppendPath, Name: name, Value: value})
}

// PrependPath records prepending value to a path-list variable.
func (e *Env) PrependPath(name, value string) {
	e.ops = append(e.ops, EnvOp{Action: EnvPrependPath, Name: name, Value: value})
}

// Extend appends every operation of other.
func (e *Env) Extend(other Env) {
	e.ops = append(e.ops, other.ops...)
}

// Ops returns a copy of the recorded operations in order.
func (e Env) Ops() []EnvOp {
	out := make([]EnvOp, len(e.ops))
	copy(out, e.ops)
	return out
}

// Len returns the number of recorded operations.
func (e Env) Len() int {
	return len(e.ops)
}

// Apply returns a new environment with the operations applied to base.
// base is not modified. Path values are joined with os.PathListSeparator
// and a value already present in the list is not added twice.
func (e Env) Apply(base map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(e.ops))
	for k, v := range base {
		out[k] = v
	}

	sep := string(os.PathListSeparator)
	for _, op := range e.ops {
		switch op.Action {
		case EnvSet:
			out[op.Name] = op.Value
		case EnvUnset:
			delete(out, op.Name)
		case EnvAppendPath, EnvPrependPath:
			cur, ok := out[op.Name]
			if !ok || cur == "" {
				out[op.Name] = op.Value
				continue
			}
			if containsPath(cur, op.Value, sep) {
				continue
			}
			if op.Action == EnvAppendPath {
				out[op.Name] = cur + sep + op.Value
			} else {
				out[op.Name] = op.Value + sep + cur
			}
		}
	}
	return out
}

// Map returns the operations applied to an empty environment.
func (e Env) Map() map[string]string {
	return e.Apply(nil)
}

// Names returns the sorted variable names the operations touch.
func (e Env) Names() []string {
	seen := make(map[string]bool, len(e.ops))
	for _, op := range e.ops {
		seen[op.Name] = true
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Environ renders the applied environment as sorted KEY=VALUE pairs
// suitable for exec.Cmd.Env.
func Environ(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}

// ProcessEnv returns the current process environment as a map.
func ProcessEnv() map[string]string {
	out := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			out[k] = v
		}
	}
	return out
}

func containsPath(list, value, sep string) bool {
	for _, p := range strings.Split(list, sep) {
		if p == value {
			return true
		}
	}
	return false
}

type environKey struct{}

// ContextWithEnviron returns a context carrying the complete build
// environment for Install. The pipeline sets it; recipes read it with
// EnvironFromContext.
func ContextWithEnviron(ctx context.Context, environ []string) context.Context {
	return context.WithValue(ctx, environKey{}, environ)
}

// EnvironFromContext returns the build environment set by
// ContextWithEnviron, or nil to inherit the process environment.
func EnvironFromContext(ctx context.Context) []string {
	environ, _ := ctx.Value(environKey{}).([]string)
	return environ
}
