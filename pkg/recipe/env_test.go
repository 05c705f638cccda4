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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnvApply(t *testing.T) {
	sep := string(os.PathListSeparator)

	var env Env
	env.Set("CUDA_HOME", "/opt/cuda")
	env.PrependPath("PATH", "/opt/cuda/bin")
	env.AppendPath("LD_LIBRARY_PATH", "/opt/libxml2/lib")
	env.AppendPath("LD_LIBRARY_PATH", "/opt/libxml2/lib")
	env.Unset("CUDA_PATH")

	base := map[string]string{
		"PATH":      "/usr/bin",
		"CUDA_PATH": "/old",
	}
	got := env.Apply(base)

	assert.Equal(t, "/opt/cuda", got["CUDA_HOME"])
	assert.Equal(t, "/opt/cuda/bin"+sep+"/usr/bin", got["PATH"])
	assert.Equal(t, "/opt/libxml2/lib", got["LD_LIBRARY_PATH"])
	assert.NotContains(t, got, "CUDA_PATH")

	// base is untouched
	assert.Equal(t, "/usr/bin", base["PATH"])
	assert.Equal(t, "/old", base["CUDA_PATH"])
}

func TestEnvIdempotent(t *testing.T) {
	build := func() Env {
		var e Env
		e.Set("A", "1")
		e.AppendPath("P", "/x")
		return e
	}

	first := build().Map()
	second := build().Map()
	assert.Equal(t, first, second)

	// applying twice adds nothing new
	e := build()
	assert.Equal(t, e.Apply(nil), e.Apply(e.Apply(nil)))
}

func TestEnvOpsAreCopies(t *testing.T) {
	var e Env
	e.Set("A", "1")
	ops := e.Ops()
	ops[0].Value = "changed"
	assert.Equal(t, "1", e.Ops()[0].Value)
	assert.Equal(t, 1, e.Len())
}

func TestEnvExtendAndNames(t *testing.T) {
	var a, b Env
	a.Set("B", "1")
	b.Set("A", "2")
	b.Set("B", "3")
	a.Extend(b)

	assert.Equal(t, []string{"A", "B"}, a.Names())
	assert.Equal(t, "3", a.Map()["B"])
}

func TestEnviron(t *testing.T) {
	got := Environ(map[string]string{"B": "2", "A": "1"})
	assert.Equal(t, []string{"A=1", "B=2"}, got)
}

func TestEnvironContext(t *testing.T) {
	assert.Nil(t, EnvironFromContext(context.Background()))
	ctx := ContextWithEnviron(context.Background(), []string{"A=1"})
	assert.Equal(t, []string{"A=1"}, EnvironFromContext(ctx))
}
