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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/NVIDIA/hpc-recipes/pkg/version"
)

func TestResolvedSpecString(t *testing.T) {
	s := &ResolvedSpec{
		Name:     "gchp",
		Version:  version.MustParseVersion("13.0.0-rc.0"),
		Variants: map[string]bool{"tomas": false, "omp": true},
		Params:   map[string]string{"abi": "5"},
		Host:     linuxX86,
	}
	assert.Equal(t, "gchp@13.0.0-rc.0+omp~tomas abi=5 arch=Linux-x86_64", s.String())
	assert.Equal(t, "13.0.0-rc.0", s.VersionString())
}

func TestResolvedSpecQueries(t *testing.T) {
	dep := &ResolvedSpec{Name: "libxml2", Version: version.MustParseVersion("2.9.10"), Prefix: "/opt/libxml2"}
	s := &ResolvedSpec{
		Name:         "cuda",
		Version:      version.MustParseVersion("11.3.1"),
		Variants:     map[string]bool{"dev": true},
		Params:       map[string]string{"abi": "5"},
		Dependencies: map[string]*ResolvedSpec{"libxml2": dep},
	}

	assert.True(t, s.Satisfies(version.MustParseRange("10.1.243:")))
	assert.False(t, s.Satisfies(version.MustParseRange(":10")))
	assert.True(t, s.SatisfiesExpr("11"))
	assert.False(t, s.SatisfiesExpr(">11"))
	assert.True(t, s.Variant("dev"))
	assert.False(t, s.Variant("missing"))

	abi, ok := s.Param("abi")
	assert.True(t, ok)
	assert.Equal(t, "5", abi)

	got, ok := s.Dependency("libxml2")
	assert.True(t, ok)
	assert.Equal(t, "/opt/libxml2", got.Prefix)
	_, ok = s.Dependency("ncurses")
	assert.False(t, ok)
}

func TestResolvedSpecHash(t *testing.T) {
	mk := func(prefix string) *ResolvedSpec {
		return &ResolvedSpec{
			Name:    "cuda",
			Version: version.MustParseVersion("11.3.1"),
			Host:    linuxX86,
			Dependencies: map[string]*ResolvedSpec{
				"libxml2": {Name: "libxml2", Version: version.MustParseVersion("2.9.10"), Prefix: prefix},
			},
		}
	}

	a, b := mk("/opt/a"), mk("/opt/a")
	assert.Equal(t, a.Hash(), b.Hash())
	assert.Len(t, a.Hash(), 8)
	assert.NotEqual(t, a.Hash(), mk("/opt/b").Hash())

	root := filepath.FromSlash("/opt/hpcr")
	assert.Equal(t, filepath.Join(root, "cuda-11.3.1-"+a.Hash()), a.PrefixUnder(root))
}
