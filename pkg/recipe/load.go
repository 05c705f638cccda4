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
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/NVIDIA/hpc-recipes/pkg/header"
)

const definitionsDir = "recipes"

// Document is the on-disk form of a Definition.
//
// Platform-polymorphic vendor artifacts are written as a table keyed by
// version and then platform; LoadDefinition expands each cell into its
// own VersionEntry:
//
//	artifacts:
//	  expand: false
//	  versions:
//	    "11.3.1":
//	      Linux-x86_64: {sha256: ..., url: ...}
//	      Linux-ppc64le: {sha256: ..., url: ...}
type Document struct {
	header.Header `json:",inline" yaml:",inline"`
	Definition    `json:",inline" yaml:",inline"`

	Artifacts *ArtifactTable `json:"artifacts,omitempty" yaml:"artifacts,omitempty"`
}

// ArtifactTable maps version to platform key to artifact.
type ArtifactTable struct {
	Expand   *bool                          `json:"expand,omitempty" yaml:"expand,omitempty"`
	Versions map[string]map[string]Artifact `json:"versions" yaml:"versions"`
}

// Artifact is one cell of an ArtifactTable.
type Artifact struct {
	SHA256 string `json:"sha256" yaml:"sha256"`
	URL    string `json:"url" yaml:"url"`
}

// expand flattens the table into entries, sorted by version then platform.
func (t *ArtifactTable) expand() []VersionEntry {
	ids := make([]string, 0, len(t.Versions))
	for id := range t.Versions {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []VersionEntry
	for _, id := range ids {
		platforms := make([]string, 0, len(t.Versions[id]))
		for p := range t.Versions[id] {
			platforms = append(platforms, p)
		}
		sort.Strings(platforms)
		for _, p := range platforms {
			a := t.Versions[id][p]
			out = append(out, VersionEntry{
				Version:  id,
				Platform: p,
				SHA256:   a.SHA256,
				URL:      a.URL,
				Expand:   t.Expand,
			})
		}
	}
	return out
}

// DecodeDefinition parses a recipe document.
func DecodeDefinition(data []byte) (*Definition, error) {
	start := time.Now()
	defer func() { definitionLoadDuration.Observe(time.Since(start).Seconds()) }()

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse recipe document: %w", err)
	}
	if doc.Kind != "" && doc.Kind != header.KindRecipe {
		return nil, fmt.Errorf("unexpected document kind %q, want %s", doc.Kind, header.KindRecipe)
	}

	def := doc.Definition
	if doc.Artifacts != nil {
		def.Versions = append(def.Versions, doc.Artifacts.expand()...)
	}
	if def.Strategy == "" {
		def.Strategy = StrategyCustom
	}
	return &def, nil
}

// LoadDefinition reads and decodes "recipes/<name>.yaml" from p.
func LoadDefinition(p DataProvider, name string) (*Definition, error) {
	file := path.Join(definitionsDir, name+".yaml")
	data, err := p.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", file, err)
	}
	def, err := DecodeDefinition(data)
	if err != nil {
		return nil, fmt.Errorf("%s (%s): %w", file, p.Source(file), err)
	}
	if def.Name != name {
		return nil, fmt.Errorf("%s defines recipe %q", file, def.Name)
	}
	return def, nil
}

// DefinitionNames lists the recipe documents p provides, sorted.
func DefinitionNames(p DataProvider) ([]string, error) {
	var names []string
	err := p.WalkDir(definitionsDir, func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(name, ".yaml") {
			return nil
		}
		names = append(names, strings.TrimSuffix(path.Base(name), ".yaml"))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// ReadPatch returns the content of a patch declared by recipe name.
func ReadPatch(p DataProvider, name string, patch Patch) ([]byte, error) {
	return p.ReadFile(path.Join("patches", name, patch.File))
}
