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

package stage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/NVIDIA/hpc-recipes/pkg/recipe"
)

// Stage is the working area of one attempt.
type Stage struct {
	// Root is the attempt directory.
	Root string
	// Source is where the fetched source tree lives. For an expanded
	// archive with a single top-level directory it is that directory.
	Source string
	// Archive is the downloaded file, empty for git sources.
	Archive string
	// ID is the attempt's UUID.
	ID string
}

// Destroy removes the attempt directory.
func (s *Stage) Destroy() error {
	if s == nil || s.Root == "" {
		return nil
	}
	return os.RemoveAll(s.Root)
}

// Option configures a Manager.
type Option func(*Manager)

// WithFetcher sets the URL fetcher.
func WithFetcher(f *Fetcher) Option {
	return func(m *Manager) {
		m.fetcher = f
	}
}

// WithCloner sets the git cloner.
func WithCloner(c Cloner) Option {
	return func(m *Manager) {
		m.cloner = c
	}
}

// Manager creates and populates stages below a root directory.
type Manager struct {
	root    string
	fetcher *Fetcher
	cloner  Cloner
}

// NewManager returns a Manager placing stages below root.
func NewManager(root string, opts ...Option) *Manager {
	m := &Manager{
		root:    root,
		fetcher: NewFetcher(),
		cloner:  &GitCloner{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create makes a fresh attempt directory for spec.
func (m *Manager) Create(spec *recipe.ResolvedSpec) (*Stage, error) {
	id := uuid.NewString()
	root := filepath.Join(m.root, fmt.Sprintf("%s-%s-%s", spec.Name, spec.VersionString(), id))
	src := filepath.Join(root, "src")
	if err := os.MkdirAll(src, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create stage %s: %w", root, err)
	}
	slog.Debug("stage created", "spec", spec.Name, "path", root)
	return &Stage{Root: root, Source: src, ID: id}, nil
}

// Fetch populates st.Source from the spec's artifact.
func (m *Manager) Fetch(ctx context.Context, st *Stage, entry recipe.VersionEntry) error {
	switch entry.Source() {
	case recipe.SourceURL:
		return m.fetchURL(ctx, st, entry)
	case recipe.SourceGit:
		slog.Info("cloning source", "repo", entry.Git, "commit", entry.Commit, "tag", entry.Tag, "submodules", entry.Submodules)
		return m.cloner.Clone(ctx, CloneRequest{
			URL:        entry.Git,
			Commit:     entry.Commit,
			Tag:        entry.Tag,
			Submodules: entry.Submodules,
			Dir:        st.Source,
		})
	default:
		return fmt.Errorf("version %s has no source to fetch", entry.Version)
	}
}

func (m *Manager) fetchURL(ctx context.Context, st *Stage, entry recipe.VersionEntry) error {
	name := filepath.Base(entry.URL)
	dest := filepath.Join(st.Root, name)
	if !entry.ShouldExpand() {
		dest = filepath.Join(st.Source, name)
	}

	slog.Info("fetching source", "url", entry.URL, "dest", dest)
	if err := m.fetcher.Download(ctx, entry.URL, dest, entry.SHA256); err != nil {
		return err
	}
	st.Archive = dest

	if !entry.ShouldExpand() {
		return nil
	}
	top, err := Expand(dest, st.Source)
	if err != nil {
		return fmt.Errorf("failed to expand %s: %w", name, err)
	}
	st.Source = top
	return nil
}
