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
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// CloneRequest describes a pinned git checkout.
type CloneRequest struct {
	URL        string
	Commit     string
	Tag        string
	Submodules bool
	Dir        string
}

// Cloner checks out git sources.
type Cloner interface {
	Clone(ctx context.Context, req CloneRequest) error
}

// GitCloner clones with go-git, without needing a git binary on the host.
type GitCloner struct{}

// Clone checks out req.Commit, or req.Tag, into req.Dir and initializes
// submodules recursively when requested.
func (GitCloner) Clone(ctx context.Context, req CloneRequest) error {
	if req.URL == "" {
		return errors.New("git url is empty")
	}

	opts := &git.CloneOptions{URL: req.URL}
	if req.Tag != "" && req.Commit == "" {
		opts.ReferenceName = plumbing.NewTagReferenceName(req.Tag)
		opts.SingleBranch = true
	}

	repo, err := git.PlainCloneContext(ctx, req.Dir, false, opts)
	if err != nil {
		return fmt.Errorf("failed to clone %s: %w", req.URL, err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to open worktree: %w", err)
	}

	if req.Commit != "" {
		hash := plumbing.NewHash(req.Commit)
		if err := wt.Checkout(&git.CheckoutOptions{Hash: hash, Force: true}); err != nil {
			return fmt.Errorf("failed to check out %s: %w", req.Commit, err)
		}
	}

	if !req.Submodules {
		return nil
	}

	subs, err := wt.Submodules()
	if err != nil {
		return fmt.Errorf("failed to list submodules: %w", err)
	}
	slog.Debug("updating submodules", "count", len(subs))
	if err := subs.UpdateContext(ctx, &git.SubmoduleUpdateOptions{
		Init:              true,
		RecurseSubmodules: git.DefaultSubmoduleRecursionDepth,
	}); err != nil {
		return fmt.Errorf("failed to update submodules: %w", err)
	}
	return nil
}
