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
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/NVIDIA/hpc-recipes/pkg/errors"
)

// DataProvider gives access to recipe data files: definitions under
// "recipes/" and patches under "patches/<recipe>/".
type DataProvider interface {
	// ReadFile reads a file by slash separated path relative to the data root.
	ReadFile(name string) ([]byte, error)

	// WalkDir walks the tree rooted at root, reporting relative paths.
	WalkDir(root string, fn fs.WalkDirFunc) error

	// Source describes where a file comes from, for diagnostics.
	Source(name string) string
}

const (
	// DefaultMaxFileSize caps external data files at 10MB.
	DefaultMaxFileSize = 10 * 1024 * 1024

	sourceEmbedded = "embedded"
	sourceExternal = "external"
)

// EmbeddedDataProvider serves data compiled into the binary.
type EmbeddedDataProvider struct {
	fsys   fs.FS
	prefix string
}

// NewEmbeddedDataProvider serves fsys below prefix, e.g. "data".
func NewEmbeddedDataProvider(fsys fs.FS, prefix string) *EmbeddedDataProvider {
	return &EmbeddedDataProvider{fsys: fsys, prefix: prefix}
}

// ReadFile reads a file from the embedded tree.
func (p *EmbeddedDataProvider) ReadFile(name string) ([]byte, error) {
	return fs.ReadFile(p.fsys, path.Join(p.prefix, name))
}

// WalkDir walks the embedded tree.
func (p *EmbeddedDataProvider) WalkDir(root string, fn fs.WalkDirFunc) error {
	fullRoot := path.Join(p.prefix, root)
	return fs.WalkDir(p.fsys, fullRoot, func(name string, d fs.DirEntry, err error) error {
		rel := strings.TrimPrefix(strings.TrimPrefix(name, p.prefix), "/")
		return fn(rel, d, err)
	})
}

// Source returns "embedded".
func (p *EmbeddedDataProvider) Source(string) string {
	return sourceEmbedded
}

// LayeredProviderConfig configures a LayeredDataProvider.
type LayeredProviderConfig struct {
	// ExternalDir is the directory overlaid on the embedded data.
	ExternalDir string
	// MaxFileSize caps external files. Zero means DefaultMaxFileSize.
	MaxFileSize int64
	// AllowSymlinks permits symlinks in ExternalDir.
	AllowSymlinks bool
}

// LayeredDataProvider overlays an external directory on embedded data.
// A file present in the external directory replaces the embedded file with
// the same relative path; new files are added.
type LayeredDataProvider struct {
	embedded      *EmbeddedDataProvider
	externalDir   string
	externalFiles map[string]bool
}

// NewLayeredDataProvider scans and validates cfg.ExternalDir. It fails on
// a missing directory, oversized files, symlinks (unless allowed) or paths
// escaping the directory.
func NewLayeredDataProvider(embedded *EmbeddedDataProvider, cfg LayeredProviderConfig) (*LayeredDataProvider, error) {
	if cfg.MaxFileSize == 0 {
		cfg.MaxFileSize = DefaultMaxFileSize
	}

	info, err := os.Stat(cfg.ExternalDir)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNotFound,
			fmt.Sprintf("external data directory not found: %s", cfg.ExternalDir), err)
	}
	if !info.IsDir() {
		return nil, errors.New(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("external data path is not a directory: %s", cfg.ExternalDir))
	}

	externalFiles := make(map[string]bool)
	err = filepath.WalkDir(cfg.ExternalDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type()&fs.ModeSymlink != 0 && !cfg.AllowSymlinks {
			rel, _ := filepath.Rel(cfg.ExternalDir, p)
			return errors.New(errors.ErrCodeInvalidRequest, fmt.Sprintf("symlinks not allowed: %s", rel))
		}
		if d.IsDir() {
			return nil
		}

		rel, relErr := filepath.Rel(cfg.ExternalDir, p)
		if relErr != nil {
			return fmt.Errorf("failed to get relative path: %w", relErr)
		}
		if strings.HasPrefix(rel, "..") {
			return errors.New(errors.ErrCodeInvalidRequest, fmt.Sprintf("path traversal detected: %s", rel))
		}

		fi, statErr := d.Info()
		if statErr != nil {
			return fmt.Errorf("failed to get file info: %w", statErr)
		}
		if fi.Size() > cfg.MaxFileSize {
			return errors.New(errors.ErrCodeInvalidRequest,
				fmt.Sprintf("file too large (%d bytes, max %d): %s", fi.Size(), cfg.MaxFileSize, rel))
		}

		externalFiles[filepath.ToSlash(rel)] = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("layered data provider initialized",
		"external_dir", cfg.ExternalDir,
		"external_files", len(externalFiles))

	return &LayeredDataProvider{
		embedded:      embedded,
		externalDir:   cfg.ExternalDir,
		externalFiles: externalFiles,
	}, nil
}

// ReadFile reads the external file when present, else the embedded one.
func (p *LayeredDataProvider) ReadFile(name string) ([]byte, error) {
	if p.externalFiles[name] {
		data, err := os.ReadFile(filepath.Join(p.externalDir, filepath.FromSlash(name)))
		if err != nil {
			return nil, fmt.Errorf("failed to read external file %s: %w", name, err)
		}
		slog.Debug("read from external data directory", "path", name)
		return data, nil
	}
	return p.embedded.ReadFile(name)
}

// WalkDir visits external files first, then embedded files not shadowed
// by an external one.
func (p *LayeredDataProvider) WalkDir(root string, fn fs.WalkDirFunc) error {
	visited := make(map[string]bool)

	externalRoot := filepath.Join(p.externalDir, filepath.FromSlash(root))
	if _, err := os.Stat(externalRoot); err == nil {
		err := filepath.WalkDir(externalRoot, func(full string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			rel, relErr := filepath.Rel(p.externalDir, full)
			if relErr != nil {
				return relErr
			}
			rel = filepath.ToSlash(rel)
			visited[rel] = true
			return fn(rel, d, nil)
		})
		if err != nil {
			return err
		}
	}

	return p.embedded.WalkDir(root, func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			// a root only present externally is fine
			if name == root && len(visited) > 0 {
				return nil
			}
			return err
		}
		if visited[name] {
			return nil
		}
		return fn(name, d, nil)
	})
}

// Source returns "external" or "embedded".
func (p *LayeredDataProvider) Source(name string) string {
	if p.externalFiles[name] {
		return sourceExternal
	}
	return sourceEmbedded
}
