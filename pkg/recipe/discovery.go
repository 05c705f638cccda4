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
	stderrors "errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
)

// ExcludedSegments are directory names never searched for libraries or
// headers. Vendors ship link-time stubs and forward-compatibility copies
// under them that must not be linked into builds.
var ExcludedSegments = []string{"compat", "stubs"}

// FileSet is an ordered list of discovered files and their directories.
type FileSet struct {
	Files       []string `json:"files" yaml:"files"`
	Directories []string `json:"directories" yaml:"directories"`
}

// HeaderSet is the result of header discovery.
type HeaderSet struct {
	FileSet `json:",inline" yaml:",inline"`
}

// LibrarySet is the result of library discovery.
type LibrarySet struct {
	FileSet `json:",inline" yaml:",inline"`
}

// IncludeFlags returns "-I<dir>" for every header directory.
func (h HeaderSet) IncludeFlags() []string {
	out := make([]string, 0, len(h.Directories))
	for _, d := range h.Directories {
		out = append(out, "-I"+d)
	}
	return out
}

// LinkFlags returns "-L<dir>" for every directory followed by "-l<name>"
// for every library.
func (l LibrarySet) LinkFlags() []string {
	out := make([]string, 0, len(l.Directories)+len(l.Files))
	for _, d := range l.Directories {
		out = append(out, "-L"+d)
	}
	for _, f := range l.Files {
		base := filepath.Base(f)
		base = strings.TrimPrefix(base, "lib")
		if i := strings.Index(base, "."); i > 0 {
			base = base[:i]
		}
		out = append(out, "-l"+base)
	}
	return out
}

// Empty reports whether nothing was found.
func (s FileSet) Empty() bool {
	return len(s.Files) == 0
}

// SearchOptions controls a discovery walk.
type SearchOptions struct {
	// Recursive descends into subdirectories of the roots.
	Recursive bool
	// Exclude lists directory names that are never entered.
	// Nil means ExcludedSegments.
	Exclude []string
}

// FindHeaders searches roots for "<name>.h" for each name, in name order.
// Names already ending in ".h" are used as-is.
func FindHeaders(roots []string, names []string, opts SearchOptions) (HeaderSet, error) {
	files := make([]string, 0, len(names))
	for _, n := range names {
		if !strings.HasSuffix(n, ".h") {
			n += ".h"
		}
		files = append(files, n)
	}
	set, err := find(roots, files, opts)
	return HeaderSet{FileSet: set}, err
}

// FindLibraries searches roots for the named libraries, e.g. "libcudart",
// with the platform's shared or static suffix.
func FindLibraries(roots []string, names []string, shared bool, opts SearchOptions) (LibrarySet, error) {
	suffix := ".a"
	if shared {
		suffix = SharedLibrarySuffix(runtime.GOOS)
	}
	files := make([]string, 0, len(names))
	for _, n := range names {
		files = append(files, n+suffix)
	}
	set, err := find(roots, files, opts)
	return LibrarySet{FileSet: set}, err
}

// SharedLibrarySuffix returns ".dylib" on darwin and ".so" elsewhere.
func SharedLibrarySuffix(goos string) string {
	if goos == "darwin" {
		return ".dylib"
	}
	return ".so"
}

// find walks each root once per file name so results follow the order the
// names were given, then lexical path order. Roots and directories reached
// through symlinks are followed; reported paths keep the symlinked form.
func find(roots []string, files []string, opts SearchOptions) (FileSet, error) {
	exclude := opts.Exclude
	if exclude == nil {
		exclude = ExcludedSegments
	}

	var set FileSet
	seen := make(map[string]bool)
	seenDir := make(map[string]bool)

	for _, want := range files {
		for _, root := range roots {
			resolved, err := filepath.EvalSymlinks(root)
			if err != nil {
				if stderrors.Is(err, fs.ErrNotExist) {
					continue
				}
				return FileSet{}, fmt.Errorf("failed to resolve %s: %w", root, err)
			}

			w := &walker{
				want:      want,
				recursive: opts.Recursive,
				exclude:   exclude,
				realRoot:  resolved,
				visited:   map[string]bool{resolved: true},
				add: func(path, target string) {
					if seen[target] {
						return
					}
					seen[target] = true
					set.Files = append(set.Files, path)
					if dir := filepath.Dir(path); !seenDir[dir] {
						seenDir[dir] = true
						set.Directories = append(set.Directories, dir)
					}
				},
			}
			if err := w.walk(root, resolved); err != nil {
				return FileSet{}, fmt.Errorf("failed to search %s: %w", root, err)
			}
		}
	}
	return set, nil
}

type walker struct {
	want      string
	recursive bool
	exclude   []string
	realRoot  string
	visited   map[string]bool
	add       func(path, target string)
}

// walk lists dir, shown as path, and descends into subdirectories.
// Each resolved directory is entered once, which also breaks symlink cycles.
func (w *walker) walk(path, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		shown := filepath.Join(path, e.Name())
		target := filepath.Join(dir, e.Name())
		isDir := e.IsDir()

		if e.Type()&fs.ModeSymlink != 0 {
			resolved, err := filepath.EvalSymlinks(target)
			if err != nil {
				slog.Debug("skipping dangling symlink", "path", shown, "error", err)
				continue
			}
			fi, err := os.Stat(resolved)
			if err != nil {
				continue
			}
			target = resolved
			isDir = fi.IsDir()
		}

		if isDir {
			if !w.recursive || w.excluded(e.Name(), target) || w.visited[target] {
				continue
			}
			w.visited[target] = true
			if err := w.walk(shown, target); err != nil {
				return err
			}
			continue
		}
		if e.Name() == w.want {
			w.add(shown, target)
		}
	}
	return nil
}

// excluded checks the entry name and every segment of the resolved
// directory below the search root. Directories outside the root are
// checked by their own name.
func (w *walker) excluded(name, target string) bool {
	if slices.Contains(w.exclude, name) {
		return true
	}
	rel, err := filepath.Rel(w.realRoot, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return slices.Contains(w.exclude, filepath.Base(target))
	}
	for _, seg := range strings.Split(rel, string(filepath.Separator)) {
		if slices.Contains(w.exclude, seg) {
			return true
		}
	}
	return false
}
