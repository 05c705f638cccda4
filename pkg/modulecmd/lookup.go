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

package modulecmd

import (
	"context"
	"fmt"
	"strings"
)

// Lookup resolves the install prefix of a loaded-or-loadable module.
// False means the prefix could not be determined.
type Lookup interface {
	LookupInstallPath(ctx context.Context, module string) (string, bool)
}

// Static is a Lookup backed by a fixed module to prefix table, such as
// externals declared in configuration.
type Static map[string]string

// LookupInstallPath returns the configured prefix for module.
func (s Static) LookupInstallPath(_ context.Context, module string) (string, bool) {
	p, ok := s[module]
	return p, ok && p != ""
}

// Chain consults each Lookup in order and returns the first hit.
type Chain []Lookup

// LookupInstallPath returns the first prefix any member resolves.
func (c Chain) LookupInstallPath(ctx context.Context, module string) (string, bool) {
	for _, l := range c {
		if l == nil {
			continue
		}
		if p, ok := l.LookupInstallPath(ctx, module); ok {
			return p, true
		}
	}
	return "", false
}

// PathArgs extracts the path arguments from one line of `module show`
// output. Lmod (Lua) lines look like
//
//	setenv("CRAY_MPICH_DIR","/opt/cray/pe/mpich/8.1.0/ofi/gnu/9.1")
//
// and Tcl lines like
//
//	setenv CRAY_MPICH_DIR /opt/cray/pe/mpich/8.1.0/ofi/gnu/9.1
//
// Colon separated values yield several paths. A Tcl line with fewer than
// three words has no path.
func PathArgs(line string) ([]string, error) {
	var arg string
	if strings.Contains(line, "(") && strings.Contains(line, ")") {
		comma := strings.Index(line, ",")
		if comma < 0 {
			return nil, fmt.Errorf("no argument separator in module line %q", line)
		}
		quote := strings.IndexAny(line[comma:], `"'`)
		if quote < 0 {
			return nil, fmt.Errorf("no quoted argument in module line %q", line)
		}
		parts := strings.Split(line, string(line[comma+quote]))
		if len(parts) < 2 {
			return nil, fmt.Errorf("unterminated argument in module line %q", line)
		}
		arg = parts[len(parts)-2]
	} else {
		words := strings.Fields(line)
		if len(words) <= 2 {
			return nil, nil
		}
		arg = words[2]
	}
	return strings.Split(arg, ":"), nil
}

// PathFromVariable returns the first path set for variable in module text.
func PathFromVariable(lines []string, variable string) (string, bool) {
	for _, line := range lines {
		if !strings.Contains(line, variable) {
			continue
		}
		paths, err := PathArgs(line)
		if err != nil || len(paths) == 0 || paths[0] == "" {
			return "", false
		}
		return paths[0], true
	}
	return "", false
}

// VariableCandidates returns the variables that conventionally hold a
// module's prefix, e.g. "cray-mpich/8.1.0" gives CRAY_MPICH_DIR,
// CRAY_MPICH_ROOT, CRAY_MPICH_PREFIX and CRAY_MPICH_HOME.
func VariableCandidates(module string) []string {
	name, _, _ := strings.Cut(module, "/")
	base := strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(name))
	return []string{base + "_DIR", base + "_ROOT", base + "_PREFIX", base + "_HOME"}
}
