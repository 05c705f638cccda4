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
	"log/slog"
	"strings"

	"github.com/NVIDIA/hpc-recipes/pkg/defaults"
	"github.com/NVIDIA/hpc-recipes/pkg/executil"
	"github.com/NVIDIA/hpc-recipes/pkg/file"
)

// Option configures a Finder.
type Option func(*Finder)

// WithCommand sets the module command. Default is defaults.ModuleCommand.
func WithCommand(command string) Option {
	return func(f *Finder) {
		f.command = command
	}
}

// WithShell sets the shell used to run the module command, which is usually
// a shell function rather than an executable. Default is "bash".
func WithShell(shell string) Option {
	return func(f *Finder) {
		f.shell = shell
	}
}

// Finder is a Lookup that queries the host's module system.
type Finder struct {
	runner  executil.Runner
	command string
	shell   string
	parser  *file.Parser
}

// NewFinder returns a Finder running module queries through runner.
func NewFinder(runner executil.Runner, opts ...Option) *Finder {
	f := &Finder{
		runner:  runner,
		command: defaults.ModuleCommand,
		shell:   "bash",
		parser:  file.NewParser(file.WithSkipComments(false)),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Show returns the lines printed by `module show <module>`.
func (f *Finder) Show(ctx context.Context, module string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaults.ModuleCommandTimeout)
	defer cancel()

	out, err := f.runner.Output(ctx, executil.Command{
		Name: f.shell,
		Args: []string{"-lc", f.command + " show " + shellQuote(module)},
	})
	if err != nil {
		return nil, fmt.Errorf("module show %s: %w", module, err)
	}
	return f.parser.Lines(string(out))
}

// LookupInstallPath scrapes the module's prefix from the first line that
// sets one of VariableCandidates(module).
func (f *Finder) LookupInstallPath(ctx context.Context, module string) (string, bool) {
	lines, err := f.Show(ctx, module)
	if err != nil {
		slog.Debug("module lookup failed", "module", module, "error", err)
		return "", false
	}
	for _, variable := range VariableCandidates(module) {
		if p, ok := PathFromVariable(lines, variable); ok {
			slog.Debug("module prefix found", "module", module, "variable", variable, "prefix", p)
			return p, true
		}
	}
	return "", false
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
