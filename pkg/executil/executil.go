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

package executil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// Command describes one program invocation.
type Command struct {
	Name string
	Args []string
	// Dir is the working directory. Empty means the current directory.
	Dir string
	// Env replaces the process environment when non-nil.
	Env []string
	// Stdout and Stderr receive output from Run. Nil discards it.
	Stdout io.Writer
	Stderr io.Writer
}

// String renders the command line for logs.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Runner executes commands.
type Runner interface {
	// Run executes the command, streaming output to its writers.
	Run(ctx context.Context, cmd Command) error
	// Output executes the command and returns stdout and stderr combined.
	Output(ctx context.Context, cmd Command) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// NewRunner returns a Runner backed by os/exec.
func NewRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run executes cmd and waits for it to finish.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) error {
	c := r.build(ctx, cmd)
	c.Stdout = cmd.Stdout
	c.Stderr = cmd.Stderr

	start := time.Now()
	slog.Debug("running command", "cmd", cmd.String(), "dir", cmd.Dir)
	if err := c.Run(); err != nil {
		return fmt.Errorf("command %q failed after %s: %w", cmd.Name, time.Since(start).Round(time.Millisecond), err)
	}
	slog.Debug("command finished", "cmd", cmd.Name, "duration", time.Since(start))
	return nil
}

// Output executes cmd and returns its combined output. The output is
// returned alongside a non-nil error when the command exits non-zero.
func (r *ExecRunner) Output(ctx context.Context, cmd Command) ([]byte, error) {
	c := r.build(ctx, cmd)
	var buf bytes.Buffer
	c.Stdout = &buf
	c.Stderr = &buf

	slog.Debug("running command", "cmd", cmd.String(), "dir", cmd.Dir)
	if err := c.Run(); err != nil {
		return buf.Bytes(), fmt.Errorf("command %q failed: %w", cmd.Name, err)
	}
	return buf.Bytes(), nil
}

func (r *ExecRunner) build(ctx context.Context, cmd Command) *exec.Cmd {
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	if cmd.Env != nil {
		c.Env = cmd.Env
	}
	return c
}
