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
	"context"
	"sync"
)

// Fake is a Runner that records commands instead of executing them.
type Fake struct {
	mu    sync.Mutex
	calls []Command

	// Outputs maps a command line, as rendered by Command.String, to the
	// output returned by Output.
	Outputs map[string]string
	// Errors maps a command line to the error returned for it.
	Errors map[string]error
	// OnRun, when set, is called for every command after it is recorded.
	OnRun func(Command) error
}

// Run records cmd.
func (f *Fake) Run(ctx context.Context, cmd Command) error {
	if err := f.record(ctx, cmd); err != nil {
		return err
	}
	if err := f.Errors[cmd.String()]; err != nil {
		return err
	}
	if out := f.Outputs[cmd.String()]; out != "" && cmd.Stdout != nil {
		if _, err := cmd.Stdout.Write([]byte(out)); err != nil {
			return err
		}
	}
	return nil
}

// Output records cmd and returns the configured output.
func (f *Fake) Output(ctx context.Context, cmd Command) ([]byte, error) {
	if err := f.record(ctx, cmd); err != nil {
		return nil, err
	}
	return []byte(f.Outputs[cmd.String()]), f.Errors[cmd.String()]
}

func (f *Fake) record(ctx context.Context, cmd Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	f.mu.Unlock()
	if f.OnRun != nil {
		return f.OnRun(cmd)
	}
	return nil
}

// Calls returns the recorded commands in order.
func (f *Fake) Calls() []Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Command, len(f.calls))
	copy(out, f.calls)
	return out
}
