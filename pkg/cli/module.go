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

package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/hpc-recipes/pkg/defaults"
	"github.com/NVIDIA/hpc-recipes/pkg/executil"
	"github.com/NVIDIA/hpc-recipes/pkg/modulecmd"
	"github.com/NVIDIA/hpc-recipes/pkg/recipe"
)

func modulePrefixCmd() *cli.Command {
	return &cli.Command{
		Name:      "module-prefix",
		Usage:     "Print the install prefix set by an environment module",
		ArgsUsage: "<module>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			s, err := newSession(ctx, cmd)
			if err != nil {
				return err
			}
			if cmd.Args().Len() != 1 {
				return fmt.Errorf("exactly one module name is required")
			}

			module := cmd.Args().First()
			prefix, ok := s.lookup().LookupInstallPath(ctx, module)
			if !ok {
				return fmt.Errorf("no prefix found for module %s, tried %v", module, modulecmd.VariableCandidates(module))
			}
			_, err = fmt.Fprintln(cmd.Root().Writer, prefix)
			return err
		},
	}
}

func detectCmd() *cli.Command {
	return &cli.Command{
		Name:      "detect",
		Usage:     "Detect the version of a package already on PATH",
		ArgsUsage: "<package>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			s, err := newSession(ctx, cmd)
			if err != nil {
				return err
			}
			if cmd.Args().Len() != 1 {
				return fmt.Errorf("exactly one package name is required")
			}
			r, err := s.reg.Get(cmd.Args().First())
			if err != nil {
				return err
			}

			v, err := detectVersion(ctx, s.runner, r)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.Root().Writer, v)
			return err
		},
	}
}

func detectVersion(ctx context.Context, runner executil.Runner, r recipe.Recipe) (string, error) {
	d, ok := r.(recipe.VersionDetector)
	if !ok {
		return "", fmt.Errorf("%s does not support version detection", r.Definition().Name)
	}

	ctx, cancel := context.WithTimeout(ctx, defaults.DetectTimeout)
	defer cancel()

	argv := d.DetectCommand()
	out, err := runner.Output(ctx, executil.Command{Name: argv[0], Args: argv[1:]})
	if err != nil {
		return "", fmt.Errorf("failed to run %s: %w", argv[0], err)
	}
	v, ok := d.DetermineVersion(string(out))
	if !ok {
		return "", fmt.Errorf("no %s version in %s output", r.Definition().Name, argv[0])
	}
	return v, nil
}
