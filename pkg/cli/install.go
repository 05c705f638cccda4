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
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/hpc-recipes/pkg/defaults"
	"github.com/NVIDIA/hpc-recipes/pkg/errors"
	"github.com/NVIDIA/hpc-recipes/pkg/recipe"
)

func installCmd() *cli.Command {
	return &cli.Command{
		Name:      "install",
		Usage:     "Fetch, build and install a package",
		ArgsUsage: "<package request>",
		Description: `Installs one package into <install-root>/<name>-<version>-<hash>,
or --prefix. Dependencies are not resolved; pass ones already on the host
with --dep:

  hpcr install cuda@11.3.1 --dep libxml2@2.9.10=/usr

Packages that are never built from source, such as cray-mpich, must be
registered with "hpcr discover" instead. The install receipt is printed
on success.`,
		Flags: []cli.Flag{
			prefixFlag,
			depFlag,
			&cli.BoolFlag{
				Name:  "keep-stage",
				Usage: "keep the stage directory after the attempt",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Value: defaults.InstallTimeout,
				Usage: "maximum duration of the attempt",
			},
			outputFlag,
			formatFlag,
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			s, err := newSession(ctx, cmd)
			if err != nil {
				return err
			}

			opts, err := dependencyOptions(cmd.StringSlice("dep"), s)
			if err != nil {
				return err
			}
			if p := cmd.String("prefix"); p != "" {
				opts = append(opts, recipe.WithPrefix(p))
			}
			r, spec, err := s.resolve(cmd, opts...)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(ctx, cmd.Duration("timeout"))
			defer cancel()

			rc, err := s.installer(cmd).Install(ctx, r, spec)
			if err != nil {
				if errors.HasCode(err, errors.ErrCodeNotInstallable) {
					return fmt.Errorf("%w\nregister it with: %s discover %s", err, name, spec.Name+"@"+spec.VersionString())
				}
				return err
			}
			return writeDoc(ctx, cmd, rc)
		},
	}
}

func discoverCmd() *cli.Command {
	return &cli.Command{
		Name:      "discover",
		Usage:     "Resolve an external package's prefix from configuration or environment modules",
		ArgsUsage: "<package request>",
		Description: `Externals declared in the configuration file are consulted first,
then "module show <name>/<version>" output:

  hpcr discover cray-mpich@8.1.0`,
		Flags: []cli.Flag{outputFlag, formatFlag},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			s, err := newSession(ctx, cmd)
			if err != nil {
				return err
			}
			r, spec, err := s.resolve(cmd)
			if err != nil {
				return err
			}

			rc, err := s.installer(cmd).External(ctx, r, spec)
			if err != nil {
				return err
			}
			slog.Debug("discovered", "spec", spec.String(), "prefix", rc.Spec.Prefix)
			return writeDoc(ctx, cmd, rc)
		},
	}
}
