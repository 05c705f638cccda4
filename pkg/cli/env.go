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
	"io"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/hpc-recipes/pkg/header"
	"github.com/NVIDIA/hpc-recipes/pkg/recipe"
)

// Environment kinds accepted by --kind.
const (
	envKindBuild     = "build"
	envKindRun       = "run"
	envKindDependent = "dependent"
)

// Environment is one computed environment export.
type Environment struct {
	header.Header `json:",inline" yaml:",inline"`

	Spec       string            `json:"spec" yaml:"spec"`
	Type       string            `json:"type" yaml:"type"`
	Operations []recipe.EnvOp    `json:"operations" yaml:"operations"`
	Variables  map[string]string `json:"variables" yaml:"variables"`
}

var (
	prefixFlag = &cli.StringFlag{
		Name:  "prefix",
		Usage: "install prefix (default: derived from the install root and spec)",
	}

	depFlag = &cli.StringSliceFlag{
		Name:  "dep",
		Usage: "dependency already installed on the host, as name[@version]=prefix (repeatable)",
	}
)

func envCmd() *cli.Command {
	return &cli.Command{
		Name:      "env",
		Usage:     "Compute a package's build, run or dependent-build environment",
		ArgsUsage: "<package request>",
		Description: `Environments are computed from the spec alone and never merged:

  build      applied while the package itself builds
  run        exported for running the installed package
  dependent  injected into packages building against it

Use --shell to print export statements:

  eval "$(hpcr env cuda@11.3.1 --kind run --shell)"`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "kind",
				Value: envKindRun,
				Usage: "environment kind (build, run, dependent)",
				Validator: func(k string) error {
					switch k {
					case envKindBuild, envKindRun, envKindDependent:
						return nil
					default:
						return fmt.Errorf("invalid environment kind: %s", k)
					}
				},
			},
			&cli.BoolFlag{
				Name:  "shell",
				Usage: "print POSIX shell statements instead of a document",
			},
			prefixFlag,
			depFlag,
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
			r, spec, err := s.resolve(cmd, opts...)
			if err != nil {
				return err
			}

			inst := s.installer(cmd)
			spec.Prefix = cmd.String("prefix")
			if spec.Prefix == "" {
				spec.Prefix = inst.Prefix(spec)
			}

			var env recipe.Env
			switch kind := cmd.String("kind"); kind {
			case envKindBuild:
				env = inst.BuildEnvironment(r, spec)
			case envKindDependent:
				env = r.DependentBuildEnvironment(spec, nil, s.cfg.Toolchain)
			default:
				env = r.RunEnvironment(spec, s.cfg.Toolchain)
			}

			if cmd.Bool("shell") {
				return writeShell(cmd.Root().Writer, env)
			}

			doc := Environment{
				Header:     *header.New(header.WithKind(header.KindEnvironment)),
				Spec:       spec.String(),
				Type:       cmd.String("kind"),
				Operations: env.Ops(),
				Variables:  env.Map(),
			}
			return writeDoc(ctx, cmd, doc)
		},
	}
}

// dependencyOptions turns --dep values into resolved dependencies.
func dependencyOptions(values []string, s *session) ([]recipe.ResolveOption, error) {
	opts := make([]recipe.ResolveOption, 0, len(values))
	for _, v := range values {
		dep, err := recipe.ParseDependency(v)
		if err != nil {
			return nil, err
		}
		dep.Host = s.host
		opts = append(opts, recipe.WithDependency(dep))
	}
	return opts, nil
}

// writeShell prints env as POSIX shell statements.
func writeShell(w io.Writer, env recipe.Env) error {
	for _, op := range env.Ops() {
		var line string
		switch op.Action {
		case recipe.EnvSet:
			line = fmt.Sprintf("export %s=%s", op.Name, shellQuote(op.Value))
		case recipe.EnvUnset:
			line = "unset " + op.Name
		case recipe.EnvAppendPath:
			line = fmt.Sprintf("export %s=\"${%s:+$%s:}\"%s", op.Name, op.Name, op.Name, shellQuote(op.Value))
		case recipe.EnvPrependPath:
			line = fmt.Sprintf("export %s=%s\"${%s:+:$%s}\"", op.Name, shellQuote(op.Value), op.Name, op.Name)
		default:
			continue
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
