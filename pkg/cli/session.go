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
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/hpc-recipes/pkg/builtin"
	"github.com/NVIDIA/hpc-recipes/pkg/config"
	"github.com/NVIDIA/hpc-recipes/pkg/executil"
	"github.com/NVIDIA/hpc-recipes/pkg/install"
	"github.com/NVIDIA/hpc-recipes/pkg/modulecmd"
	"github.com/NVIDIA/hpc-recipes/pkg/platform"
	"github.com/NVIDIA/hpc-recipes/pkg/recipe"
	"github.com/NVIDIA/hpc-recipes/pkg/serializer"
	"github.com/NVIDIA/hpc-recipes/pkg/stage"
)

// session is what every command needs: configuration, recipes and host.
type session struct {
	cfg    *config.Config
	data   recipe.DataProvider
	reg    *recipe.Registry
	host   platform.Host
	runner executil.Runner
}

func newSession(ctx context.Context, cmd *cli.Command) (*session, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}

	data, err := builtin.DataProvider(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open recipe data: %w", err)
	}

	runner := executil.NewRunner()
	reg, err := builtin.NewRegistry(data, builtin.Options{
		Runner: runner,
		Output: cmd.Root().ErrWriter,
		Jobs:   cfg.Jobs,
	})
	if err != nil {
		return nil, err
	}

	host, err := targetHost(ctx, cmd.String("platform"))
	if err != nil {
		return nil, err
	}

	return &session{cfg: cfg, data: data, reg: reg, host: host, runner: runner}, nil
}

func targetHost(ctx context.Context, key string) (platform.Host, error) {
	if key != "" {
		return platform.ParseKey(key)
	}
	host, err := platform.Detect(ctx)
	if err != nil {
		slog.Debug("distribution not detected", "error", err)
	}
	return host, nil
}

// resolve parses the command's arguments as one package request.
func (s *session) resolve(cmd *cli.Command, opts ...recipe.ResolveOption) (recipe.Recipe, *recipe.ResolvedSpec, error) {
	if cmd.Args().Len() == 0 {
		return nil, nil, fmt.Errorf("package request is required, e.g. cuda@11.3.1+dev")
	}
	req, err := recipe.ParseRequest(strings.Join(cmd.Args().Slice(), " "))
	if err != nil {
		return nil, nil, err
	}
	r, err := s.reg.Get(req.Name)
	if err != nil {
		return nil, nil, err
	}
	spec, err := recipe.Resolve(s.reg, req, s.host, opts...)
	if err != nil {
		return nil, nil, err
	}
	return r, spec, nil
}

func (s *session) lookup() modulecmd.Lookup {
	return modulecmd.Chain{
		s.cfg.ExternalLookup(),
		modulecmd.NewFinder(s.runner, modulecmd.WithCommand(s.cfg.ModuleCommand)),
	}
}

func (s *session) installer(cmd *cli.Command) *install.Installer {
	return install.New(s.cfg.InstallRoot,
		install.WithRegistry(s.reg),
		install.WithDataProvider(s.data),
		install.WithRunner(s.runner),
		install.WithLookup(s.lookup()),
		install.WithToolchain(s.cfg.Toolchain),
		install.WithToolVersion(version),
		install.WithStageManager(stage.NewManager(s.cfg.StageRoot,
			stage.WithFetcher(stage.NewFetcher(stage.WithUserAgent(name+"/"+version))))),
		install.WithKeepStage(s.cfg.KeepStage || cmd.Bool("keep-stage")),
		install.WithOutput(cmd.Root().ErrWriter),
	)
}

var (
	outputFlag = &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "output file path (default: stdout)",
	}

	formatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"t"},
		Value:   string(serializer.FormatYAML),
		Usage:   fmt.Sprintf("output format (%s)", strings.Join(serializer.SupportedFormats(), ", ")),
	}
)

func parseOutputFormat(cmd *cli.Command) (serializer.Format, error) {
	f := serializer.Format(cmd.String("format"))
	if f.IsUnknown() {
		return "", fmt.Errorf("unknown output format: %q", f)
	}
	return f, nil
}

// writeDoc serializes doc to --output or the command's writer.
func writeDoc(ctx context.Context, cmd *cli.Command, doc any) error {
	format, err := parseOutputFormat(cmd)
	if err != nil {
		return err
	}

	var w *serializer.Writer
	if path := cmd.String("output"); path != "" {
		w = serializer.NewFileWriterOrStdout(format, path)
	} else {
		w = serializer.NewWriter(format, cmd.Root().Writer)
	}
	defer func() {
		if err := w.Close(); err != nil {
			slog.Warn("failed to close output", "error", err)
		}
	}()
	return w.Serialize(ctx, doc)
}
