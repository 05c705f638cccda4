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
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/hpc-recipes/pkg/header"
	"github.com/NVIDIA/hpc-recipes/pkg/recipe"
)

// VersionList is the versions of one package offered on a platform.
type VersionList struct {
	header.Header `json:",inline" yaml:",inline"`

	Package   string                `json:"package" yaml:"package"`
	Platform  string                `json:"platform" yaml:"platform"`
	Preferred string                `json:"preferred,omitempty" yaml:"preferred,omitempty"`
	Versions  []recipe.VersionEntry `json:"versions" yaml:"versions"`
}

// RecipeInfo is a package definition as shown to users.
type RecipeInfo struct {
	header.Header     `json:",inline" yaml:",inline"`
	recipe.Definition `json:",inline" yaml:",inline"`
}

func versionsCmd() *cli.Command {
	return &cli.Command{
		Name:      "versions",
		Usage:     "List the versions of a package offered on the target platform",
		ArgsUsage: "<package>",
		Description: `Versions are listed newest first. Vendor binaries published per
platform are only listed when the target platform has an artifact:

  hpcr versions cuda --platform Linux-ppc64le`,
		Flags: []cli.Flag{outputFlag, formatFlag},
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

			doc := VersionList{
				Header:   *header.New(header.WithKind(header.KindCatalog)),
				Package:  r.Definition().Name,
				Platform: s.host.Key(),
				Versions: r.Versions(s.host),
			}
			if pref, ok := r.Definition().Preferred(s.host); ok {
				doc.Preferred = pref.Version
			}
			doc.Stamp(version)
			return writeDoc(ctx, cmd, doc)
		},
	}
}

func infoCmd() *cli.Command {
	return &cli.Command{
		Name:      "info",
		Usage:     "Show a package definition, or list packages when none is named",
		ArgsUsage: "[package|virtual]",
		Flags:     []cli.Flag{outputFlag, formatFlag},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			s, err := newSession(ctx, cmd)
			if err != nil {
				return err
			}

			if cmd.Args().Len() == 0 {
				_, err := fmt.Fprintln(cmd.Root().Writer, strings.Join(s.reg.Names(), "\n"))
				return err
			}

			target := cmd.Args().First()
			r, err := s.reg.Get(target)
			if err != nil {
				if providers := s.reg.Providers(target); len(providers) > 0 {
					_, werr := fmt.Fprintf(cmd.Root().Writer, "%s is provided by: %s\n", target, strings.Join(providers, ", "))
					return werr
				}
				return err
			}

			doc := RecipeInfo{
				Header:     *header.New(header.WithKind(header.KindRecipe)),
				Definition: *r.Definition(),
			}
			return writeDoc(ctx, cmd, doc)
		},
	}
}
