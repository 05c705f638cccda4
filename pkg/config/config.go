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

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/NVIDIA/hpc-recipes/pkg/defaults"
	"github.com/NVIDIA/hpc-recipes/pkg/errors"
	"github.com/NVIDIA/hpc-recipes/pkg/modulecmd"
	"github.com/NVIDIA/hpc-recipes/pkg/recipe"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "HPCR_"

// Config is the tool configuration.
type Config struct {
	Toolchain     recipe.Toolchain `json:"toolchain" yaml:"toolchain" toml:"toolchain"`
	InstallRoot   string           `json:"installRoot" yaml:"installRoot" toml:"install_root"`
	StageRoot     string           `json:"stageRoot" yaml:"stageRoot" toml:"stage_root"`
	DataDir       string           `json:"dataDir,omitempty" yaml:"dataDir,omitempty" toml:"data_dir,omitempty"`
	ModuleCommand string           `json:"moduleCommand" yaml:"moduleCommand" toml:"module_command"`
	Jobs          int              `json:"jobs,omitempty" yaml:"jobs,omitempty" toml:"jobs,omitempty"`
	KeepStage     bool             `json:"keepStage,omitempty" yaml:"keepStage,omitempty" toml:"keep_stage,omitempty"`
	Externals     []External       `json:"externals,omitempty" yaml:"externals,omitempty" toml:"externals,omitempty"`
	Server        Server           `json:"server" yaml:"server" toml:"server"`
}

// External declares a package prefix that is already present on the host.
type External struct {
	// Module is "<name>/<version>", e.g. "cray-mpich/8.1.0".
	Module string `json:"module" yaml:"module" toml:"module"`
	Prefix string `json:"prefix" yaml:"prefix" toml:"prefix"`
}

// Server configures hpcrd.
type Server struct {
	Address        string  `json:"address,omitempty" yaml:"address,omitempty" toml:"address,omitempty"`
	Port           int     `json:"port" yaml:"port" toml:"port"`
	RateLimit      float64 `json:"rateLimit" yaml:"rateLimit" toml:"rate_limit"`
	RateLimitBurst int     `json:"rateLimitBurst" yaml:"rateLimitBurst" toml:"rate_limit_burst"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Toolchain:     recipe.DefaultToolchain,
		InstallRoot:   defaults.InstallRoot,
		StageRoot:     defaults.StageRoot,
		ModuleCommand: defaults.ModuleCommand,
		Server: Server{
			Port:           8080,
			RateLimit:      100,
			RateLimitBurst: 200,
		},
	}
}

// Load reads path over the defaults, applies HPCR_* environment overrides
// and validates the result. An empty path loads only defaults and the
// environment. The format follows the extension: .toml, .yaml or .yml.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.decodeFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decodeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeNotFound, "failed to read config", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, c)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	default:
		return errors.NewWithContext(errors.ErrCodeInvalidRequest,
			"unsupported config format, use .yaml, .yml or .toml",
			map[string]any{"path": path})
	}
	if err != nil {
		return errors.WrapWithContext(errors.ErrCodeInvalidRequest, "failed to parse config", err,
			map[string]any{"path": path})
	}
	return nil
}

// ApplyEnv overrides fields from HPCR_* variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"INSTALL_ROOT":   &c.InstallRoot,
		"STAGE_ROOT":     &c.StageRoot,
		"DATA_DIR":       &c.DataDir,
		"MODULE_COMMAND": &c.ModuleCommand,
		"SERVER_ADDRESS": &c.Server.Address,
		"CC":             &c.Toolchain.CC,
		"CXX":            &c.Toolchain.CXX,
		"F77":            &c.Toolchain.F77,
		"FC":             &c.Toolchain.FC,
		"COMPILER":       &c.Toolchain.Name,
	}
	for key, field := range strs {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			*field = v
		}
	}

	ints := map[string]*int{
		"JOBS":        &c.Jobs,
		"SERVER_PORT": &c.Server.Port,
	}
	for key, field := range ints {
		v, ok := lookup(EnvPrefix + key)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.WrapWithContext(errors.ErrCodeInvalidRequest,
				fmt.Sprintf("invalid %s%s", EnvPrefix, key), err,
				map[string]any{"value": v})
		}
		*field = n
	}

	if v, ok := lookup(EnvPrefix + "KEEP_STAGE"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.WrapWithContext(errors.ErrCodeInvalidRequest,
				"invalid "+EnvPrefix+"KEEP_STAGE", err, map[string]any{"value": v})
		}
		c.KeepStage = b
	}
	return nil
}

// Validate checks that paths are absolute and limits are in range.
func (c *Config) Validate() error {
	var problems []string
	if !filepath.IsAbs(c.InstallRoot) {
		problems = append(problems, "installRoot must be an absolute path")
	}
	if !filepath.IsAbs(c.StageRoot) {
		problems = append(problems, "stageRoot must be an absolute path")
	}
	if c.ModuleCommand == "" {
		problems = append(problems, "moduleCommand is required")
	}
	if c.Toolchain.CC == "" || c.Toolchain.CXX == "" || c.Toolchain.FC == "" {
		problems = append(problems, "toolchain needs cc, cxx and fc")
	}
	if c.Jobs < 0 {
		problems = append(problems, "jobs must not be negative")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server port %d out of range", c.Server.Port))
	}
	if c.Server.RateLimit <= 0 || c.Server.RateLimitBurst <= 0 {
		problems = append(problems, "server rate limit and burst must be positive")
	}

	seen := make(map[string]bool, len(c.Externals))
	for _, e := range c.Externals {
		name, ver, ok := strings.Cut(e.Module, "/")
		switch {
		case !ok || name == "" || ver == "":
			problems = append(problems, fmt.Sprintf("external %q must be <name>/<version>", e.Module))
		case seen[e.Module]:
			problems = append(problems, fmt.Sprintf("external %q declared twice", e.Module))
		case !filepath.IsAbs(e.Prefix):
			problems = append(problems, fmt.Sprintf("external %q prefix must be an absolute path", e.Module))
		}
		seen[e.Module] = true
	}

	if len(problems) > 0 {
		return errors.NewWithContext(errors.ErrCodeInvalidRequest,
			"invalid configuration: "+strings.Join(problems, "; "),
			map[string]any{"problems": problems})
	}
	return nil
}

// ExternalLookup returns the declared externals as a module lookup.
func (c *Config) ExternalLookup() modulecmd.Static {
	out := make(modulecmd.Static, len(c.Externals))
	for _, e := range c.Externals {
		out[e.Module] = e.Prefix
	}
	return out
}
