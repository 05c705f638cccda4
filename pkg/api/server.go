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

package api

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/time/rate"

	"github.com/NVIDIA/hpc-recipes/pkg/builtin"
	"github.com/NVIDIA/hpc-recipes/pkg/config"
	"github.com/NVIDIA/hpc-recipes/pkg/logging"
	"github.com/NVIDIA/hpc-recipes/pkg/platform"
	"github.com/NVIDIA/hpc-recipes/pkg/server"
)

const (
	name           = "hpcrd"
	versionDefault = "dev"

	// EnvConfig names the configuration file.
	EnvConfig = "HPCR_CONFIG"
)

var (
	// overridden during build with ldflags to reflect actual version info
	// e.g., -X "github.com/NVIDIA/hpc-recipes/pkg/api.version=1.0.0"
	version = versionDefault
	commit  = "unknown"
	date    = "unknown"
)

// Serve runs hpcrd until SIGINT or SIGTERM.
func Serve() error {
	ctx := context.Background()

	logging.SetDefaultStructuredLogger(name, version)
	slog.Info("starting",
		"name", name,
		"version", version,
		"commit", commit,
		"date", date,
	)

	s, err := newServer(ctx, os.Getenv(EnvConfig))
	if err != nil {
		slog.Error("server setup failed", "error", err)
		return err
	}

	if err := s.Run(ctx); err != nil {
		slog.Error("server exited with error", "error", err)
		return err
	}

	return nil
}

func newServer(ctx context.Context, configPath string) (*server.Server, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	data, err := builtin.DataProvider(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open recipe data: %w", err)
	}
	// the service never installs, so recipes get the default runner
	reg, err := builtin.NewRegistry(data, builtin.Options{Jobs: cfg.Jobs})
	if err != nil {
		return nil, err
	}

	host, err := platform.Detect(ctx)
	if err != nil {
		slog.Debug("distribution not detected", "error", err)
	}

	return server.New(
		server.WithConfig(serverConfig(cfg, host)),
		server.WithName(name),
		server.WithVersion(version),
		server.WithRegistry(reg),
	), nil
}

// serverConfig maps the service settings onto the HTTP server's.
func serverConfig(cfg *config.Config, host platform.Host) *server.Config {
	sc := server.NewConfig()
	sc.Address = cfg.Server.Address
	sc.Port = cfg.Server.Port
	sc.RateLimit = rate.Limit(cfg.Server.RateLimit)
	sc.RateLimitBurst = cfg.Server.RateLimitBurst
	sc.InstallRoot = cfg.InstallRoot
	sc.Toolchain = cfg.Toolchain
	sc.Host = host
	return sc
}
