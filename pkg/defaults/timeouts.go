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

package defaults

import "time"

// Install timeouts for a single build attempt.
const (
	// InstallTimeout bounds one complete install attempt, vendor installers included.
	InstallTimeout = 2 * time.Hour

	// FetchTimeout bounds downloading or cloning the staged source.
	FetchTimeout = 30 * time.Minute

	// ModuleCommandTimeout bounds one query of the environment-module system.
	ModuleCommandTimeout = 15 * time.Second

	// DetectTimeout bounds running an executable to detect its version.
	DetectTimeout = 10 * time.Second
)

// Handler timeouts for HTTP request processing.
const (
	// CatalogHandlerTimeout is the timeout for recipe catalog requests.
	CatalogHandlerTimeout = 10 * time.Second

	// EnvironmentHandlerTimeout is the timeout for environment computation requests.
	EnvironmentHandlerTimeout = 10 * time.Second
)

// Server timeouts for HTTP server configuration.
const (
	// ServerReadTimeout is the maximum duration for reading request headers.
	ServerReadTimeout = 10 * time.Second

	// ServerReadHeaderTimeout prevents slow header attacks.
	ServerReadHeaderTimeout = 5 * time.Second

	// ServerWriteTimeout is the maximum duration for writing a response.
	ServerWriteTimeout = 30 * time.Second

	// ServerIdleTimeout is the maximum duration to wait for the next request.
	ServerIdleTimeout = 120 * time.Second

	// ServerShutdownTimeout is the maximum duration for graceful shutdown.
	ServerShutdownTimeout = 30 * time.Second
)

// HTTP client timeouts for outbound requests.
const (
	// HTTPConnectTimeout is the timeout for establishing connections.
	HTTPConnectTimeout = 5 * time.Second

	// HTTPTLSHandshakeTimeout is the timeout for TLS handshake.
	HTTPTLSHandshakeTimeout = 5 * time.Second

	// HTTPResponseHeaderTimeout is the timeout for reading response headers.
	HTTPResponseHeaderTimeout = 30 * time.Second

	// HTTPIdleConnTimeout is the timeout for idle connections in the pool.
	HTTPIdleConnTimeout = 90 * time.Second

	// HTTPKeepAlive is the keep-alive period for outbound connections.
	HTTPKeepAlive = 30 * time.Second
)
