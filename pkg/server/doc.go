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

// Package server implements hpcrd, a read-only HTTP view of the recipe
// registry: the catalog, per-platform versions and computed environments.
// It never installs anything.
//
// # Architecture
//
//   - Rate limiting using token bucket algorithm (golang.org/x/time/rate)
//   - Request ID tracking (X-Request-Id, UUID)
//   - API version negotiation through the Accept header
//   - Panic recovery and structured request logging
//   - Prometheus metrics on /metrics
//   - Graceful shutdown on SIGINT and SIGTERM
//
// # Usage
//
//	cfg := server.NewConfig()
//	cfg.Port = 9090
//	cfg.Host = platform.Host{System: "Linux", Machine: "ppc64le"}
//
//	s := server.New(
//	    server.WithConfig(cfg),
//	    server.WithRegistry(reg),
//	)
//	err := s.Run(ctx)
//
// # API Endpoints
//
// GET /v1/recipes - Registered recipes as seen from a platform
//
//	Query parameters:
//	  - platform: <System>-<Machine>, e.g. Linux-x86_64 (default: server host)
//
// GET /v1/recipes/{name} - Full recipe definition
//
// GET /v1/recipes/{name}/versions - Versions offered on a platform, newest first
//
//	Query parameters:
//	  - platform: <System>-<Machine> (default: server host)
//
// GET /v1/environment - Computed environment export
//
//	Query parameters:
//	  - spec: package request, e.g. cuda@11.3.1 (required; encode '+' as %2B)
//	  - kind: build, run, dependent (default: run)
//	  - platform: <System>-<Machine> (default: server host)
//	  - prefix: install prefix (default: derived from the install root)
//	  - dep: installed dependency as name[@version]=prefix (repeatable)
//
//	Example:
//	  curl "http://localhost:8080/v1/environment?spec=cuda@11.3.1&kind=dependent&platform=Linux-x86_64"
//
// GET /health - Liveness, always 200
//
// GET /ready - Readiness, 503 until the server is serving
//
// GET /metrics - Prometheus metrics
//
// # Error Handling
//
// All errors return a consistent JSON structure:
//
//	{
//	  "code": "UNSUPPORTED_PLATFORM",
//	  "message": "cuda@11.3.1 is not available for Darwin-arm64",
//	  "details": {"package": "cuda", "version": "11.3.1", "platform": "Darwin-arm64"},
//	  "requestId": "550e8400-e29b-41d4-a716-446655440000"
//	}
//
// Status codes follow the error code: INVALID_REQUEST 400, NOT_FOUND 404,
// METHOD_NOT_ALLOWED 405, UNSUPPORTED_PLATFORM and NOT_INSTALLABLE 422,
// RATE_LIMIT_EXCEEDED 429 with Retry-After, INTERNAL 500, TIMEOUT 504.
package server
