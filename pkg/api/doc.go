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

// Package api wires the recipe catalog service, hpcrd, from configuration:
// it loads the config file, registers the built-in recipes and hands them to
// the reusable pkg/server.
//
// # Usage
//
//	func main() {
//	    if err := api.Serve(); err != nil {
//	        log.Fatalf("server error: %v", err)
//	    }
//	}
//
// # Configuration
//
// The config file is named by HPCR_CONFIG (.yaml, .yml or .toml). The
// server section sets the listen address, port and rate limit; the install
// root and toolchain decide the prefixes and compilers reported by the
// environment endpoint. HPCR_* variables override the file, see pkg/config.
//
// # Endpoints
//
// Application endpoints (with rate limiting):
//   - GET /v1/recipes
//   - GET /v1/recipes/{name}
//   - GET /v1/recipes/{name}/versions
//   - GET /v1/environment
//
// System endpoints (no rate limiting):
//   - GET /health
//   - GET /ready
//   - GET /metrics
package api
