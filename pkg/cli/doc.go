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

// Package cli implements the hpcr command line.
//
// # Commands
//
//	hpcr versions <package>              versions offered on the target platform
//	hpcr info [package|virtual]          package definition, or the package list
//	hpcr env <request> [--kind K]        build, run or dependent-build environment
//	hpcr install <request> [--dep D]     fetch, build and install
//	hpcr discover <request>              register an external package
//	hpcr module-prefix <module>          prefix scraped from "module show"
//	hpcr detect <package>                version of an existing installation
//
// A request is "name[@version][+variant|~variant...] [key=value...]", for
// example "cuda@11.3.1+dev" or "gchp@13.0.1+omp~real8".
//
// # Global Flags
//
//	--config, -c   Config file, .yaml/.yml or .toml (env HPCR_CONFIG)
//	--log-level    Logging verbosity: debug, info, warn, error (env LOG_LEVEL)
//	--platform     Target platform key instead of the running host
//
// Document output honors --format (yaml, json, table) and --output.
//
// # Exit Codes
//
//	0  Success
//	1  General error (invalid arguments, execution failure)
//	2  Context canceled or timeout
package cli
