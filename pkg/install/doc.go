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

// Package install runs package recipes through one install attempt.
//
// An attempt proceeds in a fixed order:
//
//  1. a fresh stage directory is created and the version's source fetched
//  2. active patches are applied to the staged source
//  3. dependency and package build environments are applied to the base
//     environment and handed to the recipe through the context
//  4. the recipe's Install populates the prefix
//  5. headers, libraries and dependent attributes are discovered
//  6. an install receipt is written to <prefix>/.hpcr/receipt.yaml
//
// Any failure after the prefix is claimed removes what the attempt wrote: the
// whole prefix when the attempt created it, otherwise only the paths that
// were not there before. The stage is removed after every attempt unless
// WithKeepStage is set.
//
// External packages are never installed. External resolves their prefix
// through a modulecmd.Lookup and describes it without writing to it.
//
// Example:
//
//	inst := install.New("/opt/hpcr",
//	    install.WithRegistry(reg),
//	    install.WithDataProvider(data),
//	)
//	rc, err := inst.Install(ctx, r, spec)
//
// Attempts are counted in hpcr_install_attempts_total by package and
// outcome, where the outcome is "success" or the error code.
package install
