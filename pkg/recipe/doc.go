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

// Package recipe defines the contract between package recipes and the
// install pipeline.
//
// A recipe is an immutable Definition (versions, variants, dependencies,
// provided virtual packages, conflicts and patches) plus lifecycle
// callbacks. The pipeline calls them in a fixed order:
//
//	BuildEnvironment -> stage and fetch -> Install -> RunEnvironment,
//	DependentBuildEnvironment
//
// Everything except Install is pure. Environment callbacks return an Env,
// an ordered list of modifications, and never touch the process
// environment.
//
// Optional behavior is expressed with capability interfaces that a recipe
// may implement: HeaderProvider, LibraryProvider, ExternalProvider,
// VersionDetector, DependentAttributer and ArgValidator.
//
// Definitions are loaded from YAML documents through a DataProvider:
//
//	p := recipe.NewEmbeddedDataProvider(dataFS, "data")
//	def, err := recipe.LoadDefinition(p, "cuda")
//
// Explicit requests are turned into a ResolvedSpec with Resolve:
//
//	req, _ := recipe.ParseRequest("cuda@11.3.1+dev")
//	spec, err := recipe.Resolve(reg, req, platform.Current())
package recipe
