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

// Package builtin ships the recipe definitions compiled into the binary
// and assembles a registry from them.
//
// Definitions live in data/recipes as YAML documents. An external data
// directory with the same layout overrides embedded files and may add
// recipes or patch files:
//
//	p, err := builtin.DataProvider("/etc/hpcr/data")
//	reg, err := builtin.NewRegistry(p, builtin.Options{})
package builtin
