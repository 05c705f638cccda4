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

// Package config loads the hpcr configuration.
//
// Settings come from three layers, later ones winning: built-in defaults,
// a YAML or TOML file, and HPCR_* environment variables such as
// HPCR_INSTALL_ROOT, HPCR_JOBS or HPCR_CC.
//
// Example TOML:
//
//	install_root = "/opt/hpcr"
//	jobs = 16
//
//	[toolchain]
//	name = "cce"
//	cc = "cc"
//	cxx = "CC"
//	f77 = "ftn"
//	fc = "ftn"
//
//	[[externals]]
//	module = "cray-mpich/8.1.0"
//	prefix = "/opt/cray/pe/mpich/8.1.0/ofi/cray/9.1"
package config
