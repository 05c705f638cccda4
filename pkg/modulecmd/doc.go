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

// Package modulecmd finds install prefixes of packages provided by an
// environment-module system (Lmod or Tcl modules).
//
// The module system only exposes free-form text, so prefixes are scraped
// from `module show` output. Everything outside this package sees the
// narrow Lookup interface.
//
//	finder := modulecmd.NewFinder(executil.NewRunner())
//	prefix, ok := finder.LookupInstallPath(ctx, "cray-mpich/8.1.0")
package modulecmd
