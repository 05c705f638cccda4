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

// Package version parses package versions and the range expressions recipes
// use to make declarations conditional.
//
// A Version keeps the precision it was written with, so comparisons treat a
// shorter version as a prefix:
//
//	v := version.MustParseVersion("10.1.243")
//	v.Compare(version.MustParseVersion("10.1")) // 0
//
// A Range is either a single version, an inclusive span with optional bounds
// ("10.1:", ":6", "7.5:10.0"), or a comma-separated list of those:
//
//	r := version.MustParseRange("10.1:")
//	r.Contains(v) // true
//
// Ranges decode from plain YAML/JSON strings through encoding.TextUnmarshaler.
package version
