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

// Package platform identifies the host a recipe is being resolved for.
//
// Recipes key vendor artifacts by "<System>-<Machine>" strings such as
// "Linux-x86_64" or "Linux-ppc64le", and express conflicts and patch
// conditions against an architecture target or an "os-distro-machine"
// triple. Detect builds that description for the running host; tests and
// callers resolving for another host construct a Host directly or use
// ParseKey.
package platform
