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

// Package cuda implements the CUDA toolkit recipe.
//
// Versions are platform-polymorphic: the same version maps to a different
// vendor runfile per host, and only versions with a runfile for the
// current host are offered. Install checks for the stale installer log
// hazard before running the runfile through sh.
package cuda
