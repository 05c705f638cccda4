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

// Package stage prepares the source tree for one install attempt.
//
// Every attempt gets its own directory named with a random UUID, so
// concurrent attempts of the same package never share files. Sources are
// either downloaded and checked against their sha256 digest, optionally
// expanding archives, or cloned from git at a pinned commit with submodules.
package stage
