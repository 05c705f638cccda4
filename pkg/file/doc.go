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

// Package file splits small text documents into lines and key/value pairs.
//
// It backs the parsers that read host metadata such as /etc/os-release and
// the free-form text printed by environment-module commands.
//
//	p := file.NewParser(file.WithVTrimChars(`"`))
//	release, err := p.ReadMap("/etc/os-release")
//
// Content that is not valid UTF-8 or exceeds the configured size is rejected.
package file
