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

package defaults

// Filesystem defaults.
const (
	// InstallRoot is where prefixes are created when no root is configured.
	InstallRoot = "/opt/hpcr"

	// StageRoot is the parent of per-attempt staging directories.
	StageRoot = "/var/tmp/hpcr-stage"

	// ModuleCommand is the shell command used to query environment modules.
	ModuleCommand = "module"

	// ReceiptDir is the metadata directory written inside every prefix.
	ReceiptDir = ".hpcr"

	// ReceiptFile is the install receipt file name inside ReceiptDir.
	ReceiptFile = "receipt.yaml"
)
