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

// Package errors provides structured error types for better observability
// and programmatic error handling across the application.
//
// Every failure of a single install attempt maps to one of the domain codes:
//
//   - ErrCodeUnsupportedPlatform: no artifact for the host, version not offered
//   - ErrCodeNotInstallable: recipe must be registered as an external package
//   - ErrCodeInstallation: installer failed, nothing usable was produced
//   - ErrCodeDiscovery: headers, libraries or external prefix not found
//   - ErrCodeEnvironmentHazard: known-bad host condition, fix it and retry
//
// Example usage:
//
//	err := errors.WrapWithContext(
//	    errors.ErrCodeInstallation,
//	    "vendor installer exited non-zero",
//	    runErr,
//	    map[string]any{
//	        "package": "cuda",
//	        "version": "11.3.1",
//	    },
//	)
//
//	if errors.HasCode(err, errors.ErrCodeEnvironmentHazard) {
//	    // print remediation and stop
//	}
package errors
