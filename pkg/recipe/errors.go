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

package recipe

import (
	"fmt"

	"github.com/NVIDIA/hpc-recipes/pkg/errors"
	"github.com/NVIDIA/hpc-recipes/pkg/platform"
)

// NotInstallableError is returned by recipes that must be registered as
// external packages.
func NotInstallableError(name string) *errors.StructuredError {
	return errors.NewWithContext(errors.ErrCodeNotInstallable,
		fmt.Sprintf("%s is not installable, you need to specify it as an external package in packages.yaml", name),
		map[string]any{"package": name})
}

// UnsupportedPlatformError reports that a version is not offered on host.
func UnsupportedPlatformError(name, id string, host platform.Host) *errors.StructuredError {
	return errors.NewWithContext(errors.ErrCodeUnsupportedPlatform,
		fmt.Sprintf("%s@%s is not available for %s", name, id, host.Key()),
		map[string]any{"package": name, "version": id, "platform": host.Key()})
}

// EnvironmentHazardError reports a host condition that must be fixed before
// retrying. The remediation text is shown to the user verbatim.
func EnvironmentHazardError(name, remediation string, cause error) *errors.StructuredError {
	return errors.WrapWithContext(errors.ErrCodeEnvironmentHazard, remediation, cause,
		map[string]any{"package": name})
}

// InstallationError wraps a failed install step.
func InstallationError(spec *ResolvedSpec, step string, cause error) *errors.StructuredError {
	return errors.WrapWithContext(errors.ErrCodeInstallation,
		fmt.Sprintf("%s failed during %s", spec.Name, step), cause,
		map[string]any{"spec": spec.String(), "step": step})
}

// DiscoveryError reports that expected files or an external prefix were
// not found.
func DiscoveryError(name, what, where string) *errors.StructuredError {
	return errors.NewWithContext(errors.ErrCodeDiscovery,
		fmt.Sprintf("unable to locate %s %s in %s", name, what, where),
		map[string]any{"package": name, "path": where})
}
