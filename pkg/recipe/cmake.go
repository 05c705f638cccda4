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
	"context"
	"io"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/NVIDIA/hpc-recipes/pkg/executil"
)

// BuildDirName is the out-of-source build directory created in the stage.
const BuildDirName = "hpcr-build"

// DefineFromVariant renders a boolean variant as a CMake cache entry,
// e.g. "-DOMP:BOOL=ON".
func DefineFromVariant(spec *ResolvedSpec, cmakeName, variant string) string {
	return Define(cmakeName, spec.Variant(variant))
}

// Define renders a boolean CMake cache entry.
func Define(name string, on bool) string {
	val := "OFF"
	if on {
		val = "ON"
	}
	return "-D" + name + ":BOOL=" + val
}

// DefineString renders a string CMake cache entry.
func DefineString(name, value string) string {
	return "-D" + name + ":STRING=" + value
}

// CMake drives a configure, build and install cycle.
type CMake struct {
	Runner executil.Runner
	// Jobs is the parallel build level. Zero means runtime.NumCPU.
	Jobs int
	// Output receives build logs. Nil discards them.
	Output io.Writer
}

// Install configures source in a BuildDirName directory next to it,
// builds and installs into prefix. env is the complete build environment;
// nil inherits the process environment.
func (c CMake) Install(ctx context.Context, spec *ResolvedSpec, source, prefix string, args []string, env []string) error {
	stage := filepath.Dir(source)
	build := filepath.Join(stage, BuildDirName)
	jobs := c.Jobs
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}

	configure := append([]string{
		"-S", source,
		"-B", build,
		"-DCMAKE_INSTALL_PREFIX=" + prefix,
		"-DCMAKE_BUILD_TYPE=RelWithDebInfo",
	}, args...)

	steps := []struct {
		name string
		args []string
	}{
		{"cmake configure", configure},
		{"cmake build", []string{"--build", build, "--parallel", strconv.Itoa(jobs)}},
		{"cmake install", []string{"--install", build}},
	}

	for _, step := range steps {
		err := c.Runner.Run(ctx, executil.Command{
			Name:   "cmake",
			Args:   step.args,
			Dir:    stage,
			Env:    env,
			Stdout: c.Output,
			Stderr: c.Output,
		})
		if err != nil {
			return InstallationError(spec, step.name, err)
		}
	}
	return nil
}
