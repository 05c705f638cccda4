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
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NVIDIA/hpc-recipes/pkg/errors"
	"github.com/NVIDIA/hpc-recipes/pkg/executil"
)

func TestDefine(t *testing.T) {
	spec := testSpec("13.0.0", map[string]bool{"omp": true})
	assert.Equal(t, "-DOMP:BOOL=ON", DefineFromVariant(spec, "OMP", "omp"))
	assert.Equal(t, "-DTOMAS:BOOL=OFF", DefineFromVariant(spec, "TOMAS", "tomas"))
	assert.Equal(t, "-DUSE_REAL8:BOOL=ON", Define("USE_REAL8", true))
	assert.Equal(t, "-DRUNDIR:STRING=/opt/gchp", DefineString("RUNDIR", "/opt/gchp"))
}

func TestCMakeInstall(t *testing.T) {
	fake := &executil.Fake{}
	c := CMake{Runner: fake, Jobs: 4}
	spec := testSpec("13.0.0", nil)

	source := filepath.Join("/stage", "src")
	err := c.Install(context.Background(), spec, source, "/prefix",
		[]string{"-DOMP:BOOL=ON"}, []string{"CC=gcc"})
	require.NoError(t, err)

	build := filepath.Join("/stage", BuildDirName)
	calls := fake.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, []string{"-S", source, "-B", build,
		"-DCMAKE_INSTALL_PREFIX=/prefix", "-DCMAKE_BUILD_TYPE=RelWithDebInfo", "-DOMP:BOOL=ON"}, calls[0].Args)
	assert.Equal(t, []string{"--build", build, "--parallel", "4"}, calls[1].Args)
	assert.Equal(t, []string{"--install", build}, calls[2].Args)
	for _, call := range calls {
		assert.Equal(t, "cmake", call.Name)
		assert.Equal(t, "/stage", call.Dir)
		assert.Equal(t, []string{"CC=gcc"}, call.Env)
	}
}

func TestCMakeInstallFailure(t *testing.T) {
	fake := &executil.Fake{OnRun: func(cmd executil.Command) error {
		if cmd.Args[0] == "--build" {
			return fmt.Errorf("exit status 2")
		}
		return nil
	}}
	c := CMake{Runner: fake, Jobs: 1}

	err := c.Install(context.Background(), testSpec("13.0.0", nil), "/s/src", "/p", nil, nil)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInstallation))
	assert.Contains(t, err.Error(), "cmake build")
	assert.Len(t, fake.Calls(), 2)
}
