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

package install

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/NVIDIA/hpc-recipes/pkg/defaults"
	"github.com/NVIDIA/hpc-recipes/pkg/header"
	"github.com/NVIDIA/hpc-recipes/pkg/recipe"
	"github.com/NVIDIA/hpc-recipes/pkg/serializer"
)

// Receipt records what one successful attempt produced. It is written to
// <prefix>/.hpcr/receipt.yaml.
type Receipt struct {
	header.Header `json:",inline" yaml:",inline"`

	Spec     *recipe.ResolvedSpec `json:"spec" yaml:"spec"`
	Strategy recipe.Strategy      `json:"strategy" yaml:"strategy"`
	External bool                 `json:"external,omitempty" yaml:"external,omitempty"`

	RunEnvironment       []recipe.EnvOp `json:"runEnvironment,omitempty" yaml:"runEnvironment,omitempty"`
	DependentEnvironment []recipe.EnvOp `json:"dependentEnvironment,omitempty" yaml:"dependentEnvironment,omitempty"`

	Headers    *recipe.HeaderSet  `json:"headers,omitempty" yaml:"headers,omitempty"`
	Libraries  *recipe.LibrarySet `json:"libraries,omitempty" yaml:"libraries,omitempty"`
	Attributes map[string]string  `json:"attributes,omitempty" yaml:"attributes,omitempty"`

	Duration time.Duration `json:"duration,omitempty" yaml:"duration,omitempty"`
}

// ReceiptPath returns where the receipt of prefix lives.
func ReceiptPath(prefix string) string {
	return filepath.Join(prefix, defaults.ReceiptDir, defaults.ReceiptFile)
}

// ReadReceipt loads the receipt of an installed prefix.
func ReadReceipt(prefix string) (*Receipt, error) {
	return serializer.FromFile[Receipt](ReceiptPath(prefix))
}

func writeReceipt(ctx context.Context, prefix string, rc *Receipt) error {
	path := ReceiptPath(prefix)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create receipt directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create receipt: %w", err)
	}
	defer f.Close()

	if err := serializer.NewWriter(serializer.FormatYAML, f).Serialize(ctx, rc); err != nil {
		return err
	}
	return f.Close()
}
