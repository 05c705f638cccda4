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

package header

import (
	"time"
)

// APIVersionV1 is the current document schema.
const APIVersionV1 = "hpcr.nvidia.com/v1"

// Kind names the type of a document.
type Kind string

const (
	KindRecipe         Kind = "Recipe"
	KindCatalog        Kind = "Catalog"
	KindEnvironment    Kind = "Environment"
	KindInstallReceipt Kind = "InstallReceipt"
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	return string(k)
}

// IsValid checks if the Kind is one of the recognized kinds.
func (k Kind) IsValid() bool {
	switch k {
	case KindRecipe, KindCatalog, KindEnvironment, KindInstallReceipt:
		return true
	default:
		return false
	}
}

// Option configures a Header.
type Option func(*Header)

// WithMetadata adds a metadata key/value pair.
func WithMetadata(key, value string) Option {
	return func(h *Header) {
		if h.Metadata == nil {
			h.Metadata = make(map[string]string)
		}
		h.Metadata[key] = value
	}
}

// WithKind sets the document kind.
func WithKind(kind Kind) Option {
	return func(h *Header) {
		h.Kind = kind
	}
}

// WithAPIVersion sets the document schema version.
func WithAPIVersion(version string) Option {
	return func(h *Header) {
		h.APIVersion = version
	}
}

// Header is embedded inline at the top of emitted documents.
type Header struct {
	Kind       Kind              `json:"kind,omitempty" yaml:"kind,omitempty"`
	APIVersion string            `json:"apiVersion,omitempty" yaml:"apiVersion,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// New creates a Header with the given options applied.
func New(opts ...Option) *Header {
	h := &Header{
		APIVersion: APIVersionV1,
		Metadata:   make(map[string]string),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Stamp records the creation time and, when non-empty, the tool version.
func (h *Header) Stamp(toolVersion string) {
	if h.Metadata == nil {
		h.Metadata = make(map[string]string)
	}
	h.Metadata["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	if toolVersion != "" {
		h.Metadata["version"] = toolVersion
	}
}
