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

package platform

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/NVIDIA/hpc-recipes/pkg/file"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	filePathReleasePrimary  = "/etc/os-release"
	filePathReleaseFallback = "/usr/lib/os-release"
)

// machineNames maps Go architecture names to the names vendors publish
// artifacts under.
var machineNames = map[string]string{
	"amd64":   "x86_64",
	"arm64":   "aarch64",
	"ppc64le": "ppc64le",
	"386":     "i686",
}

// Host describes the machine a recipe is resolved for.
type Host struct {
	// System is the kernel name as vendors spell it, e.g. "Linux".
	System string `json:"system" yaml:"system"`
	// Machine is the architecture, e.g. "x86_64", "aarch64", "ppc64le".
	Machine string `json:"machine" yaml:"machine"`
	// OS is the distribution identifier with its major version, e.g. "sles15".
	OS string `json:"os,omitempty" yaml:"os,omitempty"`
}

// Key returns the artifact key, e.g. "Linux-x86_64".
func (h Host) Key() string {
	return h.System + "-" + h.Machine
}

// Target returns the architecture family used in target conditions.
func (h Host) Target() string {
	return h.Machine
}

// Triple returns "platform-os-target", e.g. "linux-ubuntu22-x86_64".
// A missing OS renders as "unknown".
func (h Host) Triple() string {
	osName := h.OS
	if osName == "" {
		osName = "unknown"
	}
	return strings.ToLower(h.System) + "-" + osName + "-" + h.Machine
}

// MatchesTriple reports whether pattern, a dash separated triple, matches
// the host. Empty or "*" segments match anything.
func (h Host) MatchesTriple(pattern string) bool {
	want := strings.SplitN(pattern, "-", 3)
	have := strings.SplitN(h.Triple(), "-", 3)
	if len(want) != 3 {
		return false
	}
	for i := range want {
		if want[i] == "" || want[i] == "*" {
			continue
		}
		if !strings.EqualFold(want[i], have[i]) {
			return false
		}
	}
	return true
}

// String implements fmt.Stringer.
func (h Host) String() string {
	return h.Key()
}

// ParseKey parses an artifact key such as "Linux-ppc64le".
func ParseKey(key string) (Host, error) {
	system, machine, ok := strings.Cut(key, "-")
	if !ok || system == "" || machine == "" {
		return Host{}, fmt.Errorf("invalid platform key %q, want <System>-<Machine>", key)
	}
	return Host{System: system, Machine: machine}, nil
}

// Current returns the running host without reading distribution metadata.
func Current() Host {
	return FromGo(runtime.GOOS, runtime.GOARCH)
}

// FromGo converts Go's GOOS/GOARCH names into a Host.
func FromGo(goos, goarch string) Host {
	machine, ok := machineNames[goarch]
	if !ok {
		machine = goarch
	}
	return Host{
		System:  cases.Title(language.Und).String(goos),
		Machine: machine,
	}
}

// Detect returns the running host, including the distribution read from
// os-release when available. A missing os-release is not an error.
func Detect(ctx context.Context) (Host, error) {
	if err := ctx.Err(); err != nil {
		return Host{}, err
	}

	h := Current()
	osName, err := releaseOS()
	if err != nil {
		return h, err
	}
	h.OS = osName
	return h, nil
}

func releaseOS() (string, error) {
	path := filePathReleasePrimary
	if _, err := os.Stat(path); os.IsNotExist(err) {
		path = filePathReleaseFallback
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return "", nil
		}
	}

	release, err := file.NewParser(file.WithVTrimChars(`"'`)).ReadMap(path)
	if err != nil {
		return "", fmt.Errorf("failed to read os release from %s: %w", path, err)
	}
	return osFromRelease(release), nil
}

// osFromRelease builds "<id><major>" from os-release fields, e.g. "rhel8".
func osFromRelease(release map[string]string) string {
	id := strings.ToLower(release["ID"])
	if id == "" {
		return ""
	}
	major, _, _ := strings.Cut(release["VERSION_ID"], ".")
	return id + major
}
