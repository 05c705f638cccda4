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
	"sort"
	"strings"

	"github.com/NVIDIA/hpc-recipes/pkg/version"
)

// Condition restricts a declaration to matching specs. It is written as
// space separated terms:
//
//	@10.1.243:        version range
//	+dev / ~dev       variant enabled / disabled
//	target=aarch64:   host architecture ("aarch64:" and "aarch64" are equivalent)
//	platform=linux    host kernel
//
// All terms must match. The zero Condition matches every spec.
type Condition struct {
	Versions version.Range
	Variants map[string]bool
	Target   string
	Platform string
}

// ParseCondition parses a condition expression.
func ParseCondition(s string) (Condition, error) {
	var c Condition
	for _, term := range strings.Fields(s) {
		switch {
		case strings.HasPrefix(term, "@"):
			r, err := version.ParseRange(strings.TrimPrefix(term, "@"))
			if err != nil {
				return Condition{}, fmt.Errorf("condition %q: %w", s, err)
			}
			c.Versions = r
		case strings.HasPrefix(term, "+"), strings.HasPrefix(term, "~"), strings.HasPrefix(term, "-"):
			name := term[1:]
			if name == "" {
				return Condition{}, fmt.Errorf("condition %q: empty variant name", s)
			}
			if c.Variants == nil {
				c.Variants = make(map[string]bool)
			}
			c.Variants[name] = term[0] == '+'
		case strings.HasPrefix(term, "target="):
			c.Target = strings.TrimSuffix(strings.TrimPrefix(term, "target="), ":")
		case strings.HasPrefix(term, "platform="):
			c.Platform = strings.TrimPrefix(term, "platform=")
		default:
			return Condition{}, fmt.Errorf("condition %q: unrecognized term %q", s, term)
		}
	}
	return c, nil
}

// MustParseCondition parses a condition and panics on failure.
func MustParseCondition(s string) Condition {
	c, err := ParseCondition(s)
	if err != nil {
		panic(err)
	}
	return c
}

// IsEmpty reports whether the condition has no terms.
func (c Condition) IsEmpty() bool {
	return c.Versions.IsAny() && len(c.Variants) == 0 && c.Target == "" && c.Platform == ""
}

// IsZero lets encoders omit empty conditions.
func (c Condition) IsZero() bool {
	return c.IsEmpty()
}

// Matches reports whether spec satisfies every term.
func (c Condition) Matches(spec *ResolvedSpec) bool {
	if !c.Versions.Contains(spec.Version) {
		return false
	}
	for name, want := range c.Variants {
		if spec.Variant(name) != want {
			return false
		}
	}
	if c.Target != "" && !strings.EqualFold(c.Target, spec.Host.Target()) {
		return false
	}
	if c.Platform != "" && !strings.EqualFold(c.Platform, spec.Host.System) {
		return false
	}
	return true
}

// String renders the condition in parseable form with variants sorted.
func (c Condition) String() string {
	var terms []string
	if !c.Versions.IsAny() {
		terms = append(terms, "@"+c.Versions.String())
	}
	names := make([]string, 0, len(c.Variants))
	for name := range c.Variants {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if c.Variants[name] {
			terms = append(terms, "+"+name)
		} else {
			terms = append(terms, "~"+name)
		}
	}
	if c.Target != "" {
		terms = append(terms, "target="+c.Target+":")
	}
	if c.Platform != "" {
		terms = append(terms, "platform="+c.Platform)
	}
	return strings.Join(terms, " ")
}

// MarshalText implements encoding.TextMarshaler.
func (c Condition) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Condition) UnmarshalText(b []byte) error {
	parsed, err := ParseCondition(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
