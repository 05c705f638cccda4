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

package version

import (
	"fmt"
	"strings"
)

// Range is a version constraint written in recipe syntax.
//
//	"10.1:"         10.1 or newer, 10.1.243 included
//	":6"            up to and including every 6.x release
//	"7.5:10.0"      both bounds, inclusive
//	"10.1.243"      a single version, or a prefix when fewer components are given
//	"8.0.1:,7.7"    comma-separated alternatives, any one may match
//
// Operator forms ">=X", "<=X" and "==X" are accepted as aliases of "X:",
// ":X" and "X". The zero Range matches every version.
type Range struct {
	clauses []clause
}

type clause struct {
	lower *Version
	upper *Version
	point bool
}

// Any returns a Range that matches every version.
func Any() Range { return Range{} }

// ParseRange parses a range expression. An empty string or ":" yields Any.
func ParseRange(s string) (Range, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == ":" {
		return Range{}, nil
	}

	var r Range
	for _, part := range strings.Split(s, ",") {
		c, err := parseClause(strings.TrimSpace(part))
		if err != nil {
			return Range{}, fmt.Errorf("invalid range %q: %w", s, err)
		}
		if c.lower == nil && c.upper == nil {
			return Range{}, nil
		}
		r.clauses = append(r.clauses, c)
	}
	return r, nil
}

// MustParseRange parses a range and panics on failure.
// Only use this for hardcoded strings or in tests.
func MustParseRange(s string) Range {
	r, err := ParseRange(s)
	if err != nil {
		panic(fmt.Sprintf("MustParseRange: %v", err))
	}
	return r
}

func parseClause(s string) (clause, error) {
	if s == "" {
		return clause{}, ErrEmptyVersion
	}

	// operators longest first so ">=" is not read as ">"
	switch {
	case strings.HasPrefix(s, ">="):
		v, err := parseBound(strings.TrimPrefix(s, ">="))
		return clause{lower: v}, err
	case strings.HasPrefix(s, "<="):
		v, err := parseBound(strings.TrimPrefix(s, "<="))
		return clause{upper: v}, err
	case strings.HasPrefix(s, "=="):
		v, err := parseBound(strings.TrimPrefix(s, "=="))
		return clause{lower: v, upper: v, point: true}, err
	case strings.HasPrefix(s, ">"), strings.HasPrefix(s, "<"), strings.HasPrefix(s, "!="):
		return clause{}, fmt.Errorf("unsupported operator in %q", s)
	}

	lo, hi, isSpan := strings.Cut(s, ":")
	if !isSpan {
		v, err := parseBound(s)
		return clause{lower: v, upper: v, point: true}, err
	}

	var c clause
	var err error
	if strings.TrimSpace(lo) != "" {
		if c.lower, err = parseBound(lo); err != nil {
			return clause{}, err
		}
	}
	if strings.TrimSpace(hi) != "" {
		if c.upper, err = parseBound(hi); err != nil {
			return clause{}, err
		}
	}
	if c.lower != nil && c.upper != nil && c.lower.Compare(*c.upper) > 0 {
		return clause{}, fmt.Errorf("lower bound %s is above upper bound %s", c.lower.Full(), c.upper.Full())
	}
	return c, nil
}

func parseBound(s string) (*Version, error) {
	v, err := ParseVersion(strings.TrimSpace(s))
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// IsAny reports whether the range places no constraint on the version.
func (r Range) IsAny() bool {
	return len(r.clauses) == 0
}

// Contains reports whether v satisfies the range.
func (r Range) Contains(v Version) bool {
	if r.IsAny() {
		return true
	}
	for _, c := range r.clauses {
		if c.contains(v) {
			return true
		}
	}
	return false
}

func (c clause) contains(v Version) bool {
	if c.point {
		if c.lower.Extras != "" && c.lower.Extras != v.Extras {
			return false
		}
		return v.Compare(*c.lower) == 0
	}
	if c.lower != nil && v.Compare(*c.lower) < 0 {
		return false
	}
	if c.upper != nil && v.Compare(*c.upper) > 0 {
		return false
	}
	return true
}

// IsZero reports whether r is the zero Range. It lets encoders omit
// unconstrained ranges.
func (r Range) IsZero() bool {
	return r.IsAny()
}

// Overlaps reports whether some version could satisfy both ranges.
func (r Range) Overlaps(o Range) bool {
	if r.IsAny() || o.IsAny() {
		return true
	}
	for _, a := range r.clauses {
		for _, b := range o.clauses {
			if a.overlaps(b) {
				return true
			}
		}
	}
	return false
}

func (c clause) overlaps(o clause) bool {
	if c.upper != nil && o.lower != nil && c.upper.Compare(*o.lower) < 0 {
		return false
	}
	if o.upper != nil && c.lower != nil && o.upper.Compare(*c.lower) < 0 {
		return false
	}
	return true
}

// Within reports whether every version matched by r is also matched by o.
// It is used to pick the narrowest of several matching ranges.
func (r Range) Within(o Range) bool {
	if o.IsAny() {
		return true
	}
	if r.IsAny() {
		return false
	}
	for _, a := range r.clauses {
		inside := false
		for _, b := range o.clauses {
			if a.within(b) {
				inside = true
				break
			}
		}
		if !inside {
			return false
		}
	}
	return true
}

func (c clause) within(o clause) bool {
	if o.lower != nil && (c.lower == nil || compareLower(*c.lower, *o.lower) < 0) {
		return false
	}
	if o.upper != nil && (c.upper == nil || compareUpper(*c.upper, *o.upper) > 0) {
		return false
	}
	return true
}

// compareLower orders lower bounds. A shorter prefix starts earlier, so
// "10" is below "10.1".
func compareLower(a, b Version) int {
	if c := a.Compare(b); c != 0 {
		return c
	}
	return cmpInt(a.Precision, b.Precision)
}

// compareUpper orders upper bounds. A shorter prefix ends later, so
// ":10" reaches past ":10.1".
func compareUpper(a, b Version) int {
	if c := a.Compare(b); c != 0 {
		return c
	}
	return cmpInt(b.Precision, a.Precision)
}

// String returns the range in recipe syntax.
func (r Range) String() string {
	if r.IsAny() {
		return ":"
	}
	parts := make([]string, 0, len(r.clauses))
	for _, c := range r.clauses {
		parts = append(parts, c.String())
	}
	return strings.Join(parts, ",")
}

func (c clause) String() string {
	if c.point {
		return c.lower.Full()
	}
	var lo, hi string
	if c.lower != nil {
		lo = c.lower.Full()
	}
	if c.upper != nil {
		hi = c.upper.Full()
	}
	return lo + ":" + hi
}

// MarshalText implements encoding.TextMarshaler.
func (r Range) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler so ranges can be
// written as plain strings in YAML and JSON documents.
func (r *Range) UnmarshalText(b []byte) error {
	parsed, err := ParseRange(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
