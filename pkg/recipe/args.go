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
	"strings"

	"github.com/NVIDIA/hpc-recipes/pkg/version"
)

// ArgStep contributes tokens to an argument list. A step carries either
// plain Tokens, guarded by When, or a Branch.
type ArgStep struct {
	Tokens []string
	When   Condition
	Branch *Branch
}

// Branch picks one token sequence by version. Cases must not overlap;
// Validate enforces that. When a version falls in several cases anyway,
// the narrowest range wins. Default applies when no case matches.
type Branch struct {
	Cases   []BranchCase
	Default []string
}

// BranchCase is one arm of a Branch.
type BranchCase struct {
	Versions version.Range
	Tokens   []string
}

// Validate rejects branches whose cases can match the same version.
func (b *Branch) Validate() error {
	for i := range b.Cases {
		if b.Cases[i].Versions.IsAny() {
			return fmt.Errorf("branch case %d has no version range, use Default", i)
		}
		for j := i + 1; j < len(b.Cases); j++ {
			if b.Cases[i].Versions.Overlaps(b.Cases[j].Versions) {
				return fmt.Errorf("branch cases @%s and @%s overlap",
					b.Cases[i].Versions, b.Cases[j].Versions)
			}
		}
	}
	return nil
}

// Select returns the tokens for v.
func (b *Branch) Select(v version.Version) []string {
	var best *BranchCase
	for i := range b.Cases {
		c := &b.Cases[i]
		if !c.Versions.Contains(v) {
			continue
		}
		if best == nil || (c.Versions.Within(best.Versions) && !best.Versions.Within(c.Versions)) {
			best = c
		}
	}
	if best == nil {
		return b.Default
	}
	return best.Tokens
}

// ArgList is an ordered installer command line built from conditional steps.
//
//	args := recipe.ArgList{
//		{Tokens: []string{"{runfile}", "--silent"}},
//		{Branch: &recipe.Branch{
//			Cases:   []recipe.BranchCase{{Versions: version.MustParseRange("10.1:"), Tokens: []string{"--installpath={prefix}"}}},
//			Default: []string{"--verbose", "--toolkitpath={prefix}"},
//		}},
//	}
type ArgList []ArgStep

// Always returns a step that is always emitted.
func Always(tokens ...string) ArgStep {
	return ArgStep{Tokens: tokens}
}

// When returns a step emitted only for specs matching cond.
func When(cond string, tokens ...string) ArgStep {
	return ArgStep{When: MustParseCondition(cond), Tokens: tokens}
}

// ByVersion returns a branch step.
func ByVersion(def []string, cases ...BranchCase) ArgStep {
	return ArgStep{Branch: &Branch{Cases: cases, Default: def}}
}

// Case returns a branch case for the range expression r.
func Case(r string, tokens ...string) BranchCase {
	return BranchCase{Versions: version.MustParseRange(r), Tokens: tokens}
}

// Validate checks every branch in the list.
func (a ArgList) Validate() error {
	for i, step := range a {
		if step.Branch == nil {
			continue
		}
		if len(step.Tokens) > 0 {
			return fmt.Errorf("step %d: a step has either tokens or a branch", i)
		}
		if err := step.Branch.Validate(); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
	}
	return nil
}

// Build returns the tokens for spec in declaration order. Placeholders
// written as {name} are replaced from vars.
func (a ArgList) Build(spec *ResolvedSpec, vars map[string]string) []string {
	pairs := make([]string, 0, 2*len(vars))
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	r := strings.NewReplacer(pairs...)

	var out []string
	for _, step := range a {
		var tokens []string
		switch {
		case step.Branch != nil:
			tokens = step.Branch.Select(spec.Version)
		case step.When.Matches(spec):
			tokens = step.Tokens
		}
		for _, t := range tokens {
			out = append(out, r.Replace(t))
		}
	}
	return out
}
