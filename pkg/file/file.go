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

package file

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"
)

const defaultMaxSize = 1 << 20

// Option configures a Parser.
type Option func(*Parser)

// Parser splits text into entries and key/value pairs.
type Parser struct {
	delimiter    string
	maxSize      int
	skipComments bool
	kvDelimiter  string
	vTrimChars   string
}

// WithDelimiter sets the entry delimiter. Default is "\n".
func WithDelimiter(delim string) Option {
	return func(p *Parser) {
		p.delimiter = delim
	}
}

// WithMaxSize sets the maximum accepted content size in bytes. Default is 1MB.
func WithMaxSize(size int) Option {
	return func(p *Parser) {
		p.maxSize = size
	}
}

// WithSkipComments controls whether lines starting with '#' are dropped.
// Default is true.
func WithSkipComments(skip bool) Option {
	return func(p *Parser) {
		p.skipComments = skip
	}
}

// WithKVDelimiter sets the key/value separator. Default is "=".
func WithKVDelimiter(kvDelim string) Option {
	return func(p *Parser) {
		p.kvDelimiter = kvDelim
	}
}

// WithVTrimChars sets characters trimmed from both ends of values.
func WithVTrimChars(trimChars string) Option {
	return func(p *Parser) {
		p.vTrimChars = trimChars
	}
}

// NewParser returns a Parser with the given options applied.
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		delimiter:    "\n",
		maxSize:      defaultMaxSize,
		skipComments: true,
		kvDelimiter:  "=",
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ReadLines reads the file at path and returns its non-empty entries.
func (p *Parser) ReadLines(path string) ([]string, error) {
	if path == "" {
		return nil, fmt.Errorf("file path cannot be empty")
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %q: %w", path, err)
	}

	lines, err := p.Lines(string(b))
	if err != nil {
		return nil, fmt.Errorf("file %q: %w", path, err)
	}
	return lines, nil
}

// Lines splits content on the configured delimiter, trimming whitespace and
// dropping empty entries (and comments when enabled).
func (p *Parser) Lines(content string) ([]string, error) {
	if !utf8.ValidString(content) {
		return nil, fmt.Errorf("content is not valid UTF-8")
	}
	if len(content) > p.maxSize {
		return nil, fmt.Errorf("content exceeds maximum size of %d bytes", p.maxSize)
	}

	parts := strings.Split(content, p.delimiter)
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		clean := strings.TrimSpace(part)
		if clean == "" {
			continue
		}
		if p.skipComments && strings.HasPrefix(clean, "#") {
			continue
		}
		result = append(result, clean)
	}
	return result, nil
}

// ReadMap reads the file at path and parses each entry as key/value.
func (p *Parser) ReadMap(path string) (map[string]string, error) {
	lines, err := p.ReadLines(path)
	if err != nil {
		return nil, err
	}
	return p.Map(lines), nil
}

// Map turns entries into key/value pairs. Entries without the delimiter map
// to an empty value. Later keys override earlier ones.
func (p *Parser) Map(lines []string) map[string]string {
	result := make(map[string]string, len(lines))
	for _, line := range lines {
		key, value, found := strings.Cut(line, p.kvDelimiter)
		key = strings.TrimSpace(key)
		if !found {
			slog.Debug("entry without value", "key", key, "delimiter", p.kvDelimiter)
			result[key] = ""
			continue
		}
		value = strings.TrimSpace(value)
		if p.vTrimChars != "" {
			value = strings.Trim(value, p.vTrimChars)
		}
		result[key] = value
	}
	return result
}
