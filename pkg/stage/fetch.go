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

package stage

import (
	"context"
	"crypto/sha256"
	"crypto/tls"
	"encoding/hex"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/NVIDIA/hpc-recipes/pkg/defaults"
)

const (
	// FetcherUserAgent identifies downloads to mirrors.
	FetcherUserAgent = "hpcr-fetcher/1.0"
)

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithUserAgent sets the User-Agent header.
func WithUserAgent(userAgent string) FetcherOption {
	return func(f *Fetcher) {
		f.userAgent = userAgent
	}
}

// WithTimeout bounds a complete download.
func WithTimeout(timeout time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.client.Timeout = timeout
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(client *http.Client) FetcherOption {
	return func(f *Fetcher) {
		f.client = client
	}
}

// Fetcher downloads artifacts over HTTP(S) or from file:// URLs and
// verifies their sha256 digest.
type Fetcher struct {
	userAgent string
	client    *http.Client
}

// NewFetcher returns a Fetcher with timeouts from defaults.
func NewFetcher(opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		userAgent: FetcherUserAgent,
		client: &http.Client{
			Timeout:   defaults.FetchTimeout,
			Transport: newTransport(),
		},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func newTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   defaults.HTTPConnectTimeout,
			KeepAlive: defaults.HTTPKeepAlive,
		}).DialContext,
		TLSHandshakeTimeout:   defaults.HTTPTLSHandshakeTimeout,
		ResponseHeaderTimeout: defaults.HTTPResponseHeaderTimeout,
		IdleConnTimeout:       defaults.HTTPIdleConnTimeout,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          10,
		ForceAttemptHTTP2:     true,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	}
}

// ChecksumError reports a digest mismatch.
type ChecksumError struct {
	URL  string
	Want string
	Got  string
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("sha256 mismatch for %s: got %s want %s", e.URL, e.Got, e.Want)
}

// Download writes the artifact at rawURL to dest. The data goes to
// dest+".part" first and is renamed only once the digest matches want.
// An empty want skips verification.
func (f *Fetcher) Download(ctx context.Context, rawURL, dest, want string) error {
	if rawURL == "" {
		return fmt.Errorf("url is empty")
	}

	body, err := f.open(ctx, rawURL)
	if err != nil {
		return err
	}
	defer body.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(dest), err)
	}

	tmp := dest + ".part"
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", tmp, err)
	}

	h := sha256.New()
	_, copyErr := io.Copy(io.MultiWriter(out, h), body)
	closeErr := out.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(tmp)
		if copyErr != nil {
			return fmt.Errorf("failed to download %s: %w", rawURL, copyErr)
		}
		return fmt.Errorf("failed to write %s: %w", tmp, closeErr)
	}

	got := hex.EncodeToString(h.Sum(nil))
	if want != "" && !strings.EqualFold(got, want) {
		_ = os.Remove(tmp)
		return &ChecksumError{URL: rawURL, Want: want, Got: got}
	}

	if err := os.Rename(tmp, dest); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to move %s into place: %w", dest, err)
	}
	return nil
}

func (f *Fetcher) open(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url %s: %w", rawURL, err)
	}

	if u.Scheme == "file" {
		file, err := os.Open(u.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", u.Path, err)
		}
		return file, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for url %s: %w", rawURL, err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed for url %s: %w", rawURL, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("failed to fetch %s: status %s", rawURL, resp.Status)
	}
	return resp.Body, nil
}
