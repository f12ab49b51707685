package service

import (
	"fmt"
	"net/url"
	"strings"
)

// URLBuilder turns a captured path and a raw query into an upstream URL.
type URLBuilder struct {
	origin string
}

// NewURLBuilder parses base once so a malformed origin fails at startup.
func NewURLBuilder(base string) (*URLBuilder, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse upstream base_url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("upstream base_url %q must be absolute", base)
	}
	return &URLBuilder{origin: strings.TrimRight(base, "/")}, nil
}

// Build returns <origin>/<path>, plus ?<rawQuery> when rawQuery is non-empty.
// rawQuery is appended byte for byte; it is never parsed or re-encoded.
func (b *URLBuilder) Build(path, rawQuery string) string {
	target := b.origin + "/" + path
	if rawQuery != "" {
		target += "?" + rawQuery
	}
	return target
}

// Origin returns the base URL without a trailing slash.
func (b *URLBuilder) Origin() string {
	return b.origin
}
