// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package origin

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// ErrOriginUnavailable is returned by Resolve when none of the three
// sources yields an origin.
var ErrOriginUnavailable = errors.New("origin: unable to retrieve the origin of the event")

// ErrInvalidURL is returned by Of and AppendQuery for URLs without a
// scheme or host.
var ErrInvalidURL = errors.New("origin: invalid url")

// defaultPorts are stripped from canonical origins.
var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
}

// Of returns the canonical origin of rawURL: lower-case scheme and
// host, plus the port when it is not the scheme's default. For example
// "HTTPS://B.example:443/page?x=1" becomes "https://b.example".
func Of(rawURL string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidURL, rawURL, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("%w: %q has no scheme or host", ErrInvalidURL, rawURL)
	}

	scheme := strings.ToLower(parsed.Scheme)
	host := strings.ToLower(parsed.Hostname())
	port := parsed.Port()
	if port == defaultPorts[scheme] {
		port = ""
	}

	if strings.Contains(host, ":") {
		// IPv6 literal.
		host = "[" + host + "]"
	}
	if port != "" {
		return scheme + "://" + host + ":" + port, nil
	}
	return scheme + "://" + host, nil
}

// Scheme returns the scheme of rawURL in the "https:" form (lower-case,
// with the trailing colon) used when combining it with a bare domain.
func Scheme(rawURL string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidURL, rawURL, err)
	}
	if parsed.Scheme == "" {
		return "", fmt.Errorf("%w: %q has no scheme", ErrInvalidURL, rawURL)
	}
	return strings.ToLower(parsed.Scheme) + ":", nil
}

// AppendQuery returns rawURL with params added to its query string.
// Existing parameters and the fragment are kept. Parameters are
// appended in key order so the result is deterministic.
func AppendQuery(rawURL string, params map[string]string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidURL, rawURL, err)
	}
	if len(params) == 0 {
		return parsed.String(), nil
	}

	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var builder strings.Builder
	builder.WriteString(parsed.RawQuery)
	for _, key := range keys {
		if builder.Len() > 0 {
			builder.WriteByte('&')
		}
		builder.WriteString(url.QueryEscape(key))
		builder.WriteByte('=')
		builder.WriteString(url.QueryEscape(params[key]))
	}
	parsed.RawQuery = builder.String()
	return parsed.String(), nil
}

// Source carries the origin information an inbound message event may
// provide. Platforms fill whichever fields they support.
type Source struct {
	// Origin is the explicit origin of the sender.
	Origin string

	// URI is the full URL of the sender's document, from platforms
	// that predate the origin field.
	URI string

	// Domain is the sender's host name only, from the oldest
	// platforms.
	Domain string
}

// Resolve returns the sender origin described by source. localScheme
// is the local page's scheme in "https:" form and is only consulted
// by the domain-only fallback. See the package documentation for the
// precedence rules and the caveat on the domain fallback.
func Resolve(source Source, localScheme string) (string, error) {
	if source.Origin != "" {
		return source.Origin, nil
	}
	if source.URI != "" {
		return Of(source.URI)
	}
	if source.Domain != "" {
		return localScheme + "//" + source.Domain, nil
	}
	return "", ErrOriginUnavailable
}
