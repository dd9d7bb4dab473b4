// Package urlutil normalizes URLs into stable deduplication keys and
// decides site membership by registrable domain.
package urlutil

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// ErrInvalidURL is returned when a URL cannot be canonicalized.
var ErrInvalidURL = errors.New("invalid url")

// Canonicalize standardizes a URL so that semantically identical requests
// compare equal. It lowercases the scheme and host, defaults an empty path
// to "/", drops the fragment, and sorts raw query pairs lexicographically.
func Canonicalize(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidURL, rawURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%w: %q is not absolute", ErrInvalidURL, rawURL)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Path == "" {
		u.Path = "/"
	}
	u.Fragment = ""
	u.RawQuery = sortedQuery(u.RawQuery)

	return u.String(), nil
}

// sortedQuery sorts raw key=value pairs and drops empty fragments so that
// parameter order never affects the canonical form.
func sortedQuery(raw string) string {
	if raw == "" {
		return ""
	}
	parts := strings.Split(raw, "&")
	pairs := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			pairs = append(pairs, p)
		}
	}
	sort.Strings(pairs)
	return strings.Join(pairs, "&")
}

// SameSite reports whether candidate belongs to the same registrable
// domain as seed, so subdomains of the seed stay in scope. Only http and
// https candidates qualify.
func SameSite(seed, candidate string) bool {
	s, err := url.Parse(seed)
	if err != nil {
		return false
	}
	c, err := url.Parse(candidate)
	if err != nil {
		return false
	}
	if c.Scheme != "http" && c.Scheme != "https" {
		return false
	}
	seedDomain, err := RegistrableDomain(s.Hostname())
	if err != nil {
		return false
	}
	candDomain, err := RegistrableDomain(c.Hostname())
	if err != nil {
		return false
	}
	return seedDomain == candDomain
}

// RegistrableDomain returns the effective TLD plus one label for host.
func RegistrableDomain(host string) (string, error) {
	domain, err := publicsuffix.EffectiveTLDPlusOne(strings.ToLower(host))
	if err != nil {
		return "", fmt.Errorf("registrable domain for %q: %w", host, err)
	}
	return domain, nil
}

// Absolute resolves maybe against base and reports whether the result is a
// usable http(s) URL.
func Absolute(base, maybe string) (string, bool) {
	if maybe == "" {
		return "", false
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", false
	}
	ref, err := url.Parse(strings.TrimSpace(maybe))
	if err != nil {
		return "", false
	}
	abs := b.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return "", false
	}
	return abs.String(), true
}
