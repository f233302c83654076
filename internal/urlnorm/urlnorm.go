// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package urlnorm derives canonical URLs used as same-provider identity keys.
package urlnorm

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
)

// trackingKeys are query parameters stripped during canonicalization.
var trackingKeys = map[string]bool{
	"utm_source":   true,
	"utm_medium":   true,
	"utm_campaign": true,
	"utm_term":     true,
	"utm_content":  true,
	"gclid":        true,
	"fbclid":       true,
	"msclkid":      true,
	"yclid":        true,
	"mc_eid":       true,
	"mc_cid":       true,
	"igshid":       true,
	"spm":          true,
	"ref":          true,
	"affid":        true,
	"affidname":    true,
	"tag":          true,
}

// trackingPrefixes strip whole parameter families (utm_*, ga_*, ...).
var trackingPrefixes = []string{"utm", "ga_", "icid", "mkt_"}

var multiSlash = regexp.MustCompile(`/{2,}`)

// EnsureAbsolute turns scheme-relative, www-prefixed, and bare-host URLs into
// absolute https URLs. Empty input stays empty.
func EnsureAbsolute(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	lowered := strings.ToLower(raw)
	switch {
	case strings.HasPrefix(lowered, "http://"), strings.HasPrefix(lowered, "https://"):
		return raw
	case strings.HasPrefix(raw, "//"):
		return "https:" + raw
	case strings.HasPrefix(raw, "www."):
		return "https://" + raw
	case strings.HasPrefix(raw, "/"):
		// Relative links from web-search payloads resolve against google.com.
		return "https://www.google.com" + raw
	case !strings.Contains(raw, "://"):
		return "https://" + raw
	}
	return raw
}

// Canonicalize returns the stable canonical form of a URL: https scheme,
// lowercased host without a leading www. or default port, collapsed slashes,
// no trailing slash, tracking parameters removed, remaining query pairs
// deduplicated and sorted, fragment dropped. Unparseable input yields "".
func Canonicalize(raw string) string {
	absolute := EnsureAbsolute(raw)
	if absolute == "" {
		return ""
	}
	u, err := url.Parse(absolute)
	if err != nil || u.Host == "" {
		return ""
	}

	host := strings.ToLower(u.Host)
	host = strings.TrimPrefix(host, "www.")
	if h, p, ok := strings.Cut(host, ":"); ok && (p == "443" || p == "80") {
		host = h
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	path = multiSlash.ReplaceAllString(path, "/")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if path != "/" {
		path = strings.TrimRight(path, "/")
		if path == "" {
			path = "/"
		}
	}

	query := canonicalQuery(u.Query())

	canon := "https://" + host + path
	if query != "" {
		canon += "?" + query
	}
	return canon
}

// MerchantDomain extracts the merchant domain (host without www.) from a URL.
// Unparseable input yields "unknown".
func MerchantDomain(raw string) string {
	absolute := EnsureAbsolute(raw)
	if absolute == "" {
		return "unknown"
	}
	u, err := url.Parse(absolute)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}

func canonicalQuery(values url.Values) string {
	type pair struct{ k, v string }
	var pairs []pair
	seen := make(map[pair]bool)

	for key, vals := range values {
		lower := strings.ToLower(key)
		if trackingKeys[lower] || hasTrackingPrefix(lower) {
			continue
		}
		for _, v := range vals {
			if v == "" {
				continue
			}
			p := pair{lower, v}
			if seen[p] {
				continue
			}
			seen[p] = true
			pairs = append(pairs, p)
		}
	}
	if len(pairs) == 0 {
		return ""
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].k != pairs[j].k {
			return pairs[i].k < pairs[j].k
		}
		return pairs[i].v < pairs[j].v
	})

	var b strings.Builder
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.v))
	}
	return b.String()
}

func hasTrackingPrefix(key string) bool {
	for _, prefix := range trackingPrefixes {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}
