// Package widget is the Go client for the Snapback widget surface. It mirrors
// what the browser embed does: decide visibility from URL patterns, fetch the
// init configuration once, and submit feedback with client-side validation.
package widget

import (
	"strings"

	"github.com/rs/zerolog/log"
)

// PatternInclude and PatternExclude are the two pattern kinds. Any other
// value marks the pattern malformed and it is skipped.
const (
	PatternInclude = "include"
	PatternExclude = "exclude"
)

// URLPattern pairs a match expression with its effect. The expression is
// either an exact URL or a glob where '*' matches any run of characters.
type URLPattern struct {
	Pattern string `json:"pattern"`
	Type    string `json:"type"`
}

// Visible decides whether the widget shows on the given page URL.
//
// Patterns are evaluated in order and the last matching pattern wins: a final
// include overrides any earlier exclude and vice versa. With no patterns, or
// none matching, the widget is visible. Malformed entries (empty pattern,
// unknown type) are logged and never match, so a bad dashboard entry can
// never blank out the widget everywhere.
func Visible(pageURL string, patterns []URLPattern) bool {
	visible := true
	for _, p := range patterns {
		if p.Pattern == "" || (p.Type != PatternInclude && p.Type != PatternExclude) {
			log.Warn().Str("pattern", p.Pattern).Str("type", p.Type).
				Msg("skipping malformed url pattern")
			continue
		}
		if !matchGlob(p.Pattern, pageURL) {
			continue
		}
		visible = p.Type == PatternInclude
	}
	return visible
}

// matchGlob reports whether url matches pattern, where '*' matches any run
// of characters (including none). A pattern without '*' must match exactly.
func matchGlob(pattern, url string) bool {
	if !strings.Contains(pattern, "*") {
		return pattern == url
	}
	parts := strings.Split(pattern, "*")

	// Leading literal must anchor at the start.
	if parts[0] != "" && !strings.HasPrefix(url, parts[0]) {
		return false
	}
	// Trailing literal must anchor at the end.
	last := parts[len(parts)-1]
	if last != "" && !strings.HasSuffix(url, last) {
		return false
	}

	rest := url[len(parts[0]):]
	for _, part := range parts[1 : len(parts)-1] {
		if part == "" {
			continue
		}
		idx := strings.Index(rest, part)
		if idx < 0 {
			return false
		}
		rest = rest[idx+len(part):]
	}
	// The trailing literal must still fit after the middle segments.
	return last == "" || len(rest) >= len(last)
}
