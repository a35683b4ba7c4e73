// Package graph extracts wikilinks from note bodies and builds the
// directed link graph over the vault.
package graph

import (
	"regexp"
	"strings"
)

var wikilinkRe = regexp.MustCompile(`\[\[(.*?)\]\]`)

// Link is one [[Target]] or [[Target|Display]] occurrence in a note body.
type Link struct {
	Target  string
	Display string
}

// ExtractLinks returns every wikilink in body in order of first occurrence.
// Repeated targets are kept once; an alias sets the display text.
func ExtractLinks(body string) []Link {
	matches := wikilinkRe.FindAllStringSubmatch(body, -1)
	seen := make(map[string]struct{}, len(matches))
	var out []Link
	for _, m := range matches {
		raw := m[1]
		target, display := raw, ""
		if i := strings.Index(raw, "|"); i >= 0 {
			target, display = raw[:i], strings.TrimSpace(raw[i+1:])
		}
		target = strings.TrimSpace(target)
		if target == "" {
			continue
		}
		if _, dup := seen[target]; dup {
			continue
		}
		seen[target] = struct{}{}
		out = append(out, Link{Target: target, Display: display})
	}
	return out
}

// Format renders a link back to wikilink syntax.
func Format(target, display string) string {
	if display != "" && display != target {
		return "[[" + target + "|" + display + "]]"
	}
	return "[[" + target + "]]"
}
