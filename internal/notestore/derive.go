package notestore

import (
	"path"
	"regexp"
	"strings"

	"github.com/tbrandt/othala/internal/frontmatter"
)

var inlineTagRe = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)

// deriveTitle returns the frontmatter title if present, otherwise the first
// H1 heading, otherwise the filename stem.
func deriveTitle(notePath string, fm *frontmatter.Map, body string) string {
	if fm != nil {
		if v, ok := fm.Get("title"); ok && v.Kind() == frontmatter.KindString && v.AsString() != "" {
			return v.AsString()
		}
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return Stem(notePath)
}

// deriveTags returns the union of frontmatter tags and inline #tags from the
// body, first occurrence order, deduplicated.
func deriveTags(fm *frontmatter.Map, body string) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(t string) {
		t = strings.TrimSpace(t)
		if t == "" {
			return
		}
		if _, dup := seen[t]; dup {
			return
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}

	if fm != nil {
		if v, ok := fm.Get("tags"); ok {
			switch v.Kind() {
			case frontmatter.KindList:
				for _, item := range v.Items() {
					add(item.Text())
				}
			case frontmatter.KindString:
				add(v.AsString())
			}
		}
	}

	for _, m := range inlineTagRe.FindAllStringSubmatch(body, -1) {
		add(m[1])
	}
	return out
}

// Stem returns the filename without directory or .md extension, the
// identifier wikilinks resolve against.
func Stem(notePath string) string {
	base := path.Base(notePath)
	return strings.TrimSuffix(base, path.Ext(base))
}
