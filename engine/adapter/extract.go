package adapter

import "regexp"

// extractField returns the first capture group of pattern matched against
// html, or ("", false) if there is no match. Every concrete adapter's
// iface_fx leans on small anchored patterns like this rather than a full
// HTML parser, since the profile/listing pages scraped here are templated
// and the fields of interest sit in predictable, narrow markup.
func extractField(html string, pattern *regexp.Regexp) (string, bool) {
	m := pattern.FindStringSubmatch(html)
	if len(m) < 2 {
		return "", false
	}
	return m[1], true
}

// extractAll returns every match's first capture group.
func extractAll(html string, pattern *regexp.Regexp) []string {
	matches := pattern.FindAllStringSubmatch(html, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if len(m) >= 2 {
			out = append(out, m[1])
		}
	}
	return out
}
