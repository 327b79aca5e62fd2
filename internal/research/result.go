// Package research gathers web context for a query from DuckDuckGo and
// Wikipedia, removes duplicates and formats the results as prompt context.
package research

import (
	"fmt"
	"regexp"
	"strings"
)

// Source labels where a result came from.
const (
	SourceWeb       = "Web"
	SourceNews      = "News"
	SourceWikipedia = "Wikipedia"
)

// Result is one search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
	Extract string `json:"extract,omitempty"` // article introduction, Wikipedia only
	Content string `json:"content,omitempty"` // main text of the fetched page
	Source  string `json:"source"`
}

var wordPattern = regexp.MustCompile(`\w+`)

// normalizeURL drops query string and fragment, lowercases and trims the
// trailing slash.
func normalizeURL(u string) string {
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	return strings.TrimRight(strings.ToLower(u), "/")
}

// titleSignature concatenates the first four letters of every title word
// longer than three letters.
func titleSignature(title string) string {
	var sb strings.Builder
	for _, w := range wordPattern.FindAllString(title, -1) {
		rs := []rune(strings.ToLower(w))
		if len(rs) <= 3 {
			continue
		}
		sb.WriteString(string(rs[:4]))
	}
	return sb.String()
}

// Dedupe drops results whose normalized URL or title signature was already
// seen, keeping the first occurrence.
func Dedupe(results []Result) []Result {
	seenURL := make(map[string]bool)
	seenTitle := make(map[string]bool)
	out := make([]Result, 0, len(results))
	for _, r := range results {
		if u := normalizeURL(r.URL); u != "" {
			if seenURL[u] {
				continue
			}
			seenURL[u] = true
		}
		if sig := titleSignature(r.Title); sig != "" {
			if seenTitle[sig] {
				continue
			}
			seenTitle[sig] = true
		}
		out = append(out, r)
	}
	return out
}

// Format renders results grouped by source, Wikipedia first.
func Format(query string, results []Result) string {
	if len(results) == 0 {
		return fmt.Sprintf("No information found for: '%s'", query)
	}

	groups := map[string][]Result{}
	for _, r := range results {
		groups[r.Source] = append(groups[r.Source], r)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Research results for: '%s'\n", query)
	fmt.Fprintf(&sb, "Found %d unique results\n\n", len(results))

	for _, section := range []struct{ source, header string }{
		{SourceWikipedia, "=== WIKIPEDIA RESULTS ==="},
		{SourceNews, "=== NEWS RESULTS ==="},
		{SourceWeb, "=== WEB RESULTS ==="},
	} {
		rs := groups[section.source]
		if len(rs) == 0 {
			continue
		}
		sb.WriteString(section.header + "\n\n")
		for i, r := range rs {
			fmt.Fprintf(&sb, "%d. %s\n   URL: %s\n", i+1, r.Title, r.URL)
			body := r.Snippet
			if r.Extract != "" {
				body = r.Extract
			}
			if body != "" {
				fmt.Fprintf(&sb, "   %s\n", body)
			}
			if r.Content != "" {
				fmt.Fprintf(&sb, "   Content: %s\n", contentPreview(r.Content))
			}
			sb.WriteString("\n")
		}
	}
	return strings.TrimSpace(sb.String())
}

const contentPreviewLen = 800

// contentPreview collapses blank lines and caps page text for the prompt.
func contentPreview(content string) string {
	content = strings.ReplaceAll(content, "\n\n", "\n")
	if rs := []rune(content); len(rs) > contentPreviewLen {
		return string(rs[:contentPreviewLen]) + "..."
	}
	return content
}
