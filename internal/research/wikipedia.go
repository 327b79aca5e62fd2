package research

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"subcon/internal/logging"
)

// Wikipedia searches the MediaWiki API and returns article introductions.
type Wikipedia struct {
	BaseURL string
	Client  *http.Client
}

func (w *Wikipedia) Name() string { return "wikipedia" }

type wikiResponse struct {
	Query struct {
		Pages map[string]struct {
			Title   string `json:"title"`
			Extract string `json:"extract"`
			FullURL string `json:"fullurl"`
			Index   int    `json:"index"`
		} `json:"pages"`
	} `json:"query"`
}

func (w *Wikipedia) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	params := url.Values{
		"action":      {"query"},
		"format":      {"json"},
		"generator":   {"search"},
		"gsrsearch":   {query},
		"gsrlimit":    {strconv.Itoa(maxResults)},
		"prop":        {"extracts|info"},
		"exintro":     {"1"},
		"explaintext": {"1"},
		"inprop":      {"url"},
		"utf8":        {"1"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := w.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	var data wikiResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	type ranked struct {
		index int
		r     Result
	}
	var hits []ranked
	for _, p := range data.Query.Pages {
		hits = append(hits, ranked{index: p.Index, r: Result{
			Title:   p.Title,
			URL:     p.FullURL,
			Snippet: firstSentence(p.Extract),
			Extract: firstParagraphs(p.Extract, 3),
			Source:  SourceWikipedia,
		}})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].index < hits[j].index })

	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		results = append(results, h.r)
	}
	logging.ResearchDebug("wikipedia: %d results for %q", len(results), query)
	return results, nil
}

func firstParagraphs(text string, n int) string {
	paras := strings.Split(strings.TrimSpace(text), "\n")
	var kept []string
	for _, p := range paras {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
		if len(kept) == n {
			break
		}
	}
	return strings.Join(kept, "\n   ")
}

func firstSentence(text string) string {
	text = strings.TrimSpace(text)
	if i := strings.Index(text, ". "); i >= 0 {
		return text[:i+1]
	}
	return text
}
