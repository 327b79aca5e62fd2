package research

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/errgroup"

	"subcon/internal/config"
	"subcon/internal/logging"
	"subcon/internal/types"
)

// Source is one search backend.
type Source interface {
	Name() string
	Search(ctx context.Context, query string, maxResults int) ([]Result, error)
}

const (
	summaryBudget = 300
	queryBudget   = 24
)

// Researcher fans a query out to its sources. It implements types.Searcher.
type Researcher struct {
	sources    []Source
	maxResults int
	cache      *expirable.LRU[string, string]

	// Summarizer enables the two-round refinement in Search.
	summarizer types.Generator
	refine     bool

	// Fetcher, when set, adds page text to the top results.
	fetcher *PageFetcher
}

// Option customizes a Researcher.
type Option func(*Researcher)

// WithSources replaces the default sources.
func WithSources(sources ...Source) Option {
	return func(r *Researcher) { r.sources = sources }
}

// WithSummarizer enables summarizing and, when refine is set, a second
// search round on a refined query.
func WithSummarizer(g types.Generator, refine bool) Option {
	return func(r *Researcher) { r.summarizer, r.refine = g, refine }
}

// WithPageFetcher enables page content for the top results. Nil disables it.
func WithPageFetcher(f *PageFetcher) Option {
	return func(r *Researcher) { r.fetcher = f }
}

// NewResearcher builds a researcher over DuckDuckGo web and news results and
// Wikipedia.
func NewResearcher(cfg config.ResearchConfig, timeout, ttl time.Duration, opts ...Option) *Researcher {
	client := &http.Client{Timeout: timeout}
	size := cfg.CacheSize
	if size <= 0 {
		size = 128
	}
	max := cfg.MaxResults
	if max <= 0 {
		max = 5
	}

	r := &Researcher{
		sources: []Source{
			&DuckDuckGo{BaseURL: cfg.DuckDuckGoURL, Client: client},
			&DuckDuckGo{BaseURL: cfg.DuckDuckGoURL, Client: client, News: true},
			&Wikipedia{BaseURL: cfg.WikipediaURL, Client: client},
		},
		maxResults: max,
		cache:      expirable.NewLRU[string, string](size, nil, ttl),
	}
	if cfg.FetchContent {
		r.fetcher = NewPageFetcher(client)
		if cfg.FetchPages > 0 {
			r.fetcher.MaxPages = cfg.FetchPages
		}
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Research queries every source concurrently and returns the deduplicated
// results in source order. A failing source is logged and skipped; it is an
// error only when every source fails. With a page fetcher the top results
// also carry the text of their pages.
func (r *Researcher) Research(ctx context.Context, query string) ([]Result, error) {
	timer := logging.StartTimer(logging.CategoryResearch, "Research")
	defer timer.Stop()

	perSource := make([][]Result, len(r.sources))
	errs := make([]error, len(r.sources))

	var g errgroup.Group
	for i, src := range r.sources {
		g.Go(func() error {
			res, err := src.Search(ctx, query, r.maxResults)
			if err != nil {
				logging.ResearchWarn("%s search failed: %v", src.Name(), err)
				errs[i] = fmt.Errorf("%s: %w", src.Name(), err)
				return nil
			}
			perSource[i] = res
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	var all []Result
	for i := range r.sources {
		if errs[i] != nil {
			failed++
		}
		all = append(all, perSource[i]...)
	}
	if failed > 0 && failed == len(r.sources) {
		return nil, errors.Join(errs...)
	}

	deduped := Dedupe(all)
	logging.ResearchDebug("%d results, %d after dedupe for %q", len(all), len(deduped), query)
	if r.fetcher != nil {
		r.fetcher.Enrich(ctx, deduped)
	}
	return deduped, nil
}

// Search implements types.Searcher. Results are cached per query. With a
// summarizer the formatted results are summarized; with refinement the
// summary seeds a second search and both rounds are summarized together.
func (r *Researcher) Search(ctx context.Context, query string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(query))
	if cached, ok := r.cache.Get(key); ok {
		logging.ResearchDebug("cache hit for %q", query)
		return cached, nil
	}

	results, err := r.Research(ctx, query)
	if err != nil {
		return "", err
	}
	info := Format(query, results)

	out := info
	if r.summarizer != nil {
		out = r.summarizeRounds(ctx, info)
	}
	r.cache.Add(key, out)
	return out, nil
}

func (r *Researcher) summarizeRounds(ctx context.Context, info string) string {
	summary, err := r.summarizer.Generate(ctx, summarizePrompt(info), summaryBudget, nil)
	if err != nil {
		logging.ResearchWarn("summary failed, using raw results: %v", err)
		return info
	}
	if !r.refine {
		return summary
	}

	refined, err := r.summarizer.Generate(ctx,
		"Take the central theme of this information and turn it into a keyword optimized web search "+
			"query. Return only the new query, nothing else:\n"+summary, queryBudget, nil)
	refined = strings.Trim(strings.TrimSpace(refined), `"`)
	if err != nil || refined == "" {
		logging.ResearchWarn("query refinement failed: %v", err)
		return summary
	}

	results, err := r.Research(ctx, refined)
	if err != nil {
		logging.ResearchWarn("second research round failed: %v", err)
		return summary
	}

	combined, err := r.summarizer.Generate(ctx, summarizePrompt(Format(refined, results)+"\n"+summary), summaryBudget, nil)
	if err != nil {
		logging.ResearchWarn("second summary failed: %v", err)
		return summary
	}
	logging.ResearchDebug("refined %q into a two-round summary", refined)
	return combined
}

func summarizePrompt(text string) string {
	return "You are a helpful text summarizer. Please as briefly as possible, without losing any information, summarize this text: " + text
}
