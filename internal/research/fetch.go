package research

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"

	"subcon/internal/logging"
)

const (
	defaultFetchPages   = 8
	defaultParagraphs   = 5
	defaultFetchWorkers = 5
	minParagraphLen     = 40
)

var documentExts = map[string]bool{
	".pdf": true, ".doc": true, ".docx": true, ".ppt": true,
	".pptx": true, ".xls": true, ".xlsx": true,
}

// skippedElements never contribute page text.
var skippedElements = map[string]bool{
	"script": true, "style": true, "nav": true, "footer": true,
	"header": true, "aside": true, "noscript": true, "form": true,
}

// PageFetcher pulls the main text of result pages.
type PageFetcher struct {
	Client        *http.Client
	MaxPages      int // results enriched per search
	MaxParagraphs int // body parts kept per page; major headings are always kept
	Workers       int
}

// NewPageFetcher returns a fetcher with the default limits.
func NewPageFetcher(client *http.Client) *PageFetcher {
	return &PageFetcher{
		Client:        client,
		MaxPages:      defaultFetchPages,
		MaxParagraphs: defaultParagraphs,
		Workers:       defaultFetchWorkers,
	}
}

// IsDocumentLink reports whether link points at an office or PDF document.
func IsDocumentLink(link string) bool {
	if i := strings.IndexAny(link, "?#"); i >= 0 {
		link = link[:i]
	}
	return documentExts[strings.ToLower(path.Ext(link))]
}

// Enrich fills Content for the first MaxPages results that have a fetchable
// link. Failed pages are logged and left empty.
func (f *PageFetcher) Enrich(ctx context.Context, results []Result) {
	timer := logging.StartTimer(logging.CategoryResearch, "Enrich")
	defer timer.Stop()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(f.Workers, 1))

	limit := min(len(results), f.MaxPages)
	for i := 0; i < limit; i++ {
		link := results[i].URL
		if link == "" || IsDocumentLink(link) {
			continue
		}
		g.Go(func() error {
			content, err := f.Fetch(ctx, link)
			if err != nil {
				logging.ResearchDebug("fetch %s: %v", link, err)
				return nil
			}
			results[i].Content = content
			return nil
		})
	}
	_ = g.Wait()
}

// Fetch downloads link and returns its main text. Non-HTML responses yield
// an empty string.
func (f *PageFetcher) Fetch(ctx context.Context, link string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := f.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}
	if ct := strings.ToLower(resp.Header.Get("Content-Type")); !strings.Contains(ct, "text/html") {
		return "", nil
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}
	return extractMainText(doc, f.MaxParagraphs), nil
}

// extractMainText keeps h1-h3 headings, paragraphs longer than 40 characters
// and list items from the page's main region, capped at maxParts body parts.
func extractMainText(doc *html.Node, maxParts int) string {
	root := findMainRegion(doc)
	if root == nil {
		return ""
	}

	var sb strings.Builder
	parts := 0
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if skippedElements[n.Data] {
				return
			}
			switch n.Data {
			case "h1", "h2", "h3":
				if text := getTextContent(n); text != "" {
					level := int(n.Data[1] - '0')
					fmt.Fprintf(&sb, "%s %s\n\n", strings.Repeat("#", level), text)
					parts++
				}
				return
			case "p":
				if parts >= maxParts {
					return
				}
				if text := getTextContent(n); len(text) > minParagraphLen {
					sb.WriteString(text + "\n\n")
					parts++
				}
				return
			case "li":
				if parts >= maxParts {
					return
				}
				if text := getTextContent(n); text != "" {
					sb.WriteString("- " + text + "\n")
					parts++
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return strings.TrimSpace(sb.String())
}

// findMainRegion prefers <main>, then <article>, then a content container,
// then <body>.
func findMainRegion(doc *html.Node) *html.Node {
	for _, match := range []func(*html.Node) bool{
		func(n *html.Node) bool { return n.Data == "main" },
		func(n *html.Node) bool { return n.Data == "article" },
		func(n *html.Node) bool {
			id := getAttrValue(n, "id")
			return id == "content" || id == "main-content" ||
				strings.Contains(" "+getAttrValue(n, "class")+" ", " content ")
		},
		func(n *html.Node) bool { return n.Data == "body" },
	} {
		if n := findElement(doc, match); n != nil {
			return n
		}
	}
	return nil
}

func findElement(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, match); found != nil {
			return found
		}
	}
	return nil
}
