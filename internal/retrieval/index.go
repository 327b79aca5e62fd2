// Package retrieval answers queries from a local document corpus. Documents
// are split into paragraph chunks and scored by keyword overlap, or by
// embedding similarity when an engine is configured.
package retrieval

import (
	"context"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"subcon/internal/config"
	"subcon/internal/embedding"
	"subcon/internal/logging"
)

// Options configures an Index.
type Options struct {
	Dir       string
	ChunkSize int // max characters per chunk
	TopK      int

	// Engine switches scoring to cosine similarity. Nil uses keywords.
	Engine embedding.Engine
}

// OptionsFrom maps the file configuration onto Options.
func OptionsFrom(cfg config.RetrievalConfig, engine embedding.Engine) Options {
	return Options{
		Dir:       cfg.CorpusDir,
		ChunkSize: cfg.ChunkSize,
		TopK:      cfg.TopK,
		Engine:    engine,
	}
}

// Chunk is one scored unit of a document.
type Chunk struct {
	Source string // path relative to the corpus dir
	Text   string

	terms map[string]int
}

// Index holds the chunked corpus. It is safe for concurrent use; Load swaps
// the whole index atomically.
type Index struct {
	opts Options

	mu      sync.RWMutex
	chunks  []Chunk
	vectors [][]float32
}

// NewIndex creates an empty index. Call Load before Retrieve.
func NewIndex(opts Options) *Index {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 800
	}
	if opts.TopK <= 0 {
		opts.TopK = 3
	}
	return &Index{opts: opts}
}

// Len returns the number of chunks.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.chunks)
}

// Chunks returns a copy of the indexed chunks.
func (ix *Index) Chunks() []Chunk {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]Chunk, len(ix.chunks))
	copy(out, ix.chunks)
	return out
}

func isCorpusFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md":
		return true
	}
	return false
}

// Load reads every .txt and .md file under the corpus directory and rebuilds
// the index. A missing directory yields an empty index.
func (ix *Index) Load(ctx context.Context) error {
	timer := logging.StartTimer(logging.CategoryRetrieval, "Index.Load")
	defer timer.Stop()

	var paths []string
	err := filepath.WalkDir(ix.opts.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && isCorpusFile(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("scan corpus %s: %w", ix.opts.Dir, err)
	}
	sort.Strings(paths)

	perFile := make([][]Chunk, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			rel, _ := filepath.Rel(ix.opts.Dir, path)
			perFile[i] = chunkDocument(filepath.ToSlash(rel), string(data), ix.opts.ChunkSize)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var chunks []Chunk
	for _, c := range perFile {
		chunks = append(chunks, c...)
	}

	var vectors [][]float32
	if ix.opts.Engine != nil && len(chunks) > 0 {
		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Text
		}
		vectors, err = ix.opts.Engine.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed corpus: %w", err)
		}
	}

	ix.mu.Lock()
	ix.chunks, ix.vectors = chunks, vectors
	ix.mu.Unlock()

	logging.Retrieval("Indexed %d chunks from %d documents in %s", len(chunks), len(paths), ix.opts.Dir)
	return nil
}

// chunkDocument groups blank-line separated paragraphs into chunks of at
// most size characters. Oversized paragraphs are split on word boundaries.
func chunkDocument(source, text string, size int) []Chunk {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var (
		chunks []Chunk
		buf    strings.Builder
	)
	emit := func() {
		if s := strings.TrimSpace(buf.String()); s != "" {
			chunks = append(chunks, Chunk{Source: source, Text: s, terms: termCounts(Terms(s))})
		}
		buf.Reset()
	}

	for _, para := range strings.Split(text, "\n\n") {
		para = strings.Join(strings.Fields(para), " ")
		if para == "" {
			continue
		}
		for _, piece := range splitWords(para, size) {
			if buf.Len() > 0 && buf.Len()+2+len(piece) > size {
				emit()
			}
			if buf.Len() > 0 {
				buf.WriteString("\n\n")
			}
			buf.WriteString(piece)
		}
	}
	emit()
	return chunks
}

func splitWords(s string, size int) []string {
	if len(s) <= size {
		return []string{s}
	}
	var (
		out  []string
		line strings.Builder
	)
	for _, w := range strings.Fields(s) {
		if line.Len() > 0 && line.Len()+1+len(w) > size {
			out = append(out, line.String())
			line.Reset()
		}
		if line.Len() > 0 {
			line.WriteByte(' ')
		}
		line.WriteString(w)
	}
	if line.Len() > 0 {
		out = append(out, line.String())
	}
	return out
}

type scored struct {
	idx   int
	score float64
}

// Retrieve implements types.Retriever. It returns the best TopK chunks, most
// relevant first, or "" when nothing matches.
func (ix *Index) Retrieve(ctx context.Context, query string) (string, error) {
	ix.mu.RLock()
	chunks, vectors := ix.chunks, ix.vectors
	ix.mu.RUnlock()

	if len(chunks) == 0 || strings.TrimSpace(query) == "" {
		return "", nil
	}

	var hits []scored
	if ix.opts.Engine != nil && len(vectors) == len(chunks) {
		q, err := ix.opts.Engine.Embed(ctx, query)
		if err != nil {
			return "", fmt.Errorf("embed query: %w", err)
		}
		for _, r := range embedding.FindTopK(q, vectors, ix.opts.TopK) {
			if r.Similarity > 0 {
				hits = append(hits, scored{idx: r.Index, score: r.Similarity})
			}
		}
	} else {
		hits = keywordScores(chunks, uniqueStrings(Terms(query)), ix.opts.TopK)
	}

	if len(hits) == 0 {
		logging.RetrievalDebug("no chunk matched %q", query)
		return "", nil
	}

	parts := make([]string, len(hits))
	for i, h := range hits {
		parts[i] = fmt.Sprintf("[%s]\n%s", chunks[h.idx].Source, chunks[h.idx].Text)
	}
	logging.RetrievalDebug("retrieved %d chunks for %q", len(hits), query)
	return strings.Join(parts, "\n\n"), nil
}

// keywordScores ranks chunks by the number of distinct query terms they
// contain, with a dampened term-frequency bonus breaking ties.
func keywordScores(chunks []Chunk, query []string, k int) []scored {
	if len(query) == 0 {
		return nil
	}
	var hits []scored
	for i, c := range chunks {
		var score float64
		for _, t := range query {
			if n := c.terms[t]; n > 0 {
				score += 1 + 0.1*math.Log(float64(n))
			}
		}
		if score > 0 {
			hits = append(hits, scored{idx: i, score: score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}
