package chunking

import (
	"context"
	"strings"

	"github.com/sweetpotato0/enrichrag/rag/document"
	"github.com/sweetpotato0/enrichrag/rag/tokenizer"
)

// Chunker splits documents into chunks that can be embedded and indexed.
type Chunker interface {
	Chunk(ctx context.Context, doc document.Document) ([]document.Chunk, error)
}

type Options struct {
	ChunkSize   int
	Overlap     int
	Separator   string
	IncludeMeta bool
	Tokenizer   tokenizer.Tokenizer
}

// SimpleChunker splits documents by separator, then windows long parts.
// Sizes are measured in tokens of the configured tokenizer (runes by default).
type SimpleChunker struct {
	size    int
	overlap int
	sep     string
	addMeta bool
	tok     tokenizer.Tokenizer
}

// Option customizes the simple chunker.
type Option func(*Options)

// WithChunkSize overrides the default chunk size.
func WithChunkSize(size int) Option {
	return func(o *Options) {
		if size > 0 {
			o.ChunkSize = size
		}
	}
}

// WithOverlap configures overlap between consecutive windows.
func WithOverlap(overlap int) Option {
	return func(o *Options) {
		if overlap >= 0 {
			o.Overlap = overlap
		}
	}
}

// WithSeparator sets the logical separator used before windowing.
func WithSeparator(sep string) Option {
	return func(o *Options) {
		if sep != "" {
			o.Separator = sep
		}
	}
}

// WithMetadataCopy toggles whether document metadata should be copied to chunks.
func WithMetadataCopy(enabled bool) Option {
	return func(o *Options) {
		o.IncludeMeta = enabled
	}
}

// WithTokenizer measures windows in model tokens instead of runes.
func WithTokenizer(tok tokenizer.Tokenizer) Option {
	return func(o *Options) {
		if tok != nil {
			o.Tokenizer = tok
		}
	}
}

// NewSimpleChunker constructs a chunker; defaults are 1000 with 200 overlap.
func NewSimpleChunker(opts ...Option) *SimpleChunker {
	cfg := &Options{
		ChunkSize:   1000,
		Overlap:     200,
		Separator:   "\n\n",
		IncludeMeta: true,
		Tokenizer:   tokenizer.RuneTokenizer{},
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Overlap >= cfg.ChunkSize {
		cfg.Overlap = cfg.ChunkSize / 5
	}
	return &SimpleChunker{
		size:    cfg.ChunkSize,
		overlap: cfg.Overlap,
		sep:     cfg.Separator,
		addMeta: cfg.IncludeMeta,
		tok:     cfg.Tokenizer,
	}
}

// Chunk splits the document into bounded pieces. Short neighbouring parts are
// packed together until the window is full.
func (c *SimpleChunker) Chunk(ctx context.Context, doc document.Document) ([]document.Chunk, error) {
	document.EnsureDocumentID(&doc)

	var (
		chunks  []document.Chunk
		pending strings.Builder
		ordinal int
	)
	flush := func() {
		text := strings.TrimSpace(pending.String())
		pending.Reset()
		if text == "" {
			return
		}
		ordinal++
		chunks = append(chunks, c.newChunk(doc, ordinal, text))
	}

	for _, part := range strings.Split(doc.Content, c.sep) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		ids := c.tok.Encode(part)
		if len(ids) > c.size {
			flush()
			for _, window := range c.windows(ids) {
				ordinal++
				chunks = append(chunks, c.newChunk(doc, ordinal, c.tok.DecodeIds(window)))
			}
			continue
		}
		if pending.Len() > 0 && c.tok.CountTokens(pending.String())+len(ids) > c.size {
			flush()
		}
		if pending.Len() > 0 {
			pending.WriteString(c.sep)
		}
		pending.WriteString(part)
	}
	flush()

	if len(chunks) == 0 && strings.TrimSpace(doc.Content) != "" {
		chunks = append(chunks, c.newChunk(doc, 1, doc.Content))
	}
	return chunks, nil
}

func (c *SimpleChunker) windows(ids []int) [][]int {
	step := c.size - c.overlap
	if step <= 0 {
		step = c.size
	}
	var out [][]int
	for start := 0; start < len(ids); start += step {
		end := start + c.size
		if end >= len(ids) {
			out = append(out, ids[start:])
			break
		}
		out = append(out, ids[start:end])
	}
	return out
}

func (c *SimpleChunker) newChunk(doc document.Document, ordinal int, content string) document.Chunk {
	chunk := document.Chunk{
		ID:         document.NextChunkID(doc.ID),
		SourceID:   doc.ID,
		SourceName: doc.Name(),
		Kind:       document.KindDocument,
		Content:    strings.TrimSpace(content),
		Ordinal:    ordinal,
	}
	if c.addMeta && doc.Metadata != nil {
		chunk.Metadata = doc.Clone().Metadata
	}
	return chunk
}
