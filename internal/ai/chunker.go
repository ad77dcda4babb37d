package ai

import (
	"context"
	"unicode"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

const (
	DefaultChunkMaxLength = 768
	DefaultChunkMinLength = 0
	DefaultChunkOverlap   = 50
)

type ChunkOptions struct {
	MaxLength int
	MinLength int
	Overlap   int
}

// Chunk is a span of descriptive text. Overlap is the number of leading
// characters repeated from the tail of the previous chunk.
type Chunk struct {
	Text     string
	Position int
	Overlap  int
}

// Chunker splits text on sentence boundaries into chunks of at most
// MaxLength characters, each new chunk starting with the last Overlap
// characters of the one before it. Lengths are counted in runes.
type Chunker struct {
	opts ChunkOptions
}

func NewChunker(opts ChunkOptions) *Chunker {
	if opts.MaxLength <= 0 {
		opts.MaxLength = DefaultChunkMaxLength
	}
	if opts.MinLength < 0 {
		opts.MinLength = DefaultChunkMinLength
	}
	if opts.MinLength > opts.MaxLength {
		opts.MinLength = opts.MaxLength
	}
	if opts.Overlap < 0 {
		opts.Overlap = 0
	}
	if opts.Overlap >= opts.MaxLength {
		opts.Overlap = opts.MaxLength - 1
	}
	return &Chunker{opts: opts}
}

func (c *Chunker) Options() ChunkOptions {
	return c.opts
}

// Chunk is deterministic: the same text always yields the same chunks.
// Concatenating the first chunk with every later chunk minus its overlap
// prefix reproduces text, except for spans that would form a whitespace-only
// chunk; those are never emitted.
func (c *Chunker) Chunk(ctx context.Context, text string) []Chunk {
	logger := logutil.GetLogger(ctx)
	maxLen := c.opts.MaxLength

	var chunks []Chunk
	var current []rune
	overlap := 0

	flush := func() {
		if len(current) == 0 || isBlank(current) {
			return
		}
		if len(current) < c.opts.MinLength {
			logger.Debug("emitting chunk shorter than min length",
				zap.Int("position", len(chunks)),
				zap.Int("length", len(current)),
			)
		}
		chunks = append(chunks, Chunk{
			Text:     string(current),
			Position: len(chunks),
			Overlap:  overlap,
		})
		logger.Debug("flushing chunk",
			zap.Int("position", len(chunks)-1),
			zap.Int("length", len(current)),
			zap.Int("overlap", overlap),
		)
	}

	for _, sentence := range splitSentences([]rune(text), maxLen) {
		if len(current) > 0 && len(current)+len(sentence) > maxLen {
			flush()
			tail := tailRunes(current, c.opts.Overlap)
			if room := maxLen - len(sentence); len(tail) > room {
				tail = tail[len(tail)-room:]
			}
			current = append(append(make([]rune, 0, maxLen), tail...), sentence...)
			overlap = len(tail)
			continue
		}
		current = append(current, sentence...)
	}
	flush()
	logger.Debug("chunking completed", zap.Int("size", len(text)), zap.Int("total_chunks", len(chunks)))
	return chunks
}

// splitSentences partitions text into sentences. A sentence ends after '.',
// '!' or '?' followed by whitespace, or after a newline, and keeps the
// whitespace that follows it. Sentences longer than maxLen are cut into
// maxLen pieces.
func splitSentences(text []rune, maxLen int) [][]rune {
	var sentences [][]rune
	start := 0
	n := len(text)
	for i := 0; i < n; {
		r := text[i]
		end := r == '\n' || (isTerminator(r) && (i+1 == n || unicode.IsSpace(text[i+1])))
		i++
		if !end {
			continue
		}
		for i < n && unicode.IsSpace(text[i]) {
			i++
		}
		sentences = appendPieces(sentences, text[start:i], maxLen)
		start = i
	}
	if start < n {
		sentences = appendPieces(sentences, text[start:], maxLen)
	}
	return sentences
}

func appendPieces(dst [][]rune, sentence []rune, maxLen int) [][]rune {
	for len(sentence) > maxLen {
		dst = append(dst, sentence[:maxLen])
		sentence = sentence[maxLen:]
	}
	if len(sentence) > 0 {
		dst = append(dst, sentence)
	}
	return dst
}

func tailRunes(r []rune, n int) []rune {
	if n <= 0 {
		return nil
	}
	if n > len(r) {
		n = len(r)
	}
	out := make([]rune, n)
	copy(out, r[len(r)-n:])
	return out
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func isBlank(r []rune) bool {
	for _, c := range r {
		if !unicode.IsSpace(c) {
			return false
		}
	}
	return true
}
