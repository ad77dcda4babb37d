package ai

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func reassemble(chunks []Chunk) string {
	var sb strings.Builder
	for i, c := range chunks {
		if i == 0 {
			sb.WriteString(c.Text)
			continue
		}
		sb.WriteString(string([]rune(c.Text)[c.Overlap:]))
	}
	return sb.String()
}

func TestChunkSentenceOverlap(t *testing.T) {
	c := NewChunker(ChunkOptions{MaxLength: 10, Overlap: 3})
	chunks := c.Chunk(context.Background(), "One. Two. Three.")
	require.Len(t, chunks, 2)
	require.Equal(t, "One. Two. ", chunks[0].Text)
	require.Equal(t, 0, chunks[0].Overlap)
	require.Equal(t, "o. Three.", chunks[1].Text)
	require.Equal(t, 3, chunks[1].Overlap)
	require.Equal(t, 1, chunks[1].Position)
}

func TestChunkSplitsOnNewlines(t *testing.T) {
	c := NewChunker(ChunkOptions{MaxLength: 6, Overlap: 0})
	chunks := c.Chunk(context.Background(), "a: 1\nb: 2\nc: 3")
	require.Equal(t, []string{"a: 1\n", "b: 2\n", "c: 3"}, texts(chunks))
}

func TestChunkDoesNotSplitDecimals(t *testing.T) {
	c := NewChunker(ChunkOptions{MaxLength: 100})
	chunks := c.Chunk(context.Background(), "price: 1.50 total. next")
	require.Len(t, chunks, 1)
	require.Equal(t, []string{"price: 1.50 total. ", "next"}, runesToStrings(splitSentences([]rune("price: 1.50 total. next"), 100)))
}

func TestChunkHardSplitsLongSentence(t *testing.T) {
	c := NewChunker(ChunkOptions{MaxLength: 10, Overlap: 2})
	text := strings.Repeat("x", 25)
	chunks := c.Chunk(context.Background(), text)
	require.Len(t, chunks, 3)
	for _, chunk := range chunks {
		require.LessOrEqual(t, utf8.RuneCountInString(chunk.Text), 10)
	}
	require.Equal(t, text, reassemble(chunks))
}

func TestChunkEmptyText(t *testing.T) {
	c := NewChunker(ChunkOptions{})
	require.Empty(t, c.Chunk(context.Background(), ""))
	require.Empty(t, c.Chunk(context.Background(), "   \n  "))
}

func TestChunkShortFinalChunkIsKept(t *testing.T) {
	c := NewChunker(ChunkOptions{MaxLength: 13, MinLength: 8, Overlap: 0})
	chunks := c.Chunk(context.Background(), "Long enough. ok")
	require.Equal(t, []string{"Long enough. ", "ok"}, texts(chunks))
}

func TestChunkSkipsWhitespaceOnlySpan(t *testing.T) {
	c := NewChunker(ChunkOptions{MaxLength: 20, Overlap: 0})
	text := strings.Repeat(" ", 10) + "\n" + "abcdefghijklmnopqrs."
	chunks := c.Chunk(context.Background(), text)
	require.Equal(t, []string{"abcdefghijklmnopqrs."}, texts(chunks))
	require.Equal(t, 0, chunks[0].Position)
	require.Equal(t, strings.TrimLeft(text, " \n"), reassemble(chunks))
}

func TestChunkCoverageAndBound(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 60; i++ {
		fmt.Fprintf(&sb, "field_%d: value number %d is described here. ", i, i)
		if i%7 == 0 {
			sb.WriteString("\n")
		}
		if i%11 == 0 {
			sb.WriteString("Ünïcödé sentence with accents! ")
		}
	}
	text := sb.String()
	options := []ChunkOptions{
		{MaxLength: DefaultChunkMaxLength, Overlap: DefaultChunkOverlap},
		{MaxLength: 80, Overlap: 20},
		{MaxLength: 30, Overlap: 29},
		{MaxLength: 15, Overlap: 0},
	}
	for _, opts := range options {
		c := NewChunker(opts)
		chunks := c.Chunk(context.Background(), text)
		require.NotEmpty(t, chunks)
		require.Equal(t, text, reassemble(chunks), "options %+v", opts)
		for _, chunk := range chunks {
			require.LessOrEqual(t, utf8.RuneCountInString(chunk.Text), opts.MaxLength)
		}
		// deterministic
		require.Equal(t, chunks, c.Chunk(context.Background(), text))
	}
}

func TestNewChunkerDefaults(t *testing.T) {
	c := NewChunker(ChunkOptions{MaxLength: 0, MinLength: -1, Overlap: 900})
	opts := c.Options()
	require.Equal(t, DefaultChunkMaxLength, opts.MaxLength)
	require.Equal(t, 0, opts.MinLength)
	require.Equal(t, DefaultChunkMaxLength-1, opts.Overlap)
}

func texts(chunks []Chunk) []string {
	out := make([]string, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, c.Text)
	}
	return out
}

func runesToStrings(in [][]rune) []string {
	out := make([]string, 0, len(in))
	for _, r := range in {
		out = append(out, string(r))
	}
	return out
}
