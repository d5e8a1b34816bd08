package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"loanqa/internal/domain"
	"loanqa/internal/port"
)

// TextChunker packs consecutive non-blank lines of a section into chunks of
// at most maxTokens, carrying roughly overlap tokens of trailing lines into
// the next chunk.
type TextChunker struct {
	maxTokens int
	overlap   int
	tokenizer port.Tokenizer
}

func NewTextChunker(maxTokens, overlap int, tokenizer port.Tokenizer) *TextChunker {
	if overlap >= maxTokens {
		overlap = maxTokens / 4
	}
	return &TextChunker{
		maxTokens: maxTokens,
		overlap:   overlap,
		tokenizer: tokenizer,
	}
}

func (c *TextChunker) Chunk(section domain.Section) ([]domain.TextChunk, error) {
	lines := nonBlankLines(section.Text)
	if len(lines) == 0 {
		return nil, nil
	}

	var chunks []domain.TextChunk
	startLine := 0

	for startLine < len(lines) {
		endLine := startLine
		currentTokens := 0

		for endLine < len(lines) {
			lineTokens := c.tokenizer.CountTokens(lines[endLine])
			if currentTokens > 0 && currentTokens+lineTokens > c.maxTokens {
				break
			}
			currentTokens += lineTokens
			endLine++
		}

		// A single line above the budget still becomes its own chunk.
		if endLine == startLine {
			endLine++
		}

		chunks = append(chunks, domain.TextChunk{
			ID:      generateChunkID(section.DocID, section.Page, startLine, endLine),
			Source:  section.Source,
			Page:    section.Page,
			Content: strings.Join(lines[startLine:endLine], "\n"),
		})

		if endLine >= len(lines) {
			break
		}

		newStart := endLine - c.overlapLines(lines, startLine, endLine)
		if newStart <= startLine {
			newStart = startLine + 1
		}
		startLine = newStart
	}

	return chunks, nil
}

func (c *TextChunker) overlapLines(lines []string, start, end int) int {
	if c.overlap == 0 {
		return 0
	}

	n := 0
	tokens := 0
	// Never overlap the whole chunk, or the next chunk would repeat it.
	for i := end - 1; i > start && tokens < c.overlap; i-- {
		tokens += c.tokenizer.CountTokens(lines[i])
		n++
	}
	return n
}

func nonBlankLines(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		l = strings.Join(strings.Fields(l), " ")
		if l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

func generateChunkID(docID string, page, startLine, endLine int) string {
	data := fmt.Sprintf("%s:%d:%d-%d", docID, page, startLine, endLine)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:8])
}
