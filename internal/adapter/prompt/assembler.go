package prompt

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"strings"
	"text/template"

	"loanqa/internal/adapter/analyzer"
	"loanqa/internal/domain"
)

//go:embed templates/*.txt
var promptTemplates embed.FS

const defaultTemplate = "templates/answer.txt"

// Assembler renders the answering prompt: instruction, context chunks in the
// order given, then the question. When maxContextTokens is positive the
// context is cut to fit, dropping trailing chunks first.
type Assembler struct {
	tmpl             *template.Template
	tokenizer        *analyzer.Tokenizer
	maxContextTokens int
}

// Data is passed to the prompt template.
type Data struct {
	Question string
	Chunks   []domain.TextChunk
}

// NewAssembler parses templatePath, or the built-in template when it is empty.
func NewAssembler(templatePath string, maxContextTokens int, tokenizer *analyzer.Tokenizer) (*Assembler, error) {
	var content []byte
	var err error
	if templatePath != "" {
		content, err = os.ReadFile(templatePath)
	} else {
		content, err = promptTemplates.ReadFile(defaultTemplate)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: template not found: %v", domain.ErrConfiguration, err)
	}

	tmpl, err := template.New("prompt").Funcs(templateFuncs()).Option("missingkey=error").Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse template: %v", domain.ErrConfiguration, err)
	}

	return &Assembler{
		tmpl:             tmpl,
		tokenizer:        tokenizer,
		maxContextTokens: maxContextTokens,
	}, nil
}

func (a *Assembler) Assemble(question string, chunks []domain.TextChunk) (string, error) {
	data := Data{
		Question: question,
		Chunks:   a.fit(chunks),
	}

	var buf bytes.Buffer
	if err := a.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render template: %w", err)
	}
	return buf.String(), nil
}

// fit keeps the longest prefix of chunks within the context budget. If even
// the first chunk is too long it is truncated rather than dropped.
func (a *Assembler) fit(chunks []domain.TextChunk) []domain.TextChunk {
	if a.maxContextTokens <= 0 || len(chunks) == 0 {
		return chunks
	}

	used := 0
	for i, c := range chunks {
		n := a.tokenizer.CountTokens(c.Content)
		if used+n > a.maxContextTokens {
			if i == 0 {
				first := c
				first.Content = a.tokenizer.TruncateTokens(c.Content, a.maxContextTokens)
				return []domain.TextChunk{first}
			}
			return chunks[:i]
		}
		used += n
	}
	return chunks
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"join": strings.Join,
		"context": func(chunks []domain.TextChunk) string {
			parts := make([]string, len(chunks))
			for i, c := range chunks {
				parts[i] = strings.TrimSpace(c.Content)
			}
			return strings.Join(parts, "\n\n")
		},
	}
}
