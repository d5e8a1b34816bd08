package prompt

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"loanqa/internal/adapter/analyzer"
	"loanqa/internal/domain"
)

func chunks(contents ...string) []domain.TextChunk {
	out := make([]domain.TextChunk, len(contents))
	for i, c := range contents {
		out[i] = domain.TextChunk{ID: string(rune('a' + i)), Content: c}
	}
	return out
}

func newAssembler(t *testing.T, maxTokens int) *Assembler {
	t.Helper()
	a, err := NewAssembler("", maxTokens, analyzer.NewTokenizer(false))
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func TestAssemble_Layout(t *testing.T) {
	a := newAssembler(t, 0)
	question := "What is the interest rate for a personal loan?"

	prompt, err := a.Assemble(question, chunks(
		"Personal loan interest rate: 10.50% p.a.",
		"Processing fee: 1% of the loan amount.",
	))
	if err != nil {
		t.Fatal(err)
	}

	instr := strings.Index(prompt, "Use only the following pieces of context")
	first := strings.Index(prompt, "Personal loan interest rate: 10.50% p.a.")
	second := strings.Index(prompt, "Processing fee: 1% of the loan amount.")
	q := strings.Index(prompt, "Question: "+question)

	if instr != 0 {
		t.Errorf("expected prompt to start with the instruction, got index %d", instr)
	}
	if !(instr < first && first < second && second < q) {
		t.Errorf("expected instruction < chunk1 < chunk2 < question, got %d %d %d %d", instr, first, second, q)
	}
	if !strings.Contains(prompt, "10.50% p.a.\n\nProcessing fee") {
		t.Error("expected chunks separated by a blank line")
	}
	if !strings.HasSuffix(strings.TrimSpace(prompt), "Helpful Answer:") {
		t.Error("expected prompt to end with the answer cue")
	}
}

func TestAssemble_Deterministic(t *testing.T) {
	a := newAssembler(t, 0)
	cs := chunks("one", "two", "three")

	p1, _ := a.Assemble("q", cs)
	p2, _ := a.Assemble("q", cs)
	if p1 != p2 {
		t.Error("expected identical prompts for identical input")
	}
}

func TestAssemble_KeepsOrderAndDuplicates(t *testing.T) {
	a := newAssembler(t, 0)

	prompt, err := a.Assemble("q", chunks("zeta clause", "alpha clause", "zeta clause"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Count(prompt, "zeta clause") != 2 {
		t.Error("duplicates must not be removed")
	}
	if strings.Index(prompt, "zeta clause") > strings.Index(prompt, "alpha clause") {
		t.Error("chunks must not be reordered")
	}
}

func TestAssemble_NoChunks(t *testing.T) {
	a := newAssembler(t, 0)

	prompt, err := a.Assemble("Is there a gold loan?", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(prompt, "Question: Is there a gold loan?") {
		t.Error("expected the question even without context")
	}
}

func TestAssemble_TruncationDropsTrailingChunks(t *testing.T) {
	// Each chunk is 11 words, 14 estimated tokens.
	ten := strings.TrimSpace(strings.Repeat("word ", 10))
	a := newAssembler(t, 30)

	prompt, err := a.Assemble("q", chunks("first "+ten, "second "+ten, "third "+ten))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(prompt, "first") || !strings.Contains(prompt, "second") {
		t.Error("expected the first two chunks to fit")
	}
	if strings.Contains(prompt, "third") {
		t.Error("expected the third chunk to be dropped")
	}
}

func TestAssemble_TruncationCutsOversizedFirstChunk(t *testing.T) {
	long := strings.TrimSpace(strings.Repeat("clause ", 200))
	a := newAssembler(t, 13)

	prompt, err := a.Assemble("q", chunks(long, "second chunk"))
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(prompt, "clause"); got != 10 {
		t.Errorf("expected first chunk cut to 10 words, got %d", got)
	}
	if strings.Contains(prompt, "second chunk") {
		t.Error("expected later chunks to be dropped")
	}
}

func TestNewAssembler_CustomTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompt.txt")
	content := "CTX:{{range .Chunks}}[{{.Content}}]{{end}} Q:{{.Question}}"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	a, err := NewAssembler(path, 0, analyzer.NewTokenizer(false))
	if err != nil {
		t.Fatal(err)
	}
	prompt, err := a.Assemble("why?", chunks("x", "y"))
	if err != nil {
		t.Fatal(err)
	}
	if prompt != "CTX:[x][y] Q:why?" {
		t.Errorf("unexpected prompt %q", prompt)
	}
}

func TestNewAssembler_BadTemplate(t *testing.T) {
	if _, err := NewAssembler("/nonexistent/prompt.txt", 0, analyzer.NewTokenizer(false)); !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration for missing template, got %v", err)
	}

	path := filepath.Join(t.TempDir(), "bad.txt")
	os.WriteFile(path, []byte("{{.Question"), 0644)
	if _, err := NewAssembler(path, 0, analyzer.NewTokenizer(false)); !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration for unparsable template, got %v", err)
	}
}
