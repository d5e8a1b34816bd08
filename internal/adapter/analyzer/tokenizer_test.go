package analyzer

import (
	"strings"
	"testing"
)

func TestTokenizer_Tokenize_WithFolding(t *testing.T) {
	tok := NewTokenizer(true)

	tokens := tok.Tokenize("Interest rates for personal loans")
	want := []string{"interest", "rate", "personal", "loan"}
	if len(tokens) != len(want) {
		t.Fatalf("expected %v, got %v", want, tokens)
	}
	for i := range want {
		if tokens[i] != want[i] {
			t.Errorf("token %d: expected %q, got %q", i, want[i], tokens[i])
		}
	}
}

func TestTokenizer_Tokenize_WithoutFolding(t *testing.T) {
	tok := NewTokenizer(false)

	tokens := tok.Tokenize("interest rates")
	if len(tokens) != 2 || tokens[1] != "rates" {
		t.Errorf("expected 'rates' to remain unfolded, got %v", tokens)
	}
}

func TestFoldInflection(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"loans", "loan"},
		{"subsidies", "subsidy"},
		{"business", "business"},
		{"classes", "class"},
		{"status", "status"},
		{"emis", "emis"},
		{"100s", "100s"},
	}

	for _, tt := range tests {
		if got := foldInflection(tt.input); got != tt.expected {
			t.Errorf("foldInflection(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestTokenizer_StopwordRemoval(t *testing.T) {
	tok := NewTokenizer(false)

	tokens := tok.Tokenize("What is the tenure of the home loan")
	for _, token := range tokens {
		if token == "the" || token == "what" || token == "is" {
			t.Errorf("stopword %q should be removed, got %v", token, tokens)
		}
	}
}

func TestTokenizer_CountTokens(t *testing.T) {
	tok := NewTokenizer(false)

	count := tok.CountTokens("hello world this is a test")
	if count < 6 {
		t.Errorf("expected count >= 6 words, got %d", count)
	}
}

func TestTokenizer_EmptyInput(t *testing.T) {
	tok := NewTokenizer(true)

	if tokens := tok.Tokenize(""); len(tokens) != 0 {
		t.Errorf("expected 0 tokens for empty input, got %d", len(tokens))
	}
	if count := tok.CountTokens("   "); count != 0 {
		t.Errorf("expected 0 count for blank input, got %d", count)
	}
}

func TestTokenizer_TruncateTokens(t *testing.T) {
	tok := NewTokenizer(false)
	text := strings.Repeat("word ", 100)

	out := tok.TruncateTokens(text, 13)
	if got := len(strings.Fields(out)); got != 10 {
		t.Errorf("expected 10 words after truncation, got %d", got)
	}
	if tok.CountTokens(out) > 13 {
		t.Errorf("truncated text exceeds budget: %d tokens", tok.CountTokens(out))
	}

	short := "fits easily"
	if tok.TruncateTokens(short, 100) != short {
		t.Error("text within budget should be returned unchanged")
	}
	if tok.TruncateTokens(short, 0) != "" {
		t.Error("zero budget should yield empty text")
	}
}

func TestSplitWords(t *testing.T) {
	tests := []struct {
		input    string
		expected int
	}{
		{"hello world", 2},
		{"10.50% p.a.", 4},
		{"loan-to-value", 3},
		{"EMI_calculator", 1},
		{"₹5,00,000", 3},
	}

	for _, tt := range tests {
		words := splitWords(tt.input)
		if len(words) != tt.expected {
			t.Errorf("splitWords(%q) = %d words, want %d: %v", tt.input, len(words), tt.expected, words)
		}
	}
}
