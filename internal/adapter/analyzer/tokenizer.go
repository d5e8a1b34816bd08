package analyzer

import (
	"strings"
	"unicode"
)

// Tokenizer splits text into normalised terms and estimates LLM token counts.
type Tokenizer struct {
	stopwords map[string]struct{}
	fold      bool
}

// NewTokenizer creates a Tokenizer. With foldPlurals set, simple English
// inflections are stripped so that "rates" and "rate" map to the same term.
func NewTokenizer(foldPlurals bool) *Tokenizer {
	return &Tokenizer{
		stopwords: defaultStopwords(),
		fold:      foldPlurals,
	}
}

// Tokenize splits text into lowercase terms, dropping stopwords and one-letter words.
func (t *Tokenizer) Tokenize(text string) []string {
	words := splitWords(text)
	tokens := make([]string, 0, len(words))

	for _, word := range words {
		word = strings.ToLower(word)
		if len([]rune(word)) < 2 {
			continue
		}
		if _, isStop := t.stopwords[word]; isStop {
			continue
		}
		if t.fold {
			word = foldInflection(word)
		}
		tokens = append(tokens, word)
	}

	return tokens
}

// CountTokens returns an approximate token count for LLM budget estimation.
func (t *Tokenizer) CountTokens(text string) int {
	words := splitWords(text)
	if len(words) == 0 {
		return 0
	}
	// An average English word is about 1.3 subword tokens.
	return int(float64(len(words)) * 1.3)
}

// TruncateTokens cuts text after roughly maxTokens tokens, on a word boundary.
func (t *Tokenizer) TruncateTokens(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	if t.CountTokens(text) <= maxTokens {
		return text
	}
	maxWords := int(float64(maxTokens) / 1.3)
	if maxWords < 1 {
		maxWords = 1
	}

	seen := 0
	inWord := false
	for i, r := range text {
		isWord := isWordRune(r)
		if isWord && !inWord {
			if seen == maxWords {
				return strings.TrimRightFunc(text[:i], unicode.IsSpace)
			}
			seen++
		}
		inWord = isWord
	}
	return text
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

// splitWords splits text into words using unicode letter and digit runs.
func splitWords(text string) []string {
	var words []string
	var current strings.Builder

	for _, r := range text {
		if isWordRune(r) {
			current.WriteRune(r)
		} else if current.Len() > 0 {
			words = append(words, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		words = append(words, current.String())
	}

	return words
}

// foldInflection strips common plural and verb endings. It is deliberately
// conservative: short words and numbers are left alone.
func foldInflection(word string) string {
	if len(word) <= 4 || unicode.IsDigit(rune(word[0])) {
		return word
	}
	switch {
	case strings.HasSuffix(word, "ies"):
		return word[:len(word)-3] + "y"
	case strings.HasSuffix(word, "sses"):
		return word[:len(word)-2]
	case strings.HasSuffix(word, "ss"), strings.HasSuffix(word, "us"), strings.HasSuffix(word, "is"):
		return word
	case strings.HasSuffix(word, "s"):
		return word[:len(word)-1]
	}
	return word
}

// defaultStopwords returns a set of common English stopwords.
func defaultStopwords() map[string]struct{} {
	stops := []string{
		"a", "an", "and", "are", "as", "at", "be", "by", "for",
		"from", "has", "he", "in", "is", "it", "its", "of", "on",
		"that", "the", "to", "was", "were", "will", "with", "this",
		"have", "had", "but", "not", "you", "your", "we", "our",
		"they", "their", "she", "her", "his", "if", "or", "so",
		"no", "can", "do", "does", "did", "been", "being", "would",
		"could", "should", "may", "might", "must", "shall", "which",
		"who", "whom", "what", "when", "where", "why", "how", "all",
		"each", "every", "both", "few", "more", "most", "other",
		"some", "such", "than", "too", "very", "just", "also",
		"me", "my", "i", "am", "any", "there", "these", "those",
	}
	m := make(map[string]struct{}, len(stops))
	for _, s := range stops {
		m[s] = struct{}{}
	}
	return m
}
