package tokenizer

import "strings"

// Tokenizer measures and slices text in model tokens.
type Tokenizer interface {
	Encode(text string) []int
	CountTokens(text string) int
	// DecodeIds turns a token window back into text.
	DecodeIds(ids []int) string
}

var _ Tokenizer = RuneTokenizer{}

// RuneTokenizer treats every rune as one token. It is the fallback when no
// model codec is configured; ids are the rune values so decoding is lossless.
type RuneTokenizer struct{}

// Encode returns one id per rune.
func (RuneTokenizer) Encode(text string) []int {
	ids := make([]int, 0, len(text))
	for _, r := range text {
		ids = append(ids, int(r))
	}
	return ids
}

// CountTokens returns the rune count.
func (RuneTokenizer) CountTokens(text string) int {
	return len([]rune(text))
}

// DecodeIds rebuilds the string from rune ids.
func (RuneTokenizer) DecodeIds(ids []int) string {
	var sb strings.Builder
	sb.Grow(len(ids))
	for _, id := range ids {
		sb.WriteRune(rune(id))
	}
	return sb.String()
}

// Truncate cuts text to at most max tokens, preferring the last whitespace
// boundary inside the window so words are not split. A nil tokenizer falls
// back to RuneTokenizer.
func Truncate(tok Tokenizer, text string, max int) (string, bool) {
	if max <= 0 {
		return text, false
	}
	if tok == nil {
		tok = RuneTokenizer{}
	}
	ids := tok.Encode(text)
	if len(ids) <= max {
		return text, false
	}
	cut := tok.DecodeIds(ids[:max])
	if idx := strings.LastIndexAny(cut, " \n\t"); idx > len(cut)/2 {
		cut = cut[:idx]
	}
	return strings.TrimSpace(cut), true
}
