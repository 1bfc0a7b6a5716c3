package tokenizer

import (
	"strings"
	"testing"
)

func TestRuneTokenizerRoundTrip(t *testing.T) {
	tok := RuneTokenizer{}
	text := "光子 photon"
	ids := tok.Encode(text)
	if len(ids) != tok.CountTokens(text) {
		t.Fatalf("Encode and CountTokens disagree: %d vs %d", len(ids), tok.CountTokens(text))
	}
	if got := tok.DecodeIds(ids); got != text {
		t.Fatalf("round trip mismatch: %q", got)
	}
}

func TestTruncate(t *testing.T) {
	text := strings.Repeat("word ", 50)
	out, cut := Truncate(nil, text, 23)
	if !cut {
		t.Fatalf("expected truncation")
	}
	if len([]rune(out)) > 23 {
		t.Fatalf("truncated text too long: %d", len([]rune(out)))
	}
	if strings.HasSuffix(out, "wo") {
		t.Fatalf("expected cut on a word boundary, got %q", out)
	}

	short, cut := Truncate(RuneTokenizer{}, "short", 100)
	if cut || short != "short" {
		t.Fatalf("short text must be returned unchanged")
	}
	same, cut := Truncate(nil, "anything", 0)
	if cut || same != "anything" {
		t.Fatalf("non-positive limit disables truncation")
	}
}
