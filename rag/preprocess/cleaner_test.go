package preprocess

import (
	"strings"
	"testing"
)

func TestCleanBasic(t *testing.T) {
	in := "Line\twith   spaces\x07\n\n\n\nNext ﬁle"
	got := CleanBasic(in)
	if got != "Line with spaces\n\nNext file" {
		t.Fatalf("unexpected cleaned text %q", got)
	}
}

func TestHTMLToTextDropsChrome(t *testing.T) {
	html := `<html><head><style>p{}</style></head><body>
	<nav><p>Menu</p></nav>
	<h1>Photon</h1>
	<p>A photon is an elementary particle.<sup class="reference">[1]</sup></p>
	<ul><li>massless</li></ul>
	<script>var x = 1;</script>
	</body></html>`

	got, err := HTMLToText(html)
	if err != nil {
		t.Fatalf("HTMLToText error: %v", err)
	}
	if strings.Contains(got, "Menu") || strings.Contains(got, "var x") {
		t.Fatalf("expected navigation and scripts removed, got %q", got)
	}
	if !strings.Contains(got, "# Photon") || !strings.Contains(got, "- massless") {
		t.Fatalf("expected heading and list item, got %q", got)
	}
	if strings.Contains(got, "[1]") {
		t.Fatalf("expected citation markers removed, got %q", got)
	}
}

func TestStripTags(t *testing.T) {
	if got := StripTags("The <b>photoelectric</b>   effect"); got != "The photoelectric effect" {
		t.Fatalf("unexpected stripped text %q", got)
	}
}

func TestPreprocessRemovesNoiseAndDuplicates(t *testing.T) {
	in := "Policy text.[2]\n\nPolicy text.\n\nWe use cookies to improve your experience."
	got := Preprocess(in)
	if got != "Policy text." {
		t.Fatalf("unexpected preprocess output %q", got)
	}
}

func TestLooksLikeHTML(t *testing.T) {
	if !LooksLikeHTML("<!DOCTYPE html><html></html>") {
		t.Fatalf("expected html detection")
	}
	if LooksLikeHTML("plain text about <things>") {
		t.Fatalf("plain text misdetected as html")
	}
}
