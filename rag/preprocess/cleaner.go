package preprocess

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
)

var (
	reSpaces   = regexp.MustCompile(`[ \t]+`)
	reNewlines = regexp.MustCompile(`\n{3,}`)
	reCitation = regexp.MustCompile(`\[\d+\]`)

	ligatures = strings.NewReplacer(
		"ﬁ", "fi", "ﬂ", "fl",
		"\u00a0", " ",
		"·", ".", "•", "-",
	)

	noisePatterns = []string{
		"cookie", "privacy policy", "all rights reserved", "subscribe to our newsletter",
		"advertisement", "related articles", "share this article",
	}
)

// CleanBasic removes control characters and ligatures, collapses runs of
// spaces and keeps at most one blank line between paragraphs.
func CleanBasic(text string) string {
	if text == "" {
		return ""
	}

	b := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, text)

	b = ligatures.Replace(b)
	b = reSpaces.ReplaceAllString(b, " ")
	b = reNewlines.ReplaceAllString(b, "\n\n")
	return strings.TrimSpace(b)
}

// HTMLToText extracts headings, paragraphs, list items, code and tables,
// dropping scripts, styles and navigation chrome.
func HTMLToText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}
	doc.Find("script,style,nav,footer,header,noscript,sup.reference").Remove()

	var out []string
	doc.Find("h1,h2,h3,h4,p,li,pre,table").Each(func(i int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text == "" {
			return
		}
		switch goquery.NodeName(s) {
		case "h1":
			out = append(out, "# "+text)
		case "h2":
			out = append(out, "## "+text)
		case "h3", "h4":
			out = append(out, "### "+text)
		case "li":
			out = append(out, "- "+text)
		case "pre":
			out = append(out, "```\n"+text+"\n```")
		case "table":
			out = append(out, parseTable(s))
		default:
			out = append(out, text)
		}
	})
	return strings.Join(out, "\n\n"), nil
}

// StripTags returns the visible text of an HTML fragment, such as a search
// snippet carrying <b> highlights.
func StripTags(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.TrimSpace(fragment)
	}
	return strings.TrimSpace(reSpaces.ReplaceAllString(doc.Text(), " "))
}

func parseTable(sel *goquery.Selection) string {
	var rows []string
	sel.Find("tr").Each(func(i int, tr *goquery.Selection) {
		var cols []string
		tr.Find("th,td").Each(func(j int, td *goquery.Selection) {
			cols = append(cols, strings.TrimSpace(td.Text()))
		})
		if len(cols) > 0 {
			rows = append(rows, "| "+strings.Join(cols, " | ")+" |")
		}
	})
	return strings.Join(rows, "\n")
}

// RemoveDuplicateParagraphs dedupe by exact paragraph text
func RemoveDuplicateParagraphs(text string) string {
	parts := strings.Split(text, "\n\n")
	seen := map[string]struct{}{}
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return strings.Join(out, "\n\n")
}

// RemoveWebNoise drops boilerplate lines and bracketed citation markers.
func RemoveWebNoise(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, l := range lines {
		lower := strings.ToLower(l)
		skip := false
		for _, p := range noisePatterns {
			if strings.Contains(lower, p) {
				skip = true
				break
			}
		}
		if !skip {
			out = append(out, reCitation.ReplaceAllString(l, ""))
		}
	}
	return strings.Join(out, "\n")
}

// Preprocess runs the full cleaning pipeline on plain text.
func Preprocess(raw string) string {
	t := CleanBasic(raw)
	t = RemoveWebNoise(t)
	t = RemoveDuplicateParagraphs(t)
	return t
}

// LooksLikeHTML reports whether the payload should go through HTMLToText.
func LooksLikeHTML(raw string) bool {
	head := strings.ToLower(strings.TrimSpace(raw))
	if len(head) > 512 {
		head = head[:512]
	}
	return strings.HasPrefix(head, "<!doctype html") || strings.HasPrefix(head, "<html") ||
		strings.Contains(head, "<body") || strings.Contains(head, "<p>")
}
