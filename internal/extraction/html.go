package extraction

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// looksLikeHTML is a cheap sniff for profile documents uploaded as HTML.
func looksLikeHTML(text string) bool {
	head := strings.ToLower(strings.TrimSpace(text))
	if len(head) > 512 {
		head = head[:512]
	}
	return strings.HasPrefix(head, "<!doctype html") ||
		strings.HasPrefix(head, "<html") ||
		strings.Contains(head, "<body")
}

// StripHTML reduces an HTML profile document to its visible text. Script
// and style content is dropped; block boundaries become newlines so the
// chunker can still break at paragraph edges. On parse failure the input
// is returned unchanged.
func StripHTML(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}

	doc.Find("script, style, noscript").Remove()

	var sb strings.Builder
	doc.Find("p, li, h1, h2, h3, h4, h5, h6, td, div, section, article").Each(func(_ int, sel *goquery.Selection) {
		// Only leaf-ish nodes; nested containers would duplicate text.
		if sel.Children().Filter("p, li, div, section, article").Length() > 0 {
			return
		}
		text := strings.TrimSpace(sel.Text())
		if text != "" {
			sb.WriteString(text)
			sb.WriteString("\n")
		}
	})

	if sb.Len() == 0 {
		return strings.TrimSpace(doc.Text())
	}
	return strings.TrimSpace(sb.String())
}
