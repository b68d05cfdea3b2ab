package evidence

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ExtractParagraphs returns the visible text of every <p> element, each
// whitespace-collapsed, joined by single spaces.
func ExtractParagraphs(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("create document from reader: %w", err)
	}

	doc.Find("script, style, noscript, template").Remove()

	var b strings.Builder
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		fragment := strings.Join(strings.Fields(s.Text()), " ")
		if fragment == "" {
			return
		}
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(fragment)
	})

	return b.String(), nil
}
