package extractor

import (
	"bytes"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"

	"github.com/ternarybob/respondeo/internal/models"
)

// extractHTML strips page chrome with goquery, converts the remaining
// markup to markdown, and applies the plain-text boundary rules.
func (s *Service) extractHTML(payload []byte) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(payload))
	if err != nil {
		return nil, &models.ExtractionError{Format: FormatHTML, Reason: "malformed HTML payload: " + err.Error()}
	}

	doc.Find("script, style, nav, header, footer, aside").Remove()

	body := doc.Find("body")
	if body.Length() == 0 {
		body = doc.Selection
	}
	html, err := body.Html()
	if err != nil {
		return nil, &models.ExtractionError{Format: FormatHTML, Reason: "failed to read HTML body: " + err.Error()}
	}

	converter := md.NewConverter("", true, nil)
	markdown, err := converter.ConvertString(html)
	if err != nil {
		return nil, &models.ExtractionError{Format: FormatHTML, Reason: "HTML to markdown conversion failed: " + err.Error()}
	}

	// Markdown list markers and numbering are the same boundaries the
	// text rules already understand.
	markdown = strings.ReplaceAll(markdown, "\\.", ".")
	return s.extractText(markdown), nil
}
