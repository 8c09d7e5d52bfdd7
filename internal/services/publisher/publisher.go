package publisher

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondeo/internal/interfaces"
	"github.com/ternarybob/respondeo/internal/models"
	"github.com/ternarybob/respondeo/internal/services/docgen"
)

// Publisher writes finished response documents to artifact storage.
// Artifacts are named ddq_responses/<timestamp>_<document-id> so a
// listing sorts chronologically.
type Publisher struct {
	artifacts interfaces.ArtifactStorage
	assembler *docgen.Assembler
	renderer  *docgen.PDFRenderer
	logger    arbor.ILogger
}

// NewPublisher creates a document publisher
func NewPublisher(artifacts interfaces.ArtifactStorage, assembler *docgen.Assembler, renderer *docgen.PDFRenderer, logger arbor.ILogger) *Publisher {
	return &Publisher{
		artifacts: artifacts,
		assembler: assembler,
		renderer:  renderer,
		logger:    logger,
	}
}

// Publish renders the document to markdown and PDF and stores both
// artifacts. The returned reference names the PDF artifact. A storage
// failure is returned as PublishError so the caller can retain the
// in-memory document for retry.
func (p *Publisher) Publish(ctx context.Context, doc *models.ResponseDocument) (string, error) {
	markdown := p.assembler.RenderMarkdown(doc)
	base := fmt.Sprintf("ddq_responses/%s_%s", doc.GeneratedAt.Format("20060102_150405"), doc.ID)

	mdName := base + ".md"
	if _, err := p.artifacts.Put(ctx, mdName, []byte(markdown), "text/markdown"); err != nil {
		return "", &models.PublishError{Name: mdName, Err: err}
	}

	footer := fmt.Sprintf("%s | Generated %s", doc.Title, doc.GeneratedAt.Format("2006-01-02"))
	pdfBytes, err := p.renderer.Render(markdown, footer)
	if err != nil {
		return "", &models.PublishError{Name: base + ".pdf", Err: err}
	}

	pdfName := base + ".pdf"
	ref, err := p.artifacts.Put(ctx, pdfName, pdfBytes, "application/pdf")
	if err != nil {
		return "", &models.PublishError{Name: pdfName, Err: err}
	}

	p.logger.Info().
		Str("document_id", doc.ID).
		Str("artifact", pdfName).
		Int("entries", len(doc.Entries)).
		Msg("Response document published")
	return ref, nil
}

// PublishedAt extracts the timestamp prefix from an artifact name, used
// by retention reporting. Returns zero time when the name does not
// carry the expected prefix.
func PublishedAt(name string) time.Time {
	var ts time.Time
	var y, mo, d, h, mi, s int
	if _, err := fmt.Sscanf(name, "ddq_responses/%4d%2d%2d_%2d%2d%2d_", &y, &mo, &d, &h, &mi, &s); err == nil {
		ts = time.Date(y, time.Month(mo), d, h, mi, s, 0, time.UTC)
	}
	return ts
}
