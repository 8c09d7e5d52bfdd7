package docgen

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/ternarybob/arbor"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// PDFRenderer converts the rendered markdown document into a PDF by
// walking the goldmark AST and mapping nodes onto fpdf primitives.
type PDFRenderer struct {
	logger arbor.ILogger
}

// NewPDFRenderer creates a PDF renderer
func NewPDFRenderer(logger arbor.ILogger) *PDFRenderer {
	return &PDFRenderer{logger: logger}
}

type pdfState struct {
	pdf       *fpdf.Fpdf
	source    []byte
	bold      bool
	italic    bool
	listLevel int
}

// Render produces the PDF bytes for a markdown document. The footer
// carries the document title and page number on every page.
func (r *PDFRenderer) Render(markdown string, footerText string) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 20)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Arial", "I", 8)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 10, fmt.Sprintf("%s - Page %d", footerText, pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()
	pdf.SetFont("Arial", "", 11)
	pdf.SetTextColor(0, 0, 0)

	source := []byte(markdown)
	doc := goldmark.DefaultParser().Parse(text.NewReader(source))

	state := &pdfState{pdf: pdf, source: source}
	if err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		return r.walkNode(state, n, entering)
	}); err != nil {
		return nil, fmt.Errorf("failed to walk markdown tree: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *PDFRenderer) walkNode(s *pdfState, n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node := n.(type) {
	case *ast.Heading:
		r.handleHeading(s, node, entering)
	case *ast.Paragraph:
		if !entering {
			s.pdf.Ln(7)
		}
	case *ast.Text:
		if entering {
			r.writeText(s, string(node.Segment.Value(s.source)))
			if node.SoftLineBreak() || node.HardLineBreak() {
				r.writeText(s, " ")
			}
		}
	case *ast.Emphasis:
		r.handleEmphasis(s, node, entering)
	case *ast.List:
		if entering {
			s.listLevel++
		} else {
			s.listLevel--
			if s.listLevel == 0 {
				s.pdf.Ln(3)
			}
		}
	case *ast.ListItem:
		if entering {
			s.pdf.Ln(5)
			s.pdf.SetX(float64(15 + 5*s.listLevel))
			s.pdf.SetFont("Arial", r.fontStyle(s), 11)
			s.pdf.Write(5, "- ")
		}
	case *ast.ThematicBreak:
		if entering {
			s.pdf.Ln(4)
			x, y := s.pdf.GetX(), s.pdf.GetY()
			s.pdf.SetDrawColor(200, 200, 200)
			s.pdf.Line(x, y, 195, y)
			s.pdf.Ln(4)
		}
	case *ast.CodeSpan:
		if entering {
			s.pdf.SetFont("Courier", "", 10)
			var sb strings.Builder
			for c := node.FirstChild(); c != nil; c = c.NextSibling() {
				if t, ok := c.(*ast.Text); ok {
					sb.Write(t.Segment.Value(s.source))
				}
			}
			s.pdf.Write(5, sb.String())
			s.pdf.SetFont("Arial", r.fontStyle(s), 11)
			return ast.WalkSkipChildren, nil
		}
	}
	return ast.WalkContinue, nil
}

func (r *PDFRenderer) handleHeading(s *pdfState, node *ast.Heading, entering bool) {
	if entering {
		s.pdf.Ln(6)
		size := 10.0
		switch node.Level {
		case 1:
			size = 16
		case 2:
			size = 13
		case 3:
			size = 11.5
		}
		s.pdf.SetFont("Arial", "B", size)
		s.bold = true
		return
	}
	s.bold = false
	s.pdf.Ln(8)
	s.pdf.SetFont("Arial", "", 11)
}

func (r *PDFRenderer) handleEmphasis(s *pdfState, node *ast.Emphasis, entering bool) {
	if node.Level >= 2 {
		s.bold = entering
	} else {
		s.italic = entering
	}
	s.pdf.SetFont("Arial", r.fontStyle(s), 11)
}

func (r *PDFRenderer) fontStyle(s *pdfState) string {
	style := ""
	if s.bold {
		style += "B"
	}
	if s.italic {
		style += "I"
	}
	return style
}

func (r *PDFRenderer) writeText(s *pdfState, textValue string) {
	if textValue == "" {
		return
	}
	translated := s.pdf.UnicodeTranslatorFromDescriptor("")(textValue)
	s.pdf.Write(5, translated)
}
