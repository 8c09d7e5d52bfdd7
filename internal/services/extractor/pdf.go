package extractor

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/ternarybob/respondeo/internal/models"
)

// extractPDF pulls page text out of an uploaded PDF questionnaire with
// pdfcpu, then applies the plain-text boundary rules. pdfcpu works on
// files, so the payload goes through a temp directory.
func (s *Service) extractPDF(payload []byte) ([]string, error) {
	tempDir, err := os.MkdirTemp("", "respondeo-pdf")
	if err != nil {
		return nil, &models.ExtractionError{Format: FormatPDF, Reason: "failed to create temp dir: " + err.Error()}
	}
	defer os.RemoveAll(tempDir)

	tempFile := filepath.Join(tempDir, "upload.pdf")
	if err := os.WriteFile(tempFile, payload, 0644); err != nil {
		return nil, &models.ExtractionError{Format: FormatPDF, Reason: "failed to write temp PDF: " + err.Error()}
	}

	conf := model.NewDefaultConfiguration()
	if _, err := api.ReadContextFile(tempFile); err != nil {
		return nil, &models.ExtractionError{Format: FormatPDF, Reason: "unreadable PDF payload: " + err.Error()}
	}

	outDir := filepath.Join(tempDir, "content")
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, &models.ExtractionError{Format: FormatPDF, Reason: "failed to create content dir: " + err.Error()}
	}

	if err := api.ExtractContentFile(tempFile, outDir, nil, conf); err != nil {
		return nil, &models.ExtractionError{Format: FormatPDF, Reason: "PDF content extraction failed: " + err.Error()}
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		return nil, &models.ExtractionError{Format: FormatPDF, Reason: "failed to read extracted content: " + err.Error()}
	}

	pageTexts := make(map[int]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		var pageNum int
		if _, err := fmt.Sscanf(entry.Name(), "page_%d", &pageNum); err != nil {
			if _, err := fmt.Sscanf(entry.Name(), "Content_page_%d", &pageNum); err != nil {
				continue
			}
		}
		content, err := os.ReadFile(filepath.Join(outDir, entry.Name()))
		if err != nil {
			s.logger.Warn().Err(err).Str("file", entry.Name()).Msg("Failed to read extracted page")
			continue
		}
		pageTexts[pageNum] = string(content)
	}

	pageNums := make([]int, 0, len(pageTexts))
	for num := range pageTexts {
		pageNums = append(pageNums, num)
	}
	sort.Ints(pageNums)

	var full strings.Builder
	for _, num := range pageNums {
		full.WriteString(pageTexts[num])
		full.WriteString("\n\n")
	}

	return s.extractText(full.String()), nil
}
