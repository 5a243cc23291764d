package parser

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/dgallion1/docnorm/internal/document"
	pdflib "github.com/ledongthuc/pdf"
)

// PDFParser handles text-layer PDFs. It tries the Go library first,
// then falls back to pdftotext if enabled.
type PDFParser struct {
	FallbackPdftotext bool
}

func (p *PDFParser) Parse(r io.Reader, filename string) (*document.ExtractionResult, error) {
	// ledongthuc/pdf requires a ReadSeeker+size, so we write to a temp file.
	tmp, err := os.CreateTemp("", "docnorm-pdf-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	return p.ParseFile(context.Background(), tmpPath)
}

// ParseFile extracts the text layer of the PDF at path.
func (p *PDFParser) ParseFile(ctx context.Context, path string) (*document.ExtractionResult, error) {
	pages, err := extractPDFPages(path)
	if (err != nil || blank(pages)) && p.FallbackPdftotext {
		var ferr error
		if pages, ferr = extractPdftotext(ctx, path); ferr == nil {
			err = nil
		}
	}
	if err != nil {
		return nil, &document.ParsingError{
			Msg:     "extract pdf text",
			Context: map[string]string{"file": path},
			Err:     err,
		}
	}

	var kept []string
	for _, page := range pages {
		if page = strings.TrimSpace(page); page != "" {
			kept = append(kept, page)
		}
	}

	return &document.ExtractionResult{
		Content:  document.NormalizeSpaces(strings.Join(kept, "\n\n")),
		MimeType: document.PlainTextMimeType,
		Metadata: document.Metadata{
			document.KeySourceFormat: "pdf",
			"page_count":             len(pages),
		},
	}, nil
}

func extractPDFPages(path string) ([]string, error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	numPages := reader.NumPage()
	pages := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, text)
	}
	return pages, nil
}

func extractPdftotext(ctx context.Context, path string) ([]string, error) {
	cmd := exec.CommandContext(ctx, "pdftotext", "-layout", path, "-")
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("pdftotext: %w", err)
	}
	// pdftotext separates pages with form feeds.
	return strings.Split(strings.TrimSuffix(string(out), "\f"), "\f"), nil
}

func blank(pages []string) bool {
	for _, p := range pages {
		if strings.TrimSpace(p) != "" {
			return false
		}
	}
	return true
}
