package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/docnorm/internal/document"
)

// CSVParser handles CSV files. Rows are rendered as "header: cell" lines
// in batches so each batch lands in its own paragraph.
type CSVParser struct {
	// BatchSize is the number of data rows per paragraph. Zero means 20.
	BatchSize int
}

func (p *CSVParser) Parse(r io.Reader, filename string) (*document.ExtractionResult, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, &document.ParsingError{
			Msg:     "parse csv",
			Context: map[string]string{"file": filename},
			Err:     err,
		}
	}

	res := &document.ExtractionResult{
		MimeType: document.PlainTextMimeType,
		Metadata: document.Metadata{},
	}
	if len(records) == 0 {
		return res, nil
	}

	headers := records[0]
	dataRows := records[1:]
	batchSize := p.BatchSize
	if batchSize <= 0 {
		batchSize = 20
	}

	var blocks []string
	for i := 0; i < len(dataRows); i += batchSize {
		end := min(i+batchSize, len(dataRows))

		var text strings.Builder
		fmt.Fprintf(&text, "Rows %d-%d\n", i+2, end+1) // 1-indexed, skip header
		for _, row := range dataRows[i:end] {
			for j, cell := range row {
				if j < len(headers) {
					text.WriteString(headers[j] + ": " + cell)
				} else {
					text.WriteString(cell)
				}
				if j < len(row)-1 {
					text.WriteString(", ")
				}
			}
			text.WriteString("\n")
		}
		blocks = append(blocks, text.String())
	}

	res.Content = document.NormalizeSpaces(strings.Join(blocks, "\n\n"))
	res.Tables = []document.Table{{Cells: records, Markdown: markdownTable(records)}}
	res.Metadata["columns"] = headers
	res.Metadata["row_count"] = len(dataRows)
	res.Metadata = res.Metadata.Normalize()
	return res, nil
}

func markdownTable(rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}
	width := 0
	for _, row := range rows {
		width = max(width, len(row))
	}
	var b strings.Builder
	line := func(cells []string) {
		b.WriteString("|")
		for i := range width {
			cell := ""
			if i < len(cells) {
				cell = strings.ReplaceAll(cells[i], "|", "\\|")
			}
			b.WriteString(" " + cell + " |")
		}
		b.WriteString("\n")
	}
	line(rows[0])
	b.WriteString("|" + strings.Repeat(" --- |", width) + "\n")
	for _, row := range rows[1:] {
		line(row)
	}
	return strings.TrimSuffix(b.String(), "\n")
}
