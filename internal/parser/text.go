package parser

import (
	"bufio"
	"io"
	"strings"

	"github.com/dgallion1/docnorm/internal/document"
)

// TextParser handles plain text files.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*document.ExtractionResult, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var paragraphs []string
	var current strings.Builder

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			if current.Len() > 0 {
				paragraphs = append(paragraphs, current.String())
				current.Reset()
			}
			continue
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(line)
	}
	if current.Len() > 0 {
		paragraphs = append(paragraphs, current.String())
	}
	if err := scanner.Err(); err != nil {
		return nil, &document.ParsingError{
			Msg:     "read text",
			Context: map[string]string{"file": filename},
			Err:     err,
		}
	}

	return &document.ExtractionResult{
		Content:  document.NormalizeSpaces(strings.Join(paragraphs, "\n\n")),
		MimeType: document.PlainTextMimeType,
		Metadata: document.Metadata{},
	}, nil
}
