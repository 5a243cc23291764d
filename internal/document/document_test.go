package document

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestNormalizeSpaces(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"collapse runs", "a   b\t\tc", "a b c"},
		{"keeps line breaks", "line one  \n  line two\n", "line one\nline two"},
		{"paragraph break", "para one\n\n\n\npara two", "para one\n\npara two"},
		{"leading blank lines", "\n\n  \nhello", "hello"},
		{"carriage returns", "a\r\nb\rc", "a\nb\nc"},
		{"nfc", "e\u0301", "\u00e9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeSpaces(tt.in); got != tt.want {
				t.Errorf("NormalizeSpaces(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestMetadataNormalizeDropsEmpty(t *testing.T) {
	m := Metadata{
		"title":    "Report",
		"subtitle": "",
		"authors":  []string{},
		"keywords": []string{"a"},
		"extra":    nil,
		"counts":   map[string]int{},
		"pages":    3,
	}
	got := m.Normalize()
	if len(got) != 3 {
		t.Fatalf("expected 3 keys, got %d: %v", len(got), got)
	}
	for _, k := range []string{"title", "keywords", "pages"} {
		if _, ok := got[k]; !ok {
			t.Errorf("expected key %q to survive", k)
		}
	}
	if _, ok := m["subtitle"]; !ok {
		t.Error("Normalize must not mutate the receiver")
	}
}

func TestMetadataCloneIsIndependent(t *testing.T) {
	m := Metadata{"title": "a"}
	c := m.Clone()
	c["title"] = "b"
	if m["title"] != "a" {
		t.Errorf("clone aliases original: %v", m)
	}
	if got := Metadata(nil).Clone(); got == nil {
		t.Error("clone of nil metadata should be an empty map")
	}
}

func TestExtractionConfigCloneDeep(t *testing.T) {
	cfg := ExtractionConfig{
		ImageOCRConfig: &ImageOCRConfig{Enabled: true},
		OCRConfig:      &OCRConfig{Language: "eng", Options: map[string]string{"psm": "3"}},
	}
	c := cfg.Clone()
	c.ImageOCRConfig.Enabled = false
	c.OCRConfig.Options["psm"] = "6"
	if !cfg.ImageOCRConfig.Enabled {
		t.Error("image OCR config aliased")
	}
	if cfg.OCRConfig.Options["psm"] != "3" {
		t.Error("OCR options aliased")
	}
}

func TestImageOCREnabled(t *testing.T) {
	if (ExtractionConfig{}).ImageOCREnabled() {
		t.Error("zero config should not enable image OCR")
	}
	if !(ExtractionConfig{OCRExtractedImages: true}).ImageOCREnabled() {
		t.Error("standalone flag should enable image OCR")
	}
	if !(ExtractionConfig{ImageOCRConfig: &ImageOCRConfig{Enabled: true}}).ImageOCREnabled() {
		t.Error("sub-config flag should enable image OCR")
	}
	if (ExtractionConfig{ImageOCRConfig: &ImageOCRConfig{}}).ImageOCREnabled() {
		t.Error("disabled sub-config should not enable image OCR")
	}
}

func TestErrorsFormatAndUnwrap(t *testing.T) {
	base := errors.New("exit status 1")
	err := fmt.Errorf("convert: %w", &ParsingError{
		Msg:     "pandoc failed",
		Context: map[string]string{"file": "a.docx", "stderr": "boom"},
		Err:     base,
	})

	var perr *ParsingError
	if !errors.As(err, &perr) {
		t.Fatal("expected ParsingError in chain")
	}
	if !errors.Is(err, base) {
		t.Error("expected underlying error to be reachable")
	}
	msg := err.Error()
	if !strings.Contains(msg, "file=a.docx, stderr=boom") {
		t.Errorf("context not rendered in sorted order: %q", msg)
	}

	verr := &ValidationError{Msg: "unsupported mime type", Context: map[string]string{"mime_type": "x/y"}}
	if verr.Error() != "validation: unsupported mime type (mime_type=x/y)" {
		t.Errorf("unexpected message: %q", verr.Error())
	}
}
