package remoteocr

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/dgallion1/docnorm/internal/document"
)

// passThrough lists optional response fields copied verbatim into
// ExtractionResult.Extras.
var passThrough = []string{
	"tables",
	"images",
	"image_ocr_results",
	"entities",
	"keywords",
	"detected_languages",
	"document_type",
	"document_type_confidence",
	"layout",
}

// ParseResponse decodes the service's JSON reply.
func ParseResponse(body []byte) (*document.ExtractionResult, error) {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	res := &document.ExtractionResult{
		Content:  firstString(payload, "content", "text"),
		MimeType: firstString(payload, "mime_type"),
		Metadata: document.Metadata{},
	}
	if res.MimeType == "" {
		res.MimeType = document.PlainTextMimeType
	}

	if raw, ok := present(payload, "metadata"); ok {
		var md map[string]any
		if json.Unmarshal(raw, &md) == nil && md != nil {
			res.Metadata = md
		}
	}

	if raw, ok := present(payload, "chunks"); ok {
		var chunks []string
		if json.Unmarshal(raw, &chunks) == nil {
			res.Chunks = chunks
		} else {
			res.Extras = setExtra(res.Extras, "chunks", raw)
		}
	}
	for _, key := range passThrough {
		if raw, ok := present(payload, key); ok {
			res.Extras = setExtra(res.Extras, key, raw)
		}
	}
	return res, nil
}

// firstString returns the first key holding a non-empty string.
func firstString(payload map[string]json.RawMessage, keys ...string) string {
	for _, k := range keys {
		raw, ok := present(payload, k)
		if !ok {
			continue
		}
		var s string
		if json.Unmarshal(raw, &s) == nil && s != "" {
			return s
		}
	}
	return ""
}

func present(payload map[string]json.RawMessage, key string) (json.RawMessage, bool) {
	raw, ok := payload[key]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, false
	}
	return raw, true
}

func setExtra(extras map[string]json.RawMessage, key string, raw json.RawMessage) map[string]json.RawMessage {
	if extras == nil {
		extras = make(map[string]json.RawMessage)
	}
	extras[key] = raw
	return extras
}
