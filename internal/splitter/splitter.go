// Package splitter turns loaded documents into indexed, overlapping text
// chunks with per-document parameters and per-mime strategies.
package splitter

import (
	"maps"
	"strconv"
	"strings"

	"github.com/dgallion1/docnorm/internal/chunker"
	"github.com/dgallion1/docnorm/internal/document"
)

const (
	DefaultMaxCharacters = 2000
	DefaultMaxOverlap    = 100
)

// SplitParameters bound the chunks produced for one document.
type SplitParameters struct {
	MaxCharacters     int `json:"max_characters"`
	OverlapCharacters int `json:"overlap_characters"`
}

// DefaultParameters returns DefaultMaxCharacters and DefaultMaxOverlap.
func DefaultParameters() SplitParameters {
	return SplitParameters{MaxCharacters: DefaultMaxCharacters, OverlapCharacters: DefaultMaxOverlap}
}

// Validate requires a positive maximum and an overlap in [0, max).
func (p SplitParameters) Validate() error {
	ctx := map[string]string{
		"max_characters":     strconv.Itoa(p.MaxCharacters),
		"overlap_characters": strconv.Itoa(p.OverlapCharacters),
	}
	switch {
	case p.MaxCharacters <= 0:
		return &document.ValidationError{Msg: "max_characters must be positive", Context: ctx}
	case p.OverlapCharacters < 0:
		return &document.ValidationError{Msg: "overlap_characters must not be negative", Context: ctx}
	case p.OverlapCharacters >= p.MaxCharacters:
		return &document.ValidationError{Msg: "overlap_characters must be smaller than max_characters", Context: ctx}
	}
	return nil
}

// ParameterResolver picks the parameters for one document.
type ParameterResolver func(doc *document.Loaded) SplitParameters

// ChunkGenerator produces the chunk strings for one document.
type ChunkGenerator func(doc *document.Loaded, params SplitParameters) []string

// FixedParameters returns a resolver that ignores the document.
func FixedParameters(p SplitParameters) ParameterResolver {
	return func(*document.Loaded) SplitParameters { return p }
}

// DefaultGenerator is the character-window strategy. Markdown documents
// prefer cutting before headings.
func DefaultGenerator(doc *document.Loaded, params SplitParameters) []string {
	return chunker.Split(doc.Text, chunker.Config{
		MaxCharacters:     params.MaxCharacters,
		OverlapCharacters: params.OverlapCharacters,
		Markdown:          baseMimeType(doc.MimeType) == document.MarkdownMimeType,
	})
}

// TextChunk is one chunk of a document.
type TextChunk struct {
	Text     string            `json:"text"`
	Metadata document.Metadata `json:"metadata"`
	Index    int               `json:"index"`
	MimeType string            `json:"mime_type"`
	Source   string            `json:"source,omitempty"`
}

// SplitDocument is a document after splitting.
type SplitDocument struct {
	Chunks   []TextChunk       `json:"chunks"`
	Images   []document.Image  `json:"images,omitempty"`
	Metadata document.Metadata `json:"metadata"`
	MimeType string            `json:"mime_type"`
	Source   string            `json:"source,omitempty"`
}

// TextSplitter splits documents. It is immutable and safe for concurrent
// use.
type TextSplitter struct {
	resolver  ParameterResolver
	overrides map[string]ChunkGenerator
}

// Option configures a TextSplitter.
type Option func(*TextSplitter)

// WithResolver sets the parameter resolver.
func WithResolver(r ParameterResolver) Option {
	return func(s *TextSplitter) {
		if r != nil {
			s.resolver = r
		}
	}
}

// WithParameters resolves every document to p.
func WithParameters(p SplitParameters) Option {
	return WithResolver(FixedParameters(p))
}

// WithGenerator registers gen for documents of mimeType.
func WithGenerator(mimeType string, gen ChunkGenerator) Option {
	return func(s *TextSplitter) {
		s.overrides[baseMimeType(mimeType)] = gen
	}
}

// New returns a splitter using default parameters and the default
// strategy unless options say otherwise.
func New(opts ...Option) *TextSplitter {
	s := &TextSplitter{
		resolver:  FixedParameters(DefaultParameters()),
		overrides: make(map[string]ChunkGenerator),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WithOverride returns a new splitter that uses gen for mimeType. The
// receiver is unchanged.
func (s *TextSplitter) WithOverride(mimeType string, gen ChunkGenerator) *TextSplitter {
	out := &TextSplitter{
		resolver:  s.resolver,
		overrides: maps.Clone(s.overrides),
	}
	out.overrides[baseMimeType(mimeType)] = gen
	return out
}

// Split chunks one document.
func (s *TextSplitter) Split(doc *document.Loaded) (*SplitDocument, error) {
	if doc == nil {
		return nil, &document.ValidationError{Msg: "document is required"}
	}
	params := s.resolver(doc)
	if err := params.Validate(); err != nil {
		return nil, err
	}

	gen, ok := s.overrides[baseMimeType(doc.MimeType)]
	if !ok || gen == nil {
		gen = DefaultGenerator
	}
	texts := gen(doc, params)

	chunks := make([]TextChunk, 0, len(texts))
	for i, text := range texts {
		md := doc.Metadata.Clone()
		md[document.KeyChunkIndex] = i
		chunks = append(chunks, TextChunk{
			Text:     text,
			Metadata: md,
			Index:    i,
			MimeType: doc.MimeType,
			Source:   doc.Source,
		})
	}

	var images []document.Image
	if doc.Images != nil {
		images = make([]document.Image, len(doc.Images))
		copy(images, doc.Images)
	}

	return &SplitDocument{
		Chunks:   chunks,
		Images:   images,
		Metadata: doc.Metadata.Clone(),
		MimeType: doc.MimeType,
		Source:   doc.Source,
	}, nil
}

// SplitMany splits docs in order. It stops at the first error.
func (s *TextSplitter) SplitMany(docs []*document.Loaded) ([]*SplitDocument, error) {
	out := make([]*SplitDocument, 0, len(docs))
	for _, doc := range docs {
		sd, err := s.Split(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, sd)
	}
	return out, nil
}

func baseMimeType(m string) string {
	m, _, _ = strings.Cut(m, ";")
	return strings.ToLower(strings.TrimSpace(m))
}
