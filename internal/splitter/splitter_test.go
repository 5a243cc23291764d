package splitter

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dgallion1/docnorm/internal/document"
)

func loaded(text string) *document.Loaded {
	return &document.Loaded{
		Text:     text,
		MimeType: document.PlainTextMimeType,
		Metadata: document.Metadata{"title": "Doc", "authors": []string{"a"}},
		Source:   "/tmp/doc.txt",
	}
}

func TestSplitSixWords(t *testing.T) {
	s := New(WithParameters(SplitParameters{MaxCharacters: 10, OverlapCharacters: 0}))
	out, err := s.Split(loaded("One two three four five six"))
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(out.Chunks), 2)
	for i, c := range out.Chunks {
		require.Equal(t, i, c.Index)
		require.Equal(t, i, c.Metadata[document.KeyChunkIndex])
		require.LessOrEqual(t, len(c.Text), 10)
	}
}

func TestSplitChunkMetadataIsDocumentMetadataPlusIndex(t *testing.T) {
	doc := loaded(strings.Repeat("lorem ipsum dolor ", 50))
	out, err := New(WithParameters(SplitParameters{MaxCharacters: 80, OverlapCharacters: 10})).Split(doc)
	require.NoError(t, err)
	require.Greater(t, len(out.Chunks), 1)

	for _, c := range out.Chunks {
		md := c.Metadata.Clone()
		delete(md, document.KeyChunkIndex)
		require.Equal(t, doc.Metadata, md)
		require.Equal(t, doc.MimeType, c.MimeType)
		require.Equal(t, doc.Source, c.Source)
	}
	require.NotContains(t, doc.Metadata, document.KeyChunkIndex, "document metadata must not be mutated")
	require.Equal(t, doc.Metadata, out.Metadata)

	out.Chunks[0].Metadata["title"] = "changed"
	require.Equal(t, "Doc", out.Chunks[1].Metadata["title"], "chunks must not share metadata maps")
}

func TestSplitDefaults(t *testing.T) {
	require.Equal(t, SplitParameters{MaxCharacters: 2000, OverlapCharacters: 100}, DefaultParameters())

	var seen SplitParameters
	s := New(WithGenerator("text/plain", func(_ *document.Loaded, p SplitParameters) []string {
		seen = p
		return nil
	}))
	_, err := s.Split(loaded("x"))
	require.NoError(t, err)
	require.Equal(t, DefaultParameters(), seen)
}

func TestSplitResolverSeesDocument(t *testing.T) {
	resolver := func(doc *document.Loaded) SplitParameters {
		if doc.MimeType == document.MarkdownMimeType {
			return SplitParameters{MaxCharacters: 5, OverlapCharacters: 0}
		}
		return SplitParameters{MaxCharacters: 1000, OverlapCharacters: 0}
	}
	s := New(WithResolver(resolver))

	plain, err := s.Split(loaded("alpha beta gamma"))
	require.NoError(t, err)
	require.Len(t, plain.Chunks, 1)

	md := loaded("alpha beta gamma")
	md.MimeType = document.MarkdownMimeType
	split, err := s.Split(md)
	require.NoError(t, err)
	require.Len(t, split.Chunks, 3)
}

func TestSplitOverrideDelegatesEntirely(t *testing.T) {
	gen := func(doc *document.Loaded, _ SplitParameters) []string {
		return strings.Split(doc.Text, "|")
	}
	base := New()
	custom := base.WithOverride("text/csv", gen)

	doc := loaded("a|b|c")
	doc.MimeType = "text/csv; charset=utf-8"
	out, err := custom.Split(doc)
	require.NoError(t, err)
	require.Len(t, out.Chunks, 3)
	require.Equal(t, "b", out.Chunks[1].Text)
	require.Equal(t, "text/csv; charset=utf-8", out.Chunks[1].MimeType)

	out, err = base.Split(doc)
	require.NoError(t, err)
	require.Len(t, out.Chunks, 1, "WithOverride must not change the receiver")
}

func TestSplitRejectsInvalidParameters(t *testing.T) {
	for _, p := range []SplitParameters{
		{MaxCharacters: 0},
		{MaxCharacters: -1},
		{MaxCharacters: 10, OverlapCharacters: -1},
		{MaxCharacters: 10, OverlapCharacters: 10},
	} {
		_, err := New(WithParameters(p)).Split(loaded("text"))
		var verr *document.ValidationError
		require.True(t, errors.As(err, &verr), "params %+v", p)
	}

	_, err := New().Split(nil)
	require.Error(t, err)
}

func TestSplitPreservesImages(t *testing.T) {
	doc := loaded(strings.Repeat("word ", 100))
	doc.Images = []document.Image{
		{Data: []byte{1, 2}, Format: "png", Filename: "a.png"},
		{Data: []byte{3}, Format: "jpeg", PageNumber: 2},
	}
	out, err := New(WithParameters(SplitParameters{MaxCharacters: 50})).Split(doc)
	require.NoError(t, err)
	require.Equal(t, doc.Images, out.Images)

	noImages, err := New().Split(loaded("x"))
	require.NoError(t, err)
	require.Empty(t, noImages.Images)
}

func TestSplitEmptyText(t *testing.T) {
	out, err := New().Split(loaded(""))
	require.NoError(t, err)
	require.Empty(t, out.Chunks)
	require.Equal(t, "Doc", out.Metadata["title"])
}

func TestSplitManyPreservesOrder(t *testing.T) {
	docs := []*document.Loaded{loaded("first doc"), loaded("second doc"), loaded("third doc")}
	docs[1].Images = []document.Image{{Format: "png"}}
	docs[2].Source = ""

	out, err := New().SplitMany(docs)
	require.NoError(t, err)
	require.Len(t, out, 3)
	for i, sd := range out {
		require.Equal(t, docs[i].Text, sd.Chunks[0].Text)
		require.Equal(t, docs[i].Source, sd.Source)
	}
	require.Equal(t, docs[1].Images, out[1].Images)

	empty, err := New().SplitMany(nil)
	require.NoError(t, err)
	require.Empty(t, empty)
}
