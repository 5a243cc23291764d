package api

import (
	"net/http"
	"strconv"

	"github.com/dgallion1/docnorm/internal/document"
	"github.com/dgallion1/docnorm/internal/extract"
	"github.com/dgallion1/docnorm/internal/pipeline"
	"github.com/dgallion1/docnorm/internal/splitter"
)

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	if err := s.parseForm(w, r); err != nil {
		jsonError(w, err.Error(), statusFor(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	up, err := s.singleUpload(r)
	if err != nil {
		jsonError(w, err.Error(), statusFor(err))
		return
	}

	res, err := s.extractor.Extract(r.Context(), extract.Request{
		Data:      up.Data,
		MimeType:  up.MimeType,
		Config:    up.Config,
		Overrides: up.Overrides,
	})
	if err != nil {
		jsonError(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSplit(w http.ResponseWriter, r *http.Request) {
	if err := s.parseForm(w, r); err != nil {
		jsonError(w, err.Error(), statusFor(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	up, err := s.singleUpload(r)
	if err != nil {
		jsonError(w, err.Error(), statusFor(err))
		return
	}
	sp, err := s.splitterFor(r)
	if err != nil {
		jsonError(w, err.Error(), statusFor(err))
		return
	}

	p := s.orchestrator.Pipeline()
	doc, err := p.Loader().LoadBytes(r.Context(), up.Data, up.MimeType,
		pipeline.WithConfig(up.Config), pipeline.WithOverrides(up.Overrides))
	if err != nil {
		jsonError(w, err.Error(), statusFor(err))
		return
	}
	doc.Source = up.Filename

	sd, err := sp.Split(doc)
	if err != nil {
		jsonError(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, sd)
}

// splitterFor returns the pipeline's splitter, or one with the
// max_characters and overlap_characters form values when either is set.
func (s *Server) splitterFor(r *http.Request) (*splitter.TextSplitter, error) {
	maxChars, overlap := r.FormValue("max_characters"), r.FormValue("overlap_characters")
	if maxChars == "" && overlap == "" {
		return s.orchestrator.Pipeline().Splitter(), nil
	}

	params := splitter.SplitParameters{
		MaxCharacters:     s.cfg.DefaultMaxCharacters,
		OverlapCharacters: s.cfg.DefaultMaxOverlap,
	}
	for field, dst := range map[string]*int{
		"max_characters":     &params.MaxCharacters,
		"overlap_characters": &params.OverlapCharacters,
	} {
		v := r.FormValue(field)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, &document.ValidationError{
				Msg:     field + " must be an integer",
				Context: map[string]string{field: v},
			}
		}
		*dst = n
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return splitter.New(splitter.WithParameters(params)), nil
}
