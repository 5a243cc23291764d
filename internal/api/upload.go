package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docnorm/internal/document"
	"github.com/dgallion1/docnorm/internal/parser"
	"github.com/dgallion1/docnorm/internal/router"
)

// upload is one file read from a multipart request together with the
// extraction options sent alongside it.
type upload struct {
	Filename  string
	MimeType  string
	Data      []byte
	Config    document.ExtractionConfig
	Overrides router.Overrides
}

// parseForm limits the request body and parses the multipart form.
// Callers must RemoveAll the form when err is nil.
func (s *Server) parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return errTooLarge{limit: s.cfg.MaxUploadBytes}
		}
		return &document.ValidationError{Msg: "invalid multipart form: " + err.Error()}
	}
	return nil
}

// formOptions reads the optional "config", "ocr_backend" and
// "image_ocr_backend" fields.
func formOptions(r *http.Request) (document.ExtractionConfig, router.Overrides, error) {
	var cfg document.ExtractionConfig
	if raw := r.FormValue("config"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
			return cfg, router.Overrides{}, &document.ValidationError{Msg: "invalid config: " + err.Error()}
		}
	}
	ov := router.Overrides{
		OCRBackend:      r.FormValue("ocr_backend"),
		ImageOCRBackend: r.FormValue("image_ocr_backend"),
	}
	return cfg, ov, nil
}

// readUpload reads one file part. The mime type comes from the
// "mime_type" form value, then the file extension, then the part header.
func (s *Server) readUpload(r *http.Request, fh *multipart.FileHeader) (*upload, error) {
	filename := sanitizeFilename(fh.Filename)

	mimeType := parser.BaseMimeType(r.FormValue("mime_type"))
	if mimeType == "" {
		mimeType = parser.DetectMimeType(filename)
	}
	if mimeType == "" {
		mimeType = parser.BaseMimeType(fh.Header.Get("Content-Type"))
	}
	if mimeType == "" || mimeType == "application/octet-stream" {
		return nil, &document.ValidationError{
			Msg:     fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)),
			Context: map[string]string{"file": filename},
		}
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return nil, errTooLarge{limit: s.cfg.MaxUploadBytes}
	}
	return &upload{Filename: filename, MimeType: mimeType, Data: data}, nil
}

// singleUpload reads the "file" part together with the form options.
func (s *Server) singleUpload(r *http.Request) (*upload, error) {
	cfg, ov, err := formOptions(r)
	if err != nil {
		return nil, err
	}
	files := r.MultipartForm.File["file"]
	if len(files) == 0 {
		return nil, &document.ValidationError{Msg: "file is required"}
	}
	up, err := s.readUpload(r, files[0])
	if err != nil {
		return nil, err
	}
	up.Config = cfg
	up.Overrides = ov
	return up, nil
}

type errTooLarge struct {
	limit int64
}

func (e errTooLarge) Error() string {
	return fmt.Sprintf("file exceeds max size (%d bytes)", e.limit)
}

// statusFor maps extraction errors onto HTTP status codes.
func statusFor(err error) int {
	var (
		verr    *document.ValidationError
		missing *document.MissingDependencyError
		perr    *document.ParsingError
		oerr    *document.OCRError
		large   errTooLarge
	)
	switch {
	case errors.As(err, &large):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.As(err, &missing):
		return http.StatusServiceUnavailable
	case errors.As(err, &perr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &oerr):
		if oerr.Timeout {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." || name == "/" {
		name = "unnamed"
	}
	return name
}
