package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dgallion1/docnorm/internal/config"
	"github.com/dgallion1/docnorm/internal/document"
	"github.com/dgallion1/docnorm/internal/extract"
	"github.com/dgallion1/docnorm/internal/pipeline"
	"github.com/dgallion1/docnorm/internal/splitter"
)

const testKey = "secret"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Config{
		APIKey:               testKey,
		WorkerCount:          1,
		MaxQueueSize:         4,
		MaxUploadBytes:       1 << 20,
		DefaultMaxCharacters: 2000,
		DefaultMaxOverlap:    100,
		JobTTL:               time.Hour,
	}

	reg, err := extract.NewRegistry()
	require.NoError(t, err)
	svc := extract.NewService(reg, log)
	p := pipeline.New(pipeline.NewLoader(svc), splitter.New())
	orch := pipeline.NewOrchestrator(cfg, p, log)
	orch.Start(context.Background())
	t.Cleanup(orch.Stop)

	ts := httptest.NewServer(NewServer(orch, svc, log, cfg))
	t.Cleanup(ts.Close)
	return ts
}

type part struct {
	field, filename, body string
}

func multipartRequest(t *testing.T, url string, fields map[string]string, parts ...part) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, p := range parts {
		fw, err := mw.CreateFormFile(p.field, p.filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte(p.body))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+testKey)
	return req
}

func do(t *testing.T, req *http.Request, out any) int {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestHealthIsPublic(t *testing.T) {
	ts := newTestServer(t)
	req, err := http.NewRequest(http.MethodGet, ts.URL+"/health", nil)
	require.NoError(t, err)

	var body map[string]any
	require.Equal(t, http.StatusOK, do(t, req, &body))
	require.Equal(t, "ok", body["status"])
}

func TestAuthRequired(t *testing.T) {
	ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/stats/extract", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, do(t, req, nil))

	req.Header.Set("Authorization", "Bearer wrong")
	require.Equal(t, http.StatusUnauthorized, do(t, req, nil))

	req.Header.Set("Authorization", "Bearer "+testKey)
	require.Equal(t, http.StatusOK, do(t, req, nil))
}

func TestExtractEndpoint(t *testing.T) {
	ts := newTestServer(t)
	req := multipartRequest(t, ts.URL+"/api/extract", nil,
		part{field: "file", filename: "guide.md", body: "# Guide\n\nRead   this."})

	var res document.ExtractionResult
	require.Equal(t, http.StatusOK, do(t, req, &res))
	require.Equal(t, document.MarkdownMimeType, res.MimeType)
	require.Equal(t, "Guide", res.Metadata[document.KeyTitle])
	require.Contains(t, res.Content, "Read this.")
}

func TestExtractEndpointErrors(t *testing.T) {
	ts := newTestServer(t)

	req := multipartRequest(t, ts.URL+"/api/extract", nil, part{field: "file", filename: "blob.zzz", body: "x"})
	require.Equal(t, http.StatusBadRequest, do(t, req, nil))

	req = multipartRequest(t, ts.URL+"/api/extract", map[string]string{"config": "{not json"},
		part{field: "file", filename: "a.txt", body: "x"})
	require.Equal(t, http.StatusBadRequest, do(t, req, nil))

	// No OCR backend is registered.
	req = multipartRequest(t, ts.URL+"/api/extract", nil, part{field: "file", filename: "scan.png", body: "pixels"})
	require.Equal(t, http.StatusServiceUnavailable, do(t, req, nil))

	req = multipartRequest(t, ts.URL+"/api/extract", nil)
	require.Equal(t, http.StatusBadRequest, do(t, req, nil))
}

func TestExtractEndpointRejectsOversizedBody(t *testing.T) {
	ts := newTestServer(t)
	// The body limit is MaxUploadBytes plus 1MB of form overhead.
	big := strings.Repeat("a", 3<<20)
	req := multipartRequest(t, ts.URL+"/api/extract", nil, part{field: "file", filename: "big.txt", body: big})

	// Served in-process: over the network the server may close the
	// connection before the client finishes writing the body.
	rec := httptest.NewRecorder()
	ts.Config.Handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Contains(t, body["error"], "exceeds max size")
}

func TestSplitEndpoint(t *testing.T) {
	ts := newTestServer(t)
	req := multipartRequest(t, ts.URL+"/api/split",
		map[string]string{"max_characters": "10", "overlap_characters": "0"},
		part{field: "file", filename: "notes.txt", body: "One two three four five six"})

	var sd splitter.SplitDocument
	require.Equal(t, http.StatusOK, do(t, req, &sd))
	require.Equal(t, "notes.txt", sd.Source)
	require.Greater(t, len(sd.Chunks), 1)
	for _, c := range sd.Chunks {
		require.LessOrEqual(t, len([]rune(c.Text)), 10)
	}

	req = multipartRequest(t, ts.URL+"/api/split",
		map[string]string{"max_characters": "10", "overlap_characters": "10"},
		part{field: "file", filename: "notes.txt", body: "text"})
	require.Equal(t, http.StatusBadRequest, do(t, req, nil))

	req = multipartRequest(t, ts.URL+"/api/split", map[string]string{"max_characters": "ten"},
		part{field: "file", filename: "notes.txt", body: "text"})
	require.Equal(t, http.StatusBadRequest, do(t, req, nil))
}

func TestJobLifecycle(t *testing.T) {
	ts := newTestServer(t)
	req := multipartRequest(t, ts.URL+"/api/jobs", nil,
		part{field: "files", filename: "a.txt", body: "first file"},
		part{field: "files", filename: "b.unknown", body: "?"})

	var submitted struct {
		Jobs []map[string]any `json:"jobs"`
	}
	require.Equal(t, http.StatusAccepted, do(t, req, &submitted))
	require.Len(t, submitted.Jobs, 2)
	require.NotEmpty(t, submitted.Jobs[1]["error"])

	pollURL, ok := submitted.Jobs[0]["poll_url"].(string)
	require.True(t, ok)

	var snap pipeline.JobSnapshot
	require.Eventually(t, func() bool {
		get, err := http.NewRequest(http.MethodGet, ts.URL+pollURL, nil)
		if err != nil {
			return false
		}
		get.Header.Set("Authorization", "Bearer "+testKey)
		resp, err := http.DefaultClient.Do(get)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		if json.NewDecoder(resp.Body).Decode(&snap) != nil {
			return false
		}
		return snap.Status == pipeline.StatusCompleted
	}, 5*time.Second, 10*time.Millisecond)

	require.NotNil(t, snap.Result)
	require.Equal(t, "first file", snap.Result.Chunks[0].Text)

	get, err := http.NewRequest(http.MethodGet, ts.URL+"/api/jobs/nope", nil)
	require.NoError(t, err)
	get.Header.Set("Authorization", "Bearer "+testKey)
	require.Equal(t, http.StatusNotFound, do(t, get, nil))
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{&document.ValidationError{Msg: "bad"}, http.StatusBadRequest},
		{&document.MissingDependencyError{Msg: "pandoc"}, http.StatusServiceUnavailable},
		{&document.ParsingError{Msg: "broken"}, http.StatusUnprocessableEntity},
		{&document.OCRError{Msg: "engine"}, http.StatusBadGateway},
		{&document.OCRError{Msg: "slow", Timeout: true}, http.StatusGatewayTimeout},
		{errTooLarge{limit: 1}, http.StatusRequestEntityTooLarge},
		{io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, statusFor(tc.err), tc.err.Error())
	}
}

func TestSanitizeFilename(t *testing.T) {
	require.Equal(t, "passwd", sanitizeFilename("../../etc/passwd"))
	require.Equal(t, "report.pdf", sanitizeFilename(`C:\docs\report.pdf`))
	require.Equal(t, "unnamed", sanitizeFilename(""))
}
