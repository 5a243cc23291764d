// Package pandoc converts office and markup documents to markdown with the
// pandoc binary and reads their metadata from pandoc's JSON document tree.
package pandoc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docnorm/internal/document"
	"github.com/dgallion1/docnorm/internal/metadata"
	"github.com/dgallion1/docnorm/internal/ocr"
)

// Runner executes a command and returns its captured output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// Converter runs pandoc. The installed version is checked once, on first
// use.
type Converter struct {
	binary  string
	runner  Runner
	log     *slog.Logger
	version *ocr.Lazy[string]
}

// Option configures a Converter.
type Option func(*Converter)

// WithRunner replaces process execution, mainly for tests.
func WithRunner(r Runner) Option {
	return func(c *Converter) { c.runner = r }
}

// WithBinary sets the pandoc executable. Defaults to "pandoc" on PATH.
func WithBinary(path string) Option {
	return func(c *Converter) { c.binary = path }
}

func New(log *slog.Logger, opts ...Option) *Converter {
	c := &Converter{
		binary: "pandoc",
		runner: execRunner{},
		log:    log,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.version = ocr.NewLazy(c.checkVersion)
	return c
}

// Version returns the installed pandoc version, checking it if needed.
func (c *Converter) Version(ctx context.Context) (string, error) {
	return c.version.Get(ctx)
}

func (c *Converter) checkVersion(ctx context.Context) (string, error) {
	stdout, _, err := c.runner.Run(ctx, c.binary, "--version")
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", &document.MissingDependencyError{Msg: "pandoc is not installed", Err: err}
		}
		return "", &document.MissingDependencyError{Msg: "pandoc --version failed", Err: err}
	}

	firstLine, _, _ := strings.Cut(string(stdout), "\n")
	fields := strings.Fields(firstLine)
	if len(fields) < 2 {
		return "", &document.MissingDependencyError{
			Msg:     "cannot read pandoc version",
			Context: map[string]string{"output": firstLine},
		}
	}
	version := fields[1]
	if !strings.HasPrefix(version, "3.") {
		return "", &document.MissingDependencyError{
			Msg:     "pandoc version 3 or above is required",
			Context: map[string]string{"version": version},
		}
	}
	c.log.Info("pandoc available", "version", version)
	return version, nil
}

// ExtractMetadata reads document metadata through pandoc's JSON output.
func (c *Converter) ExtractMetadata(ctx context.Context, path, mimeType string) (document.Metadata, error) {
	ext, err := Extension(mimeType)
	if err != nil {
		return nil, err
	}
	if _, err := c.Version(ctx); err != nil {
		return nil, err
	}

	out, err := c.convert(ctx, path, ext, "json", "--to=json", "--standalone", "--quiet")
	if err != nil {
		return nil, err
	}
	doc, err := metadata.DecodeDocument(out)
	if err != nil {
		return nil, &document.ParsingError{
			Msg:     "unreadable pandoc output",
			Context: map[string]string{"file": path},
			Err:     err,
		}
	}
	return metadata.FromDocument(doc), nil
}

// Markdown converts the document to markdown with normalized whitespace.
func (c *Converter) Markdown(ctx context.Context, path, mimeType string, extraArgs ...string) (string, error) {
	ext, err := Extension(mimeType)
	if err != nil {
		return "", err
	}
	if _, err := c.Version(ctx); err != nil {
		return "", err
	}

	args := append([]string{"--to=markdown", "--standalone", "--wrap=preserve", "--quiet"}, extraArgs...)
	out, err := c.convert(ctx, path, ext, "md", args...)
	if err != nil {
		return "", err
	}
	return document.NormalizeSpaces(string(out)), nil
}

// ProcessFile converts path and extracts its metadata.
func (c *Converter) ProcessFile(ctx context.Context, path, mimeType string, extraArgs ...string) (*document.ExtractionResult, error) {
	md, err := c.ExtractMetadata(ctx, path, mimeType)
	if err != nil {
		return nil, err
	}
	content, err := c.Markdown(ctx, path, mimeType, extraArgs...)
	if err != nil {
		return nil, err
	}
	return &document.ExtractionResult{
		Content:  content,
		MimeType: document.MarkdownMimeType,
		Metadata: md,
	}, nil
}

// ProcessContent writes data to a temporary file and converts it.
func (c *Converter) ProcessContent(ctx context.Context, data []byte, mimeType string, extraArgs ...string) (*document.ExtractionResult, error) {
	ext, err := Extension(mimeType)
	if err != nil {
		return nil, err
	}
	tmp, err := os.CreateTemp("", "docnorm-pandoc-*."+ext)
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close temp file: %w", err)
	}
	return c.ProcessFile(ctx, tmpPath, mimeType, extraArgs...)
}

// convert runs pandoc with its output directed to a temporary file and
// returns that file's contents.
func (c *Converter) convert(ctx context.Context, path, from, outExt string, args ...string) ([]byte, error) {
	dir, err := os.MkdirTemp("", "docnorm-pandoc-")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)
	outPath := filepath.Join(dir, "out."+outExt)

	cmdArgs := append([]string{path, "--from=" + from}, args...)
	cmdArgs = append(cmdArgs, "--output", outPath)

	_, stderr, err := c.runner.Run(ctx, c.binary, cmdArgs...)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, &document.MissingDependencyError{Msg: "pandoc is not installed", Err: err}
		}
		return nil, &document.ParsingError{
			Msg:     "pandoc failed",
			Context: map[string]string{"file": path, "stderr": strings.TrimSpace(string(stderr))},
			Err:     err,
		}
	}

	out, err := os.ReadFile(outPath)
	if err != nil {
		return nil, &document.ParsingError{
			Msg:     "pandoc produced no output",
			Context: map[string]string{"file": path},
			Err:     err,
		}
	}
	return out, nil
}
