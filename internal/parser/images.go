package parser

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/dgallion1/docnorm/internal/document"
)

// ImageExtractor is implemented by parsers whose formats embed images.
type ImageExtractor interface {
	Images(data []byte) ([]document.Image, error)
}

// DefaultMaxImageBytes caps the decompressed size of one embedded image.
const DefaultMaxImageBytes = 32 << 20

// Images returns the media embedded under word/media.
func (p *DOCXParser) Images(data []byte) ([]document.Image, error) {
	return zipImages(data, "word/media/", p.MaxImageBytes)
}

// Images returns the archive's pages in archive order.
func (p *CBZParser) Images(data []byte) ([]document.Image, error) {
	return zipImages(data, "", p.MaxImageBytes)
}

func zipImages(data []byte, prefix string, limit int64) ([]document.Image, error) {
	if limit <= 0 {
		limit = DefaultMaxImageBytes
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &document.ParsingError{Msg: "open archive", Err: err}
	}

	var images []document.Image
	for _, f := range zr.File {
		ext := strings.ToLower(path.Ext(f.Name))
		if !strings.HasPrefix(f.Name, prefix) || !imageExtensions[ext] {
			continue
		}
		if f.UncompressedSize64 > uint64(limit) {
			return nil, imageTooLarge(f.Name, limit)
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.Name, err)
		}
		// The header size can lie, so the read is capped as well.
		raw, err := io.ReadAll(io.LimitReader(rc, limit+1))
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Name, err)
		}
		if int64(len(raw)) > limit {
			return nil, imageTooLarge(f.Name, limit)
		}
		images = append(images, document.Image{
			Data:       raw,
			Format:     strings.TrimPrefix(ext, "."),
			Filename:   f.Name,
			PageNumber: len(images) + 1,
		})
	}
	return images, nil
}

func imageTooLarge(name string, limit int64) error {
	ctx := map[string]string{"image": name, "limit": strconv.FormatInt(limit, 10)}
	return &document.ParsingError{Msg: "embedded image exceeds size limit", Context: ctx}
}
