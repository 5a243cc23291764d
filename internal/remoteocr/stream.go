package remoteocr

import (
	"errors"
	"io"
)

// streamBody exposes r as a request body written in size-byte pieces.
func streamBody(r io.Reader, size int) io.ReadCloser {
	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(copyChunks(pw, r, size))
	}()
	return pr
}

// copyChunks writes r to w in pieces of exactly size bytes; only the last
// piece may be shorter.
func copyChunks(w io.Writer, r io.Reader, size int) error {
	buf := make([]byte, size)
	for {
		n, err := io.ReadFull(r, buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		switch {
		case err == nil:
			continue
		case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
			return nil
		default:
			return err
		}
	}
}
