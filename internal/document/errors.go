package document

import (
	"fmt"
	"sort"
	"strings"
)

// MissingDependencyError reports a required engine, library or binary that
// is absent or too old.
type MissingDependencyError struct {
	Msg     string
	Context map[string]string
	Err     error
}

func (e *MissingDependencyError) Error() string {
	return formatError("missing dependency", e.Msg, e.Context, e.Err)
}

func (e *MissingDependencyError) Unwrap() error { return e.Err }

// OCRError reports a failed engine initialization, invocation or
// recognition. Timeout is set when the failure was a deadline.
type OCRError struct {
	Msg     string
	Context map[string]string
	Timeout bool
	Err     error
}

func (e *OCRError) Error() string {
	return formatError("ocr", e.Msg, e.Context, e.Err)
}

func (e *OCRError) Unwrap() error { return e.Err }

// ParsingError reports a converter process that failed or produced
// unreadable output.
type ParsingError struct {
	Msg     string
	Context map[string]string
	Err     error
}

func (e *ParsingError) Error() string {
	return formatError("parsing", e.Msg, e.Context, e.Err)
}

func (e *ParsingError) Unwrap() error { return e.Err }

// ValidationError reports an unsupported mime type or an invalid
// configuration.
type ValidationError struct {
	Msg     string
	Context map[string]string
}

func (e *ValidationError) Error() string {
	return formatError("validation", e.Msg, e.Context, nil)
}

func formatError(kind, msg string, ctx map[string]string, err error) string {
	var b strings.Builder
	b.WriteString(kind)
	b.WriteString(": ")
	b.WriteString(msg)
	if len(ctx) > 0 {
		keys := make([]string, 0, len(ctx))
		for k := range ctx {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(" (")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s=%s", k, ctx[k])
		}
		b.WriteString(")")
	}
	if err != nil {
		b.WriteString(": ")
		b.WriteString(err.Error())
	}
	return b.String()
}
