package ingestion_engine

import (
	"bytes"
	"context"
	"strings"

	"code.sajari.com/docconv"

	"github.com/markdave123-py/filingscope/internal/core"
)

// DocconvExtractor implements core.DocumentExtractor using sajari/docconv.
type DocconvExtractor struct {
	useReadability bool
}

var _ core.DocumentExtractor = (*DocconvExtractor)(nil)

func NewDocconvExtractor(useReadability bool) *DocconvExtractor {
	return &DocconvExtractor{useReadability: useReadability}
}

// ExtractText converts a filing body to plain text. Plain text input is only
// normalized; everything else goes through docconv by content type.
func (e *DocconvExtractor) ExtractText(ctx context.Context, raw []byte, contentType string) (string, error) {
	const op = "extract.text"
	if err := ctx.Err(); err != nil {
		return "", err
	}

	mime := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	if mime == "" {
		mime = "text/html"
	}
	if mime == "text/plain" {
		return NormalizeWhitespace(string(raw)), nil
	}

	res, err := docconv.Convert(bytes.NewReader(raw), mime, e.useReadability)
	if err != nil {
		return "", core.NewError(op, core.KindInvalidInput, "docconv "+mime, err)
	}
	return NormalizeWhitespace(res.Body), nil
}

// NormalizeWhitespace collapses spaces inside each line, trims lines, and keeps
// at most one blank line between paragraphs.
func NormalizeWhitespace(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\u00a0", " ")

	var b strings.Builder
	blank := 0
	for _, line := range strings.Split(text, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			blank++
			continue
		}
		if b.Len() > 0 {
			if blank > 0 {
				b.WriteString("\n\n")
			} else {
				b.WriteString("\n")
			}
		}
		blank = 0
		b.WriteString(line)
	}
	return b.String()
}
