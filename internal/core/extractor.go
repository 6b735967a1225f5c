package core

import (
	"context"
)

// DocumentExtractor turns a fetched document body into normalized plain text.
// The contentType hint helps the extractor choose the right parsing strategy.
type DocumentExtractor interface {
	ExtractText(ctx context.Context, raw []byte, contentType string) (string, error)
}
