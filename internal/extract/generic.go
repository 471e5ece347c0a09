package extract

import (
	"context"

	"github.com/meridiancode/meridian/internal/parserpool"
)

var _ Extractor = (*GenericExtractor)(nil)

// GenericExtractor is the fallback for any file type with no dedicated
// extractor. It never errors and never extracts anything — the file still
// gets a File node from the caller, it simply has no children or edges of
// its own.
type GenericExtractor struct{}

func (e *GenericExtractor) Extract(ctx context.Context, pool *parserpool.Pool, path string, content []byte) (*Result, error) {
	return &Result{}, nil
}
