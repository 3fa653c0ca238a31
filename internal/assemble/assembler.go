package assemble

import (
	"context"
	"fmt"
	"log"

	"github.com/snapetech/skyclip/internal/safeurl"
)

// ErrSegmentFetch reports the first segment that could not be fetched. The
// whole assembly is abandoned when it occurs.
type ErrSegmentFetch struct {
	Index int
	URL   string
	Err   error
}

func (e *ErrSegmentFetch) Error() string {
	return fmt.Sprintf("segment %d (%s): %v", e.Index, safeurl.Redact(e.URL), e.Err)
}

func (e *ErrSegmentFetch) Unwrap() error { return e.Err }

// SegmentFetcher returns one segment payload.
type SegmentFetcher interface {
	FetchSegment(ctx context.Context, url string) ([]byte, error)
}

// ProgressFunc receives completed/total after each segment.
type ProgressFunc func(fraction float64)

// Assembler downloads segments one at a time, in list order. Segments are never
// fetched in parallel: progress must be reported in order and origins rate limit.
type Assembler struct {
	Fetcher SegmentFetcher
}

// Assemble returns the segment payloads in the order of urls. onProgress (may be
// nil) is called exactly once per segment with a strictly increasing fraction
// ending at 1.0. On any failure no chunks are returned. ctx is checked between
// segments.
func (a *Assembler) Assemble(ctx context.Context, urls []string, onProgress ProgressFunc) ([][]byte, error) {
	total := len(urls)
	chunks := make([][]byte, 0, total)
	var size int
	for i, u := range urls {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		chunk, err := a.Fetcher.FetchSegment(ctx, u)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Printf("assemble: segment failed index=%d/%d url=%q err=%v", i, total, safeurl.Redact(u), err)
			return nil, &ErrSegmentFetch{Index: i, URL: u, Err: err}
		}
		chunks = append(chunks, chunk)
		size += len(chunk)
		if onProgress != nil {
			onProgress(float64(i+1) / float64(total))
		}
	}
	log.Printf("assemble: done segments=%d bytes=%d", total, size)
	return chunks, nil
}
