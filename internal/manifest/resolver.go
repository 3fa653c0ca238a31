package manifest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/snapetech/skyclip/internal/hls"
	"github.com/snapetech/skyclip/internal/safeurl"
)

// Stage names the playlist a failure belongs to.
type Stage string

const (
	StageMaster Stage = "master playlist"
	StageMedia  Stage = "media playlist"
)

// ErrNoSegments is returned when the chosen media playlist lists no segments.
var ErrNoSegments = errors.New("manifest: media playlist has no segments")

// ErrManifestFetch reports a failed playlist fetch or parse, tagged with the stage.
type ErrManifestFetch struct {
	Stage Stage
	URL   string
	Err   error
}

func (e *ErrManifestFetch) Error() string {
	return fmt.Sprintf("fetch %s %s: %v", e.Stage, safeurl.Redact(e.URL), e.Err)
}

func (e *ErrManifestFetch) Unwrap() error { return e.Err }

// PlaylistFetcher returns the raw body of a playlist URL.
type PlaylistFetcher interface {
	FetchPlaylist(ctx context.Context, url string) ([]byte, error)
}

// ResolvedManifest is everything needed to download one video. It lives for a
// single request.
type ResolvedManifest struct {
	MasterPlaylistURL string
	Variant           hls.VariantStream
	MediaPlaylistURL  string
	SegmentURLs       []string
	Duration          time.Duration // 0 when the media playlist could not be described
}

// Resolver turns a master playlist URL into an ordered segment list.
type Resolver struct {
	Fetcher PlaylistFetcher
}

// Resolve fetches the master playlist, selects the highest bandwidth variant,
// fetches its media playlist and returns the segment URLs in playback order.
// Nothing is retried here.
func (r *Resolver) Resolve(ctx context.Context, masterURL string) (*ResolvedManifest, error) {
	masterBody, err := r.Fetcher.FetchPlaylist(ctx, masterURL)
	if err != nil {
		return nil, &ErrManifestFetch{Stage: StageMaster, URL: masterURL, Err: err}
	}
	variants, err := hls.ParseMasterPlaylist(masterBody, masterURL)
	if err != nil {
		return nil, &ErrManifestFetch{Stage: StageMaster, URL: masterURL, Err: err}
	}
	variant, err := hls.SelectBestVariant(variants)
	if err != nil {
		return nil, err
	}
	log.Printf("manifest: master=%q variants=%d selected bandwidth=%d resolution=%q",
		safeurl.Redact(masterURL), len(variants), variant.Bandwidth, variant.Resolution)

	mediaBody, err := r.Fetcher.FetchPlaylist(ctx, variant.URI)
	if err != nil {
		return nil, &ErrManifestFetch{Stage: StageMedia, URL: variant.URI, Err: err}
	}
	segments, err := hls.ParseMediaPlaylist(mediaBody, variant.URI)
	if err != nil {
		return nil, &ErrManifestFetch{Stage: StageMedia, URL: variant.URI, Err: err}
	}
	if len(segments) == 0 {
		return nil, ErrNoSegments
	}

	res := &ResolvedManifest{
		MasterPlaylistURL: masterURL,
		Variant:           variant,
		MediaPlaylistURL:  variant.URI,
		SegmentURLs:       hls.SegmentURLs(segments),
	}
	if info, err := hls.Describe(mediaBody); err == nil {
		res.Duration = info.Duration
	}
	log.Printf("manifest: media=%q segments=%d duration=%s",
		safeurl.Redact(res.MediaPlaylistURL), len(res.SegmentURLs), res.Duration)
	return res, nil
}
