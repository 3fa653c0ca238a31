// Package pipeline runs one download from post URL to assembled video.
package pipeline

import (
	"context"
	"log"
	"time"

	"github.com/snapetech/skyclip/internal/assemble"
	"github.com/snapetech/skyclip/internal/bsky"
	"github.com/snapetech/skyclip/internal/manifest"
	"github.com/snapetech/skyclip/internal/metrics"
	"github.com/snapetech/skyclip/internal/naming"
	"github.com/snapetech/skyclip/internal/probe"
	"github.com/snapetech/skyclip/internal/safeurl"
)

// PostResolver looks up a post's author and video.
type PostResolver interface {
	ResolveHandle(ctx context.Context, handle string) (string, error)
	FetchVideo(ctx context.Context, did, rkey string) (*bsky.VideoEmbed, error)
}

// ManifestResolver turns a master playlist URL into segment URLs.
type ManifestResolver interface {
	Resolve(ctx context.Context, masterURL string) (*manifest.ResolvedManifest, error)
}

// SegmentAssembler downloads segments in order.
type SegmentAssembler interface {
	Assemble(ctx context.Context, urls []string, onProgress assemble.ProgressFunc) ([][]byte, error)
}

// Request is one download.
type Request struct {
	PostURL string
	Format  assemble.Format // "" = mp4
}

// Result is a finished download.
type Result struct {
	Video        *assemble.Video
	Filename     string
	Handle       string
	DID          string
	PostURI      string
	ThumbnailURL string
	CreatedAt    time.Time
	Manifest     *manifest.ResolvedManifest
	Container    probe.Result // sniffed from the first segment
}

// Pipeline wires the resolvers and the assembler together.
type Pipeline struct {
	Posts     PostResolver
	Manifests ManifestResolver
	Assembler SegmentAssembler
	Hosts     []string // accepted post URL hosts; nil = bsky.DefaultPostHosts
	Naming    naming.Options
	Metrics   *metrics.Metrics
}

type run struct {
	observer Observer
	stage    Stage
}

func (r *run) enter(s Stage) {
	r.stage = s
	r.emit(Event{Kind: EventStatus, Stage: s, Status: s.Status()})
}

func (r *run) emit(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	if r.observer != nil {
		r.observer(e)
	}
}

// Run performs req, reporting each stage and every downloaded segment to
// observer (may be nil). The first error ends the run; nothing is retried.
func (p *Pipeline) Run(ctx context.Context, req Request, observer Observer) (res *Result, err error) {
	r := &run{observer: observer, stage: StageIdle}
	start := time.Now()
	p.Metrics.DownloadStarted()
	var segments, size int
	defer func() {
		p.Metrics.DownloadFinished(r.stage.String(), time.Since(start), segments, size, err)
		if err != nil {
			log.Printf("pipeline: failed stage=%s url=%q err=%v", r.stage, req.PostURL, err)
			r.emit(Event{Kind: EventError, Stage: StageFailed, Status: err.Error(), Err: err})
		}
	}()

	format := req.Format
	if format == "" {
		format = assemble.FormatMP4
	}

	r.enter(StageExtractingPostInfo)
	ref, err := bsky.ParsePostURL(req.PostURL, p.Hosts)
	if err != nil {
		return nil, err
	}

	r.enter(StageResolvingIdentity)
	did, err := p.Posts.ResolveHandle(ctx, ref.Handle)
	if err != nil {
		return nil, err
	}

	r.enter(StageFetchingPostMetadata)
	embed, err := p.Posts.FetchVideo(ctx, did, ref.RKey)
	if err != nil {
		return nil, err
	}
	log.Printf("pipeline: post=%s playlist=%q", embed.PostURI, safeurl.Redact(embed.PlaylistURL))

	r.enter(StageResolvingManifest)
	m, err := p.Manifests.Resolve(ctx, embed.PlaylistURL)
	if err != nil {
		return nil, err
	}

	r.enter(StageDownloadingSegments)
	chunks, err := p.Assembler.Assemble(ctx, m.SegmentURLs, func(f float64) {
		r.emit(Event{Kind: EventProgress, Stage: StageDownloadingSegments, Status: StageDownloadingSegments.Status(), Progress: f})
	})
	if err != nil {
		return nil, err
	}

	video := assemble.NewVideo(chunks, format)
	segments, size = len(chunks), int(video.Size())
	handle := embed.Handle
	if handle == "" && !ref.IsDID() {
		handle = ref.Handle
	}
	res = &Result{
		Video:        video,
		Filename:     naming.Filename(handle, embed.CreatedAt, format.Extension(), p.Naming),
		Handle:       handle,
		DID:          did,
		PostURI:      embed.PostURI,
		ThumbnailURL: embed.ThumbnailURL,
		CreatedAt:    embed.CreatedAt,
		Manifest:     m,
	}
	if len(chunks) > 0 {
		res.Container = probe.Sniff(chunks[0])
		if f, ok := res.Container.Container.Format(); ok && f != format {
			log.Printf("pipeline: container=%s differs from requested format=%s; bytes are kept as-is", res.Container.Container, format)
		}
	}

	r.stage = StageComplete
	log.Printf("pipeline: complete file=%q segments=%d bytes=%d", res.Filename, segments, size)
	r.emit(Event{Kind: EventDone, Stage: StageComplete, Status: StageComplete.Status(), Progress: 1})
	return res, nil
}
