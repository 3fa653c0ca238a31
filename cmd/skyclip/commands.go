package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/snapetech/skyclip/internal/bsky"
	"github.com/snapetech/skyclip/internal/hls"
	"github.com/snapetech/skyclip/internal/materializer"
	"github.com/snapetech/skyclip/internal/pipeline"
	"github.com/snapetech/skyclip/internal/safeurl"
)

const barWidth = 30

// progressLine renders "[#####.....]  50% status".
func progressLine(fraction float64, status string) string {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	filled := int(fraction * barWidth)
	return fmt.Sprintf("[%s%s] %3d%% %s",
		strings.Repeat("#", filled), strings.Repeat(".", barWidth-filled), int(fraction*100), status)
}

// runGet downloads req and hands the video to store. Progress goes to w (nil
// = silent). Returns the stored location.
func runGet(ctx context.Context, p *pipeline.Pipeline, store materializer.Interface, req pipeline.Request, w io.Writer) (string, error) {
	task := p.Start(ctx, req)
	var progress float64
	for e := range task.Events() {
		if w == nil {
			continue
		}
		switch e.Kind {
		case pipeline.EventStatus:
			fmt.Fprintf(w, "\r%s", progressLine(progress, e.Status))
		case pipeline.EventProgress, pipeline.EventDone:
			progress = e.Progress
			fmt.Fprintf(w, "\r%s", progressLine(progress, e.Status))
		case pipeline.EventError:
			fmt.Fprintf(w, "\r%s\n", progressLine(progress, "Error: "+e.Status))
		}
		if e.Kind == pipeline.EventDone {
			fmt.Fprintln(w)
		}
	}
	res, err := task.Wait()
	if err != nil {
		return "", err
	}
	return store.Materialize(ctx, res.Video, res.Filename)
}

// runInspect prints the variants of target's master playlist, the one that
// would be downloaded and a summary of its media playlist. target is either a
// post URL or a playlist URL.
func runInspect(ctx context.Context, w io.Writer, c *components, target string) error {
	masterURL := target
	if ref, err := bsky.ParsePostURL(target, c.pipeline.Hosts); err == nil {
		did, err := c.posts.ResolveHandle(ctx, ref.Handle)
		if err != nil {
			return err
		}
		embed, err := c.posts.FetchVideo(ctx, did, ref.RKey)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "post:      %s\nauthor:    %s (%s)\ncreated:   %s\n", embed.PostURI, embed.Handle, did, embed.CreatedAt.Format("2006-01-02 15:04:05 MST"))
		if embed.ThumbnailURL != "" {
			fmt.Fprintf(w, "thumbnail: %s\n", embed.ThumbnailURL)
		}
		masterURL = embed.PlaylistURL
	} else if !safeurl.IsHTTPOrHTTPS(target) {
		return err
	}

	body, err := c.fetcher.FetchPlaylist(ctx, masterURL)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "master:    %s\n", safeurl.Redact(masterURL))
	variants, err := hls.ParseMasterPlaylist(body, masterURL)
	if err != nil {
		return err
	}
	best, err := hls.SelectBestVariant(variants)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\tBANDWIDTH\tRESOLUTION\tCODECS\tURI")
	for _, v := range variants {
		mark := ""
		if v == best {
			mark = "*"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n", mark, v.Bandwidth, v.Resolution, v.Codecs, safeurl.Redact(v.URI))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	media, err := c.fetcher.FetchPlaylist(ctx, best.URI)
	if err != nil {
		return err
	}
	segments, err := hls.ParseMediaPlaylist(media, best.URI)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "selected:  %s\nsegments:  %d\n", safeurl.Redact(best.URI), len(segments))
	if info, err := hls.Describe(media); err == nil {
		fmt.Fprintf(w, "duration:  %s (target %s, ended=%v)\n", info.Duration, info.TargetDuration, info.Ended)
	}
	return nil
}
