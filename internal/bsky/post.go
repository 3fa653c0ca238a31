package bsky

import (
	"context"
	"errors"
	"net/url"
	"time"
)

const (
	typeVideoView           = "app.bsky.embed.video#view"
	typeRecordWithMediaView = "app.bsky.embed.recordWithMedia#view"
	typeThreadViewPost      = "app.bsky.feed.defs#threadViewPost"
	typeNotFoundPost        = "app.bsky.feed.defs#notFoundPost"
	typeBlockedPost         = "app.bsky.feed.defs#blockedPost"
)

// VideoEmbed is the video attached to a post.
type VideoEmbed struct {
	PostURI      string
	PlaylistURL  string // HLS master playlist
	ThumbnailURL string
	CreatedAt    time.Time
	Handle       string // post author's handle
	DID          string
}

type threadResponse struct {
	Thread struct {
		Type string    `json:"$type"`
		Post *postView `json:"post"`
	} `json:"thread"`
}

type postView struct {
	URI    string `json:"uri"`
	Author struct {
		DID    string `json:"did"`
		Handle string `json:"handle"`
	} `json:"author"`
	Record struct {
		CreatedAt string `json:"createdAt"`
	} `json:"record"`
	IndexedAt string     `json:"indexedAt"`
	Embed     *embedView `json:"embed"`
}

type embedView struct {
	Type      string     `json:"$type"`
	Playlist  string     `json:"playlist"`
	Thumbnail string     `json:"thumbnail"`
	Media     *embedView `json:"media"`
}

// PostURI builds the at:// URI of a feed post.
func PostURI(did, rkey string) string {
	return "at://" + did + "/app.bsky.feed.post/" + rkey
}

// FetchVideo loads the post (did, rkey) and returns its video embed. Posts that
// quote another record and attach a video are supported too.
func (c *Client) FetchVideo(ctx context.Context, did, rkey string) (*VideoEmbed, error) {
	uri := PostURI(did, rkey)
	var out threadResponse
	params := url.Values{"uri": {uri}, "depth": {"0"}}
	if err := c.query(ctx, "app.bsky.feed.getPostThread", params, &out); err != nil {
		return nil, &ErrPostFetch{URI: uri, Err: err}
	}
	switch out.Thread.Type {
	case typeNotFoundPost:
		return nil, &ErrPostFetch{URI: uri, Err: errors.New("post not found")}
	case typeBlockedPost:
		return nil, &ErrPostFetch{URI: uri, Err: errors.New("post is blocked")}
	}
	post := out.Thread.Post
	if post == nil {
		return nil, &ErrPostFetch{URI: uri, Err: errors.New("response has no post")}
	}
	video := findVideo(post.Embed)
	if video == nil {
		return nil, ErrNoVideo
	}
	return &VideoEmbed{
		PostURI:      uri,
		PlaylistURL:  video.Playlist,
		ThumbnailURL: video.Thumbnail,
		CreatedAt:    c.createdAt(post),
		Handle:       post.Author.Handle,
		DID:          post.Author.DID,
	}, nil
}

func findVideo(e *embedView) *embedView {
	if e == nil {
		return nil
	}
	switch e.Type {
	case typeVideoView:
		if e.Playlist != "" {
			return e
		}
	case typeRecordWithMediaView:
		return findVideo(e.Media)
	}
	return nil
}

// createdAt prefers the record's own timestamp, then the index time, then now.
func (c *Client) createdAt(p *postView) time.Time {
	for _, s := range []string{p.Record.CreatedAt, p.IndexedAt} {
		if s == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t
		}
	}
	return c.now()
}
