package bsky

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const videoThread = `{"thread":{"$type":"app.bsky.feed.defs#threadViewPost","post":{
  "uri":"at://did:plc:alice/app.bsky.feed.post/3k",
  "author":{"did":"did:plc:alice","handle":"alice.bsky.social"},
  "record":{"$type":"app.bsky.feed.post","createdAt":"2024-03-05T13:04:22.000Z"},
  "indexedAt":"2024-03-05T13:05:00.000Z",
  "embed":{"$type":"app.bsky.embed.video#view","cid":"bafy",
    "playlist":"https://video.bsky.app/watch/did/cid/playlist.m3u8",
    "thumbnail":"https://video.bsky.app/watch/did/cid/thumbnail.jpg"}}}}`

func newAppView(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL)
}

func TestResolveHandle(t *testing.T) {
	var gotHandle string
	c := newAppView(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/xrpc/com.atproto.identity.resolveHandle" {
			http.NotFound(w, r)
			return
		}
		gotHandle = r.URL.Query().Get("handle")
		w.Write([]byte(`{"did":"did:plc:alice"}`))
	})
	did, err := c.ResolveHandle(context.Background(), "alice.bsky.social")
	if err != nil {
		t.Fatal(err)
	}
	if did != "did:plc:alice" {
		t.Errorf("did = %q", did)
	}
	if gotHandle != "alice.bsky.social" {
		t.Errorf("handle param = %q", gotHandle)
	}
}

func TestResolveHandle_didPassthrough(t *testing.T) {
	c := newAppView(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s", r.URL)
	})
	did, err := c.ResolveHandle(context.Background(), "did:plc:alice")
	if err != nil || did != "did:plc:alice" {
		t.Errorf("ResolveHandle(did) = %q, %v", did, err)
	}
}

func TestResolveHandle_xrpcError(t *testing.T) {
	c := newAppView(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"InvalidRequest","message":"Unable to resolve handle"}`))
	})
	_, err := c.ResolveHandle(context.Background(), "nobody.bsky.social")
	var ie *ErrIdentityResolution
	if !errors.As(err, &ie) {
		t.Fatalf("err = %v, want *ErrIdentityResolution", err)
	}
	var xe *ErrXRPC
	if !errors.As(err, &xe) || xe.Code != "InvalidRequest" {
		t.Errorf("err = %v, want wrapped ErrXRPC InvalidRequest", err)
	}
	if !strings.Contains(err.Error(), "Unable to resolve handle") {
		t.Errorf("error text = %q", err.Error())
	}
}

func TestResolveHandle_badDID(t *testing.T) {
	c := newAppView(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"did":""}`))
	})
	_, err := c.ResolveHandle(context.Background(), "alice.bsky.social")
	var ie *ErrIdentityResolution
	if !errors.As(err, &ie) {
		t.Errorf("err = %v, want *ErrIdentityResolution", err)
	}
}

func TestFetchVideo(t *testing.T) {
	var gotURI, gotDepth string
	c := newAppView(t, func(w http.ResponseWriter, r *http.Request) {
		gotURI = r.URL.Query().Get("uri")
		gotDepth = r.URL.Query().Get("depth")
		w.Write([]byte(videoThread))
	})
	v, err := c.FetchVideo(context.Background(), "did:plc:alice", "3k")
	if err != nil {
		t.Fatal(err)
	}
	if gotURI != "at://did:plc:alice/app.bsky.feed.post/3k" || gotDepth != "0" {
		t.Errorf("query uri=%q depth=%q", gotURI, gotDepth)
	}
	if v.PlaylistURL != "https://video.bsky.app/watch/did/cid/playlist.m3u8" {
		t.Errorf("PlaylistURL = %q", v.PlaylistURL)
	}
	if v.ThumbnailURL == "" || v.Handle != "alice.bsky.social" || v.DID != "did:plc:alice" {
		t.Errorf("embed = %+v", v)
	}
	want := time.Date(2024, 3, 5, 13, 4, 22, 0, time.UTC)
	if !v.CreatedAt.Equal(want) {
		t.Errorf("CreatedAt = %v, want %v", v.CreatedAt, want)
	}
}

func TestFetchVideo_recordWithMedia(t *testing.T) {
	c := newAppView(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"thread":{"$type":"app.bsky.feed.defs#threadViewPost","post":{
		  "author":{"did":"did:plc:bob","handle":"bob.test"},
		  "record":{"createdAt":"2024-01-01T00:00:00Z"},
		  "embed":{"$type":"app.bsky.embed.recordWithMedia#view",
		    "record":{"record":{}},
		    "media":{"$type":"app.bsky.embed.video#view","playlist":"https://cdn.test/p.m3u8"}}}}}`))
	})
	v, err := c.FetchVideo(context.Background(), "did:plc:bob", "1")
	if err != nil {
		t.Fatal(err)
	}
	if v.PlaylistURL != "https://cdn.test/p.m3u8" {
		t.Errorf("PlaylistURL = %q", v.PlaylistURL)
	}
}

func TestFetchVideo_noVideo(t *testing.T) {
	bodies := []string{
		`{"thread":{"$type":"app.bsky.feed.defs#threadViewPost","post":{"author":{},"record":{}}}}`,
		`{"thread":{"$type":"app.bsky.feed.defs#threadViewPost","post":{"record":{},"embed":{"$type":"app.bsky.embed.images#view"}}}}`,
		`{"thread":{"$type":"app.bsky.feed.defs#threadViewPost","post":{"record":{},"embed":{"$type":"app.bsky.embed.recordWithMedia#view","media":{"$type":"app.bsky.embed.images#view"}}}}}`,
	}
	for _, body := range bodies {
		c := newAppView(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(body))
		})
		_, err := c.FetchVideo(context.Background(), "did:plc:x", "1")
		if !errors.Is(err, ErrNoVideo) {
			t.Errorf("body %s: err = %v, want ErrNoVideo", body, err)
		}
	}
}

func TestFetchVideo_failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"notFound", 200, `{"thread":{"$type":"app.bsky.feed.defs#notFoundPost","uri":"at://x","notFound":true}}`},
		{"blocked", 200, `{"thread":{"$type":"app.bsky.feed.defs#blockedPost","uri":"at://x","blocked":true}}`},
		{"badJSON", 200, `{"thread":`},
		{"noPost", 200, `{"thread":{}}`},
		{"httpError", 400, `{"error":"NotFound","message":"Post not found"}`},
		{"serverError", 502, `bad gateway`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newAppView(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			_, err := c.FetchVideo(context.Background(), "did:plc:x", "1")
			var pe *ErrPostFetch
			if !errors.As(err, &pe) {
				t.Fatalf("err = %v, want *ErrPostFetch", err)
			}
			if pe.URI != "at://did:plc:x/app.bsky.feed.post/1" {
				t.Errorf("URI = %q", pe.URI)
			}
		})
	}
}

func TestFetchVideo_createdAtFallback(t *testing.T) {
	fixed := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	tests := []struct {
		name string
		post string
		want time.Time
	}{
		{"indexedAt", `"record":{},"indexedAt":"2024-06-01T10:00:00Z"`, time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)},
		{"malformed", `"record":{"createdAt":"yesterday"},"indexedAt":"2024-06-01T10:00:00Z"`, time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)},
		{"now", `"record":{}`, fixed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newAppView(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"thread":{"$type":"app.bsky.feed.defs#threadViewPost","post":{` + tt.post +
					`,"embed":{"$type":"app.bsky.embed.video#view","playlist":"https://cdn.test/p.m3u8"}}}}`))
			})
			c.Now = func() time.Time { return fixed }
			v, err := c.FetchVideo(context.Background(), "did:plc:x", "1")
			if err != nil {
				t.Fatal(err)
			}
			if !v.CreatedAt.Equal(tt.want) {
				t.Errorf("CreatedAt = %v, want %v", v.CreatedAt, tt.want)
			}
		})
	}
}
