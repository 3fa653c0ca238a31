package httpclient

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/andybalholm/brotli"
)

func TestDecodingTransport(t *testing.T) {
	const payload = "#EXTM3U\n#EXT-X-STREAM-INF:BANDWIDTH=800000\nlow.m3u8\n"
	tests := []struct {
		name     string
		encoding string
		encode   func([]byte) []byte
	}{
		{"identity", "", func(b []byte) []byte { return b }},
		{"brotli", "br", func(b []byte) []byte {
			var buf bytes.Buffer
			w := brotli.NewWriter(&buf)
			w.Write(b)
			w.Close()
			return buf.Bytes()
		}},
		{"gzip", "gzip", func(b []byte) []byte {
			var buf bytes.Buffer
			w := gzip.NewWriter(&buf)
			w.Write(b)
			w.Close()
			return buf.Bytes()
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotAccept string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotAccept = r.Header.Get("Accept-Encoding")
				if tt.encoding != "" {
					w.Header().Set("Content-Encoding", tt.encoding)
				}
				w.Write(tt.encode([]byte(payload)))
			}))
			defer srv.Close()

			resp, err := Default().Get(srv.URL)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			body, err := io.ReadAll(resp.Body)
			if err != nil {
				t.Fatal(err)
			}
			if string(body) != payload {
				t.Errorf("body = %q, want %q", body, payload)
			}
			if gotAccept != AcceptEncoding {
				t.Errorf("Accept-Encoding = %q, want %q", gotAccept, AcceptEncoding)
			}
			if resp.Header.Get("Content-Encoding") != "" {
				t.Errorf("Content-Encoding should be stripped after decoding")
			}
		})
	}
}
