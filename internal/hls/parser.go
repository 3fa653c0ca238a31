// Package hls parses the parts of HLS master and media playlists a one-shot
// downloader needs. Parsing is line oriented and lenient: tags it does not use
// are skipped without error.
package hls

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/snapetech/skyclip/internal/safeurl"
)

const streamInfTag = "#EXT-X-STREAM-INF"

// bandwidthRe matches BANDWIDTH but not AVERAGE-BANDWIDTH.
var bandwidthRe = regexp.MustCompile(`(?:^|[:,])BANDWIDTH=(\d+)`)

// VariantStream is one #EXT-X-STREAM-INF entry of a master playlist.
type VariantStream struct {
	Bandwidth  uint64 // 0 when missing or malformed
	URI        string // resolved against the master playlist URL
	Resolution string
	Codecs     string
}

// SegmentRef is one media segment; slice order is playback order.
type SegmentRef struct {
	URI string
}

// ErrParse is returned when input cannot be treated as playlist text.
type ErrParse struct {
	Reason string
}

func (e *ErrParse) Error() string { return "hls: parse: " + e.Reason }

// ParseMasterPlaylist returns the variants declared in a master playlist.
// The line right after each #EXT-X-STREAM-INF header is taken as its URI, with no
// lookahead past blank lines; a header on the last line is dropped.
func ParseMasterPlaylist(data []byte, baseURL string) ([]VariantStream, error) {
	lines, base, err := prepare(data, baseURL)
	if err != nil {
		return nil, err
	}
	var out []VariantStream
	for i, line := range lines {
		if !strings.HasPrefix(line, streamInfTag) {
			continue
		}
		if i+1 >= len(lines) {
			break
		}
		uri, err := safeurl.Resolve(base, lines[i+1])
		if err != nil {
			continue
		}
		attrs := strings.TrimPrefix(line, streamInfTag)
		out = append(out, VariantStream{
			Bandwidth:  parseBandwidth(attrs),
			URI:        uri,
			Resolution: attrValue(attrs, "RESOLUTION"),
			Codecs:     attrValue(attrs, "CODECS"),
		})
	}
	return out, nil
}

// ParseMediaPlaylist returns every URI line of a media playlist in file order.
// Tag, comment and blank lines are skipped.
func ParseMediaPlaylist(data []byte, baseURL string) ([]SegmentRef, error) {
	lines, base, err := prepare(data, baseURL)
	if err != nil {
		return nil, err
	}
	var out []SegmentRef
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		uri, err := safeurl.Resolve(base, line)
		if err != nil {
			return nil, &ErrParse{Reason: err.Error()}
		}
		out = append(out, SegmentRef{URI: uri})
	}
	return out, nil
}

// SegmentURLs flattens refs into their URIs.
func SegmentURLs(refs []SegmentRef) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.URI
	}
	return out
}

func prepare(data []byte, baseURL string) ([]string, *url.URL, error) {
	if !utf8.Valid(data) || bytes.IndexByte(data, 0) >= 0 {
		return nil, nil, &ErrParse{Reason: "input is not text"}
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, nil, &ErrParse{Reason: fmt.Sprintf("base url %q: %v", baseURL, err)}
	}
	lines := strings.Split(string(data), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines, base, nil
}

func parseBandwidth(attrs string) uint64 {
	m := bandwidthRe.FindStringSubmatch(attrs)
	if m == nil {
		return 0
	}
	n, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// attrValue pulls KEY=value or KEY="value" out of an attribute list. Quoted
// values may contain commas (CODECS="avc1.64001f,mp4a.40.2").
func attrValue(attrs, key string) string {
	idx := -1
	for from := 0; ; {
		i := strings.Index(attrs[from:], key+"=")
		if i < 0 {
			return ""
		}
		i += from
		if i == 0 || attrs[i-1] == ',' || attrs[i-1] == ':' {
			idx = i
			break
		}
		from = i + 1
	}
	v := attrs[idx+len(key)+1:]
	if strings.HasPrefix(v, `"`) {
		if end := strings.Index(v[1:], `"`); end >= 0 {
			return v[1 : end+1]
		}
		return strings.TrimPrefix(v, `"`)
	}
	if end := strings.Index(v, ","); end >= 0 {
		return v[:end]
	}
	return strings.TrimSpace(v)
}
