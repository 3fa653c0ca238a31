package assemble

import (
	"bytes"
	"fmt"
	"io"
	"strings"
)

// Format is the requested output container. It decides the declared content
// type and extension; the segment bytes are never rewritten.
type Format string

const (
	FormatMP4 Format = "mp4"
	FormatTS  Format = "ts"
)

// Formats lists the supported formats.
var Formats = []Format{FormatMP4, FormatTS}

// ParseFormat accepts "mp4" or "ts" (case-insensitive); "" means mp4.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "mp4":
		return FormatMP4, nil
	case "ts", "mpegts":
		return FormatTS, nil
	}
	return "", fmt.Errorf("unsupported format %q (want mp4 or ts)", s)
}

// ContentType returns the MIME type declared for the format.
func (f Format) ContentType() string {
	if f == FormatMP4 {
		return "video/mp4"
	}
	return "video/MP2T"
}

// Extension returns the file extension without the dot.
func (f Format) Extension() string {
	if f == FormatMP4 {
		return "mp4"
	}
	return "ts"
}

// Video is an assembled video: ordered chunks plus the requested format. It is
// owned by whoever received it.
type Video struct {
	Chunks [][]byte
	Format Format
}

// NewVideo builds the output container from chunks in order.
func NewVideo(chunks [][]byte, format Format) *Video {
	return &Video{Chunks: chunks, Format: format}
}

func (v *Video) ContentType() string { return v.Format.ContentType() }

// Size is the total byte length.
func (v *Video) Size() int64 {
	var n int64
	for _, c := range v.Chunks {
		n += int64(len(c))
	}
	return n
}

// WriteTo writes every chunk to w in order.
func (v *Video) WriteTo(w io.Writer) (int64, error) {
	var n int64
	for _, c := range v.Chunks {
		m, err := w.Write(c)
		n += int64(m)
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// Reader returns a reader over the concatenated chunks.
func (v *Video) Reader() io.Reader {
	readers := make([]io.Reader, len(v.Chunks))
	for i, c := range v.Chunks {
		readers[i] = bytes.NewReader(c)
	}
	return io.MultiReader(readers...)
}

// Bytes concatenates all chunks into one slice.
func (v *Video) Bytes() []byte {
	out := make([]byte, 0, v.Size())
	for _, c := range v.Chunks {
		out = append(out, c...)
	}
	return out
}
