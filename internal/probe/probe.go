// Package probe sniffs the container of downloaded media bytes.
package probe

import (
	"bytes"

	"github.com/gabriel-vasile/mimetype"

	"github.com/snapetech/skyclip/internal/assemble"
)

// Container classifies the bytes of a segment.
type Container string

const (
	ContainerUnknown Container = ""
	ContainerTS      Container = "mpegts"
	ContainerFMP4    Container = "fmp4"
)

const tsPacketSize = 188

// Result is what Sniff learned about a chunk.
type Result struct {
	Container Container
	MIME      string // best-effort label from mimetype
}

// Sniff inspects the head of data. Transport streams are recognised by the 0x47
// sync byte at the start of consecutive packets; fragmented MP4 by an ISO BMFF
// box type at offset 4.
func Sniff(data []byte) Result {
	r := Result{MIME: mimetype.Detect(data).String()}
	switch {
	case isTS(data):
		r.Container = ContainerTS
	case isBMFF(data):
		r.Container = ContainerFMP4
	}
	return r
}

func isTS(data []byte) bool {
	if len(data) == 0 || data[0] != 0x47 {
		return false
	}
	if len(data) > tsPacketSize {
		return data[tsPacketSize] == 0x47
	}
	return true
}

var bmffBoxes = [][]byte{[]byte("ftyp"), []byte("styp"), []byte("moof"), []byte("moov"), []byte("sidx")}

func isBMFF(data []byte) bool {
	if len(data) < 8 {
		return false
	}
	box := data[4:8]
	for _, b := range bmffBoxes {
		if bytes.Equal(box, b) {
			return true
		}
	}
	return false
}

// Format returns the output format matching the container. ok is false when the
// container is unknown.
func (c Container) Format() (f assemble.Format, ok bool) {
	switch c {
	case ContainerTS:
		return assemble.FormatTS, true
	case ContainerFMP4:
		return assemble.FormatMP4, true
	}
	return "", false
}

func (c Container) String() string {
	if c == ContainerUnknown {
		return "unknown"
	}
	return string(c)
}
