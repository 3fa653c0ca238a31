package hls

import (
	"bytes"
	"fmt"
	"time"

	"github.com/grafov/m3u8"
)

// Kind tells master and media playlists apart.
type Kind string

const (
	KindMaster Kind = "master"
	KindMedia  Kind = "media"
)

// PlaylistInfo summarises a playlist for display and logging. It is not used to
// pick variants or order segments; ParseMasterPlaylist and ParseMediaPlaylist do that.
type PlaylistInfo struct {
	Kind           Kind
	Variants       []VariantStream // master only, URIs as written
	Segments       int             // media only
	TargetDuration time.Duration
	Duration       time.Duration // sum of #EXTINF durations
	Ended          bool          // #EXT-X-ENDLIST present
}

// Describe decodes data with a full HLS decoder in non-strict mode.
func Describe(data []byte) (*PlaylistInfo, error) {
	pl, listType, err := m3u8.DecodeFrom(bytes.NewReader(data), false)
	if err != nil {
		return nil, fmt.Errorf("hls: describe: %w", err)
	}
	switch listType {
	case m3u8.MASTER:
		master := pl.(*m3u8.MasterPlaylist)
		info := &PlaylistInfo{Kind: KindMaster}
		for _, v := range master.Variants {
			if v == nil {
				continue
			}
			info.Variants = append(info.Variants, VariantStream{
				Bandwidth:  uint64(v.Bandwidth),
				URI:        v.URI,
				Resolution: v.Resolution,
				Codecs:     v.Codecs,
			})
		}
		return info, nil
	case m3u8.MEDIA:
		media := pl.(*m3u8.MediaPlaylist)
		info := &PlaylistInfo{
			Kind:           KindMedia,
			TargetDuration: seconds(media.TargetDuration),
			Ended:          media.Closed,
		}
		var total float64
		for _, s := range media.Segments {
			if s == nil {
				continue
			}
			info.Segments++
			total += s.Duration
		}
		info.Duration = seconds(total)
		return info, nil
	}
	return nil, fmt.Errorf("hls: describe: unknown playlist type")
}

func seconds(f float64) time.Duration {
	return time.Duration(f * float64(time.Second))
}
