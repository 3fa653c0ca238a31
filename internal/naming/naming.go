package naming

import (
	"strings"
	"time"

	"github.com/mozillazg/go-unidecode"
)

// DefaultBase is used when no handle is known.
const DefaultBase = "bluesky"

const timestampLayout = "20060102_150405"

// Options tweak filename generation. The zero value applies the plain rule.
type Options struct {
	// Transliterate romanises non-ASCII text before sanitising ("josé" -> "jose"
	// instead of "jos_").
	Transliterate bool
	// Location renders the timestamp; nil = time.Local.
	Location *time.Location
}

// Sanitize replaces every character outside [A-Za-z0-9_-] with '_'.
func Sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if isSafe(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

func isSafe(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '-'
}

// FormatTimestamp renders t as YYYYMMDD_HHMMSS in loc (nil = local time).
func FormatTimestamp(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(timestampLayout)
}

// Filename builds "<handle>_<YYYYMMDD_HHMMSS>.<ext>". An empty handle falls back
// to DefaultBase.
func Filename(handle string, createdAt time.Time, ext string, opts Options) string {
	base := strings.TrimSpace(handle)
	if base == "" {
		base = DefaultBase
	}
	if opts.Transliterate {
		base = unidecode.Unidecode(base)
	}
	return Sanitize(base) + "_" + FormatTimestamp(createdAt, opts.Location) + "." + ext
}
