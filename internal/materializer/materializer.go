// Package materializer writes an assembled video to its final destination.
package materializer

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/snapetech/skyclip/internal/assemble"
)

// Interface stores a finished video under name and returns where it went
// (a file path or a gs:// URL). Either the whole video lands or nothing does.
type Interface interface {
	Materialize(ctx context.Context, video *assemble.Video, name string) (location string, err error)
}

// ErrInvalidName is returned for names that are empty or contain a path.
type ErrInvalidName struct{ Name string }

func (e ErrInvalidName) Error() string { return fmt.Sprintf("invalid output name %q", e.Name) }

func checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, "/\\\x00") || path.Base(name) != name {
		return ErrInvalidName{Name: name}
	}
	return nil
}
