package materializer

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"

	"github.com/snapetech/skyclip/internal/assemble"
)

const partialSuffix = ".partial"

// File writes videos into Dir on Fs (nil = the OS filesystem). The video is
// written to <name>.partial and renamed into place when complete. Concurrent
// calls for the same name share one write.
type File struct {
	Fs  afero.Fs
	Dir string

	mu       sync.Mutex
	inFlight map[string]chan struct{}
	lastErr  map[string]error
}

// NewFile returns a File materializer on the OS filesystem.
func NewFile(dir string) *File {
	return &File{Fs: afero.NewOsFs(), Dir: dir}
}

// Path returns the final path for name.
func (f *File) Path(name string) string {
	return filepath.Join(f.dir(), name)
}

// PartialPath returns the path used while writing name.
func (f *File) PartialPath(name string) string {
	return f.Path(name) + partialSuffix
}

func (f *File) dir() string {
	if f.Dir == "" {
		return "."
	}
	return f.Dir
}

func (f *File) fs() afero.Fs {
	if f.Fs == nil {
		return afero.NewOsFs()
	}
	return f.Fs
}

func (f *File) Materialize(ctx context.Context, video *assemble.Video, name string) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	finalPath := f.Path(name)

	f.mu.Lock()
	if f.inFlight == nil {
		f.inFlight = make(map[string]chan struct{})
		f.lastErr = make(map[string]error)
	}
	if wait, ok := f.inFlight[finalPath]; ok {
		f.mu.Unlock()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-wait:
			f.mu.Lock()
			lastErr := f.lastErr[finalPath]
			f.mu.Unlock()
			if lastErr != nil {
				return "", lastErr
			}
			return finalPath, nil
		}
	}
	done := make(chan struct{})
	f.inFlight[finalPath] = done
	f.mu.Unlock()

	err := f.write(ctx, video, finalPath)

	f.mu.Lock()
	delete(f.inFlight, finalPath)
	if err != nil {
		f.lastErr[finalPath] = err
	} else {
		delete(f.lastErr, finalPath)
	}
	close(done)
	f.mu.Unlock()

	if err != nil {
		return "", err
	}
	return finalPath, nil
}

func (f *File) write(ctx context.Context, video *assemble.Video, finalPath string) error {
	fs := f.fs()
	if err := fs.MkdirAll(filepath.Dir(finalPath), 0o755); err != nil {
		return err
	}
	partialPath := finalPath + partialSuffix
	out, err := fs.OpenFile(partialPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	n, err := video.WriteTo(out)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		log.Printf("materializer: write failed dest=%q err=%v", partialPath, err)
		fs.Remove(partialPath)
		return err
	}
	if err := fs.Rename(partialPath, finalPath); err != nil {
		log.Printf("materializer: rename failed from=%q to=%q err=%v", partialPath, finalPath, err)
		fs.Remove(partialPath)
		return err
	}
	log.Printf("materializer: wrote file=%q bytes=%d", finalPath, n)
	return nil
}
