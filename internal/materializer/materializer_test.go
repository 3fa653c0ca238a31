package materializer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"sync"
	"testing"

	"github.com/spf13/afero"

	"github.com/snapetech/skyclip/internal/assemble"
)

func testVideo() *assemble.Video {
	return assemble.NewVideo([][]byte{[]byte("abc"), []byte("def")}, assemble.FormatTS)
}

func TestFile_Materialize(t *testing.T) {
	fs := afero.NewMemMapFs()
	m := &File{Fs: fs, Dir: "/out"}
	loc, err := m.Materialize(context.Background(), testVideo(), "alice_20240305_130422.ts")
	if err != nil {
		t.Fatal(err)
	}
	if loc != filepath.Join("/out", "alice_20240305_130422.ts") {
		t.Errorf("location = %q", loc)
	}
	got, err := afero.ReadFile(fs, loc)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "abcdef" {
		t.Errorf("content = %q", got)
	}
	if ok, _ := afero.Exists(fs, m.PartialPath("alice_20240305_130422.ts")); ok {
		t.Error("partial file left behind")
	}
}

func TestFile_Materialize_overwrites(t *testing.T) {
	fs := afero.NewMemMapFs()
	m := &File{Fs: fs, Dir: "/out"}
	afero.WriteFile(fs, m.Path("v.mp4"), []byte("old content that is longer"), 0o644)
	v := assemble.NewVideo([][]byte{[]byte("new")}, assemble.FormatMP4)
	if _, err := m.Materialize(context.Background(), v, "v.mp4"); err != nil {
		t.Fatal(err)
	}
	got, _ := afero.ReadFile(fs, m.Path("v.mp4"))
	if string(got) != "new" {
		t.Errorf("content = %q", got)
	}
}

func TestFile_Materialize_cancelled(t *testing.T) {
	fs := afero.NewMemMapFs()
	m := &File{Fs: fs, Dir: "/out"}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := m.Materialize(ctx, testVideo(), "v.ts")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	for _, p := range []string{m.Path("v.ts"), m.PartialPath("v.ts")} {
		if ok, _ := afero.Exists(fs, p); ok {
			t.Errorf("%s exists after failed write", p)
		}
	}
}

func TestFile_Materialize_readOnly(t *testing.T) {
	m := &File{Fs: afero.NewReadOnlyFs(afero.NewMemMapFs()), Dir: "/out"}
	if _, err := m.Materialize(context.Background(), testVideo(), "v.ts"); err == nil {
		t.Fatal("expected error on read-only filesystem")
	}
}

func TestFile_Materialize_concurrent(t *testing.T) {
	fs := afero.NewMemMapFs()
	m := &File{Fs: fs, Dir: "/out"}
	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = m.Materialize(context.Background(), testVideo(), "same.ts")
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			t.Errorf("call %d: %v", i, err)
		}
	}
	got, _ := afero.ReadFile(fs, m.Path("same.ts"))
	if string(got) != "abcdef" {
		t.Errorf("content = %q", got)
	}
}

func TestCheckName(t *testing.T) {
	for _, name := range []string{"", ".", "..", "a/b.mp4", `a\b.mp4`, "../x.mp4", "a\x00b"} {
		m := &File{Fs: afero.NewMemMapFs()}
		_, err := m.Materialize(context.Background(), testVideo(), name)
		var ie ErrInvalidName
		if !errors.As(err, &ie) {
			t.Errorf("Materialize(%q) err = %v, want ErrInvalidName", name, err)
		}
	}
}

type memObject struct {
	bytes.Buffer
	closed bool
}

func (o *memObject) Close() error { o.closed = true; return nil }

func TestGCS_Materialize(t *testing.T) {
	var obj memObject
	var gotName, gotType string
	g := &GCS{Bucket: "clips", Prefix: "/bsky/"}
	g.newWriter = func(ctx context.Context, object, contentType string) io.WriteCloser {
		gotName, gotType = object, contentType
		return &obj
	}
	loc, err := g.Materialize(context.Background(), testVideo(), "v.ts")
	if err != nil {
		t.Fatal(err)
	}
	if loc != "gs://clips/bsky/v.ts" {
		t.Errorf("location = %q", loc)
	}
	if gotName != "bsky/v.ts" || gotType != "video/MP2T" {
		t.Errorf("object=%q contentType=%q", gotName, gotType)
	}
	if obj.String() != "abcdef" || !obj.closed {
		t.Errorf("object content=%q closed=%v", obj.String(), obj.closed)
	}
}

func TestGCS_ObjectName(t *testing.T) {
	tests := []struct{ prefix, want string }{
		{"", "v.mp4"},
		{"clips", "clips/v.mp4"},
		{"/a/b/", "a/b/v.mp4"},
	}
	for _, tt := range tests {
		g := &GCS{Prefix: tt.prefix}
		if got := g.ObjectName("v.mp4"); got != tt.want {
			t.Errorf("ObjectName(prefix=%q) = %q, want %q", tt.prefix, got, tt.want)
		}
	}
}

var (
	_ Interface = (*File)(nil)
	_ Interface = (*GCS)(nil)
)
