package materializer

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/snapetech/skyclip/internal/assemble"
)

// GCS uploads videos as objects in Bucket under Prefix.
type GCS struct {
	Client *storage.Client
	Bucket string
	Prefix string

	// newWriter opens an object writer; tests replace it.
	newWriter func(ctx context.Context, object, contentType string) io.WriteCloser
}

// NewGCS creates a client with application default credentials and checks
// that bucket is reachable.
func NewGCS(ctx context.Context, bucket, prefix string) (*GCS, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcs client: %w", err)
	}
	if _, err := client.Bucket(bucket).Attrs(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("gcs bucket %s: %w", bucket, err)
	}
	return &GCS{Client: client, Bucket: bucket, Prefix: prefix}, nil
}

// ObjectName returns the object path for name.
func (g *GCS) ObjectName(name string) string {
	prefix := strings.Trim(g.Prefix, "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

func (g *GCS) Materialize(ctx context.Context, video *assemble.Video, name string) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	object := g.ObjectName(name)
	// Cancelling the writer's context aborts the upload so no object is created.
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := g.open(wctx, object, video.ContentType())
	n, err := video.WriteTo(w)
	if err != nil {
		cancel()
		w.Close()
		return "", fmt.Errorf("gcs write %s: %w", object, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("gcs close %s: %w", object, err)
	}
	loc := "gs://" + g.Bucket + "/" + object
	log.Printf("materializer: uploaded object=%q bytes=%d", loc, n)
	return loc, nil
}

func (g *GCS) open(ctx context.Context, object, contentType string) io.WriteCloser {
	if g.newWriter != nil {
		return g.newWriter(ctx, object, contentType)
	}
	w := g.Client.Bucket(g.Bucket).Object(object).NewWriter(ctx)
	w.ContentType = contentType
	return w
}

// Close releases the storage client.
func (g *GCS) Close() error {
	if g.Client == nil {
		return nil
	}
	return g.Client.Close()
}
