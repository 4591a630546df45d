package source

import (
	"context"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"github.com/starlog-lab/starlog/pkg/utils/safe"
)

const gcsScheme = "gs://"

// parseGCSPath splits gs://bucket/object
func parseGCSPath(path string) (bucket, object string, err error) {
	rest := strings.TrimPrefix(path, gcsScheme)
	bucket, object, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || object == "" {
		return "", "", goerr.New("invalid GCS path, expected gs://bucket/object", goerr.V("path", path))
	}
	return bucket, object, nil
}

type gcsReader struct {
	*storage.Reader
	client *storage.Client
	ctx    context.Context
}

func (r *gcsReader) Close() error {
	err := r.Reader.Close()
	safe.Close(r.ctx, r.client)
	return err
}

// open returns a reader for a local file or a gs://bucket/object URL
func open(ctx context.Context, path string) (io.ReadCloser, error) {
	if !strings.HasPrefix(path, gcsScheme) {
		// #nosec G304 - path is provided by CLI argument
		f, err := os.Open(path)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to open file", goerr.V("path", path))
		}
		return f, nil
	}

	bucket, object, err := parseGCSPath(path)
	if err != nil {
		return nil, err
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client")
	}

	reader, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		safe.Close(ctx, client)
		return nil, goerr.Wrap(err, "failed to open GCS object",
			goerr.V("bucket", bucket), goerr.V("object", object))
	}

	return &gcsReader{Reader: reader, client: client, ctx: ctx}, nil
}
