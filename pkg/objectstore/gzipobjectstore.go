package objectstore

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
)

var _ ObjectStore = (*GzipObjectStore)(nil)

// GzipObjectStore compresses objects on the way into the wrapped store and
// decompresses them on the way out. Keys and listings pass through as-is.
type GzipObjectStore struct {
	ObjectStore
}

func (store *GzipObjectStore) PutObject(
	bucket string,
	key string,
	data io.ReadSeeker,
) error {
	var b bytes.Buffer
	w, err := gzip.NewWriterLevel(&b, gzip.BestCompression)
	if err != nil {
		return fmt.Errorf("putting object `%s/%s`: %w", bucket, key, err)
	}
	if _, err := io.Copy(w, data); err != nil {
		return fmt.Errorf("compressing object `%s/%s`: %w", bucket, key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("compressing object `%s/%s`: %w", bucket, key, err)
	}
	return store.ObjectStore.PutObject(bucket, key, bytes.NewReader(b.Bytes()))
}

func (store *GzipObjectStore) GetObject(
	bucket string,
	key string,
) (io.ReadCloser, error) {
	body, err := store.ObjectStore.GetObject(bucket, key)
	if err != nil {
		return nil, err
	}
	r, err := gzip.NewReader(body)
	if err != nil {
		body.Close()
		return nil, fmt.Errorf("decompressing object `%s/%s`: %w", bucket, key, err)
	}
	return &gzipReadCloser{body: body, Reader: r}, nil
}

// gzipReadCloser closes both the decompressor and the underlying body.
type gzipReadCloser struct {
	body io.Closer
	*gzip.Reader
}

func (grc *gzipReadCloser) Close() error {
	if err := grc.Reader.Close(); err != nil {
		grc.body.Close()
		return err
	}
	return grc.body.Close()
}
