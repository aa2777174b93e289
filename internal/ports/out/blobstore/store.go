package blobstore

import (
	"context"
	"errors"
	"io"
)

var ErrNotFound = errors.New("object not found")

// Bucket names. Legacy member photos live in BucketPhoto; everything uploaded
// today goes to BucketDocuments.
const (
	BucketDocuments = "documents"
	BucketPhoto     = "photo"
)

type Object struct {
	Bucket      string
	Path        string
	ContentType string
	Size        int64
}

// Store is path-addressed object storage.
type Store interface {
	Put(ctx context.Context, bucket, path, contentType string, r io.Reader) (Object, error)
	Open(ctx context.Context, bucket, path string) (io.ReadCloser, Object, error)
	Delete(ctx context.Context, bucket, path string) error
}
