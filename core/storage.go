package core

import (
	"context"
	"io"
)

const STORAGE_SERVICE = "storage"

// ObjectInfo describes a stored object within the portal bucket.
type ObjectInfo struct {
	Key      string
	Size     uint64
	MimeType string
}

type StorageService interface {
	// UploadObject stores data under key, using a multipart upload when the
	// size crosses the part-size threshold. The multipart UploadID is
	// tracked in the database so interrupted uploads can be reaped.
	UploadObject(ctx context.Context, key string, data io.ReadSeeker, size uint64) (*ObjectInfo, error)

	// UploadFile streams a local file into the bucket.
	UploadFile(ctx context.Context, key string, path string) (*ObjectInfo, error)

	DownloadObject(ctx context.Context, key string) (io.ReadCloser, error)

	// DownloadToFile fetches key into a local path, creating parent
	// directories as needed.
	DownloadToFile(ctx context.Context, key string, path string) error

	DeleteObject(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) error
	ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error)
	ObjectExists(ctx context.Context, key string) (bool, error)

	Service
}
