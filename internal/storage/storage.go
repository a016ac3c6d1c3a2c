package storage

import "context"

// ObjectInfo represents metadata for a stored object.
type ObjectInfo struct {
	Key  string
	Size int64
}

// ObjectStorage is the S3-compatible surface used to archive exported orders.
type ObjectStorage interface {
	ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error)
	DownloadObject(ctx context.Context, key string, destPath string) error
	UploadObject(ctx context.Context, key string, data []byte, contentType string) error
}

// OrderKey is the object key of an exported order document.
func OrderKey(filename string) string {
	return "orders/" + filename
}
