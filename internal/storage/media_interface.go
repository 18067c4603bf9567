package storage

import (
	"context"
	"io"
)

// MediaStorage defines the interface for symptom media operations
// This interface allows for easier testing with mock implementations
type MediaStorage interface {
	UploadImage(ctx context.Context, filename, contentType string, data []byte) (string, error)
	UploadVideo(ctx context.Context, filename, contentType string, videoStream io.Reader) (string, error)
	Download(ctx context.Context, blobName string) ([]byte, error)
}

// Ensure MediaStorageClient implements MediaStorage interface
var _ MediaStorage = (*MediaStorageClient)(nil)
