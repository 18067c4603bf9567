package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"
)

// MockMediaStorageClient is an in-memory implementation of MediaStorage for testing
type MockMediaStorageClient struct {
	Storage map[string][]byte
	mu      sync.RWMutex
	logger  *zap.Logger
}

// NewMockMediaStorageClient creates a new mock media storage client
func NewMockMediaStorageClient(logger *zap.Logger) *MockMediaStorageClient {
	return &MockMediaStorageClient{
		Storage: make(map[string][]byte),
		logger:  logger,
	}
}

// UploadImage stores an image in memory
func (c *MockMediaStorageClient) UploadImage(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	blobName := fmt.Sprintf("images/%s", filename)
	c.Storage[blobName] = bytes.Clone(data)

	if c.logger != nil {
		c.logger.Info("mock: image uploaded",
			zap.String("blob_name", blobName),
			zap.Int("size_bytes", len(data)),
		)
	}

	return blobName, nil
}

// UploadVideo stores a video in memory
func (c *MockMediaStorageClient) UploadVideo(ctx context.Context, filename, contentType string, videoStream io.Reader) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	blobName := fmt.Sprintf("videos/%s", filename)

	videoData, err := io.ReadAll(videoStream)
	if err != nil {
		return "", fmt.Errorf("failed to read video stream: %w", err)
	}

	c.Storage[blobName] = videoData

	if c.logger != nil {
		c.logger.Info("mock: video uploaded",
			zap.String("blob_name", blobName),
			zap.Int("size_bytes", len(videoData)),
		)
	}

	return blobName, nil
}

// Download fetches media from in-memory storage
func (c *MockMediaStorageClient) Download(ctx context.Context, blobName string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	data, exists := c.Storage[blobName]
	if !exists {
		return nil, fmt.Errorf("blob not found: %s", blobName)
	}

	return bytes.Clone(data), nil
}

// Clear removes all data from in-memory storage
func (c *MockMediaStorageClient) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Storage = make(map[string][]byte)
}

var _ MediaStorage = (*MockMediaStorageClient)(nil)
