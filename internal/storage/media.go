package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"go.uber.org/zap"
)

// MediaStorageClient wraps Azure Blob Storage for symptom media uploads
type MediaStorageClient struct {
	client        *azblob.Client
	containerName string
	logger        *zap.Logger
}

// NewMediaStorageClient creates a new media storage client
func NewMediaStorageClient(accountName, accountKey, containerName string, logger *zap.Logger) (*MediaStorageClient, error) {
	if accountName == "" || accountKey == "" || containerName == "" {
		return nil, fmt.Errorf("accountName, accountKey, and containerName are required")
	}

	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", accountName)

	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create shared key credential: %w", err)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, credential, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob client: %w", err)
	}

	return &MediaStorageClient{
		client:        client,
		containerName: containerName,
		logger:        logger,
	}, nil
}

// UploadImage uploads a symptom photo and returns its blob path
func (c *MediaStorageClient) UploadImage(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	c.logger.Info("uploading image to blob storage",
		zap.String("filename", filename),
		zap.Int("size_bytes", len(data)),
	)

	blobName := fmt.Sprintf("images/%s", filename)

	blobClient := c.client.ServiceClient().NewContainerClient(c.containerName).NewBlockBlobClient(blobName)

	_, err := blobClient.UploadBuffer(ctx, data, &azblob.UploadBufferOptions{
		Metadata: map[string]*string{
			"contenttype": toPtr(contentType),
		},
	})
	if err != nil {
		c.logger.Error("failed to upload image",
			zap.String("filename", filename),
			zap.Error(err),
		)
		return "", fmt.Errorf("failed to upload image: %w", err)
	}

	c.logger.Info("image uploaded successfully",
		zap.String("blob_name", blobName),
	)

	return blobName, nil
}

// UploadVideo uploads a symptom video from a stream and returns its blob path
func (c *MediaStorageClient) UploadVideo(ctx context.Context, filename, contentType string, videoStream io.Reader) (string, error) {
	c.logger.Info("uploading video to blob storage",
		zap.String("filename", filename),
	)

	blobName := fmt.Sprintf("videos/%s", filename)

	blobClient := c.client.ServiceClient().NewContainerClient(c.containerName).NewBlockBlobClient(blobName)

	videoData, err := io.ReadAll(videoStream)
	if err != nil {
		c.logger.Error("failed to read video stream",
			zap.String("filename", filename),
			zap.Error(err),
		)
		return "", fmt.Errorf("failed to read video stream: %w", err)
	}

	_, err = blobClient.UploadBuffer(ctx, videoData, &azblob.UploadBufferOptions{
		Metadata: map[string]*string{
			"contenttype": toPtr(contentType),
		},
	})
	if err != nil {
		c.logger.Error("failed to upload video",
			zap.String("filename", filename),
			zap.Error(err),
		)
		return "", fmt.Errorf("failed to upload video: %w", err)
	}

	c.logger.Info("video uploaded successfully",
		zap.String("blob_name", blobName),
		zap.Int("size_bytes", len(videoData)),
	)

	return blobName, nil
}

// Download fetches previously uploaded media by blob path
func (c *MediaStorageClient) Download(ctx context.Context, blobName string) ([]byte, error) {
	c.logger.Info("downloading media from blob storage",
		zap.String("blob_name", blobName),
	)

	blobClient := c.client.ServiceClient().NewContainerClient(c.containerName).NewBlockBlobClient(blobName)

	downloadResponse, err := blobClient.DownloadStream(ctx, nil)
	if err != nil {
		c.logger.Error("failed to download media",
			zap.String("blob_name", blobName),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to download media: %w", err)
	}
	defer downloadResponse.Body.Close()

	data, err := io.ReadAll(downloadResponse.Body)
	if err != nil {
		c.logger.Error("failed to read media data",
			zap.String("blob_name", blobName),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to read media data: %w", err)
	}

	c.logger.Info("media downloaded successfully",
		zap.String("blob_name", blobName),
		zap.Int("size_bytes", len(data)),
	)

	return data, nil
}

// toPtr is a helper function to convert a value to a pointer
func toPtr(s string) *string {
	return &s
}
