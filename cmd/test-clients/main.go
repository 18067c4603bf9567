package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/pawscope/backend/internal/ai"
	"github.com/pawscope/backend/internal/storage"
	"github.com/pawscope/backend/pkg/model"
)

func main() {
	// Initialize logger
	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Get credentials from environment
	openaiKey := os.Getenv("OPENAI_API_KEY")
	openaiModel := os.Getenv("OPENAI_MODEL")

	storageAccountName := os.Getenv("AZURE_STORAGE_ACCOUNT_NAME")
	storageAccountKey := os.Getenv("AZURE_STORAGE_ACCOUNT_KEY")

	// Validate required environment variables
	if openaiKey == "" {
		logger.Fatal("Missing OpenAI credentials. Set OPENAI_API_KEY")
	}

	if storageAccountName == "" || storageAccountKey == "" {
		logger.Fatal("Missing Azure Storage credentials. Set AZURE_STORAGE_ACCOUNT_NAME and AZURE_STORAGE_ACCOUNT_KEY")
	}

	ctx := context.Background()

	// Test 1: Analysis gateway client
	logger.Info("=== Testing analysis gateway client ===")
	if err := testAnalyzer(ctx, openaiKey, openaiModel, logger); err != nil {
		logger.Error("Analyzer test failed", zap.Error(err))
	} else {
		logger.Info("✅ Analyzer test passed")
	}

	// Test 2: Media blob storage client
	logger.Info("\n=== Testing media storage client ===")
	if err := testMediaStorageClient(ctx, storageAccountName, storageAccountKey, logger); err != nil {
		logger.Error("Media storage client test failed", zap.Error(err))
	} else {
		logger.Info("✅ Media storage client test passed")
	}

	logger.Info("\n=== All tests completed ===")
}

func testAnalyzer(ctx context.Context, apiKey, chatModel string, logger *zap.Logger) error {
	analyzer, err := ai.NewOpenAIAnalyzer(apiKey, chatModel, logger)
	if err != nil {
		return fmt.Errorf("failed to create analyzer: %w", err)
	}

	// Run a representative symptom report through the gateway
	req := ai.AnalysisRequest{
		Pet: &model.Pet{
			Name:     "Rex",
			Breed:    "Beagle",
			AgeYears: 4,
		},
		Category:    model.CategoryHealth,
		Subcategory: model.SubcategoryDigestive,
		Symptoms:    "vomiting twice since this morning, still drinking water, slightly lethargic",
	}

	result, err := analyzer.Analyze(ctx, req)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	logger.Info("Analysis result received",
		zap.String("risk_level", string(result.RiskLevel)),
		zap.String("summary", result.Summary),
		zap.Int("section_count", len(result.DetailedSections)),
		zap.Int("action_count", len(result.ImmediateActions)),
	)

	// Follow-up question against the same assessment
	answer, err := analyzer.FollowUp(ctx, req, result, "Can I give him water?")
	if err != nil {
		return fmt.Errorf("follow-up failed: %w", err)
	}

	logger.Info("Follow-up answer received",
		zap.String("answer", answer),
		zap.Int("answer_length", len(answer)),
	)

	return nil
}

func testMediaStorageClient(ctx context.Context, accountName, accountKey string, logger *zap.Logger) error {
	containerName := "symptom-media"
	client, err := storage.NewMediaStorageClient(accountName, accountKey, containerName, logger)
	if err != nil {
		return fmt.Errorf("failed to create media storage client: %w", err)
	}

	// Test image upload
	testImageData := []byte("This is test image data")
	testImageName := fmt.Sprintf("test-image-%d.jpg", time.Now().Unix())

	logger.Info("Testing image upload", zap.String("filename", testImageName))

	imageBlob, err := client.UploadImage(ctx, testImageName, "image/jpeg", testImageData)
	if err != nil {
		return fmt.Errorf("image upload failed: %w", err)
	}

	logger.Info("Image uploaded successfully", zap.String("blob_name", imageBlob))

	// Test image download
	downloadedImage, err := client.Download(ctx, imageBlob)
	if err != nil {
		return fmt.Errorf("image download failed: %w", err)
	}

	if !bytes.Equal(downloadedImage, testImageData) {
		return fmt.Errorf("downloaded image doesn't match uploaded image")
	}

	logger.Info("Image downloaded and verified successfully",
		zap.Int("size_bytes", len(downloadedImage)),
	)

	// Test video upload via the streaming path
	testVideoData := []byte("This is test video data")
	testVideoName := fmt.Sprintf("test-video-%d.mp4", time.Now().Unix())

	logger.Info("Testing video upload", zap.String("filename", testVideoName))

	videoBlob, err := client.UploadVideo(ctx, testVideoName, "video/mp4", bytes.NewReader(testVideoData))
	if err != nil {
		return fmt.Errorf("video upload failed: %w", err)
	}

	logger.Info("Video uploaded successfully", zap.String("blob_name", videoBlob))

	downloadedVideo, err := client.Download(ctx, videoBlob)
	if err != nil {
		return fmt.Errorf("video download failed: %w", err)
	}

	if !bytes.Equal(downloadedVideo, testVideoData) {
		return fmt.Errorf("downloaded video doesn't match uploaded video")
	}

	logger.Info("Video downloaded and verified successfully",
		zap.Int("size_bytes", len(downloadedVideo)),
	)

	return nil
}
