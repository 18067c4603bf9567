package snapshot

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/pawscope/backend/internal/security"
	"github.com/pawscope/backend/pkg/model"
)

func testSnapshot() *model.SessionSnapshot {
	created := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)
	return &model.SessionSnapshot{
		SessionID: "session-1",
		ProfileID: "profile-1",
		Messages: []model.ConversationMessage{
			{ID: "m1", Author: model.AuthorBot, Content: "Hi there", CreatedAt: created},
			{ID: "m2", Author: model.AuthorUser, Content: "Health", CreatedAt: created.Add(time.Minute)},
		},
		Input: model.CollectedInput{
			Category: model.CategoryHealth,
			Images:   []string{"images/rash.jpg"},
		},
		Phase: model.PhaseSymptoms,
		Result: &model.AnalysisResult{
			RiskLevel: model.RiskMonitor,
			Summary:   "Watch closely",
		},
		CreatedAt: created,
		UpdatedAt: created.Add(time.Minute),
	}
}

func assertSnapshotEqual(t *testing.T, got, want *model.SessionSnapshot) {
	t.Helper()
	if got.SessionID != want.SessionID || got.ProfileID != want.ProfileID {
		t.Errorf("Identity mismatch: %s/%s != %s/%s", got.SessionID, got.ProfileID, want.SessionID, want.ProfileID)
	}
	if got.Phase != want.Phase {
		t.Errorf("Phase mismatch: %s != %s", got.Phase, want.Phase)
	}
	if len(got.Messages) != len(want.Messages) {
		t.Fatalf("Message count mismatch: %d != %d", len(got.Messages), len(want.Messages))
	}
	for i := range want.Messages {
		if got.Messages[i].ID != want.Messages[i].ID ||
			got.Messages[i].Author != want.Messages[i].Author ||
			got.Messages[i].Content != want.Messages[i].Content {
			t.Errorf("Message %d mismatch: %+v != %+v", i, got.Messages[i], want.Messages[i])
		}
	}
	if got.Input.Category != want.Input.Category || len(got.Input.Images) != len(want.Input.Images) {
		t.Errorf("Input mismatch: %+v != %+v", got.Input, want.Input)
	}
	if (got.Result == nil) != (want.Result == nil) {
		t.Fatal("Result presence mismatch")
	}
	if got.Result != nil && got.Result.RiskLevel != want.Result.RiskLevel {
		t.Errorf("Result mismatch: %s != %s", got.Result.RiskLevel, want.Result.RiskLevel)
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	want := testSnapshot()

	if err := store.Put("triage/profile-1", want); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	got, err := store.Get("triage/profile-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	assertSnapshotEqual(t, got, want)
}

func TestMemoryStoreMissingKey(t *testing.T) {
	store := NewMemoryStore()
	if _, err := store.Get("triage/nobody"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	store := NewMemoryStore()
	if err := store.Put("triage/profile-1", testSnapshot()); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Delete("triage/profile-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get("triage/profile-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
}

func TestMemoryStorePutReplaces(t *testing.T) {
	store := NewMemoryStore()
	first := testSnapshot()
	if err := store.Put("triage/profile-1", first); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	second := testSnapshot()
	second.Phase = model.PhaseComplete
	if err := store.Put("triage/profile-1", second); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := store.Get("triage/profile-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Phase != model.PhaseComplete {
		t.Errorf("Expected the replacement snapshot, got phase %s", got.Phase)
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), nil, zap.NewNop())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}

	want := testSnapshot()
	if err := store.Put("triage/profile-1", want); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	got, err := store.Get("triage/profile-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	assertSnapshotEqual(t, got, want)
}

func TestFileStoreCorruptSnapshotTreatedAsAbsent(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "triage_profile-1.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if _, err := store.Get("triage/profile-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Corrupt snapshot should read as absent, got %v", err)
	}
}

func TestFileStoreDeleteIsIdempotent(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), nil, zap.NewNop())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}

	if err := store.Delete("triage/profile-1"); err != nil {
		t.Errorf("Deleting a missing snapshot should succeed, got %v", err)
	}

	if err := store.Put("triage/profile-1", testSnapshot()); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Delete("triage/profile-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get("triage/profile-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
}

func TestEncryptedFileStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	enc, err := security.NewEncryptor(bytes.Repeat([]byte("k"), 32))
	if err != nil {
		t.Fatalf("NewEncryptor failed: %v", err)
	}
	store, err := NewFileStore(dir, enc, zap.NewNop())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}

	want := testSnapshot()
	if err := store.Put("triage/profile-1", want); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	// The file on disk must not be readable JSON
	raw, err := os.ReadFile(filepath.Join(dir, "triage_profile-1.json"))
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if bytes.Contains(raw, []byte("session-1")) {
		t.Error("Snapshot should be encrypted at rest")
	}

	got, err := store.Get("triage/profile-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	assertSnapshotEqual(t, got, want)
}

func TestEncryptedFileStoreWrongKeyTreatedAsAbsent(t *testing.T) {
	dir := t.TempDir()
	enc, _ := security.NewEncryptor(bytes.Repeat([]byte("a"), 32))
	store, err := NewFileStore(dir, enc, zap.NewNop())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	if err := store.Put("triage/profile-1", testSnapshot()); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	other, _ := security.NewEncryptor(bytes.Repeat([]byte("b"), 32))
	reopened, err := NewFileStore(dir, other, zap.NewNop())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	if _, err := reopened.Get("triage/profile-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Undecryptable snapshot should read as absent, got %v", err)
	}
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	want := testSnapshot()
	if err := store.Put("triage/profile-1", want); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	reopened, err := NewFileStore(dir, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	got, err := reopened.Get("triage/profile-1")
	if err != nil {
		t.Fatalf("Get after reopen failed: %v", err)
	}
	assertSnapshotEqual(t, got, want)
}
