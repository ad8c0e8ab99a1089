package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const (
	testClientID = "3b8f2a9e-6c1d-4e57-8f02-1a9c7d5e4b30"
	testName     = "interview-session-storage"
)

func newTestFileRepo(t *testing.T) (*FileStateRepo, string) {
	t.Helper()
	dir := t.TempDir()
	repo, err := NewFileStateRepo(dir)
	if err != nil {
		t.Fatalf("NewFileStateRepo がエラーを返した: %v", err)
	}
	return repo, dir
}

func TestFileStateRepo_FindNotFound(t *testing.T) {
	repo, _ := newTestFileRepo(t)

	data, err := repo.Find(context.Background(), testClientID, testName)
	if err != nil {
		t.Fatalf("Find がエラーを返した: %v", err)
	}
	if data != nil {
		t.Errorf("存在しないblobはnilを返すべき: %q", data)
	}
}

func TestFileStateRepo_SaveAndFind(t *testing.T) {
	repo, _ := newTestFileRepo(t)
	ctx := context.Background()

	if err := repo.Save(ctx, testClientID, testName, []byte(`{"v":1}`)); err != nil {
		t.Fatalf("Save がエラーを返した: %v", err)
	}
	if err := repo.Save(ctx, testClientID, testName, []byte(`{"v":2}`)); err != nil {
		t.Fatalf("2回目の Save がエラーを返した: %v", err)
	}

	data, err := repo.Find(ctx, testClientID, testName)
	if err != nil {
		t.Fatalf("Find がエラーを返した: %v", err)
	}
	if string(data) != `{"v":2}` {
		t.Errorf("Find = %q, want %q", data, `{"v":2}`)
	}
}

func TestFileStateRepo_LeavesNoTempFiles(t *testing.T) {
	repo, dir := newTestFileRepo(t)

	if err := repo.Save(context.Background(), testClientID, testName, []byte(`{}`)); err != nil {
		t.Fatalf("Save がエラーを返した: %v", err)
	}

	entries, err := os.ReadDir(filepath.Join(dir, testName))
	if err != nil {
		t.Fatalf("ReadDir がエラーを返した: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != testClientID+".json" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("ディレクトリの内容 = %v, want [%s.json]", names, testClientID)
	}
}

func TestFileStateRepo_RejectsUnsafeKeys(t *testing.T) {
	repo, _ := newTestFileRepo(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		clientID string
		blob     string
	}{
		{"パス区切りを含むクライアントID", "../../etc/passwd", testName},
		{"空のクライアントID", "", testName},
		{"パス区切りを含むblob名", testClientID, "../x"},
		{"大文字を含むblob名", testClientID, "Storage"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := repo.Save(ctx, tt.clientID, tt.blob, []byte(`{}`)); err == nil {
				t.Error("Save は不正なキーを拒否すべき")
			}
			if _, err := repo.Find(ctx, tt.clientID, tt.blob); err == nil {
				t.Error("Find は不正なキーを拒否すべき")
			}
		})
	}
}

func TestFileStateRepo_DeleteUpdatedBefore(t *testing.T) {
	repo, dir := newTestFileRepo(t)
	ctx := context.Background()

	const freshID = "9d4e1c7a-2b3f-4a68-b5d0-7e1f2c3a4b5c"
	if err := repo.Save(ctx, testClientID, testName, []byte(`{}`)); err != nil {
		t.Fatalf("Save がエラーを返した: %v", err)
	}
	if err := repo.Save(ctx, freshID, testName, []byte(`{}`)); err != nil {
		t.Fatalf("Save がエラーを返した: %v", err)
	}

	// 1件だけ古い更新時刻にする
	old := time.Now().Add(-100 * 24 * time.Hour)
	stalePath := filepath.Join(dir, testName, testClientID+".json")
	if err := os.Chtimes(stalePath, old, old); err != nil {
		t.Fatalf("Chtimes がエラーを返した: %v", err)
	}

	n, err := repo.DeleteUpdatedBefore(ctx, time.Now().Add(-90*24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteUpdatedBefore がエラーを返した: %v", err)
	}
	if n != 1 {
		t.Errorf("削除件数 = %d, want 1", n)
	}

	if data, _ := repo.Find(ctx, testClientID, testName); data != nil {
		t.Error("古いblobが削除されていない")
	}
	if data, _ := repo.Find(ctx, freshID, testName); data == nil {
		t.Error("新しいblobが削除された")
	}
}

func TestFileStateRepo_CanceledContext(t *testing.T) {
	repo, _ := newTestFileRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := repo.Save(ctx, testClientID, testName, []byte(`{}`)); err == nil {
		t.Error("キャンセル済みのコンテキストではエラーになるべき")
	}
}
