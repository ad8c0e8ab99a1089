package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"
)

// blobNamePattern はファイル名として安全なblob名。
var blobNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,63}$`)

// FileStateRepo はローカルディレクトリに状態blobを保存するリポジトリ。
// <dir>/<name>/<clientID>.json に1ファイルずつ書き込む。
type FileStateRepo struct {
	dir string
	mu  sync.Mutex
}

// NewFileStateRepo はFileStateRepoを生成する。ディレクトリが存在しなければ作成する。
func NewFileStateRepo(dir string) (*FileStateRepo, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &FileStateRepo{dir: dir}, nil
}

// Find は指定クライアントの名前付きblobを取得する。見つからない場合はnilを返す。
func (r *FileStateRepo) Find(ctx context.Context, clientID, name string) ([]byte, error) {
	path, err := r.path(clientID, name)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read client state: %w", err)
	}
	return data, nil
}

// Save はblobを一時ファイルに書き込んでからリネームし、途中状態のファイルを残さない。
func (r *FileStateRepo) Save(ctx context.Context, clientID, name string, data []byte) error {
	path, err := r.path(clientID, name)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".state-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write client state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace client state: %w", err)
	}
	return nil
}

// DeleteUpdatedBefore は更新時刻（ファイルの変更時刻）が指定時刻より前のblobを削除する。
func (r *FileStateRepo) DeleteUpdatedBefore(ctx context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	err := filepath.WalkDir(r.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if !info.ModTime().Before(before) {
			return nil
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		deleted++
		return nil
	})
	if err != nil {
		return deleted, fmt.Errorf("failed to delete stale client states: %w", err)
	}
	return deleted, nil
}

// path はクライアントIDとblob名からファイルパスを組み立てる。
// どちらもパス区切りを含み得ない形式に限定する。
func (r *FileStateRepo) path(clientID, name string) (string, error) {
	if err := uuid.Validate(clientID); err != nil {
		return "", fmt.Errorf("invalid client id %q: %w", clientID, err)
	}
	if !blobNamePattern.MatchString(name) {
		return "", fmt.Errorf("invalid state name %q", name)
	}
	return filepath.Join(r.dir, name, clientID+".json"), nil
}

// compile-time interface check
var _ StateRepository = (*FileStateRepo)(nil)
