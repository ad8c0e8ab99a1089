package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PostgresStateRepo はPostgreSQLを使用した状態blobリポジトリ。
type PostgresStateRepo struct {
	db *sql.DB
}

// NewPostgresStateRepo はPostgresStateRepoを生成する。
func NewPostgresStateRepo(db *sql.DB) *PostgresStateRepo {
	return &PostgresStateRepo{db: db}
}

// Find は指定クライアントの名前付きblobを取得する。見つからない場合はnilを返す。
func (r *PostgresStateRepo) Find(ctx context.Context, clientID, name string) ([]byte, error) {
	var data []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT data FROM client_states WHERE client_id = $1 AND name = $2`,
		clientID, name,
	).Scan(&data)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find client state: %w", err)
	}
	return data, nil
}

// Save はblobを保存する。既に存在する場合は上書きする。
func (r *PostgresStateRepo) Save(ctx context.Context, clientID, name string, data []byte) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO client_states (client_id, name, data, created_at, updated_at)
		 VALUES ($1, $2, $3, now(), now())
		 ON CONFLICT (client_id, name)
		 DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		clientID, name, string(data),
	)
	if err != nil {
		return fmt.Errorf("failed to save client state: %w", err)
	}
	return nil
}

// DeleteUpdatedBefore は指定時刻より前に更新されたblobを削除する。
func (r *PostgresStateRepo) DeleteUpdatedBefore(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM client_states WHERE updated_at < $1`,
		before,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale client states: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted client states: %w", err)
	}
	return n, nil
}

// compile-time interface check
var _ StateRepository = (*PostgresStateRepo)(nil)
