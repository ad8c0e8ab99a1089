// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"
)

// StateRepository はクライアントごとの名前付き状態blobの永続化インターフェース。
// blobの中身は解釈せず、バイト列としてそのまま保存する。
type StateRepository interface {
	// Find は指定クライアントの名前付きblobを取得する。見つからない場合はnilを返す。
	Find(ctx context.Context, clientID, name string) ([]byte, error)

	// Save はblobを保存する。既に存在する場合は上書きし、更新時刻を記録する。
	Save(ctx context.Context, clientID, name string, data []byte) error

	// DeleteUpdatedBefore は指定時刻より前に更新されたblobをすべて削除し、削除件数を返す。
	DeleteUpdatedBefore(ctx context.Context, before time.Time) (int64, error)
}
