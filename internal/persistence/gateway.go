// Package persistence はクライアント状態の保存と復元を担う。
//
// 状態 {activeInterview, candidates[]} は1つの名前付きblobとして
// 変更のたびに丸ごと保存され、ページ読み込み時に丸ごと復元される。
// 保存先が使えない場合でも面接は止めず、その実行中はメモリ上でのみ動作する。
package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/interviewer/internal/model"
	"github.com/hitoshi/interviewer/internal/repository"
)

// StorageName は状態blobの名前。
const StorageName = "interview-session-storage"

// 保存・読み込み操作の種別（メトリクスのラベル）。
const (
	OpLoad = "load"
	OpSave = "save"
)

// ErrorRecorder は保存先の障害を記録する。
type ErrorRecorder interface {
	RecordStorageError(op string)
}

// RecoveryRequired は復元したセッションに再開確認が必要かを返す。
// 進行中のセッションが見つかった場合のみ確認を求める。
func RecoveryRequired(a model.ActiveInterview) bool {
	return a.Phase == model.PhaseInProgress
}

// Gateway はStateRepositoryを介して状態を保存・復元する。
type Gateway struct {
	repo     repository.StateRepository
	logger   *slog.Logger
	timeout  time.Duration
	recorder ErrorRecorder
}

// NewGateway はGatewayを生成する。recorderはnilでもよい。
func NewGateway(repo repository.StateRepository, logger *slog.Logger, timeout time.Duration, recorder ErrorRecorder) *Gateway {
	return &Gateway{
		repo:     repo,
		logger:   logger,
		timeout:  timeout,
		recorder: recorder,
	}
}

// Load は保存済みの状態を復元する。
// 2つ目の戻り値は保存先が利用可能かどうかで、falseの場合は以後の保存を行わない。
// 読み込めなかった状態を空の状態で上書きしないため。
func (g *Gateway) Load(ctx context.Context, clientID string) (model.State, bool) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	data, err := g.repo.Find(ctx, clientID, StorageName)
	if err != nil {
		g.recordError(OpLoad)
		g.logger.Error("状態の読み込みに失敗しました。この実行中はメモリ上でのみ動作します",
			slog.String("error", err.Error()),
			slog.String("client_id", clientID),
		)
		return model.NewState(), false
	}
	if data == nil {
		return model.NewState(), true
	}

	state, err := Decode(data)
	if err != nil {
		g.logger.Warn("保存済みの状態が壊れているため初期状態から開始します",
			slog.String("error", err.Error()),
			slog.String("client_id", clientID),
		)
		return model.NewState(), true
	}
	return state, true
}

// Listener は状態変更のたびに保存を行うリスナーを返す。
// リスナーは保存の失敗をエラーとして返す。enabledがfalseの場合は何も保存しない。
func (g *Gateway) Listener(clientID string, enabled bool) func(model.State) error {
	if !enabled {
		return func(model.State) error { return nil }
	}
	return func(state model.State) error {
		return g.save(clientID, state)
	}
}

func (g *Gateway) save(clientID string, state model.State) error {
	data, err := json.Marshal(state)
	if err != nil {
		g.logger.Error("状態のシリアライズに失敗しました",
			slog.String("error", err.Error()),
			slog.String("client_id", clientID),
		)
		return fmt.Errorf("failed to encode state: %w", err)
	}

	ctx, cancel := g.withTimeout(context.Background())
	defer cancel()

	if err := g.repo.Save(ctx, clientID, StorageName, data); err != nil {
		g.recordError(OpSave)
		g.logger.Error("状態の保存に失敗しました",
			slog.String("error", err.Error()),
			slog.String("client_id", clientID),
		)
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}

// Decode は保存形式のJSONから状態を復元する。
// 欠けている配列は空配列として補う。
func Decode(data []byte) (model.State, error) {
	var state model.State
	if err := json.Unmarshal(data, &state); err != nil {
		return model.State{}, err
	}
	if state.ActiveInterview.Phase == "" {
		state.ActiveInterview = model.NewActiveInterview()
	}
	if state.ActiveInterview.Messages == nil {
		state.ActiveInterview.Messages = []model.Message{}
	}
	if state.Candidates == nil {
		state.Candidates = []model.Candidate{}
	}
	for i := range state.Candidates {
		if state.Candidates[i].Questions == nil {
			state.Candidates[i].Questions = []model.QA{}
		}
	}
	return state, nil
}

func (g *Gateway) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout > 0 {
		return context.WithTimeout(ctx, g.timeout)
	}
	return context.WithCancel(ctx)
}

func (g *Gateway) recordError(op string) {
	if g.recorder != nil {
		g.recorder.RecordStorageError(op)
	}
}
