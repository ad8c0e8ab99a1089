// Package cleanup は保存済みクライアント状態の自動削除ジョブを提供する。
// 保持期間を超えて更新されていない状態blobを定期的に削除する。
// blobには候補者アーカイブも含まれるため、保持期間を設定しない限り何も削除しない。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// StateDeleter は指定時刻より前に更新された状態を削除する。
// repository.StateRepositoryの部分集合として定義する。
type StateDeleter interface {
	DeleteUpdatedBefore(ctx context.Context, before time.Time) (int64, error)
}

// SweepRecorder は削除件数を記録する。
type SweepRecorder interface {
	RecordStatesSwept(count int64)
}

// Sweeper は保持期間を超過した状態の自動削除ジョブ。
// 削除は冪等で、対象がない場合もエラーにならない。
type Sweeper struct {
	repo          StateDeleter
	logger        *slog.Logger
	recorder      SweepRecorder
	RetentionDays int // 状態の保持日数。0以下なら削除しない

	now func() time.Time
}

// NewSweeper は新しいSweeperを生成する。recorderはnilでもよい。
func NewSweeper(repo StateDeleter, logger *slog.Logger, recorder SweepRecorder) *Sweeper {
	return &Sweeper{
		repo:          repo,
		logger:        logger,
		recorder:      recorder,
		now:           time.Now,
	}
}

// Cutoff は現在時刻から保持日数を引いた削除基準時刻を返す。
func (s *Sweeper) Cutoff() time.Time {
	return s.now().AddDate(0, 0, -s.RetentionDays)
}

// Enabled は保持期間が設定されているかを返す。
func (s *Sweeper) Enabled() bool {
	return s.RetentionDays > 0
}

// RunOnce は保持期間を超過した状態を1回削除する。保持期間が未設定なら何もしない。
func (s *Sweeper) RunOnce(ctx context.Context) error {
	if !s.Enabled() {
		s.logger.Debug("保持期間が設定されていないため状態の削除をスキップしました")
		return nil
	}
	start := time.Now()
	cutoff := s.Cutoff()

	deleted, err := s.repo.DeleteUpdatedBefore(ctx, cutoff)
	if err != nil {
		s.logger.Error("状態クリーンアップジョブの実行に失敗しました",
			slog.String("error", err.Error()),
			slog.Int("retention_days", s.RetentionDays),
		)
		return fmt.Errorf("failed to sweep client states: %w", err)
	}

	if s.recorder != nil {
		s.recorder.RecordStatesSwept(deleted)
	}
	s.logger.Info("状態クリーンアップジョブが完了しました",
		slog.Int64("deleted_count", deleted),
		slog.Int("retention_days", s.RetentionDays),
		slog.Time("cutoff", cutoff),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return nil
}

// Start は起動直後に1回、その後interval間隔でRunOnceを実行する。
// コンテキストがキャンセルされるまで実行を継続する。
func (s *Sweeper) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("状態クリーンアップジョブを開始しました",
		slog.Duration("interval", interval),
		slog.Int("retention_days", s.RetentionDays),
	)

	// 失敗はRunOnce内でログ済み。次の周期で再試行する
	_ = s.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("状態クリーンアップジョブを停止しました")
			return
		case <-ticker.C:
			_ = s.RunOnce(ctx)
		}
	}
}
