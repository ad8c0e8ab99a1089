package handler

import (
	"context"

	"github.com/hitoshi/interviewer/internal/interview"
	"github.com/hitoshi/interviewer/internal/model"
)

// InterviewSession はハンドラーが必要とする1クライアント分の面接操作。
// *interview.Runtime が満たす。
type InterviewSession interface {
	Start(ctx context.Context, details model.CandidateDetails) error
	Submit(ctx context.Context, answer string) error
	SetDraft(text string) error
	Load() interview.Snapshot
	Resume(ctx context.Context) interview.Snapshot
	StartOver() interview.Snapshot
	Snapshot() interview.Snapshot
	Candidates() []model.Candidate
}

// SessionProvider はクライアントIDに対応する面接セッションを返す。
type SessionProvider interface {
	Session(ctx context.Context, clientID string) InterviewSession
}

// ManagerAdapter は interview.Manager を SessionProvider に適合させるアダプタ。
type ManagerAdapter struct {
	manager *interview.Manager
}

// NewManagerAdapter はManagerAdapterを生成する。
func NewManagerAdapter(manager *interview.Manager) *ManagerAdapter {
	return &ManagerAdapter{manager: manager}
}

// Session はクライアントのRuntimeを返す。初回は保存済みの状態から復元される。
func (a *ManagerAdapter) Session(ctx context.Context, clientID string) InterviewSession {
	return a.manager.Get(ctx, clientID)
}
