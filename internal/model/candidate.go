package model

import "time"

// CandidateStatus は候補者レコードの状態を表す。
// アーカイブに保存されるレコードは常にcompletedとなる。
type CandidateStatus string

const (
	CandidateStatusCompleted  CandidateStatus = "completed"
	CandidateStatusInProgress CandidateStatus = "in-progress"
)

// QA は質問とそれに対する回答の組。
type QA struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Candidate は完了した面接1件分のアーカイブレコード。
// 追加後に変更されることはない。
type Candidate struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Email         string          `json:"email"`
	Phone         string          `json:"phone"`
	FinalScore    int             `json:"finalScore"`
	AISummary     string          `json:"aiSummary"`
	Status        CandidateStatus `json:"status"`
	InterviewDate time.Time       `json:"interviewDate"`
	Questions     []QA            `json:"questions"`
}

// Clone はQ&A列を含めたディープコピーを返す。
func (c Candidate) Clone() Candidate {
	cp := c
	cp.Questions = make([]QA, len(c.Questions))
	copy(cp.Questions, c.Questions)
	return cp
}

// ScoreResult はスコアリング結果のパース済みデータ。
type ScoreResult struct {
	FinalScore int
	AISummary  string
}
