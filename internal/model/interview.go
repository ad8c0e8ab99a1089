// Package model はドメインモデルを定義する。
package model

import "time"

// Phase は面接セッションのフェーズを表す。
type Phase string

const (
	// PhaseAwaitingResume は履歴書のアップロード待ち状態。
	PhaseAwaitingResume Phase = "AWAITING_RESUME"
	// PhaseCollectingInfo は候補者情報の確認中状態。
	// 履歴書取り込み側のローカルな状態であり、セッションがこのフェーズに遷移することはない。
	PhaseCollectingInfo Phase = "COLLECTING_INFO"
	// PhaseInProgress は面接の進行中状態。
	PhaseInProgress Phase = "IN_PROGRESS"
	// PhaseCompleted は面接完了状態。
	PhaseCompleted Phase = "COMPLETED"
)

// Valid はフェーズが定義済みの値かどうかを返す。
func (p Phase) Valid() bool {
	switch p {
	case PhaseAwaitingResume, PhaseCollectingInfo, PhaseInProgress, PhaseCompleted:
		return true
	default:
		return false
	}
}

// Difficulty は質問の難易度を表す。
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// 固定メッセージID。
const (
	// IntroMessageID は面接開始時の挨拶メッセージのID。トランスクリプトから除外される。
	IntroMessageID = "intro"
	// SummaryPendingMessageID はスコアリング中に表示する案内メッセージのID。
	SummaryPendingMessageID = "summary"
	// FinalMessageID はスコアリング結果メッセージのID。
	FinalMessageID = "final"
)

// TotalQuestions は1回の面接で出題する質問数。
const TotalQuestions = 6

// Message は面接チャットの1メッセージを表す。
// メッセージ列の挿入順がそのままトランスクリプトとなる。
type Message struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	IsAI      bool      `json:"isAI"`
	Timestamp time.Time `json:"timestamp"`
}

// CandidateDetails は履歴書から取得した候補者の連絡先情報。
type CandidateDetails struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// MissingFields は未入力のフィールド名を返す。
func (d CandidateDetails) MissingFields() []string {
	var missing []string
	if d.Name == "" {
		missing = append(missing, "name")
	}
	if d.Email == "" {
		missing = append(missing, "email")
	}
	if d.Phone == "" {
		missing = append(missing, "phone")
	}
	return missing
}

// ActiveInterview はクライアントごとに1つだけ存在する進行中セッションの状態。
type ActiveInterview struct {
	Phase            Phase            `json:"phase"`
	Messages         []Message        `json:"messages"`
	QuestionNumber   int              `json:"questionNumber"`
	CandidateDetails CandidateDetails `json:"candidateDetails"`
}

// NewActiveInterview は初期状態のセッションを返す。
func NewActiveInterview() ActiveInterview {
	return ActiveInterview{
		Phase:    PhaseAwaitingResume,
		Messages: []Message{},
	}
}

// Clone はメッセージ列を含めたディープコピーを返す。
func (a ActiveInterview) Clone() ActiveInterview {
	c := a
	c.Messages = make([]Message, len(a.Messages))
	copy(c.Messages, a.Messages)
	return c
}

// State は永続化の単位となるクライアント状態全体。
// {activeInterview, candidates[]} の1つの名前付きblobとして保存される。
type State struct {
	ActiveInterview ActiveInterview `json:"activeInterview"`
	Candidates      []Candidate     `json:"candidates"`
}

// NewState は初期状態を返す。
func NewState() State {
	return State{
		ActiveInterview: NewActiveInterview(),
		Candidates:      []Candidate{},
	}
}

// Clone はディープコピーを返す。
func (s State) Clone() State {
	c := State{
		ActiveInterview: s.ActiveInterview.Clone(),
		Candidates:      make([]Candidate, len(s.Candidates)),
	}
	for i, cand := range s.Candidates {
		c.Candidates[i] = cand.Clone()
	}
	return c
}
