// Package session は面接セッションの状態機械を提供する。
//
// Storeはクライアント1つ分の状態（進行中セッションと候補者アーカイブ）を所有し、
// すべての変更は定義済みの操作を通じて1つの状態オブジェクトに原子的に適用される。
// 変更のたびに登録されたリスナーへ状態のスナップショットが通知される。
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/interviewer/internal/model"
	"github.com/hitoshi/interviewer/internal/transcript"
)

// GreetingMessage は面接開始時に追加される挨拶文。
const GreetingMessage = "Hello! Your resume has been processed. I'll be asking you 6 questions for this full-stack role. Let's begin."

// ChangeListener は状態変更後のスナップショットを受け取る。
// Storeのロックを保持したまま呼ばれるため、Storeを呼び返してはならない。
type ChangeListener func(state model.State)

// Store はクライアント1つ分の状態を保持する状態機械。
type Store struct {
	mu       sync.Mutex
	state    model.State
	listener ChangeListener

	now   func() time.Time
	newID func() string
}

// Option はStoreの生成オプション。
type Option func(*Store)

// WithClock は現在時刻の取得関数を差し替える。
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator は識別子の生成関数を差し替える。
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

// NewStore は初期状態を指定してStoreを生成する。
func NewStore(initial model.State, opts ...Option) *Store {
	s := &Store{
		state: initial.Clone(),
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if !s.state.ActiveInterview.Phase.Valid() {
		s.state.ActiveInterview = model.NewActiveInterview()
	}
	return s
}

// SetListener は変更通知先を設定する。
func (s *Store) SetListener(l ChangeListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listener = l
}

// Snapshot は状態全体のディープコピーを返す。
func (s *Store) Snapshot() model.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Active は進行中セッションのディープコピーを返す。
func (s *Store) Active() model.ActiveInterview {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ActiveInterview.Clone()
}

// NewMessage は一意なIDと現在時刻を付与したメッセージを生成する。
func (s *Store) NewMessage(content string, isAI bool) model.Message {
	return model.Message{
		ID:        s.newID(),
		Content:   content,
		IsAI:      isAI,
		Timestamp: s.now(),
	}
}

// StartInterview は候補者情報を設定し、挨拶メッセージだけを持つ進行中セッションを開始する。
// 質問番号は0に戻る。
func (s *Store) StartInterview(details model.CandidateDetails) {
	s.Batch(func(tx *Tx) { tx.StartInterview(details) })
}

// AddMessage はメッセージを末尾に追加する。順序の検証は行わない。
func (s *Store) AddMessage(msg model.Message) {
	s.Batch(func(tx *Tx) { tx.AddMessage(msg) })
}

// UpdateLastMessage は最後のメッセージの本文に文字列を追記する。
func (s *Store) UpdateLastMessage(content string) {
	s.Batch(func(tx *Tx) { tx.UpdateLastMessage(content) })
}

// SetPhase はフェーズを設定する。不変条件の維持は呼び出し側の責務。
func (s *Store) SetPhase(phase model.Phase) {
	s.Batch(func(tx *Tx) { tx.SetPhase(phase) })
}

// SetQuestionNumber は質問番号を設定する。不変条件の維持は呼び出し側の責務。
func (s *Store) SetQuestionNumber(n int) {
	s.Batch(func(tx *Tx) { tx.SetQuestionNumber(n) })
}

// CompleteActiveInterview は現在のメッセージ列からトランスクリプトを組み立て、
// 候補者レコードをアーカイブに1件追加する。セッション自体はクリアしない。
func (s *Store) CompleteActiveInterview(result model.ScoreResult) model.Candidate {
	var c model.Candidate
	s.Batch(func(tx *Tx) { c = tx.CompleteActiveInterview(result) })
	return c
}

// ResetActiveInterview は進行中セッションを初期状態に戻す。アーカイブは変更しない。冪等。
func (s *Store) ResetActiveInterview() {
	s.Batch(func(tx *Tx) { tx.ResetActiveInterview() })
}

// Batch は複数の操作を1回の原子的な変更として適用し、リスナーへの通知も1回にまとめる。
func (s *Store) Batch(fn func(tx *Tx)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Tx{store: s}
	fn(tx)
	if tx.changed && s.listener != nil {
		s.listener(s.state.Clone())
	}
}

// Tx はBatch内でのみ有効な操作ハンドル。
type Tx struct {
	store   *Store
	changed bool
}

// Active はBatch内の現時点の進行中セッションを返す。
func (tx *Tx) Active() model.ActiveInterview {
	return tx.store.state.ActiveInterview.Clone()
}

// StartInterview はStore.StartInterviewと同じ。
func (tx *Tx) StartInterview(details model.CandidateDetails) {
	s := tx.store
	s.state.ActiveInterview = model.ActiveInterview{
		Phase:            model.PhaseInProgress,
		CandidateDetails: details,
		QuestionNumber:   0,
		Messages: []model.Message{{
			ID:        model.IntroMessageID,
			Content:   GreetingMessage,
			IsAI:      true,
			Timestamp: s.now(),
		}},
	}
	tx.changed = true
}

// AddMessage はStore.AddMessageと同じ。
func (tx *Tx) AddMessage(msg model.Message) {
	a := &tx.store.state.ActiveInterview
	a.Messages = append(a.Messages, msg)
	tx.changed = true
}

// UpdateLastMessage はStore.UpdateLastMessageと同じ。
func (tx *Tx) UpdateLastMessage(content string) {
	a := &tx.store.state.ActiveInterview
	if len(a.Messages) == 0 {
		return
	}
	a.Messages[len(a.Messages)-1].Content += content
	tx.changed = true
}

// SetPhase はStore.SetPhaseと同じ。
func (tx *Tx) SetPhase(phase model.Phase) {
	tx.store.state.ActiveInterview.Phase = phase
	tx.changed = true
}

// SetQuestionNumber はStore.SetQuestionNumberと同じ。
func (tx *Tx) SetQuestionNumber(n int) {
	tx.store.state.ActiveInterview.QuestionNumber = n
	tx.changed = true
}

// CompleteActiveInterview はStore.CompleteActiveInterviewと同じ。
func (tx *Tx) CompleteActiveInterview(result model.ScoreResult) model.Candidate {
	s := tx.store
	a := s.state.ActiveInterview
	now := s.now().UTC()

	questions := transcript.Build(a.Messages)
	if len(questions) > model.TotalQuestions {
		questions = questions[:model.TotalQuestions]
	}

	c := model.Candidate{
		ID:            s.newID(),
		Name:          a.CandidateDetails.Name,
		Email:         a.CandidateDetails.Email,
		Phone:         a.CandidateDetails.Phone,
		FinalScore:    result.FinalScore,
		AISummary:     result.AISummary,
		Status:        model.CandidateStatusCompleted,
		InterviewDate: now,
		Questions:     questions,
	}
	s.state.Candidates = append(s.state.Candidates, c)
	tx.changed = true
	return c.Clone()
}

// ResetActiveInterview はStore.ResetActiveInterviewと同じ。
func (tx *Tx) ResetActiveInterview() {
	tx.store.state.ActiveInterview = model.NewActiveInterview()
	tx.changed = true
}
