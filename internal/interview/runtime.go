package interview

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/hitoshi/interviewer/internal/model"
	"github.com/hitoshi/interviewer/internal/persistence"
	"github.com/hitoshi/interviewer/internal/session"
	"github.com/hitoshi/interviewer/internal/timer"
	"github.com/hitoshi/interviewer/internal/transcript"
)

// CompletionMessage は採点中に表示する案内メッセージ。
const CompletionMessage = "Thank you for completing the interview! Generating your summary..."

var (
	// ErrBusy は質問生成または採点の呼び出し中に操作が行われたことを示す。
	ErrBusy = errors.New("前の処理が完了していません")
	// ErrInvalidPhase は現在のフェーズでは実行できない操作であることを示す。
	ErrInvalidPhase = errors.New("現在のフェーズでは実行できない操作です")

	errStaleTimeout = errors.New("満了したカウントダウンは現在の質問のものではありません")
)

// QuestionGenerator は難易度と質問番号に応じた質問文を返す。
// 失敗時もエラーは返さず、プレースホルダー文字列を返す。
type QuestionGenerator interface {
	GenerateQuestion(ctx context.Context, difficulty model.Difficulty, questionNumber int) string
}

// Scorer はトランスクリプトを採点したテキストを返す。
// 失敗時もエラーは返さず、プレースホルダー文字列を返す。
type Scorer interface {
	CreateSummary(ctx context.Context, fullTranscript string) string
}

// Metrics は面接の進行状況を記録する。
type Metrics interface {
	RecordInterviewStarted()
	RecordQuestionAsked(difficulty model.Difficulty)
	RecordAnswerSubmitted(auto bool)
	RecordInterviewCompleted(finalScore int)
}

type noopMetrics struct{}

func (noopMetrics) RecordInterviewStarted() {}
func (noopMetrics) RecordQuestionAsked(model.Difficulty) {}
func (noopMetrics) RecordAnswerSubmitted(bool) {}
func (noopMetrics) RecordInterviewCompleted(int) {}

// Deps はRuntimeの依存コンポーネント。MetricsとLoggerはnilでもよい。
type Deps struct {
	Questions QuestionGenerator
	Scorer    Scorer
	Metrics   Metrics
	Logger    *slog.Logger
}

// Config はRuntimeの動作設定。
type Config struct {
	// ResetDelay は採点結果を表示してからセッションを初期化するまでの時間。
	ResetDelay time.Duration
	// CallTimeout は質問生成・採点1回あたりのタイムアウト。0以下なら無制限。
	CallTimeout time.Duration
	// TickInterval はカウントダウンの刻み。0以下ならTickの手動呼び出しでのみ進む。
	TickInterval time.Duration
}

// TimerView はカウントダウンの表示用の状態。
type TimerView struct {
	TimeLimit        int  `json:"timeLimit"`
	SecondsRemaining int  `json:"secondsRemaining"`
	Warning          bool `json:"warning"`
	Running          bool `json:"running"`
}

// Snapshot は画面描画に必要な状態一式。
type Snapshot struct {
	Phase                 model.Phase            `json:"phase"`
	Messages              []model.Message        `json:"messages"`
	QuestionNumber        int                    `json:"questionNumber"`
	DisplayQuestionNumber int                    `json:"displayQuestionNumber"`
	TotalQuestions        int                    `json:"totalQuestions"`
	CandidateDetails      model.CandidateDetails `json:"candidateDetails"`
	Loading               bool                   `json:"loading"`
	Draft                 string                 `json:"draft"`
	RecoveryPrompt        bool                   `json:"recoveryPrompt"`
	Timer                 TimerView              `json:"timer"`
}

// stopper はスケジュール済みの処理を取り消す。*time.Timerが満たす。
type stopper interface {
	Stop() bool
}

// Runtime はクライアント1つ分の面接の進行を管理する。
type Runtime struct {
	clientID  string
	store     *session.Store
	questions QuestionGenerator
	scorer    Scorer
	metrics   Metrics
	logger    *slog.Logger
	cfg       Config
	countdown *timer.Countdown

	// bg はタイマー起点の処理で使う親コンテキスト
	bg context.Context
	// schedule はテストで差し替え可能
	schedule func(d time.Duration, f func()) stopper

	mu              sync.Mutex
	loading         bool
	draft           string
	timeLimit       int
	recoveryPending bool
	run             uint64
	resetTimer      stopper
}

// NewRuntime はRuntimeを生成する。
// ctxはタイマー満了時の自動送信や遅延リセットで使われ、キャンセルされると外部呼び出しも中断される。
func NewRuntime(ctx context.Context, clientID string, store *session.Store, deps Deps, cfg Config) *Runtime {
	r := &Runtime{
		clientID:  clientID,
		store:     store,
		questions: deps.Questions,
		scorer:    deps.Scorer,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
		cfg:       cfg,
		bg:        ctx,
		schedule: func(d time.Duration, f func()) stopper {
			return time.AfterFunc(d, f)
		},
	}
	if r.metrics == nil {
		r.metrics = noopMetrics{}
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	r.logger = r.logger.With(slog.String("client_id", clientID))
	r.countdown = timer.New(cfg.TickInterval, r.onTimeout)
	return r
}

// Start は候補者情報を確定して面接を開始し、1問目を取得する。
// 氏名・メールアドレス・電話番号のいずれかが空の場合は MISSING_DETAILS を返す。
func (r *Runtime) Start(ctx context.Context, details model.CandidateDetails) error {
	details = model.CandidateDetails{
		Name:  strings.TrimSpace(details.Name),
		Email: strings.TrimSpace(details.Email),
		Phone: strings.TrimSpace(details.Phone),
	}
	if missing := details.MissingFields(); len(missing) > 0 {
		return model.NewMissingDetailsError(missing)
	}

	r.mu.Lock()
	if r.loading {
		r.mu.Unlock()
		return ErrBusy
	}
	if r.store.Active().Phase == model.PhaseInProgress {
		r.mu.Unlock()
		return ErrInvalidPhase
	}
	r.cancelResetLocked()
	r.countdown.Stop()
	r.run++
	run := r.run
	r.draft = ""
	r.recoveryPending = false
	r.loading = true
	r.store.StartInterview(details)
	r.mu.Unlock()

	r.metrics.RecordInterviewStarted()
	r.logger.Info("面接を開始しました")

	r.advance(ctx, run)
	return nil
}

// Submit は回答を追加して次の質問を取得する。6問目への回答後は採点に進む。
// 前の呼び出しが完了していない場合は状態を変更せず ErrBusy を返す。
func (r *Runtime) Submit(ctx context.Context, answer string) error {
	return r.submit(ctx, answer, nil)
}

// SetDraft はタイマー満了時に自動送信される入力中の回答を更新する。
func (r *Runtime) SetDraft(text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.store.Active().Phase != model.PhaseInProgress {
		return ErrInvalidPhase
	}
	r.draft = text
	return nil
}

// Load はページ読み込み時の状態を返す。
// 進行中のセッションが見つかった場合は再開確認を求め、応答があるまでタイマーを止める。
func (r *Runtime) Load() Snapshot {
	r.mu.Lock()
	a := r.store.Active()
	if persistence.RecoveryRequired(a) {
		r.recoveryPending = true
		r.countdown.Stop()
	}

	var rescore bool
	run := r.run
	if a.Phase == model.PhaseCompleted && !r.loading {
		if hasMessage(a, model.FinalMessageID) {
			if r.resetTimer == nil {
				r.scheduleResetLocked(run)
			}
		} else {
			// 採点の途中で中断したセッションは採点からやり直す
			r.loading = true
			rescore = true
		}
	}
	snap := r.snapshotLocked()
	r.mu.Unlock()

	if rescore {
		r.logger.Info("中断された採点を再実行します")
		go func() {
			defer r.setLoading(false)
			r.complete(r.bg, run)
		}()
	}
	return snap
}

// Resume は再開確認で「再開」が選ばれたときに呼ばれる。
// 質問に回答待ちであればその質問のタイマーを最初から動かし、
// 次の質問が未取得であれば取得する。
func (r *Runtime) Resume(ctx context.Context) Snapshot {
	r.mu.Lock()
	if !r.recoveryPending {
		snap := r.snapshotLocked()
		r.mu.Unlock()
		return snap
	}
	r.recoveryPending = false

	a := r.store.Active()
	var (
		fetch      bool
		startTimer bool
		key        timer.Key
	)
	if a.Phase == model.PhaseInProgress && !r.loading {
		if a.QuestionNumber == 0 || !lastIsAI(a) {
			fetch = true
			r.loading = true
		} else {
			key = timer.Key{
				QuestionNumber: a.QuestionNumber,
				TimeLimit:      TimeLimitFor(DifficultyFor(a.QuestionNumber)),
			}
			r.timeLimit = key.TimeLimit
			startTimer = true
		}
	}
	run := r.run
	r.mu.Unlock()

	r.logger.Info("セッションを再開しました", slog.Int("question_number", a.QuestionNumber))
	if startTimer {
		r.countdown.Start(key)
	}
	if fetch {
		r.advance(ctx, run)
	}
	return r.Snapshot()
}

// StartOver は再開確認で「やり直す」が選ばれたときに呼ばれ、セッションを初期状態に戻す。
// 実行中の呼び出しの結果は破棄される。
func (r *Runtime) StartOver() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.recoveryPending = false
	r.cancelResetLocked()
	r.countdown.Stop()
	r.run++
	r.draft = ""
	r.timeLimit = 0
	r.store.ResetActiveInterview()
	r.logger.Info("セッションを初期化しました")
	return r.snapshotLocked()
}

// Snapshot は現在の状態を返す。
func (r *Runtime) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// Candidates は候補者アーカイブのコピーを返す。
func (r *Runtime) Candidates() []model.Candidate {
	return r.store.Snapshot().Candidates
}

// Close はタイマーと遅延リセットを停止する。
func (r *Runtime) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.run++
	r.cancelResetLocked()
	r.countdown.Stop()
}

// submit は回答を追加して次の質問の取得に進む。
// timeoutが指定された場合は自動送信として扱い、同じロックの中で満了したカウントダウンが
// 現在の質問のものかを確かめてから入力中の回答を送る。
func (r *Runtime) submit(ctx context.Context, answer string, timeout *timer.Key) error {
	r.mu.Lock()
	if timeout != nil {
		a := r.store.Active()
		if a.Phase != model.PhaseInProgress ||
			a.QuestionNumber != timeout.QuestionNumber ||
			r.timeLimit != timeout.TimeLimit {
			r.mu.Unlock()
			return errStaleTimeout
		}
		answer = r.draft
	}
	if r.loading {
		r.mu.Unlock()
		return ErrBusy
	}
	if r.store.Active().Phase != model.PhaseInProgress || r.recoveryPending {
		r.mu.Unlock()
		return ErrInvalidPhase
	}
	r.countdown.Stop()
	r.loading = true
	r.draft = ""
	run := r.run
	r.store.AddMessage(r.store.NewMessage(answer, false))
	r.mu.Unlock()

	r.metrics.RecordAnswerSubmitted(timeout != nil)
	r.advance(ctx, run)
	return nil
}

// advance は次の質問を取得する。6問を出題済みであれば採点に進む。
// 呼び出し側でloadingを立ててから呼ぶこと。終了時にloadingを下ろす。
func (r *Runtime) advance(ctx context.Context, run uint64) {
	defer r.setLoading(false)

	next := r.store.Active().QuestionNumber + 1
	if next > model.TotalQuestions {
		r.complete(ctx, run)
		return
	}

	difficulty := DifficultyFor(next)
	limit := TimeLimitFor(difficulty)
	r.mu.Lock()
	r.timeLimit = limit
	r.mu.Unlock()

	callCtx, cancel := r.callContext(ctx)
	text := r.questions.GenerateQuestion(callCtx, difficulty, next)
	cancel()

	r.mu.Lock()
	if run != r.run {
		r.mu.Unlock()
		r.logger.Info("セッションが変わったため取得した質問を破棄しました", slog.Int("question_number", next))
		return
	}
	r.store.Batch(func(tx *session.Tx) {
		tx.AddMessage(r.store.NewMessage(text, true))
		tx.SetQuestionNumber(next)
	})
	startTimer := !r.recoveryPending
	r.mu.Unlock()

	r.metrics.RecordQuestionAsked(difficulty)
	if startTimer {
		r.countdown.Start(timer.Key{QuestionNumber: next, TimeLimit: limit})
	}
}

// complete は面接を完了させて採点し、候補者レコードをアーカイブに追加する。
func (r *Runtime) complete(ctx context.Context, run uint64) {
	r.countdown.Stop()

	r.mu.Lock()
	if run != r.run {
		r.mu.Unlock()
		return
	}
	r.store.Batch(func(tx *session.Tx) {
		tx.SetPhase(model.PhaseCompleted)
		if !hasMessage(tx.Active(), model.SummaryPendingMessageID) {
			msg := r.store.NewMessage(CompletionMessage, true)
			msg.ID = model.SummaryPendingMessageID
			tx.AddMessage(msg)
		}
	})
	full := transcript.Render(transcript.Build(r.store.Active().Messages))
	r.mu.Unlock()

	callCtx, cancel := r.callContext(ctx)
	text := r.scorer.CreateSummary(callCtx, full)
	cancel()
	result := ParseScoreResponse(text)

	r.mu.Lock()
	if run != r.run {
		r.mu.Unlock()
		r.logger.Info("セッションが変わったため採点結果を破棄しました")
		return
	}
	var candidate model.Candidate
	r.store.Batch(func(tx *session.Tx) {
		msg := r.store.NewMessage(text, true)
		msg.ID = model.FinalMessageID
		tx.AddMessage(msg)
		candidate = tx.CompleteActiveInterview(result)
	})
	r.scheduleResetLocked(run)
	r.mu.Unlock()

	r.metrics.RecordInterviewCompleted(result.FinalScore)
	r.logger.Info("面接が完了しました",
		slog.String("candidate_id", candidate.ID),
		slog.Int("final_score", candidate.FinalScore),
		slog.Int("questions", len(candidate.Questions)),
	)
}

// onTimeout はカウントダウン満了時に呼ばれ、入力中の回答を自動送信する。
// 満了したカウントダウンが現在の質問のものでなければ無視する。
func (r *Runtime) onTimeout(key timer.Key) {
	err := r.submit(r.bg, "", &key)
	switch {
	case err == nil:
		r.logger.Info("制限時間を過ぎたため回答を自動送信しました", slog.Int("question_number", key.QuestionNumber))
	case errors.Is(err, errStaleTimeout):
		r.logger.Debug("古いカウントダウンの満了を無視しました", slog.Int("question_number", key.QuestionNumber))
	default:
		r.logger.Warn("回答の自動送信をスキップしました",
			slog.String("error", err.Error()),
			slog.Int("question_number", key.QuestionNumber),
		)
	}
}

func (r *Runtime) scheduleResetLocked(run uint64) {
	r.cancelResetLocked()
	r.resetTimer = r.schedule(r.cfg.ResetDelay, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if run != r.run {
			return
		}
		r.run++
		r.resetTimer = nil
		r.draft = ""
		r.timeLimit = 0
		r.store.ResetActiveInterview()
		r.logger.Info("完了したセッションを初期化しました")
	})
}

func (r *Runtime) cancelResetLocked() {
	if r.resetTimer != nil {
		r.resetTimer.Stop()
		r.resetTimer = nil
	}
}

// idle は呼び出し中でなく、カウントダウンも遅延リセットも動いていないかを返す。
func (r *Runtime) idle() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.loading && r.resetTimer == nil && !r.countdown.Status().Running
}

func (r *Runtime) setLoading(v bool) {
	r.mu.Lock()
	r.loading = v
	r.mu.Unlock()
}

func (r *Runtime) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	// リクエストが切断されても呼び出しは最後まで行う
	ctx = context.WithoutCancel(ctx)
	if r.cfg.CallTimeout > 0 {
		return context.WithTimeout(ctx, r.cfg.CallTimeout)
	}
	return context.WithCancel(ctx)
}

func (r *Runtime) snapshotLocked() Snapshot {
	a := r.store.Active()

	tv := TimerView{TimeLimit: r.timeLimit, SecondsRemaining: r.timeLimit}
	if st := r.countdown.Status(); st.QuestionNumber == a.QuestionNumber && st.TimeLimit == r.timeLimit && a.QuestionNumber > 0 {
		tv = TimerView{
			TimeLimit:        st.TimeLimit,
			SecondsRemaining: st.SecondsRemaining,
			Warning:          st.Warning,
			Running:          st.Running,
		}
	}

	return Snapshot{
		Phase:                 a.Phase,
		Messages:              a.Messages,
		QuestionNumber:        a.QuestionNumber,
		DisplayQuestionNumber: min(a.QuestionNumber, model.TotalQuestions),
		TotalQuestions:        model.TotalQuestions,
		CandidateDetails:      a.CandidateDetails,
		Loading:               r.loading,
		Draft:                 r.draft,
		RecoveryPrompt:        r.recoveryPending,
		Timer:                 tv,
	}
}

func hasMessage(a model.ActiveInterview, id string) bool {
	for _, m := range a.Messages {
		if m.ID == id {
			return true
		}
	}
	return false
}

func lastIsAI(a model.ActiveInterview) bool {
	if len(a.Messages) == 0 {
		return false
	}
	return a.Messages[len(a.Messages)-1].IsAI
}
