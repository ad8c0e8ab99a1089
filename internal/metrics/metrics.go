// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hitoshi/interviewer/internal/model"
)

// MetricsCollector はメトリクス収集のインターフェース。
// 面接の進行、言語モデル呼び出し、保存先、HTTP応答、ワーカーから利用する。
type MetricsCollector interface {
	RecordInterviewStarted()
	RecordQuestionAsked(difficulty model.Difficulty)
	RecordAnswerSubmitted(auto bool)
	RecordInterviewCompleted(finalScore int)
	RecordLLMCall(kind string, duration time.Duration, err error)
	RecordStorageError(op string)
	RecordHTTPStatus(statusCode int)
	RecordStatesSwept(count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	interviewsStarted   prometheus.Counter
	interviewsCompleted prometheus.Counter
	questionsAsked      *prometheus.CounterVec
	answersSubmitted    *prometheus.CounterVec
	finalScore          prometheus.Histogram
	llmLatency          *prometheus.HistogramVec
	llmFailures         *prometheus.CounterVec
	storageErrors       *prometheus.CounterVec
	httpStatus          *prometheus.CounterVec
	statesSwept         prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		interviewsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "interviewer_interviews_started_total",
			Help: "開始された面接の合計数",
		}),
		interviewsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "interviewer_interviews_completed_total",
			Help: "完了した面接の合計数",
		}),
		questionsAsked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "interviewer_questions_asked_total",
			Help: "難易度別の出題数",
		}, []string{"difficulty"}),
		answersSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "interviewer_answers_submitted_total",
			Help: "送信方法別の回答数（manual / timeout）",
		}, []string{"trigger"}),
		finalScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "interviewer_final_score",
			Help:    "面接の最終スコアの分布",
			Buckets: prometheus.LinearBuckets(10, 10, 10),
		}),
		llmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "interviewer_llm_latency_seconds",
			Help:    "言語モデル呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
		llmFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "interviewer_llm_failures_total",
			Help: "言語モデル呼び出し失敗の合計数",
		}, []string{"kind"}),
		storageErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "interviewer_storage_errors_total",
			Help: "状態の保存・読み込み失敗の合計数",
		}, []string{"op"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "interviewer_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		statesSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "interviewer_states_swept_total",
			Help: "保持期間を過ぎて削除されたクライアント状態の合計数",
		}),
	}

	reg.MustRegister(
		c.interviewsStarted,
		c.interviewsCompleted,
		c.questionsAsked,
		c.answersSubmitted,
		c.finalScore,
		c.llmLatency,
		c.llmFailures,
		c.storageErrors,
		c.httpStatus,
		c.statesSwept,
	)

	return c
}

// RecordInterviewStarted は面接の開始を記録する。
func (c *Collector) RecordInterviewStarted() {
	c.interviewsStarted.Inc()
}

// RecordQuestionAsked は出題を記録する。
func (c *Collector) RecordQuestionAsked(difficulty model.Difficulty) {
	c.questionsAsked.WithLabelValues(string(difficulty)).Inc()
}

// RecordAnswerSubmitted は回答の送信を記録する。autoはタイマー満了による自動送信。
func (c *Collector) RecordAnswerSubmitted(auto bool) {
	trigger := "manual"
	if auto {
		trigger = "timeout"
	}
	c.answersSubmitted.WithLabelValues(trigger).Inc()
}

// RecordInterviewCompleted は面接の完了と最終スコアを記録する。
func (c *Collector) RecordInterviewCompleted(finalScore int) {
	c.interviewsCompleted.Inc()
	c.finalScore.Observe(float64(finalScore))
}

// RecordLLMCall は言語モデル呼び出しのレイテンシと失敗を記録する。
func (c *Collector) RecordLLMCall(kind string, duration time.Duration, err error) {
	c.llmLatency.WithLabelValues(kind).Observe(duration.Seconds())
	if err != nil {
		c.llmFailures.WithLabelValues(kind).Inc()
	}
}

// RecordStorageError は保存先の障害を記録する。
func (c *Collector) RecordStorageError(op string) {
	c.storageErrors.WithLabelValues(op).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordStatesSwept は削除したクライアント状態の件数を記録する。
func (c *Collector) RecordStatesSwept(count int64) {
	c.statesSwept.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
