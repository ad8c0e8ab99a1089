// Package timer は質問ごとの回答制限時間を管理するカウントダウンを提供する。
package timer

import (
	"sync"
	"time"
)

// WarningThreshold は残り秒数がこの値を下回ると警告表示になる閾値。
// 表示上の区別のみで、動作には影響しない。
const WarningThreshold = 10

// Key はカウントダウン1回分を識別する。
// 質問番号または制限時間が変わると別のカウントダウンとして扱う。
type Key struct {
	QuestionNumber int
	TimeLimit      int
}

// Status はカウントダウンの表示用スナップショット。
type Status struct {
	QuestionNumber   int  `json:"questionNumber"`
	TimeLimit        int  `json:"timeLimit"`
	SecondsRemaining int  `json:"secondsRemaining"`
	Warning          bool `json:"warning"`
	Running          bool `json:"running"`
}

// Countdown は秒単位のカウントダウン。
// 1秒ごとに残り秒数を減らし、0に達した時点で完了コールバックを1回だけ呼んで停止する。
// Startで新しいKeyを与えると、前回の状態を引き継がずに最初からやり直す。
type Countdown struct {
	interval   time.Duration
	onComplete func(Key)

	mu        sync.Mutex
	key       Key
	remaining int
	running   bool
	gen       uint64
	stopCh    chan struct{}
}

// New はCountdownを生成する。
// intervalが0以下の場合は内部のティッカーを起動せず、Tickの呼び出しでのみ進む。
func New(interval time.Duration, onComplete func(Key)) *Countdown {
	return &Countdown{
		interval:   interval,
		onComplete: onComplete,
	}
}

// Start は指定したKeyでカウントダウンを開始する。
// 実行中のカウントダウンは破棄される。TimeLimitが0以下の場合は即座に完了する。
func (c *Countdown) Start(key Key) {
	c.mu.Lock()
	c.stopLocked()
	c.gen++
	c.key = key
	c.remaining = key.TimeLimit
	if key.TimeLimit <= 0 {
		c.remaining = 0
		c.mu.Unlock()
		c.fire(key)
		return
	}
	c.running = true
	gen := c.gen
	if c.interval > 0 {
		c.stopCh = make(chan struct{})
		go c.run(gen, c.stopCh)
	}
	c.mu.Unlock()
}

// Stop はカウントダウンを停止する。完了コールバックは呼ばれない。
func (c *Countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
	c.gen++
}

// Tick は残り秒数を1つ減らす。0に達した場合は完了コールバックを呼ぶ。
func (c *Countdown) Tick() {
	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()
	c.tick(gen)
}

// Status は現在の状態を返す。
func (c *Countdown) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		QuestionNumber:   c.key.QuestionNumber,
		TimeLimit:        c.key.TimeLimit,
		SecondsRemaining: c.remaining,
		Warning:          c.running && c.remaining < WarningThreshold,
		Running:          c.running,
	}
}

// Key は現在のカウントダウンのKeyを返す。
func (c *Countdown) Key() Key {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.key
}

func (c *Countdown) run(gen uint64, stop <-chan struct{}) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if done := c.tick(gen); done {
				return
			}
		}
	}
}

// tick は世代が一致する場合のみ残り秒数を減らす。
// カウントダウンが終了している（または世代が古い）場合はtrueを返す。
func (c *Countdown) tick(gen uint64) bool {
	c.mu.Lock()
	if gen != c.gen || !c.running {
		c.mu.Unlock()
		return true
	}
	c.remaining--
	if c.remaining > 0 {
		c.mu.Unlock()
		return false
	}
	c.remaining = 0
	c.running = false
	// ティッカーのgoroutineは自身でreturnするため、stopChは閉じずに手放す
	c.stopCh = nil
	key := c.key
	c.mu.Unlock()

	c.fire(key)
	return true
}

func (c *Countdown) fire(key Key) {
	if c.onComplete != nil {
		c.onComplete(key)
	}
}

func (c *Countdown) stopLocked() {
	if c.stopCh != nil {
		close(c.stopCh)
		c.stopCh = nil
	}
	c.running = false
}
