package interview

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hitoshi/interviewer/internal/model"
	"github.com/hitoshi/interviewer/internal/session"
)

// StateGateway はクライアント状態の復元と保存を行う。*persistence.Gatewayが満たす。
type StateGateway interface {
	Load(ctx context.Context, clientID string) (model.State, bool)
	Listener(clientID string, enabled bool) func(model.State) error
}

// ManagerConfig はManagerの動作設定。
type ManagerConfig struct {
	Runtime Config
	// IdleTTL を超えて操作のないRuntimeはメモリから外す。0以下なら外さない。
	IdleTTL time.Duration
	// EvictInterval は期限切れRuntimeの確認間隔。
	EvictInterval time.Duration
}

type managedRuntime struct {
	runtime    *Runtime
	lastAccess time.Time
	// persistent がfalseの間はこのRuntimeが状態の唯一のコピーになる。
	persistent bool
	// unsaved は直近の保存が失敗したかどうか。ストアのロック下で更新される。
	unsaved atomic.Bool
}

// retainable はメモリから外すと状態が失われるかどうかを返す。
func (mr *managedRuntime) retainable() bool {
	return !mr.persistent || mr.unsaved.Load()
}

// Manager はクライアントごとのRuntimeを管理する。
// Runtimeは最初のアクセス時に保存済みの状態から生成される。
type Manager struct {
	ctx     context.Context
	gateway StateGateway
	deps    Deps
	cfg     ManagerConfig
	logger  *slog.Logger
	opts    []session.Option

	mu       sync.Mutex
	runtimes map[string]*managedRuntime
	closed   bool

	stopCh chan struct{}
}

// NewManager はManagerを生成する。
// ctxはRuntimeのタイマー起点の処理に引き継がれる。
func NewManager(ctx context.Context, gateway StateGateway, deps Deps, cfg ManagerConfig, opts ...session.Option) *Manager {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		ctx:      ctx,
		gateway:  gateway,
		deps:     deps,
		cfg:      cfg,
		logger:   logger,
		opts:     opts,
		runtimes: make(map[string]*managedRuntime),
		stopCh:   make(chan struct{}),
	}
	if cfg.IdleTTL > 0 && cfg.EvictInterval > 0 {
		go m.evictLoop()
	}
	return m
}

// Get はクライアントのRuntimeを返す。未生成であれば保存済みの状態を読み込んで生成する。
func (m *Manager) Get(ctx context.Context, clientID string) *Runtime {
	m.mu.Lock()
	if mr, ok := m.runtimes[clientID]; ok {
		mr.lastAccess = time.Now()
		m.mu.Unlock()
		return mr.runtime
	}
	m.mu.Unlock()

	state, enabled := m.gateway.Load(ctx, clientID)

	m.mu.Lock()
	defer m.mu.Unlock()

	// ダブルチェック
	if mr, ok := m.runtimes[clientID]; ok {
		mr.lastAccess = time.Now()
		return mr.runtime
	}

	mr := &managedRuntime{lastAccess: time.Now(), persistent: enabled}
	save := m.gateway.Listener(clientID, enabled)
	store := session.NewStore(state, m.opts...)
	store.SetListener(func(st model.State) {
		mr.unsaved.Store(save(st) != nil)
	})
	mr.runtime = NewRuntime(m.ctx, clientID, store, m.deps, m.cfg.Runtime)
	if m.closed {
		mr.runtime.Close()
	}
	m.runtimes[clientID] = mr

	m.logger.Info("クライアントの状態を読み込みました",
		slog.String("client_id", clientID),
		slog.String("phase", string(state.ActiveInterview.Phase)),
		slog.Int("candidates", len(state.Candidates)),
		slog.Bool("persistent", enabled),
	)
	return mr.runtime
}

// Count は現在保持しているRuntimeの数を返す。
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.runtimes)
}

// Close はすべてのRuntimeのタイマーと遅延リセットを停止する。
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	close(m.stopCh)
	for _, mr := range m.runtimes {
		mr.runtime.Close()
	}
}

func (m *Manager) evictLoop() {
	ticker := time.NewTicker(m.cfg.EvictInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.evict(time.Now())
		case <-m.stopCh:
			return
		}
	}
}

// evict は最終アクセスからIdleTTLを過ぎ、処理中でないRuntimeを外す。
// 保存先に最新の状態がないRuntimeは外さない。
func (m *Manager) evict(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	evicted := 0
	for id, mr := range m.runtimes {
		if now.Sub(mr.lastAccess) <= m.cfg.IdleTTL || mr.retainable() || !mr.runtime.idle() {
			continue
		}
		mr.runtime.Close()
		delete(m.runtimes, id)
		evicted++
	}
	if evicted > 0 {
		m.logger.Info("操作のないクライアントをメモリから外しました", slog.Int("count", evicted))
	}
	return evicted
}
