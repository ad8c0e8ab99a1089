package interview

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/interviewer/internal/model"
)

// mockGateway はテスト用のStateGatewayモック。
type mockGateway struct {
	mu      sync.Mutex
	loadFn  func(ctx context.Context, clientID string) (model.State, bool)
	loads   int
	enabled map[string]bool
	saved   map[string][]model.State
	saveErr error
}

func newMockGateway(loadFn func(ctx context.Context, clientID string) (model.State, bool)) *mockGateway {
	return &mockGateway{
		loadFn:  loadFn,
		enabled: make(map[string]bool),
		saved:   make(map[string][]model.State),
	}
}

func (g *mockGateway) Load(ctx context.Context, clientID string) (model.State, bool) {
	g.mu.Lock()
	g.loads++
	g.mu.Unlock()
	return g.loadFn(ctx, clientID)
}

func (g *mockGateway) Listener(clientID string, enabled bool) func(model.State) error {
	g.mu.Lock()
	g.enabled[clientID] = enabled
	g.mu.Unlock()
	return func(st model.State) error {
		if !enabled {
			return nil
		}
		g.mu.Lock()
		defer g.mu.Unlock()
		if g.saveErr != nil {
			return g.saveErr
		}
		g.saved[clientID] = append(g.saved[clientID], st)
		return nil
	}
}

func (g *mockGateway) setSaveErr(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.saveErr = err
}

// runFullInterview は6問すべてに回答して面接を完了させ、遅延リセットを止める。
func runFullInterview(t *testing.T, r *Runtime) {
	t.Helper()
	if err := r.Start(context.Background(), testDetails); err != nil {
		t.Fatalf("Start がエラーを返した: %v", err)
	}
	for i := 0; i < model.TotalQuestions; i++ {
		if err := r.Submit(context.Background(), "answer"); err != nil {
			t.Fatalf("Submit がエラーを返した: %v", err)
		}
	}
	if r.Snapshot().Phase != model.PhaseCompleted {
		t.Fatalf("Phase = %q, want COMPLETED", r.Snapshot().Phase)
	}
	r.StartOver()
}

func newTestDeps(buf *bytes.Buffer) Deps {
	return Deps{
		Questions: &mockQuestions{generateFn: func(ctx context.Context, d model.Difficulty, n int) string {
			return questionText(d, n)
		}},
		Scorer: &mockScorer{createFn: func(ctx context.Context, full string) string {
			return "Score: 60/100\nSummary: OK."
		}},
		Logger: newTestLogger(buf),
	}
}

func TestManager_Get_LoadsOncePerClient(t *testing.T) {
	gw := newMockGateway(func(ctx context.Context, clientID string) (model.State, bool) {
		return model.NewState(), true
	})
	var buf bytes.Buffer
	m := NewManager(context.Background(), gw, newTestDeps(&buf), ManagerConfig{})
	defer m.Close()

	r1 := m.Get(context.Background(), "client-a")
	r2 := m.Get(context.Background(), "client-a")
	r3 := m.Get(context.Background(), "client-b")

	if r1 != r2 {
		t.Error("同じクライアントに別のRuntimeが返された")
	}
	if r1 == r3 {
		t.Error("別のクライアントに同じRuntimeが返された")
	}
	if gw.loads != 2 {
		t.Errorf("loads = %d, want 2", gw.loads)
	}
	if m.Count() != 2 {
		t.Errorf("Count = %d, want 2", m.Count())
	}
}

func TestManager_Get_RestoresSavedState(t *testing.T) {
	saved := model.NewState()
	saved.Candidates = []model.Candidate{{ID: "c1", Name: "Jane Doe", FinalScore: 80}}
	gw := newMockGateway(func(ctx context.Context, clientID string) (model.State, bool) {
		return saved, true
	})
	var buf bytes.Buffer
	m := NewManager(context.Background(), gw, newTestDeps(&buf), ManagerConfig{})
	defer m.Close()

	r := m.Get(context.Background(), "client-a")

	if got := r.Candidates(); len(got) != 1 || got[0].ID != "c1" {
		t.Errorf("Candidates = %+v", got)
	}
}

func TestManager_MutationsAreSaved(t *testing.T) {
	gw := newMockGateway(func(ctx context.Context, clientID string) (model.State, bool) {
		return model.NewState(), true
	})
	var buf bytes.Buffer
	m := NewManager(context.Background(), gw, newTestDeps(&buf), ManagerConfig{})
	defer m.Close()

	r := m.Get(context.Background(), "client-a")
	if err := r.Start(context.Background(), testDetails); err != nil {
		t.Fatalf("Start がエラーを返した: %v", err)
	}

	gw.mu.Lock()
	defer gw.mu.Unlock()
	states := gw.saved["client-a"]
	if len(states) == 0 {
		t.Fatal("状態が保存されていない")
	}
	last := states[len(states)-1]
	if last.ActiveInterview.Phase != model.PhaseInProgress || last.ActiveInterview.QuestionNumber != 1 {
		t.Errorf("最後に保存された状態 = %+v", last.ActiveInterview)
	}
}

func TestManager_StorageUnavailableRunsInMemory(t *testing.T) {
	gw := newMockGateway(func(ctx context.Context, clientID string) (model.State, bool) {
		return model.NewState(), false
	})
	var buf bytes.Buffer
	m := NewManager(context.Background(), gw, newTestDeps(&buf), ManagerConfig{})
	defer m.Close()

	r := m.Get(context.Background(), "client-a")
	r.Start(context.Background(), testDetails)

	if gw.enabled["client-a"] {
		t.Error("保存先が使えない場合は保存を無効にすべき")
	}
	if len(gw.saved["client-a"]) != 0 {
		t.Error("保存先が使えないのに保存された")
	}
	if r.Snapshot().QuestionNumber != 1 {
		t.Error("メモリ上での面接が進んでいない")
	}
}

func TestManager_EvictIdle(t *testing.T) {
	gw := newMockGateway(func(ctx context.Context, clientID string) (model.State, bool) {
		return model.NewState(), true
	})
	var buf bytes.Buffer
	m := NewManager(context.Background(), gw, newTestDeps(&buf), ManagerConfig{IdleTTL: time.Hour})
	defer m.Close()

	m.Get(context.Background(), "idle")
	busy := m.Get(context.Background(), "busy")
	busy.Start(context.Background(), testDetails)

	if n := m.evict(time.Now()); n != 0 {
		t.Errorf("TTL内で %d 件外された", n)
	}

	// busyはカウントダウンが動いているため残る
	if n := m.evict(time.Now().Add(2 * time.Hour)); n != 1 {
		t.Errorf("evicted = %d, want 1", n)
	}
	if m.Count() != 1 {
		t.Errorf("Count = %d, want 1", m.Count())
	}

	m.Get(context.Background(), "idle")
	if gw.loads != 3 {
		t.Errorf("外したクライアントは再読み込みされるべき: loads = %d", gw.loads)
	}
}

func TestManager_EvictIdle_KeepsStateWithoutStorage(t *testing.T) {
	tests := []struct {
		name    string
		enabled bool
		saveErr error
	}{
		{"保存先が使えない", false, nil},
		{"直近の保存が失敗した", true, errors.New("disk full")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := newMockGateway(func(ctx context.Context, clientID string) (model.State, bool) {
				return model.NewState(), tt.enabled
			})
			gw.setSaveErr(tt.saveErr)
			var buf bytes.Buffer
			m := NewManager(context.Background(), gw, newTestDeps(&buf), ManagerConfig{IdleTTL: time.Hour, Runtime: Config{ResetDelay: time.Hour}})
			defer m.Close()

			r := m.Get(context.Background(), "client-a")
			runFullInterview(t, r)
			if !r.idle() {
				t.Fatal("面接完了後のRuntimeが処理中のまま")
			}

			if n := m.evict(time.Now().Add(2 * time.Hour)); n != 0 {
				t.Errorf("evicted = %d, want 0", n)
			}
			if got := m.Get(context.Background(), "client-a").Candidates(); len(got) != 1 {
				t.Errorf("候補者アーカイブが失われた: %d 件", len(got))
			}
			if gw.loads != 1 {
				t.Errorf("loads = %d, want 1", gw.loads)
			}
		})
	}
}

func TestManager_EvictIdle_AfterSaveRecovers(t *testing.T) {
	gw := newMockGateway(func(ctx context.Context, clientID string) (model.State, bool) {
		return model.NewState(), true
	})
	gw.setSaveErr(errors.New("disk full"))
	var buf bytes.Buffer
	m := NewManager(context.Background(), gw, newTestDeps(&buf), ManagerConfig{IdleTTL: time.Hour, Runtime: Config{ResetDelay: time.Hour}})
	defer m.Close()

	r := m.Get(context.Background(), "client-a")
	runFullInterview(t, r)
	if n := m.evict(time.Now().Add(2 * time.Hour)); n != 0 {
		t.Fatalf("保存に失敗したまま外された: evicted = %d", n)
	}

	// 次の変更が保存できれば外してよい
	gw.setSaveErr(nil)
	r.StartOver()
	if n := m.evict(time.Now().Add(2 * time.Hour)); n != 1 {
		t.Errorf("evicted = %d, want 1", n)
	}
}
