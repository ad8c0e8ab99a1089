package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/interviewer/internal/config"
	"github.com/hitoshi/interviewer/internal/database"
	"github.com/hitoshi/interviewer/internal/handler"
	"github.com/hitoshi/interviewer/internal/interview"
	"github.com/hitoshi/interviewer/internal/llm"
	"github.com/hitoshi/interviewer/internal/logger"
	"github.com/hitoshi/interviewer/internal/metrics"
	"github.com/hitoshi/interviewer/internal/middleware"
	"github.com/hitoshi/interviewer/internal/persistence"
	"github.com/hitoshi/interviewer/internal/repository"
	"github.com/hitoshi/interviewer/internal/worker/cleanup"
)

// evictInterval は操作のないクライアントをメモリから外す確認間隔。
const evictInterval = 10 * time.Minute

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたログレベルで再初期化する
	logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	if !cmd.NeedsConfig() {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
		slog.String("storage_driver", cfg.StorageDriver),
		slog.String("llm_provider", cfg.LLMProvider),
	)

	switch cmd {
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// storage は設定に応じて選択された状態の保存先。
type storage struct {
	repo repository.StateRepository
	db   *sql.DB
}

// openStorage は保存先を開く。
// PostgreSQLに接続できない場合もエラーにはせず、警告を記録して起動を続ける。
// 読み込みに失敗したクライアントはメモリ上でのみ動作する。
func openStorage(ctx context.Context, cfg *config.Config) (*storage, error) {
	switch cfg.StorageDriver {
	case config.StorageDriverPostgres:
		db, err := database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := database.Ping(ctx, db, cfg.StorageTimeout); err != nil {
			slog.Warn("データベースに接続できません。状態はメモリ上でのみ保持されます",
				slog.String("error", err.Error()),
			)
		} else {
			slog.Info("database connection established")
		}
		return &storage{repo: repository.NewPostgresStateRepo(db), db: db}, nil
	default:
		repo, err := repository.NewFileStateRepo(cfg.StorageDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open state directory: %w", err)
		}
		slog.Info("file storage ready", slog.String("dir", cfg.StorageDir))
		return &storage{repo: repo}, nil
	}
}

// healthChecker はヘルスチェックで疎通を確認する対象を返す。ファイル保存ではnil。
func (s *storage) healthChecker() handler.HealthChecker {
	if s.db == nil {
		return nil
	}
	return s.db
}

// Close はデータベース接続を閉じる。
func (s *storage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// newCompleter は設定に応じた言語モデルのクライアントを返す。
func newCompleter(cfg *config.Config, log *slog.Logger) llm.Completer {
	if cfg.LLMProvider == config.LLMProviderMock {
		log.Info("言語モデルにモッククライアントを使用します")
		return llm.NewMockClient()
	}
	return llm.NewOpenAIClient(
		&http.Client{Timeout: cfg.LLMTimeout},
		log,
		llm.ClientConfig{
			BaseURL:     cfg.LLMBaseURL,
			APIKey:      cfg.LLMAPIKey,
			Model:       cfg.LLMModel,
			Temperature: cfg.LLMTemperature,
		},
	)
}

// Server はAPIサーバーの依存関係一式。
type Server struct {
	Handler  http.Handler
	Registry *prometheus.Registry

	manager *interview.Manager
	limiter *middleware.RateLimiter
	storage *storage
}

// NewServer は全依存関係をワイヤリングし、APIサーバーのハンドラーを構築する。
// ctxはクライアントごとのタイマー処理に引き継がれ、キャンセルで停止する。
func NewServer(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Server, error) {
	// 1. メトリクス
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(reg)

	// 2. 保存先
	store, err := openStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}
	gateway := persistence.NewGateway(store.repo, log, cfg.StorageTimeout, collector)

	// 3. 言語モデル
	llmService := llm.NewService(newCompleter(cfg, log), log, collector)

	// 4. 面接の進行管理
	manager := interview.NewManager(ctx, gateway, interview.Deps{
		Questions: llmService,
		Scorer:    llmService,
		Metrics:   collector,
		Logger:    log,
	}, interview.ManagerConfig{
		Runtime: interview.Config{
			ResetDelay:   cfg.ResetDelay,
			CallTimeout:  cfg.LLMTimeout,
			TickInterval: time.Second,
		},
		IdleTTL:       cfg.ClientIdleTTL,
		EvictInterval: evictInterval,
	})

	// 5. ルーター
	limiter := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitSubmit),
	)
	router := handler.NewRouter(&handler.RouterDeps{
		Logger:         log,
		StatusRecorder: collector,
		CookieConfig: middleware.CookieConfig{
			Secure: cfg.CookieSecure,
			Domain: cfg.CookieDomain,
		},
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       limiter,
		Sessions:          handler.NewManagerAdapter(manager),
		ResumeMaxSize:     cfg.ResumeMaxSize,
		HealthHandler:     handler.NewHealthHandler(store.healthChecker()),
		MetricsHandler:    metrics.Handler(reg),
	})

	return &Server{
		Handler:  router,
		Registry: reg,
		manager:  manager,
		limiter:  limiter,
		storage:  store,
	}, nil
}

// Close はタイマー、レート制限のクリーンアップ、保存先の接続を停止する。
func (s *Server) Close() error {
	s.manager.Close()
	s.limiter.Stop()
	return s.storage.Close()
}

// runServe はAPIサーバーモードで起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv, err := NewServer(ctx, cfg, slog.Default())
	if err != nil {
		return err
	}
	defer srv.Close()

	server := &http.Server{
		Addr:        ":" + cfg.ServerPort,
		Handler:     srv.Handler,
		ReadTimeout: 15 * time.Second,
		// 回答送信は次の質問の生成を待ってから応答する
		WriteTimeout: cfg.LLMTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-stop:
	case err := <-errCh:
		return fmt.Errorf("server listen error: %w", err)
	}
	slog.Info("shutting down API server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// 保持期間を超えた状態を定期的に削除する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	// ワーカーのメトリクスはSERVER_PORTの/metricsで公開する
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)
	metricsServer := &http.Server{
		Addr:        ":" + cfg.ServerPort,
		Handler:     metrics.SetupMetricsRoute(reg),
		ReadTimeout: 15 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server listen error", slog.String("error", err.Error()))
		}
	}()

	sweeper := cleanup.NewSweeper(store.repo, slog.Default(), collector)
	sweeper.RetentionDays = cfg.RetentionDays

	// クリーンアップジョブをメインgoroutineで実行（ブロッキング）
	sweeper.Start(ctx, cfg.SweepInterval)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn("metrics server shutdown failed", slog.String("error", err.Error()))
	}

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	if cfg.StorageDriver != config.StorageDriverPostgres {
		slog.Info("storage driver is not postgres; nothing to migrate",
			slog.String("storage_driver", cfg.StorageDriver),
		)
		return nil
	}

	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	version, dirty, err := database.Version(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to read migration version: %w", err)
	}

	slog.Info("database migrations completed successfully",
		slog.Uint64("version", uint64(version)),
		slog.Bool("dirty", dirty),
	)
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
