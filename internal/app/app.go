package app

import (
	"context"
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
	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/dropwatch/internal/config"
	"github.com/hitoshi/dropwatch/internal/feed"
	"github.com/hitoshi/dropwatch/internal/handler"
	"github.com/hitoshi/dropwatch/internal/listing"
	"github.com/hitoshi/dropwatch/internal/logger"
	"github.com/hitoshi/dropwatch/internal/metrics"
	"github.com/hitoshi/dropwatch/internal/middleware"
	"github.com/hitoshi/dropwatch/internal/render"
	"github.com/hitoshi/dropwatch/internal/security"
	"github.com/hitoshi/dropwatch/internal/state"
	"github.com/hitoshi/dropwatch/internal/worker/refresh"
)

// shutdownTimeout はグレースフルシャットダウンの待ち時間。
const shutdownTimeout = 30 * time.Second

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップし、環境変数からConfigを読み込む。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, logger.ParseLevel(os.Getenv("LOG_LEVEL")))

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
//
// serveではwにログを出力する。watchとfetchではwに表示を出力し、ログは標準エラーに出す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	logOut := w
	if cmd == CommandWatch || cmd == CommandFetch {
		logOut = os.Stderr
	}

	cfg, err := Init(logOut)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("data_url", cfg.DataURL),
		slog.Duration("refresh_interval", cfg.RefreshInterval),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case CommandWatch:
		return runWatch(ctx, cfg, slog.Default(), w)
	case CommandFetch:
		return runFetch(ctx, cfg, slog.Default(), w)
	default:
		return runServe(ctx, cfg, slog.Default())
	}
}

// components はフィード取得からスナップショット保持までの共通部品。
type components struct {
	store     *state.Store
	countdown *refresh.Countdown
	scheduler *refresh.Scheduler
	registry  *prometheus.Registry
	sorter    *listing.Sorter
}

// newComponents は設定から取得系の部品を組み立てる。
func newComponents(cfg *config.Config, logger *slog.Logger) *components {
	var guard feed.URLGuard = security.NewOpenGuard()
	if cfg.FetchBlockPrivate {
		guard = security.NewSSRFGuard()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	client := feed.NewClient(guard, logger, cfg.DataURL, cfg.FetchTimeout, cfg.FetchMaxSize)
	store := state.NewStore()
	countdown := refresh.NewCountdown(cfg.RefreshInterval)

	return &components{
		store:     store,
		countdown: countdown,
		scheduler: refresh.NewScheduler(client, store, countdown, collector, logger),
		registry:  registry,
		sorter:    listing.NewSorter(cfg.Locale),
	}
}

// runServe はダッシュボードサーバーとして起動する。
// リフレッシュスケジューラとHTTPサーバーを同じコンテキストで管理し、
// コンテキストがキャンセルされるとグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	c := newComponents(cfg, logger)

	rateLimiter := middleware.NewRateLimiter(middleware.NewRateLimiterConfig(cfg.RateLimitGeneral), logger)
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            logger,
		RateLimiter:       rateLimiter,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		State:             c.store,
		Countdown:         c.countdown,
		Projector:         c.sorter,
		Renderer: render.NewHTMLRenderer(
			security.NewMarkupSanitizer(), cfg.Locale, cfg.CurrencySymbol, cfg.RefreshInterval,
		),
		Gatherer: c.registry,
	})

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		c.scheduler.Start(gctx, cfg.RefreshInterval)
		return nil
	})

	g.Go(func() error {
		logger.Info("dashboard server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down dashboard server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("dashboard server stopped gracefully")
	return nil
}

// runFetch はフィードを1回取得し、上位の値下げを出力する。
// 取得に失敗した場合はエラーを返す（終了コードは非0になる）。
func runFetch(ctx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer) error {
	c := newComponents(cfg, logger)

	if err := c.scheduler.RunOnce(ctx); err != nil {
		return fmt.Errorf("fetch failed: %w", err)
	}

	view := c.store.View()
	term := render.NewTerminalRenderer(cfg.Locale, cfg.CurrencySymbol)
	return term.Render(out, render.TerminalView{
		Snapshot:  view.Snapshot,
		Kind:      render.ContentDrops,
		Drops:     c.sorter.Sort(view.Snapshot.Drops, listing.DefaultSortKey),
		Countdown: c.countdown.String(),
		Limit:     fetchSummaryLimit,
	})
}

// fetchSummaryLimit はfetchコマンドで表示する件数。
const fetchSummaryLimit = 10

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
