// Package app はアプリケーションの起動とワイヤリングを提供する。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/mocklogin/internal/callback"
	"github.com/hitoshi/mocklogin/internal/config"
	"github.com/hitoshi/mocklogin/internal/directory"
	"github.com/hitoshi/mocklogin/internal/handler"
	"github.com/hitoshi/mocklogin/internal/logger"
	"github.com/hitoshi/mocklogin/internal/login"
	"github.com/hitoshi/mocklogin/internal/metrics"
	"github.com/hitoshi/mocklogin/internal/middleware"
	"github.com/hitoshi/mocklogin/internal/security"
	"github.com/hitoshi/mocklogin/internal/store"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
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

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting mock login service",
		slog.String("port", cfg.ServerPort),
		slog.String("users_config", cfg.UsersConfigPath),
		slog.Bool("callback_strict_guard", cfg.CallbackStrictGuard),
	)

	return runServe(cfg)
}

// runServe はモックサーバーモードで起動する。
// テストユーザーディレクトリを読み込み、全依存関係をワイヤリングし、
// HTTPサーバーを起動する。ディレクトリの読み込み失敗は致命エラーではなく、
// 空ディレクトリとして起動する（認証時にNoUsersConfiguredが返る）。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
// コネクションはインメモリのみで保持され、シャットダウンとともに消える。
func runServe(cfg *config.Config) error {
	// 1. テストユーザーディレクトリの読み込み（起動時1回、以後イミュータブル）
	dir := directory.Load(cfg.UsersConfigPath, slog.Default())

	// 2. コネクションストアの初期化
	connStore := store.NewConnectionStore()

	// 3. コールバック配送の初期化
	guard := security.NewCallbackGuard(cfg.CallbackStrictGuard)
	dispatcher := callback.NewDispatcher(guard, cfg.CallbackTimeout, slog.Default())

	// 4. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 5. 認証オーケストレーターの初期化
	authService := login.NewService(dir, connStore, dispatcher, collector, slog.Default())

	// 6. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(
		middleware.DefaultRateLimiterConfig(cfg.RateLimitLogin),
	)
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		AuthService: authService,
		Directory:   dir,
		Store:       connStore,
		StaticDir:   cfg.StaticDir,

		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		Logger:            slog.Default(),
		Metrics:           collector,

		Gatherer: registry,
	}

	router := handler.NewRouter(deps)

	// 7. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.CallbackTimeout + 5*time.Second, // コールバック待ちを含むログイン処理分の余裕を持たせる
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("mock server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down mock server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("mock server stopped gracefully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
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
