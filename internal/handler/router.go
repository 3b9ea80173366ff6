package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/mocklogin/internal/metrics"
	"github.com/hitoshi/mocklogin/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// 認証フロー
	AuthService AuthServiceInterface

	// 参照系
	Directory DirectoryLister
	Store     ConnectionReader

	// テストアプリ
	StaticDir string

	// ミドルウェア依存
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger
	Metrics           middleware.StatusRecorderMetrics

	// /metrics
	Gatherer prometheus.Gatherer
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORSMiddleware → RecoveryMiddleware → LoggingMiddleware → SecurityHeadersMiddleware
//
// レート制限はログインエンドポイントのみに適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.Metrics))
	r.Use(middleware.NewSecurityHeadersMiddleware())

	oneall := NewOneAllHandler(deps.AuthService, deps.Directory, deps.Store)
	testapp := NewTestAppHandler(deps.StaticDir, deps.Logger)

	// プロバイダー互換API
	r.With(deps.RateLimiter.Middleware()).Post("/socialize/login", oneall.Login)
	r.Get("/socialize/library.js", testapp.Library)
	r.Get("/users.json", oneall.ListUsers)
	r.Get("/connections.json", oneall.ListConnections)
	r.Get("/connections/{token}.json", oneall.GetConnection)

	// 組み込みテストアプリ
	r.Get("/", testapp.Index)
	r.Route("/testapp", func(r chi.Router) {
		r.Post("/callback", testapp.Callback)
		r.Get("/profile", testapp.Profile)
	})

	// 運用系
	r.Get("/health", healthCheck)
	if deps.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.Gatherer))
	}

	return r
}

// healthCheck はliveness probeに応答する。依存コンポーネントの状態は確認しない。
// GET /health
func healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
