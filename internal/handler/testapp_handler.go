package handler

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/hitoshi/mocklogin/internal/model"
)

// RedirectTarget はコールバック処理後に表示すべきページを指す型付きリダイレクト指示。
// JSONエンコードするとクォート付きの単一文字列となり、これがそのまま
// コールバック配送側の期待するリダイレクトURL応答形式になる。
type RedirectTarget string

// RedirectProfile はログイン完了後のプロフィールページ。
const RedirectProfile RedirectTarget = "/testapp/profile"

// TestAppHandler は組み込みテストアプリのHTTPハンドラー。
// ログインページ、プロフィールページ、Webhookコールバック受け口を提供する。
// モックに対するエンドツーエンドのログインフローをブラウザだけで確認できる。
type TestAppHandler struct {
	staticDir string
	logger    *slog.Logger
}

// NewTestAppHandler はTestAppHandlerを生成する。
func NewTestAppHandler(staticDir string, logger *slog.Logger) *TestAppHandler {
	return &TestAppHandler{
		staticDir: staticDir,
		logger:    logger,
	}
}

// Callback はテストアプリのWebhookコールバックを処理する。
// POST /testapp/callback
//
// フォームフィールドconnection_tokenを受け取り、次に表示すべきページを
// 型付きリダイレクト指示として返す。トークン欠落は論理エラー（HTTP 200内のcode 400）。
func (h *TestAppHandler) Callback(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeEnvelope(w, http.StatusOK,
			model.NewResponse(model.FlagError, 400, "No connection token provided", nil))
		return
	}

	connectionToken := r.PostFormValue("connection_token")
	if connectionToken == "" {
		h.logger.Error("no connection token in callback request")
		writeEnvelope(w, http.StatusOK,
			model.NewResponse(model.FlagError, 400, "No connection token provided", nil))
		return
	}

	h.logger.Info("received callback request",
		slog.String("connection_token", connectionToken),
	)

	writeJSON(w, http.StatusOK, RedirectProfile)
}

// Index はテストアプリのログインページを配信する。
// GET /
func (h *TestAppHandler) Index(w http.ResponseWriter, r *http.Request) {
	h.serveStaticFile(w, "index.html", "text/html; charset=utf-8")
}

// Profile はテストアプリのプロフィールページを配信する。
// GET /testapp/profile
func (h *TestAppHandler) Profile(w http.ResponseWriter, r *http.Request) {
	h.serveStaticFile(w, "profile.html", "text/html; charset=utf-8")
}

// Library はモックプロバイダーのJSライブラリを配信する。
// GET /socialize/library.js
//
// フロントエンドで実プロバイダーのライブラリを置き換えるためのシム。
func (h *TestAppHandler) Library(w http.ResponseWriter, r *http.Request) {
	h.serveStaticFile(w, "library.js", "application/javascript; charset=utf-8")
}

// serveStaticFile は静的アセットをリクエスト時に読み込んで配信する。
// アセット欠落は404。モック用途のためキャッシュはしない。
func (h *TestAppHandler) serveStaticFile(w http.ResponseWriter, name, contentType string) {
	content, err := os.ReadFile(filepath.Join(h.staticDir, name))
	if err != nil {
		h.logger.Warn("static asset not found",
			slog.String("file", name),
			slog.String("error", err.Error()),
		)
		http.Error(w, name+" not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Write(content)
}
