// Package callback は呼び出し元Webhookへのコールバック配送を提供する。
// コネクショントークンをcallback_uriへPOSTし、応答からリダイレクトURLを取り出す。
package callback

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/hitoshi/mocklogin/internal/model"
	"github.com/hitoshi/mocklogin/internal/security"
)

const (
	// maxResponseBody はコールバック応答ボディの最大読み取りサイズ。
	// リダイレクトURL1本分の応答を想定しているため控えめに抑える。
	maxResponseBody = 64 << 10 // 64KB

	// maxDiagnosticBody は診断ログに残す上流ボディの最大長。
	maxDiagnosticBody = 512
)

// Dispatcher はコールバックURIへの単発POST配送を行う。
// リトライやバックオフは行わない。不安定なテストハーネスはテストの
// シグナルそのものであり、モック側で隠蔽すべきではない。
type Dispatcher struct {
	client *http.Client
	guard  security.CallbackGuard
	logger *slog.Logger
}

// NewDispatcher はDispatcherを生成する。
// HTTPクライアントはguardから払い出され、timeoutが配送全体の上限となる。
func NewDispatcher(guard security.CallbackGuard, timeout time.Duration, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		client: guard.NewClient(timeout),
		guard:  guard,
		logger: logger,
	}
}

// Deliver はcallbackURIへconnection_tokenをフォームPOSTし、
// 応答ボディから取り出したリダイレクトURLを返す。
// 失敗はすべて*model.AuthErrorとして分類される:
//   - 事前検証失敗・トランスポートエラー → Unreachable
//   - 非200応答 → CallbackRejected
//   - 200だがリダイレクトURLとして解釈不能 → MalformedCallbackResponse
func (d *Dispatcher) Deliver(ctx context.Context, callbackURI, connectionToken string) (string, error) {
	if err := d.guard.ValidateURL(callbackURI); err != nil {
		d.logger.Error("callback URI rejected by guard",
			slog.String("callback_uri", callbackURI),
			slog.String("error", err.Error()),
		)
		return "", model.NewUnreachableError(err)
	}

	form := url.Values{}
	form.Set("connection_token", connectionToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, callbackURI, strings.NewReader(form.Encode()))
	if err != nil {
		return "", model.NewUnreachableError(fmt.Errorf("build callback request: %w", err))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := d.client.Do(req)
	if err != nil {
		d.logger.Error("failed to reach callback URL",
			slog.String("callback_uri", callbackURI),
			slog.String("error", err.Error()),
		)
		return "", model.NewUnreachableError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		d.logger.Error("failed to read callback response",
			slog.String("callback_uri", callbackURI),
			slog.String("error", err.Error()),
		)
		return "", model.NewUnreachableError(err)
	}

	if resp.StatusCode != http.StatusOK {
		d.logger.Error("callback request failed",
			slog.String("callback_uri", callbackURI),
			slog.Int("http_status", resp.StatusCode),
			slog.String("body", truncate(string(body), maxDiagnosticBody)),
		)
		return "", model.NewCallbackRejectedError(resp.StatusCode, truncate(string(body), maxDiagnosticBody))
	}

	redirectURL, err := interpretRedirectURL(body)
	if err != nil {
		d.logger.Error("invalid callback response format",
			slog.String("callback_uri", callbackURI),
			slog.String("error", err.Error()),
		)
		return "", model.NewMalformedCallbackResponseError(err)
	}

	return redirectURL, nil
}

// interpretRedirectURL は応答ボディを単一のリダイレクトURL文字列として解釈する。
// 前後の空白を除去し、両端を囲むダブルクォート1組（JSONエンコードされた
// 文字列応答）を剥がす。空・非UTF-8・制御文字を含むボディは形式不正。
func interpretRedirectURL(body []byte) (string, error) {
	if !utf8.Valid(body) {
		return "", fmt.Errorf("response body is not valid UTF-8")
	}

	s := strings.TrimSpace(string(body))
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		s = s[1 : len(s)-1]
	}

	if s == "" {
		return "", fmt.Errorf("response body is empty")
	}

	for _, r := range s {
		if unicode.IsControl(r) {
			return "", fmt.Errorf("response body contains control characters")
		}
	}

	return s, nil
}

// truncate は診断用に文字列を最大長で切り詰める。
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
