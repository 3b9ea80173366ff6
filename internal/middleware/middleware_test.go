package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
}

// --- CORSテスト ---

func TestCORSMiddleware_Wildcard(t *testing.T) {
	h := NewCORSMiddleware("*")(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/users.json", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin = %q, want *", got)
	}
	// ワイルドカード時はcredentialsを付与しない
	if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "" {
		t.Errorf("Allow-Credentials = %q, want empty", got)
	}
}

func TestCORSMiddleware_SpecificOrigin(t *testing.T) {
	h := NewCORSMiddleware("http://localhost:3000")(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/users.json", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Allow-Origin = %q, want http://localhost:3000", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("Allow-Credentials = %q, want true", got)
	}
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })
	h := NewCORSMiddleware("*")(next)

	req := httptest.NewRequest(http.MethodOptions, "/socialize/login", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", w.Code)
	}
	if called {
		t.Error("next handler called for preflight request")
	}
	if got := w.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(got, "POST") {
		t.Errorf("Allow-Methods = %q, want to contain POST", got)
	}
}

// --- Recoveryテスト ---

func TestRecoveryMiddleware_RecoversPanic(t *testing.T) {
	h := NewRecoveryMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	h.ServeHTTP(w, req) // panicが伝播すればここでテストが落ちる

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestRecoveryMiddleware_PassThrough(t *testing.T) {
	h := NewRecoveryMiddleware()(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

// --- Loggingテスト ---

// recordingMetrics はStatusRecorderMetricsのモック実装。
type recordingMetrics struct {
	statuses []int
}

func (m *recordingMetrics) RecordHTTPStatus(statusCode int) {
	m.statuses = append(m.statuses, statusCode)
}

func TestLoggingMiddleware_LogsRequest(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	metrics := &recordingMetrics{}

	h := NewLoggingMiddleware(logger, metrics)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/users.json", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	out := buf.String()
	for _, want := range []string{`"msg":"http_request"`, `"method":"GET"`, `"path":"/users.json"`, `"status":200`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %s: %s", want, out)
		}
	}
	if len(metrics.statuses) != 1 || metrics.statuses[0] != 200 {
		t.Errorf("recorded statuses = %v, want [200]", metrics.statuses)
	}
}

func TestLoggingMiddleware_ErrorLevelFor500(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	h := NewLoggingMiddleware(logger, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if !strings.Contains(buf.String(), `"level":"ERROR"`) {
		t.Errorf("log output missing ERROR level: %s", buf.String())
	}
}

// --- SecurityHeadersテスト ---

func TestSecurityHeadersMiddleware(t *testing.T) {
	h := NewSecurityHeadersMiddleware()(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
	if got := w.Header().Get("Referrer-Policy"); got != "strict-origin-when-cross-origin" {
		t.Errorf("Referrer-Policy = %q, want strict-origin-when-cross-origin", got)
	}
}

// --- RateLimiterテスト ---

func TestRateLimiter_Disabled(t *testing.T) {
	rl := NewRateLimiter(DefaultRateLimiterConfig(0))
	defer rl.Stop()

	if rl.Enabled() {
		t.Error("Enabled() = true for rpm=0, want false")
	}

	h := rl.Middleware()(okHandler())
	for i := 0; i < 100; i++ {
		req := httptest.NewRequest(http.MethodPost, "/socialize/login", nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200 (limiter disabled)", i, w.Code)
		}
	}
}

func TestRateLimiter_BlocksAfterBurst(t *testing.T) {
	// バーストサイズはRequestsPerMinuteと同じ。3リクエスト目以降が制限される
	rl := NewRateLimiter(DefaultRateLimiterConfig(2))
	defer rl.Stop()

	h := rl.Middleware()(okHandler())

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/socialize/login", nil)
		req.RemoteAddr = "192.0.2.1:12345"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		statuses = append(statuses, w.Code)
	}

	if statuses[0] != http.StatusOK || statuses[1] != http.StatusOK {
		t.Errorf("first two statuses = %v, want 200s", statuses[:2])
	}
	if statuses[2] != http.StatusTooManyRequests {
		t.Errorf("third status = %d, want 429", statuses[2])
	}
}

func TestRateLimiter_RetryAfterHeader(t *testing.T) {
	rl := NewRateLimiter(DefaultRateLimiterConfig(1))
	defer rl.Stop()

	h := rl.Middleware()(okHandler())

	// 1回目でバーストを使い切る
	req := httptest.NewRequest(http.MethodPost, "/socialize/login", nil)
	req.RemoteAddr = "192.0.2.1:12345"
	h.ServeHTTP(httptest.NewRecorder(), req)

	req2 := httptest.NewRequest(http.MethodPost, "/socialize/login", nil)
	req2.RemoteAddr = "192.0.2.1:12345"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req2)

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got == "" {
		t.Error("Retry-After header is empty")
	}
}

func TestRateLimiter_PerClientIsolation(t *testing.T) {
	rl := NewRateLimiter(DefaultRateLimiterConfig(1))
	defer rl.Stop()

	h := rl.Middleware()(okHandler())

	// クライアントAがバーストを使い切る
	reqA := httptest.NewRequest(http.MethodPost, "/socialize/login", nil)
	reqA.RemoteAddr = "192.0.2.1:12345"
	h.ServeHTTP(httptest.NewRecorder(), reqA)

	// クライアントBは影響を受けない
	reqB := httptest.NewRequest(http.MethodPost, "/socialize/login", nil)
	reqB.RemoteAddr = "192.0.2.2:12345"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, reqB)

	if w.Code != http.StatusOK {
		t.Errorf("client B status = %d, want 200", w.Code)
	}
	if rl.LimiterCount() != 2 {
		t.Errorf("LimiterCount() = %d, want 2", rl.LimiterCount())
	}
}

func TestRateLimiter_CleanupRemovesStaleEntries(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		RequestsPerMinute: 10,
		CleanupInterval:   10 * time.Millisecond,
	})
	defer rl.Stop()

	h := rl.Middleware()(okHandler())
	req := httptest.NewRequest(http.MethodPost, "/socialize/login", nil)
	req.RemoteAddr = "192.0.2.1:12345"
	h.ServeHTTP(httptest.NewRecorder(), req)

	if rl.LimiterCount() != 1 {
		t.Fatalf("LimiterCount() = %d, want 1", rl.LimiterCount())
	}

	// TTL（CleanupInterval×2）経過後のクリーンアップを待つ
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if rl.LimiterCount() == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Errorf("LimiterCount() = %d after cleanup window, want 0", rl.LimiterCount())
}
