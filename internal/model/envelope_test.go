package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestNewResponse_RequestStatusAlwaysSuccess(t *testing.T) {
	// 論理エラーでも外殻のrequest.statusはsuccess/200のまま
	resp := NewResponse(FlagError, 410, "Authentication failed - No matching user found", nil)

	if resp.Request.Status.Flag != FlagSuccess {
		t.Errorf("request.status.flag = %q, want success", resp.Request.Status.Flag)
	}
	if resp.Request.Status.Code != 200 {
		t.Errorf("request.status.code = %d, want 200", resp.Request.Status.Code)
	}
	if resp.Result.Status.Flag != FlagError {
		t.Errorf("result.status.flag = %q, want error", resp.Result.Status.Flag)
	}
	if resp.Result.Status.Code != 410 {
		t.Errorf("result.status.code = %d, want 410", resp.Result.Status.Code)
	}
}

func TestNewResponse_DateFormat(t *testing.T) {
	resp := NewResponse(FlagSuccess, 200, "", nil)

	if _, err := time.Parse(DateFormat, resp.Request.Date); err != nil {
		t.Errorf("request.date %q does not parse as %q: %v", resp.Request.Date, DateFormat, err)
	}
}

func TestEnvelope_JSONShape(t *testing.T) {
	env := Envelope{Response: NewResponse(FlagSuccess, 200, "", nil)}

	data, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	s := string(data)

	if !strings.HasPrefix(s, `{"response":`) {
		t.Errorf("envelope does not start with response key: %s", s)
	}
	// 成功時にトークン・リダイレクト未設定ならキー自体が現れない
	if strings.Contains(s, "connection_token") {
		t.Errorf("empty connection_token serialized: %s", s)
	}
	if strings.Contains(s, "redirect_url") {
		t.Errorf("empty redirect_url serialized: %s", s)
	}
	// resourceは未設定なら省略される
	if strings.Contains(s, "resource") {
		t.Errorf("empty resource serialized: %s", s)
	}
}

func TestConnection_SnapshotShape(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	user := TestUser{
		ID:            "1",
		Username:      "alice",
		Email:         "alice@example.com",
		DisplayName:   "Alice Example",
		Provider:      "facebook",
		IdentityToken: "it-1",
		UserToken:     "ut-1",
	}

	conn := NewConnection("token-1", user, now)

	if conn.Connection.ConnectionToken != "token-1" {
		t.Errorf("connection_token = %q, want token-1", conn.Connection.ConnectionToken)
	}
	if conn.Connection.Plugin != PluginSocialLogin {
		t.Errorf("plugin = %q, want %q", conn.Connection.Plugin, PluginSocialLogin)
	}
	if conn.Connection.Date != now.Format(DateFormat) {
		t.Errorf("date = %q, want %q", conn.Connection.Date, now.Format(DateFormat))
	}
	if conn.User.UserToken != "ut-1" {
		t.Errorf("user_token = %q, want ut-1", conn.User.UserToken)
	}
	if conn.User.Identity.Provider != "facebook" {
		t.Errorf("provider = %q, want facebook", conn.User.Identity.Provider)
	}
	if conn.Email() != "alice@example.com" {
		t.Errorf("Email() = %q, want alice@example.com", conn.Email())
	}
	if len(conn.User.Identity.Accounts) != 1 {
		t.Fatalf("len(accounts) = %d, want 1", len(conn.User.Identity.Accounts))
	}
	account := conn.User.Identity.Accounts[0]
	if account.Domain != AccountDomain {
		t.Errorf("account.domain = %q, want %q", account.Domain, AccountDomain)
	}
	if account.Username != "alice" {
		t.Errorf("account.username = %q, want alice", account.Username)
	}

	// CreatedAtはJSONに漏れない
	data, err := json.Marshal(conn)
	if err != nil {
		t.Fatalf("marshal connection: %v", err)
	}
	if strings.Contains(string(data), "CreatedAt") {
		t.Errorf("CreatedAt serialized: %s", data)
	}
}

func TestAuthError_ErrorAndUnwrap(t *testing.T) {
	rejected := NewCallbackRejectedError(503, "unavailable")

	msg := rejected.Error()
	if !strings.Contains(msg, "CALLBACK_REJECTED") {
		t.Errorf("Error() = %q, want to contain kind", msg)
	}
	if !strings.Contains(msg, "Callback request failed") {
		t.Errorf("Error() = %q, want to contain info", msg)
	}
	if rejected.Unwrap() == nil {
		t.Error("Unwrap() = nil, want wrapped cause")
	}

	noMatch := NewNoMatchError()
	if noMatch.Unwrap() != nil {
		t.Errorf("Unwrap() = %v for no-match, want nil", noMatch.Unwrap())
	}
}
