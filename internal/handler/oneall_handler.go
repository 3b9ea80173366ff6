// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/mocklogin/internal/login"
	"github.com/hitoshi/mocklogin/internal/model"
	"github.com/hitoshi/mocklogin/internal/store"
)

// defaultEntriesPerPage はコネクション一覧の1ページあたりのデフォルト件数。
const defaultEntriesPerPage = 50

// orderByDateCreation はコネクション一覧で唯一認識されるソートキー。
// 未知のキーはエラーではなく「ストア順のまま」という明示的な無ソート挙動となる。
const orderByDateCreation = "date_creation"

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	// Authenticate はマッチング → コネクション確保 → コールバック配送を実行する。
	Authenticate(ctx context.Context, callbackURI string, crit login.Criteria) (*login.AuthResult, error)
}

// DirectoryLister はユーザー一覧エンドポイントが必要とするディレクトリのインターフェース。
type DirectoryLister interface {
	List() []model.TestUser
}

// ConnectionReader は参照系エンドポイントが必要とするストアのインターフェース。
type ConnectionReader interface {
	Get(token string) (*model.Connection, bool)
	List() []store.Entry
}

// OneAllHandler はプロバイダー互換APIのHTTPハンドラー。
type OneAllHandler struct {
	auth      AuthServiceInterface
	directory DirectoryLister
	store     ConnectionReader
}

// NewOneAllHandler はOneAllHandlerを生成する。
func NewOneAllHandler(auth AuthServiceInterface, directory DirectoryLister, store ConnectionReader) *OneAllHandler {
	return &OneAllHandler{
		auth:      auth,
		directory: directory,
		store:     store,
	}
}

// --- リクエスト・レスポンス型 ---

// authRequest はログインリクエストのボディ。
type authRequest struct {
	CallbackURI string           `json:"callback_uri"`
	Data        *authRequestData `json:"data"`
}

// authRequestData は検索条件。emailとuser_tokenは排他でemail優先。
type authRequestData struct {
	Email     string `json:"email"`
	UserToken string `json:"user_token"`
}

// loginSuccessResponse はログイン成功時のレスポンスボディ。
// トークンとリダイレクトURLはトップレベルとresponse内の両方に現れる
// （模擬対象プロバイダーのレスポンス仕様）。
type loginSuccessResponse struct {
	ConnectionToken string         `json:"connection_token"`
	RedirectURL     string         `json:"redirect_url"`
	Response        model.Response `json:"response"`
}

// usersData はユーザー一覧レスポンスのdata部。
type usersData struct {
	Users usersEntities `json:"users"`
}

type usersEntities struct {
	Entities []model.TestUser `json:"entities"`
}

// connectionSummary はコネクション一覧の1エントリ。
type connectionSummary struct {
	ConnectionToken string `json:"connection_token"`
	Email           string `json:"email"`
	Status          string `json:"status"`
	DateCreation    string `json:"date_creation"`
}

// connectionsData はコネクション一覧レスポンスのdata部。
type connectionsData struct {
	Connections connectionsPage `json:"connections"`
}

type connectionsPage struct {
	Pagination pagination          `json:"pagination"`
	Count      int                 `json:"count"`
	Entries    []connectionSummary `json:"entries"`
}

type pagination struct {
	CurrentPage    int       `json:"current_page"`
	TotalPages     int       `json:"total_pages"`
	EntriesPerPage int       `json:"entries_per_page"`
	TotalEntries   int       `json:"total_entries"`
	Order          pageOrder `json:"order"`
}

type pageOrder struct {
	Field     string `json:"field"`
	Direction string `json:"direction"`
}

// --- ハンドラー ---

// Login は認証リクエストを処理する。
// POST /socialize/login
//
// 実サービスでGoogleやGitHubが担う部分を置き換えるエンドポイント。
// 論理的な失敗（ユーザー不一致、コールバック失敗）もHTTP 200で返す。
func (h *OneAllHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeEnvelope(w, http.StatusBadRequest,
			model.NewResponse(model.FlagError, 400, "Invalid request body", nil))
		return
	}

	if req.CallbackURI == "" {
		writeEnvelope(w, http.StatusBadRequest,
			model.NewResponse(model.FlagError, 400, "callback_uri is required", nil))
		return
	}

	crit := login.Criteria{}
	if req.Data != nil {
		crit.Email = req.Data.Email
		crit.UserToken = req.Data.UserToken
	}

	result, err := h.auth.Authenticate(r.Context(), req.CallbackURI, crit)
	if err != nil {
		handleAuthError(w, err)
		return
	}

	resp := model.SuccessResponse()
	resp.ConnectionToken = result.ConnectionToken
	resp.RedirectURL = result.RedirectURL

	writeJSON(w, http.StatusOK, loginSuccessResponse{
		ConnectionToken: result.ConnectionToken,
		RedirectURL:     result.RedirectURL,
		Response:        resp,
	})
}

// ListUsers は設定済みテストユーザーの一覧を返す。
// GET /users.json
func (h *OneAllHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users := h.directory.List()
	if users == nil {
		users = []model.TestUser{}
	}

	writeEnvelope(w, http.StatusOK,
		model.NewResponse(model.FlagSuccess, 200, "", usersData{
			Users: usersEntities{Entities: users},
		}))
}

// GetConnection はコネクション詳細を返す。
// GET /connections/{token}.json
//
// 参照系の未検出は認証パスと異なり、素のHTTP 404として表出する。
func (h *OneAllHandler) GetConnection(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	resource := fmt.Sprintf("/connections/%s.json", token)

	conn, ok := h.store.Get(token)
	if !ok {
		notFound := model.NewConnectionNotFoundError(token)
		resp := model.NewResponse(model.FlagError, notFound.Code, notFound.Info, nil)
		resp.Request.Resource = resource
		writeEnvelope(w, http.StatusNotFound, resp)
		return
	}

	resp := model.NewResponse(model.FlagSuccess, 200, "The user successfully authenticated", conn)
	resp.Request.Resource = resource
	writeEnvelope(w, http.StatusOK, resp)
}

// ListConnections はコネクション一覧をページネーション付きで返す。
// GET /connections.json?page=1&entries_per_page=50&order_by=date_creation&order_dir=asc
//
// 範囲外のページは空のentriesを返し、エラーにはしない。
func (h *OneAllHandler) ListConnections(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	if page < 1 {
		page = 1
	}
	entriesPerPage := queryInt(r, "entries_per_page", defaultEntriesPerPage)
	if entriesPerPage < 1 {
		entriesPerPage = defaultEntriesPerPage
	}
	orderBy := queryString(r, "order_by", orderByDateCreation)
	orderDir := queryString(r, "order_dir", "asc")

	entries := h.store.List()

	if orderBy == orderByDateCreation {
		desc := orderDir == "desc"
		sort.SliceStable(entries, func(i, j int) bool {
			if desc {
				return entries[i].Connection.CreatedAt.After(entries[j].Connection.CreatedAt)
			}
			return entries[i].Connection.CreatedAt.Before(entries[j].Connection.CreatedAt)
		})
	}

	totalEntries := len(entries)
	totalPages := (totalEntries + entriesPerPage - 1) / entriesPerPage

	start := (page - 1) * entriesPerPage
	end := start + entriesPerPage
	if start > totalEntries {
		start = totalEntries
	}
	if end > totalEntries {
		end = totalEntries
	}

	summaries := make([]connectionSummary, 0, end-start)
	for _, e := range entries[start:end] {
		summaries = append(summaries, connectionSummary{
			ConnectionToken: e.Token,
			Email:           e.Connection.Email(),
			Status:          "succeeded",
			DateCreation:    e.Connection.Connection.Date,
		})
	}

	resp := model.NewResponse(model.FlagSuccess, 200, "", connectionsData{
		Connections: connectionsPage{
			Pagination: pagination{
				CurrentPage:    page,
				TotalPages:     totalPages,
				EntriesPerPage: entriesPerPage,
				TotalEntries:   totalEntries,
				Order: pageOrder{
					Field:     orderBy,
					Direction: orderDir,
				},
			},
			Count:   len(summaries),
			Entries: summaries,
		},
	})
	resp.Request.Resource = "/connections.json"
	resp.Request.Status.Info = "Your request has been processed successfully"
	writeEnvelope(w, http.StatusOK, resp)
}

// --- ヘルパー ---

// handleAuthError は認証フローのエラーをプロバイダー互換レスポンスに変換する。
// 論理エラーはHTTP 200のエラーエンベロープに包む（プロバイダーの慣習）。
// AuthError以外が到達した場合のみ素の500を返す。
func handleAuthError(w http.ResponseWriter, err error) {
	var authErr *model.AuthError
	if errors.As(err, &authErr) {
		writeEnvelope(w, http.StatusOK,
			model.NewResponse(model.FlagError, authErr.Code, authErr.Info, nil))
		return
	}

	slog.Error("internal server error", slog.String("error", err.Error()))
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// queryInt はクエリパラメータを整数として読む。欠落・不正はデフォルト値。
func queryInt(r *http.Request, key string, defaultVal int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

// queryString はクエリパラメータを読む。欠落時はデフォルト値。
func queryString(r *http.Request, key, defaultVal string) string {
	if v := r.URL.Query().Get(key); v != "" {
		return v
	}
	return defaultVal
}
