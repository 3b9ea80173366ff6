package model

import "fmt"

// ErrorKind は認証・コールバックフローの失敗分類を表す。
type ErrorKind string

// 失敗分類。
const (
	// KindNoUsersConfigured はディレクトリが空（環境・設定の問題）であることを示す。
	KindNoUsersConfigured ErrorKind = "NO_USERS_CONFIGURED"
	// KindNoMatch は条件に一致するテストユーザーが存在しないことを示す。
	KindNoMatch ErrorKind = "NO_MATCH"
	// KindDuplicateToken はコネクショントークンの衝突を示す。
	// トークンは128bit乱数のため本来発生しない。発生した場合は致命的な異常として扱う。
	KindDuplicateToken ErrorKind = "DUPLICATE_TOKEN"
	// KindCallbackRejected はコールバック先が非200を返したことを示す。
	KindCallbackRejected ErrorKind = "CALLBACK_REJECTED"
	// KindMalformedCallbackResponse はコールバック先の200レスポンスが
	// リダイレクトURL文字列として解釈できなかったことを示す。
	KindMalformedCallbackResponse ErrorKind = "MALFORMED_CALLBACK_RESPONSE"
	// KindUnreachable はコールバック先への到達失敗（DNS・接続拒否・タイムアウト）を示す。
	KindUnreachable ErrorKind = "CALLBACK_UNREACHABLE"
	// KindNotFound は参照系エンドポイントでの未検出を示す。唯一、素の404として表出する。
	KindNotFound ErrorKind = "NOT_FOUND"
)

// AuthError は認証フローの論理エラーを表す。
// プロバイダープロトコルのflag/code/infoに対応する値を保持し、
// Errには診断用の原因（上流ステータスやトランスポートエラー）を包む。
type AuthError struct {
	Kind ErrorKind
	Code int    // result.status.code に載せる論理コード
	Info string // result.status.info に載せる文言（プロトコル互換のため固定文字列）
	Err  error
}

// Error はerrorインターフェースを実装する。
func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Info, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Info)
}

// Unwrap は包んだ原因エラーを返す。
func (e *AuthError) Unwrap() error {
	return e.Err
}

// NewNoUsersConfiguredError はテストユーザー未設定エラーを生成する。
func NewNoUsersConfiguredError() *AuthError {
	return &AuthError{
		Kind: KindNoUsersConfigured,
		Code: 500,
		Info: "No test users configured",
	}
}

// NewNoMatchError はユーザー不一致エラーを生成する。
func NewNoMatchError() *AuthError {
	return &AuthError{
		Kind: KindNoMatch,
		Code: 410,
		Info: "Authentication failed - No matching user found",
	}
}

// NewDuplicateTokenError はトークン衝突エラーを生成する。
func NewDuplicateTokenError(token string) *AuthError {
	return &AuthError{
		Kind: KindDuplicateToken,
		Code: 500,
		Info: "Internal error",
		Err:  fmt.Errorf("connection token already exists: %s", token),
	}
}

// NewCallbackRejectedError はコールバック先の非200応答エラーを生成する。
// 上流のステータスとボディは診断用にErrへ保持する。
func NewCallbackRejectedError(status int, body string) *AuthError {
	return &AuthError{
		Kind: KindCallbackRejected,
		Code: 500,
		Info: "Callback request failed",
		Err:  fmt.Errorf("callback returned status %d: %s", status, body),
	}
}

// NewMalformedCallbackResponseError はコールバック応答の形式不正エラーを生成する。
func NewMalformedCallbackResponseError(err error) *AuthError {
	return &AuthError{
		Kind: KindMalformedCallbackResponse,
		Code: 500,
		Info: "Invalid callback response format",
		Err:  err,
	}
}

// NewUnreachableError はコールバック先への到達失敗エラーを生成する。
func NewUnreachableError(err error) *AuthError {
	return &AuthError{
		Kind: KindUnreachable,
		Code: 500,
		Info: "Failed to reach callback URL",
		Err:  err,
	}
}

// NewConnectionNotFoundError はコネクション未検出エラーを生成する。
func NewConnectionNotFoundError(token string) *AuthError {
	return &AuthError{
		Kind: KindNotFound,
		Code: 404,
		Info: "Connection not found",
		Err:  fmt.Errorf("connection token not found: %s", token),
	}
}
