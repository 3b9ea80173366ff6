package model

import "time"

// フラグ値。result.status.flag / request.status.flag に使用する。
const (
	FlagSuccess = "success"
	FlagError   = "error"
)

// Envelope はプロバイダー互換のレスポンス外殻 {"response": {...}} を表す。
type Envelope struct {
	Response Response `json:"response"`
}

// Response はエンベロープの中身。requestとresultの2部構成で、
// ログイン成功時のみconnection_tokenとredirect_urlが重複して埋め込まれる
// （模擬対象プロバイダーのレスポンス仕様に合わせた挙動）。
type Response struct {
	Request Request `json:"request"`
	Result  *Result `json:"result,omitempty"`

	ConnectionToken string `json:"connection_token,omitempty"`
	RedirectURL     string `json:"redirect_url,omitempty"`
}

// Request はリクエスト受理のメタデータ。statusは常にsuccess/200で、
// 論理的な成否はResult側のstatusが持つ（プロバイダーの慣習）。
type Request struct {
	Date     string `json:"date"`
	Resource string `json:"resource,omitempty"`
	Status   Status `json:"status"`
}

// Result は処理結果。論理エラーもHTTP 200のままここに載る。
type Result struct {
	Status Status `json:"status"`
	Data   any    `json:"data,omitempty"`
}

// Status はflag/code/infoの3つ組。
type Status struct {
	Flag string `json:"flag"`
	Code int    `json:"code"`
	Info string `json:"info,omitempty"`
}

// NewResponse は指定の論理ステータスを持つResponseを組み立てる。
// request.statusは常にsuccess/200固定。
func NewResponse(flag string, code int, info string, data any) Response {
	return Response{
		Request: Request{
			Date:   time.Now().Format(DateFormat),
			Status: Status{Flag: FlagSuccess, Code: 200},
		},
		Result: &Result{
			Status: Status{Flag: flag, Code: code, Info: info},
			Data:   data,
		},
	}
}

// SuccessResponse はsuccess/200のResponseを返す。
func SuccessResponse() Response {
	return NewResponse(FlagSuccess, 200, "", nil)
}
