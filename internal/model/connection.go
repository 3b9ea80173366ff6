package model

import "time"

const (
	// PluginSocialLogin はこのモックが生成したコネクションに付与されるプラグインタグ。
	PluginSocialLogin = "social_login"
	// AccountDomain はアイデンティティスナップショットの合成アカウントに設定されるドメイン。
	AccountDomain = "test.example.com"
	// DateFormat はプロバイダーAPIのタイムスタンプ形式（RFC1123の数値タイムゾーン版）。
	DateFormat = time.RFC1123Z
)

// Connection はコネクショントークンと、マッチしたテストユーザーの
// アイデンティティスナップショットを結び付けたレコードを表す。
// 生成後は一切変更されない（ディレクトリが後から変わっても追従しない）。
type Connection struct {
	Connection ConnectionInfo `json:"connection"`
	User       ConnectionUser `json:"user"`

	// CreatedAt はソート用の生成時刻。スナップショットのDateと同じ時刻を指す。
	CreatedAt time.Time `json:"-"`
}

// ConnectionInfo はコネクション自体のメタデータ。
type ConnectionInfo struct {
	ConnectionToken string `json:"connection_token"`
	Date            string `json:"date"`
	Plugin          string `json:"plugin"`
}

// ConnectionUser はスナップショットされたユーザー情報。
type ConnectionUser struct {
	UserToken string   `json:"user_token"`
	Identity  Identity `json:"identity"`
}

// Identity はプロバイダー形式のアイデンティティスナップショット。
type Identity struct {
	IdentityToken string            `json:"identity_token"`
	Provider      string            `json:"provider"`
	DisplayName   string            `json:"displayName"`
	Emails        []IdentityEmail   `json:"emails"`
	Accounts      []IdentityAccount `json:"accounts"`
}

// IdentityEmail はアイデンティティに紐付くメールアドレス。
type IdentityEmail struct {
	Value string `json:"value"`
}

// IdentityAccount はアイデンティティに紐付く合成アカウントレコード。
type IdentityAccount struct {
	Domain   string `json:"domain"`
	UserID   string `json:"userid"`
	Username string `json:"username"`
}

// NewConnection はテストユーザーのスナップショットからConnectionを生成する。
func NewConnection(token string, user TestUser, now time.Time) *Connection {
	return &Connection{
		Connection: ConnectionInfo{
			ConnectionToken: token,
			Date:            now.Format(DateFormat),
			Plugin:          PluginSocialLogin,
		},
		User: ConnectionUser{
			UserToken: user.UserToken,
			Identity: Identity{
				IdentityToken: user.IdentityToken,
				Provider:      user.Provider,
				DisplayName:   user.DisplayName,
				Emails:        []IdentityEmail{{Value: user.Email}},
				Accounts: []IdentityAccount{{
					Domain:   AccountDomain,
					UserID:   user.ID,
					Username: user.Username,
				}},
			},
		},
		CreatedAt: now,
	}
}

// Email はスナップショットに埋め込まれた最初のメールアドレスを返す。
// 重複排除（同一メールのコネクション再利用）の比較キーとして使用する。
func (c *Connection) Email() string {
	if len(c.User.Identity.Emails) == 0 {
		return ""
	}
	return c.User.Identity.Emails[0].Value
}
