// Package model はドメインモデルを定義する。
package model

// TestUser はソーシャルログインを模擬するための事前設定済みアイデンティティを表す。
// 起動時に設定ファイルから1回読み込まれ、以後イミュータブルとして扱う。
type TestUser struct {
	ID            string `yaml:"id" json:"id"`
	Username      string `yaml:"username" json:"username"`
	Email         string `yaml:"email" json:"email"`
	DisplayName   string `yaml:"display_name" json:"display_name"`
	Provider      string `yaml:"provider" json:"provider"`
	IdentityToken string `yaml:"identity_token" json:"identity_token"`
	UserToken     string `yaml:"user_token" json:"user_token"`
}
