// Package directory はテストユーザーディレクトリを提供する。
// 起動時にYAML設定ファイルから1回読み込まれ、以後読み取り専用となる。
package directory

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hitoshi/mocklogin/internal/model"
)

// Directory はイミュータブルなテストユーザー一覧を保持する。
type Directory struct {
	users []model.TestUser
}

// Load は設定ファイルからテストユーザーを読み込んでDirectoryを生成する。
// ファイル欠落やYAML不正は致命エラーではなく、ログに記録した上で
// 空のディレクトリを返す（認証時にNoUsersConfiguredとして表出する）。
func Load(path string, logger *slog.Logger) *Directory {
	users, err := loadUsers(path)
	if err != nil {
		logger.Error("failed to load test users",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return &Directory{}
	}

	reportDuplicates(users, logger)

	logger.Info("loaded test users from configuration",
		slog.String("path", path),
		slog.Int("count", len(users)),
	)

	return &Directory{users: users}
}

// New は与えられたユーザー一覧からDirectoryを生成する。テスト用。
func New(users []model.TestUser) *Directory {
	return &Directory{users: users}
}

// List はテストユーザー一覧を読み込み順で返す。
// 毎回同じスライスを返すため、呼び出し側は変更してはならない。
func (d *Directory) List() []model.TestUser {
	return d.users
}

// Empty はディレクトリが空かどうかを返す。
func (d *Directory) Empty() bool {
	return len(d.users) == 0
}

// loadUsers はYAMLファイルをテストユーザーのリストとしてパースする。
func loadUsers(path string) ([]model.TestUser, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read users file: %w", err)
	}

	var users []model.TestUser
	if err := yaml.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("parse users file: %w", err)
	}

	return users, nil
}

// reportDuplicates はメール（大文字小文字無視）とユーザートークンの重複を警告する。
// マッチングは先勝ちで決定的なため重複エントリも保持するが、
// 設定ミスの可能性が高いので起動時に可視化しておく。
func reportDuplicates(users []model.TestUser, logger *slog.Logger) {
	emails := make(map[string]string, len(users))
	tokens := make(map[string]string, len(users))

	for _, u := range users {
		email := strings.ToLower(u.Email)
		if first, ok := emails[email]; ok {
			logger.Warn("duplicate email in test user directory",
				slog.String("email", u.Email),
				slog.String("first_user", first),
				slog.String("duplicate_user", u.Username),
			)
		} else {
			emails[email] = u.Username
		}

		if first, ok := tokens[u.UserToken]; ok {
			logger.Warn("duplicate user_token in test user directory",
				slog.String("user_token", u.UserToken),
				slog.String("first_user", first),
				slog.String("duplicate_user", u.Username),
			)
		} else {
			tokens[u.UserToken] = u.Username
		}
	}
}
