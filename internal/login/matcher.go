package login

import (
	"strings"

	"github.com/hitoshi/mocklogin/internal/model"
)

// Criteria は認証リクエストが持つ検索条件を表す。
// EmailとUserTokenは排他で、両方指定された場合はEmailが優先される。
type Criteria struct {
	Email     string
	UserToken string
}

// match は条件に一致する最初のテストユーザーをディレクトリ順で返す。
// メールは大文字小文字を無視し、ユーザートークンは完全一致で比較する。
// ディレクトリが空の場合はNoUsersConfigured（環境・設定の問題）、
// 一致なしの場合はNoMatchを返す。両者はレスポンスコードが異なる（500と410）。
func (s *Service) match(crit Criteria) (model.TestUser, error) {
	if s.directory.Empty() {
		return model.TestUser{}, model.NewNoUsersConfiguredError()
	}

	users := s.directory.List()

	if crit.Email != "" {
		for _, u := range users {
			if strings.EqualFold(u.Email, crit.Email) {
				return u, nil
			}
		}
		return model.TestUser{}, model.NewNoMatchError()
	}

	if crit.UserToken != "" {
		for _, u := range users {
			if u.UserToken == crit.UserToken {
				return u, nil
			}
		}
		return model.TestUser{}, model.NewNoMatchError()
	}

	// 条件が1つも無い場合は一致なしとして扱う
	return model.TestUser{}, model.NewNoMatchError()
}
