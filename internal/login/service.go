// Package login は認証オーケストレーションを提供する。
// マッチング → コネクション確保 → コールバック配送の一連の流れを組み立てる。
package login

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hitoshi/mocklogin/internal/model"
)

// UserDirectory はオーケストレーターが必要とするディレクトリのインターフェース。
type UserDirectory interface {
	// List はテストユーザー一覧を読み込み順で返す。
	List() []model.TestUser
	// Empty はディレクトリが空かどうかを返す。
	Empty() bool
}

// ConnectionFinder はコネクションの確保を行うストアのインターフェース。
type ConnectionFinder interface {
	// FindOrCreateByEmail は同一メールの既存コネクションを再利用するか、
	// 新しいコネクションを作成してトークンを返す。
	FindOrCreateByEmail(user model.TestUser) (token string, created bool, err error)
}

// CallbackDispatcher はコールバック配送のインターフェース。
type CallbackDispatcher interface {
	// Deliver はcallbackURIへコネクショントークンを配送し、リダイレクトURLを返す。
	Deliver(ctx context.Context, callbackURI, connectionToken string) (string, error)
}

// MetricsRecorder はオーケストレーターが記録するメトリクスのインターフェース。
type MetricsRecorder interface {
	RecordAuthSuccess()
	RecordAuthFailure(reason string)
	RecordConnectionCreated()
	RecordCallbackLatency(duration time.Duration)
}

// AuthResult は認証フロー成功時の結果を表す。
type AuthResult struct {
	ConnectionToken string
	RedirectURL     string
}

// Service は認証フロー全体のオーケストレーター。
type Service struct {
	directory  UserDirectory
	store      ConnectionFinder
	dispatcher CallbackDispatcher
	metrics    MetricsRecorder
	logger     *slog.Logger
}

// NewService はServiceを生成する。
func NewService(
	directory UserDirectory,
	store ConnectionFinder,
	dispatcher CallbackDispatcher,
	metrics MetricsRecorder,
	logger *slog.Logger,
) *Service {
	return &Service{
		directory:  directory,
		store:      store,
		dispatcher: dispatcher,
		metrics:    metrics,
		logger:     logger,
	}
}

// Authenticate は認証リクエストを最後まで処理する。
//
//  1. 条件でテストユーザーをマッチング
//  2. コネクションをfind-or-create（同一メールなら既存トークンを再利用）
//  3. callbackURIへコネクショントークンを配送し、リダイレクトURLを受領
//
// 失敗は最初に失敗したステップの*model.AuthErrorを返す。
// コールバック失敗時もステップ2で確保したコネクションはロールバックされない
// （実プロバイダーでもコネクションはリダイレクトとは独立に存在する）。
func (s *Service) Authenticate(ctx context.Context, callbackURI string, crit Criteria) (*AuthResult, error) {
	user, err := s.match(crit)
	if err != nil {
		s.recordFailure(err)
		return nil, err
	}

	token, created, err := s.store.FindOrCreateByEmail(user)
	if err != nil {
		// トークン衝突。128bit乱数のため本来発生しない。
		s.logger.Error("connection token collision",
			slog.String("username", user.Username),
			slog.String("error", err.Error()),
		)
		s.recordFailure(err)
		return nil, err
	}

	if created {
		s.metrics.RecordConnectionCreated()
		s.logger.Info("created connection",
			slog.String("connection_token", token),
			slog.String("username", user.Username),
		)
	} else {
		s.logger.Info("reusing existing connection",
			slog.String("connection_token", token),
			slog.String("username", user.Username),
		)
	}

	start := time.Now()
	redirectURL, err := s.dispatcher.Deliver(ctx, callbackURI, token)
	s.metrics.RecordCallbackLatency(time.Since(start))
	if err != nil {
		// コネクションは作成済みのまま残る
		s.recordFailure(err)
		return nil, err
	}

	s.metrics.RecordAuthSuccess()
	return &AuthResult{
		ConnectionToken: token,
		RedirectURL:     redirectURL,
	}, nil
}

// recordFailure は失敗分類付きで認証失敗メトリクスを記録する。
func (s *Service) recordFailure(err error) {
	var authErr *model.AuthError
	if errors.As(err, &authErr) {
		s.metrics.RecordAuthFailure(string(authErr.Kind))
		return
	}
	s.metrics.RecordAuthFailure("internal")
}
