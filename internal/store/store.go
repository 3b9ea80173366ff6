// Package store はコネクションのインメモリストアを提供する。
// 状態はプロセス生存期間のみ保持され、エビクションやTTLは存在しない。
package store

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/mocklogin/internal/model"
)

// Entry はトークンとコネクションレコードの組を表す。
type Entry struct {
	Token      string
	Connection *model.Connection
}

// ConnectionStore はコネクショントークンをキーとするインメモリストア。
// 挿入順を保持し、全操作を単一のミューテックスで直列化する。
// find-or-createの走査と挿入を同じクリティカルセクションで行うため、
// 同一メールへの同時認証でもコネクションが二重生成されることはない。
type ConnectionStore struct {
	mu      sync.RWMutex
	byToken map[string]*model.Connection
	order   []string // 挿入順のトークン列

	// now は生成時刻の供給関数。テストで差し替える。
	now func() time.Time
}

// NewConnectionStore は空のConnectionStoreを生成する。
func NewConnectionStore() *ConnectionStore {
	return &ConnectionStore{
		byToken: make(map[string]*model.Connection),
		now:     time.Now,
	}
}

// Insert はコネクションをtokenで格納する。
// tokenが既に存在する場合はDuplicateTokenエラーを返す。
func (s *ConnectionStore) Insert(token string, conn *model.Connection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.insertLocked(token, conn)
}

// insertLocked はロック保持前提の挿入処理。
func (s *ConnectionStore) insertLocked(token string, conn *model.Connection) error {
	if _, exists := s.byToken[token]; exists {
		return model.NewDuplicateTokenError(token)
	}
	s.byToken[token] = conn
	s.order = append(s.order, token)
	return nil
}

// Get はトークンでコネクションを検索する。
func (s *ConnectionStore) Get(token string) (*model.Connection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conn, ok := s.byToken[token]
	return conn, ok
}

// List は全コネクションを挿入順で返す。
func (s *ConnectionStore) List() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]Entry, 0, len(s.order))
	for _, token := range s.order {
		entries = append(entries, Entry{Token: token, Connection: s.byToken[token]})
	}
	return entries
}

// Len は格納されているコネクション数を返す。
func (s *ConnectionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byToken)
}

// FindOrCreateByEmail はユーザーのメールアドレス（大文字小文字無視）に一致する
// 既存コネクションのトークンを返す。存在しない場合は新しいトークンを合成して
// スナップショットを格納する。走査と挿入は同一クリティカルセクションで行う。
// 戻り値のcreatedは新規作成時にtrueとなる。
func (s *ConnectionStore) FindOrCreateByEmail(user model.TestUser) (token string, created bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.order {
		if strings.EqualFold(s.byToken[t].Email(), user.Email) {
			return t, false, nil
		}
	}

	// 128bit乱数トークン。衝突確率はゼロとみなす。
	token = uuid.New().String()
	conn := model.NewConnection(token, user, s.now())
	if err := s.insertLocked(token, conn); err != nil {
		return "", false, err
	}

	return token, true, nil
}
