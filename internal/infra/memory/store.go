package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	appdiag "retail-insight/internal/application/diagnosis"
	"retail-insight/internal/application/dataset"
	authDomain "retail-insight/internal/domain/auth"
	authinfra "retail-insight/internal/infrastructure/auth"
)

// Store 為無資料庫模式使用的記憶體存儲：資料集 session、使用者與診斷結果快取。
// 資料集一律透過明確的 session 握把存取，不存在「當前資料集」這種行程層級全域。
type Store struct {
	mu       sync.RWMutex
	sessions map[string]dataset.Session
	users    map[string]authDomain.User // email -> user
	cache    map[string]cacheEntry
	cacheTTL time.Duration
	now      func() time.Time
}

type cacheEntry struct {
	out     appdiag.RunOutput
	expires time.Time
}

// NewStore 建立新的記憶體 Store 實例。
func NewStore(cacheTTL time.Duration) *Store {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &Store{
		sessions: make(map[string]dataset.Session),
		users:    make(map[string]authDomain.User),
		cache:    make(map[string]cacheEntry),
		cacheTTL: cacheTTL,
		now:      time.Now,
	}
}

// PutSession 登記一份資料集 session。
func (s *Store) PutSession(ctx context.Context, sess dataset.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	return nil
}

// GetSession 取回資料集 session。
func (s *Store) GetSession(ctx context.Context, id string) (dataset.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return dataset.Session{}, fmt.Errorf("dataset session %q not found", id)
	}
	return sess, nil
}

// DropSession 移除資料集 session，釋放記憶體。
func (s *Store) DropSession(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Get 取回未過期的診斷結果快取。
func (s *Store) Get(key string) (appdiag.RunOutput, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.cache[key]
	if !ok || s.now().After(e.expires) {
		return appdiag.RunOutput{}, false
	}
	return e.out, true
}

// Put 寫入診斷結果快取，逾時由讀取端惰性淘汰。
func (s *Store) Put(key string, out appdiag.RunOutput) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[key] = cacheEntry{out: out, expires: s.now().Add(s.cacheTTL)}
}

// FindByEmail 依 email 查詢使用者。
func (s *Store) FindByEmail(ctx context.Context, email string) (authDomain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[email]
	if !ok {
		return authDomain.User{}, fmt.Errorf("user %q not found", email)
	}
	return u, nil
}

// FindByID 依 id 查詢使用者。
func (s *Store) FindByID(ctx context.Context, id string) (authDomain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return authDomain.User{}, fmt.Errorf("user %q not found", id)
}

// SeedUsers 建立預設帳號供登入測試。
func (s *Store) SeedUsers() {
	hash := func(p string) string {
		h, err := authinfra.HashPassword(p)
		if err != nil {
			return ""
		}
		return h
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.users["admin@example.com"] = authDomain.User{
		ID:       "user-admin",
		Email:    "admin@example.com",
		Name:     "Admin",
		Role:     authDomain.RoleAdmin,
		Status:   authDomain.StatusActive,
		Password: hash("admin123"),
	}
	s.users["analyst@example.com"] = authDomain.User{
		ID:       "user-analyst",
		Email:    "analyst@example.com",
		Name:     "Analyst",
		Role:     authDomain.RoleAnalyst,
		Status:   authDomain.StatusActive,
		Password: hash("analyst123"),
	}
}
