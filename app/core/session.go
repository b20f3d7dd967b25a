package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionStore maps bearer tokens to the logged in account.
type SessionStore interface {
	Get(ctx context.Context, token string) (User, bool, error)
	Set(ctx context.Context, token string, user User) error
	Delete(ctx context.Context, token string) error
	// DeleteUser drops every session of the account.
	DeleteUser(ctx context.Context, userID uint) error
}

type memorySession struct {
	user      User
	expiresAt time.Time
}

type MemorySessionStore struct {
	mu       sync.RWMutex
	ttl      time.Duration
	sessions map[string]memorySession
	now      func() time.Time
}

func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	return &MemorySessionStore{
		ttl:      ttl,
		sessions: make(map[string]memorySession),
		now:      time.Now,
	}
}

func (s *MemorySessionStore) Get(ctx context.Context, token string) (User, bool, error) {
	s.mu.RLock()
	session, ok := s.sessions[token]
	s.mu.RUnlock()
	if !ok {
		return User{}, false, nil
	}
	if s.ttl > 0 && s.now().After(session.expiresAt) {
		s.mu.Lock()
		delete(s.sessions, token)
		s.mu.Unlock()
		return User{}, false, nil
	}
	return session.user, true, nil
}

func (s *MemorySessionStore) Set(ctx context.Context, token string, user User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = memorySession{user: user, expiresAt: s.now().Add(s.ttl)}
	return nil
}

func (s *MemorySessionStore) Delete(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

func (s *MemorySessionStore) DeleteUser(ctx context.Context, userID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, session := range s.sessions {
		if session.user.ID == userID {
			delete(s.sessions, token)
		}
	}
	return nil
}

// RedisSessionStore shares sessions between several API instances.
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSessionStore(ctx context.Context, cfg ConfigurationSessions, ttl time.Duration) (*RedisSessionStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.RedisAddr, err)
	}
	return &RedisSessionStore{client: client, ttl: ttl}, nil
}

func sessionKey(token string) string {
	return "session:" + token
}

func userSessionsKey(userID uint) string {
	return fmt.Sprintf("user_sessions:%d", userID)
}

func (s *RedisSessionStore) Get(ctx context.Context, token string) (User, bool, error) {
	data, err := s.client.Get(ctx, sessionKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return User{}, false, nil
	}
	if err != nil {
		return User{}, false, fmt.Errorf("reading session: %w", err)
	}
	user := User{}
	if err := json.Unmarshal(data, &user); err != nil {
		return User{}, false, fmt.Errorf("decoding session: %w", err)
	}
	return user, true, nil
}

func (s *RedisSessionStore) Set(ctx context.Context, token string, user User) error {
	data, err := json.Marshal(&user)
	if err != nil {
		return err
	}
	ttl := s.ttl
	if ttl < 0 {
		ttl = 0
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, sessionKey(token), data, ttl)
	pipe.SAdd(ctx, userSessionsKey(user.ID), token)
	// EXPIRE 0 would delete the set
	if ttl > 0 {
		pipe.Expire(ctx, userSessionsKey(user.ID), ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("writing session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, token string) error {
	user, ok, err := s.Get(ctx, token)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, sessionKey(token))
	if ok {
		pipe.SRem(ctx, userSessionsKey(user.ID), token)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisSessionStore) DeleteUser(ctx context.Context, userID uint) error {
	tokens, err := s.client.SMembers(ctx, userSessionsKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}
	keys := []string{userSessionsKey(userID)}
	for _, token := range tokens {
		keys = append(keys, sessionKey(token))
	}
	return s.client.Del(ctx, keys...).Err()
}

func (s *RedisSessionStore) Close() error {
	return s.client.Close()
}

// NewSessionStore picks the backend named in the sessions config section.
func NewSessionStore(ctx context.Context, cfg Configuration) (SessionStore, error) {
	ttl := time.Duration(cfg.Auth.SessionTTLHours) * time.Hour
	switch cfg.Sessions.Backend {
	case "redis":
		return NewRedisSessionStore(ctx, cfg.Sessions, ttl)
	case "", "memory":
		return NewMemorySessionStore(ttl), nil
	}
	return nil, fmt.Errorf("unknown session backend %q", cfg.Sessions.Backend)
}
