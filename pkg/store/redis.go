// Package store provides session persistence backends beyond the in-process
// default: a Redis-backed SessionStore for multi-node deployments and a
// Postgres archiver for terminated sessions.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jaalnet/jaal/pkg/engine"
)

const sessionKeyPrefix = "jaal:session:"

// RedisStore implements engine.SessionStore on a Redis server. Sessions are
// stored as JSON under a per-session key whose TTL is refreshed on every
// save, so idle sessions expire server-side without a sweeper.
//
// The per-session turn lock is process-local. Running multiple gateway nodes
// requires sticky routing by session ID; the lock serializes turns within a
// node, Redis TTLs handle eviction across all of them.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(addr, password string, db int, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}

	if ttl <= 0 {
		ttl = 30 * time.Minute
	}

	return &RedisStore{
		client: client,
		ttl:    ttl,
		locks:  make(map[string]*sync.Mutex),
	}, nil
}

func sessionKey(sessionID string) string {
	return sessionKeyPrefix + sessionID
}

// Get retrieves a session by ID. Returns nil, nil if not found or expired.
func (s *RedisStore) Get(sessionID string) (*engine.Session, error) {
	ctx := context.Background()

	data, err := s.client.Get(ctx, sessionKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil // Not found is not an error
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", sessionID, err)
	}

	var sess engine.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	return &sess, nil
}

// Save creates or updates a session, refreshing its TTL.
func (s *RedisStore) Save(sess *engine.Session) error {
	if sess == nil {
		return fmt.Errorf("session is nil")
	}
	if sess.ID == "" {
		return fmt.Errorf("session ID is required")
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", sess.ID, err)
	}

	ctx := context.Background()
	if err := s.client.Set(ctx, sessionKey(sess.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", sess.ID, err)
	}
	return nil
}

// Delete removes a session.
func (s *RedisStore) Delete(sessionID string) error {
	ctx := context.Background()
	if err := s.client.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", sessionID, err)
	}
	return nil
}

// Lock acquires the process-local per-session mutex.
func (s *RedisStore) Lock(sessionID string) (unlock func()) {
	s.mu.Lock()
	l, ok := s.locks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[sessionID] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// Stats walks the session keyspace and aggregates counts. SCAN-based, so it
// is safe against large keyspaces but approximate under concurrent writes.
func (s *RedisStore) Stats() engine.StoreStats {
	ctx := context.Background()
	stats := engine.StoreStats{}

	iter := s.client.Scan(ctx, 0, sessionKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		data, err := s.client.Get(ctx, iter.Val()).Bytes()
		if err != nil {
			continue
		}
		var sess engine.Session
		if err := json.Unmarshal(data, &sess); err != nil {
			continue
		}
		stats.SessionCount++
		stats.TotalTurns += sess.TurnCount
		stats.TotalMessages += len(sess.Messages)
	}

	return stats
}

// Close releases the Redis connection.
func (s *RedisStore) Close() {
	_ = s.client.Close()
}

// Ensure RedisStore implements engine.SessionStore
var _ engine.SessionStore = (*RedisStore)(nil)
