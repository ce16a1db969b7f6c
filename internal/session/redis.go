package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/JakeFAU/seo-opportunity-scanner/internal/scanner"
)

const maxTxRetries = 5

// RedisConfig controls the redis session store.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	TTL       time.Duration
}

// RedisStore keeps sessions as JSON documents in redis so several API
// replicas can serve status polls. Updates use optimistic WATCH transactions.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	clock  scanner.Clock
}

// NewRedisClient opens a client for cfg.
func NewRedisClient(cfg RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
}

// NewRedisStore constructs a RedisStore over an existing client.
func NewRedisStore(client *redis.Client, cfg RedisConfig, clock scanner.Clock) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "seoscan:session:"
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl, clock: clock}, nil
}

// Ping verifies connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close releases the client.
func (s *RedisStore) Close() error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("close redis: %w", err)
	}
	return nil
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}

// CreateSession stores a new session; existing ids are rejected.
func (s *RedisStore) CreateSession(ctx context.Context, session scanner.Session) error {
	if session.Status == "" {
		session.Status = scanner.SessionPending
	}
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	ok, err := s.client.SetNX(ctx, s.key(session.ID), data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	if !ok {
		return fmt.Errorf("create %s: %w", session.ID, scanner.ErrSessionExists)
	}
	return nil
}

// UpdateProgress advances a running session.
func (s *RedisStore) UpdateProgress(ctx context.Context, id string, progress int, message string) error {
	return s.mutate(ctx, id, func(session *scanner.Session) error {
		return session.ApplyProgress(progress, message, s.clock.Now())
	})
}

// FinishSession moves a session to a terminal status.
func (s *RedisStore) FinishSession(
	ctx context.Context,
	id string,
	status scanner.SessionStatus,
	message string,
	results []scanner.AnalyzedTarget,
) error {
	return s.mutate(ctx, id, func(session *scanner.Session) error {
		return session.Finish(status, message, results, s.clock.Now())
	})
}

// GetSession loads a session.
func (s *RedisStore) GetSession(ctx context.Context, id string) (scanner.Session, error) {
	raw, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return scanner.Session{}, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return scanner.Session{}, fmt.Errorf("get session: %w", err)
	}
	var session scanner.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return scanner.Session{}, fmt.Errorf("decode session: %w", err)
	}
	return session, nil
}

func (s *RedisStore) mutate(ctx context.Context, id string, fn func(*scanner.Session) error) error {
	key := s.key(id)
	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("update %s: %w", id, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get session: %w", err)
		}
		var session scanner.Session
		if err := json.Unmarshal(raw, &session); err != nil {
			return fmt.Errorf("decode session: %w", err)
		}
		if err := fn(&session); err != nil {
			return err
		}
		data, err := json.Marshal(session)
		if err != nil {
			return fmt.Errorf("marshal session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.ttl)
			return nil
		})
		return err
	}
	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return err
		}
		return nil
	}
	return fmt.Errorf("update %s: too many concurrent writers", id)
}
