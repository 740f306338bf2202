// Package redis provides Redis storage for sessions, for deployments running
// more than one server replica behind a load balancer.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/txn2/mcp-travel-desk/pkg/auth"
	"github.com/txn2/mcp-travel-desk/pkg/session"
)

// Config configures the Redis session store.
type Config struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
	Prefix   string        `yaml:"prefix"`
}

// Store implements session.Store using Redis. Expiry is delegated to Redis
// key TTLs; a Get refreshes the TTL, so the last-accessed semantics match
// the in-memory manager.
type Store struct {
	rdb    *goredis.Client
	ttl    time.Duration
	prefix string
}

// New creates a Redis session store and verifies connectivity.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Addr == "" {
		cfg.Addr = "localhost:6379"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = session.DefaultTimeout
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "traveldesk:session:"
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return &Store{rdb: rdb, ttl: cfg.TTL, prefix: cfg.Prefix}, nil
}

// record is the stored shape. The auth context serializes through its own
// MarshalJSON and never includes more than the snapshot fields.
type record struct {
	Auth      *auth.Context `json:"auth"`
	CreatedAt time.Time     `json:"created_at"`
}

func (s *Store) key(id string) string { return s.prefix + id }

// Create stores a fresh unauthenticated context under id, generating a UUID
// when id is empty.
func (s *Store) Create(ctx context.Context, id string) (string, *auth.Context, error) {
	if id == "" {
		id = uuid.NewString()
	}
	ac := auth.NewContext()
	if err := s.write(ctx, id, &record{Auth: ac, CreatedAt: time.Now()}); err != nil {
		return "", nil, err
	}
	return id, ac, nil
}

// Get returns the context for id, or nil when the key is absent (Redis has
// already evicted expired sessions). A hit refreshes the TTL.
func (s *Store) Get(ctx context.Context, id string) (*auth.Context, error) {
	rec, err := s.read(ctx, id)
	if err != nil || rec == nil {
		return nil, err
	}
	if err := s.rdb.Expire(ctx, s.key(id), s.ttl).Err(); err != nil {
		return nil, fmt.Errorf("refreshing session ttl: %w", err)
	}
	return rec.Auth, nil
}

// GetOrCreate returns the existing session or creates a new one. The
// returned id is authoritative.
func (s *Store) GetOrCreate(ctx context.Context, id string) (string, *auth.Context, error) {
	if id != "" {
		ac, err := s.Get(ctx, id)
		if err != nil {
			return "", nil, err
		}
		if ac != nil {
			return id, ac, nil
		}
	}
	return s.Create(ctx, "")
}

// Save persists mutations made to the context, preserving the original
// creation time when the record still exists.
func (s *Store) Save(ctx context.Context, id string, ac *auth.Context) error {
	rec, err := s.read(ctx, id)
	if err != nil {
		return err
	}
	created := time.Now()
	if rec != nil {
		created = rec.CreatedAt
	}
	return s.write(ctx, id, &record{Auth: ac, CreatedAt: created})
}

// Remove deletes the session, reporting whether it existed.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	n, err := s.rdb.Del(ctx, s.key(id)).Result()
	if err != nil {
		return false, fmt.Errorf("deleting session: %w", err)
	}
	return n > 0, nil
}

// CleanupExpired is a no-op; Redis evicts expired keys natively.
func (s *Store) CleanupExpired(_ context.Context) (int, error) {
	return 0, nil
}

// Info returns a diagnostic snapshot, or nil when the session is unknown.
// The remaining TTL stands in for the last-accessed time.
func (s *Store) Info(ctx context.Context, id string) (*session.Info, error) {
	rec, err := s.read(ctx, id)
	if err != nil || rec == nil {
		return nil, err
	}
	ttl, err := s.rdb.TTL(ctx, s.key(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("reading session ttl: %w", err)
	}
	info := &session.Info{
		SessionID:       id,
		CreatedAt:       rec.CreatedAt,
		LastAccessedAt:  time.Now().Add(ttl - s.ttl),
		IsAuthenticated: rec.Auth.IsAuthenticated(),
	}
	if rec.Auth.IsAuthenticated() {
		ui := rec.Auth.UserInfo()
		info.UserInfo = &ui
	}
	return info, nil
}

// Close releases the Redis client.
func (s *Store) Close() error {
	return s.rdb.Close()
}

func (s *Store) write(ctx context.Context, id string, rec *record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	if err := s.rdb.Set(ctx, s.key(id), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("storing session: %w", err)
	}
	return nil
}

func (s *Store) read(ctx context.Context, id string) (*record, error) {
	data, err := s.rdb.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching session: %w", err)
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decoding session: %w", err)
	}
	return &rec, nil
}

var _ session.Store = (*Store)(nil)
