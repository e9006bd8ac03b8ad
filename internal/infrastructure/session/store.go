// Package session keeps per-visitor carts keyed by session id.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"groupbuy-backend/internal/domain"
)

type Store interface {
	Load(ctx context.Context, sid string) (domain.Cart, error)
	Save(ctx context.Context, sid string, cart domain.Cart) error
}

type RedisStore struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisStore(addr, password string, db int, ttl time.Duration) *RedisStore {
	return &RedisStore{
		Client: redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db}),
		TTL:    ttl,
	}
}

func key(sid string) string { return "cart:" + sid }

func (s *RedisStore) Load(ctx context.Context, sid string) (domain.Cart, error) {
	raw, err := s.Client.Get(ctx, key(sid)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Cart{}, nil
	}
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if json.Unmarshal(raw, &m) != nil {
		return domain.Cart{}, nil
	}
	return domain.NewCart(m), nil
}

// Save replaces the stored cart. An empty cart deletes the key.
func (s *RedisStore) Save(ctx context.Context, sid string, cart domain.Cart) error {
	if cart.Empty() {
		return s.Client.Del(ctx, key(sid)).Err()
	}
	b, err := json.Marshal(cart)
	if err != nil {
		return err
	}
	return s.Client.Set(ctx, key(sid), b, s.TTL).Err()
}

func (s *RedisStore) Close() error {
	return s.Client.Close()
}

type entry struct {
	cart    domain.Cart
	expires time.Time
}

// MemoryStore is for development and tests. Entries expire lazily.
type MemoryStore struct {
	mu  sync.Mutex
	m   map[string]entry
	TTL time.Duration
	now func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{m: make(map[string]entry), TTL: ttl, now: time.Now}
}

func (s *MemoryStore) Load(_ context.Context, sid string) (domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.m[sid]
	if !ok {
		return domain.Cart{}, nil
	}
	if s.TTL > 0 && s.now().After(e.expires) {
		delete(s.m, sid)
		return domain.Cart{}, nil
	}
	c := domain.Cart{}
	for k, v := range e.cart {
		c[k] = v
	}
	return c, nil
}

func (s *MemoryStore) Save(_ context.Context, sid string, cart domain.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cart.Empty() {
		delete(s.m, sid)
		return nil
	}
	c := domain.Cart{}
	for k, v := range cart {
		c[k] = v
	}
	s.m[sid] = entry{cart: c, expires: s.now().Add(s.TTL)}
	return nil
}
