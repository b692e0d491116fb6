package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/rezzydesk/internal/internaltypes"
)

// RedisStore keeps the session under one redis key, for terminals that share a login.
type RedisStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Profile  string
	TTL      time.Duration
}

func NewRedisClient(o RedisOptions) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     o.Addr,
		Password: o.Password,
		DB:       o.DB,
	})
}

func NewRedisStore(client *redis.Client, profile string, ttl time.Duration) *RedisStore {
	if profile == "" {
		profile = "default"
	}
	return &RedisStore{client: client, key: "rezzydesk:session:" + profile, ttl: ttl}
}

func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context) (Session, error) {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Session{}, internaltypes.ErrNoSession
		}
		return Session{}, fmt.Errorf("session: redis get: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil || !sess.Valid() {
		return Session{}, internaltypes.ErrNoSession
	}
	return sess, nil
}

func (s *RedisStore) Save(ctx context.Context, sess Session) error {
	if !sess.Valid() {
		return errors.New("session: empty token")
	}
	b, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key, b, s.ttl).Err()
}

func (s *RedisStore) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
