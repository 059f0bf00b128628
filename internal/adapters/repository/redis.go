package repository

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds Redis connection configuration.
type Config struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns defaults for a local Redis.
func DefaultConfig() Config {
	return Config{
		Addr:         "localhost:6379",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// RedisStore implements ranking.Store on a Redis server.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection with PING.
func NewRedisStore(ctx context.Context, config Config) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	})

	s := NewRedisStoreWithClient(client)
	pingCtx, cancel := context.WithTimeout(ctx, config.DialTimeout)
	defer cancel()
	if err := s.Ping(pingCtx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return s, nil
}

// NewRedisStoreWithClient wraps an existing client, e.g. one pointed at
// miniredis in tests. A metrics hook is added to the client.
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	client.AddHook(metricsHook{})
	return &RedisStore{client: client}
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// metricsHook records every command with the same labels as other backends.
type metricsHook struct{}

func (metricsHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

func (metricsHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmd)
		name := strings.ToUpper(cmd.Name())
		observe(backendRedis, name, start, redisErr(name, err))
		return err
	}
}

func (metricsHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

// redisErr maps a go-redis error onto the store error kinds. A nil reply
// is not an error.
func redisErr(cmd string, err error) error {
	if err == nil || errors.Is(err, redis.Nil) {
		return nil
	}
	var replyErr redis.Error
	if errors.As(err, &replyErr) {
		return protocolErr(backendRedis, cmd, err)
	}
	return unavailable(backendRedis, cmd, err)
}

// Ping implements ranking.Store.
func (s *RedisStore) Ping(ctx context.Context) error {
	return redisErr("PING", s.client.Ping(ctx).Err())
}

// Get implements ranking.Store.
func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, redisErr("GET", err)
	}
	return v, true, nil
}

// Set implements ranking.Store.
func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	return redisErr("SET", s.client.Set(ctx, key, value, 0).Err())
}

// Del implements ranking.Store.
func (s *RedisStore) Del(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	n, err := s.client.Del(ctx, keys...).Result()
	return n, redisErr("DEL", err)
}

// Exists implements ranking.Store.
func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	return n > 0, redisErr("EXISTS", err)
}

// ZAdd implements ranking.Store.
func (s *RedisStore) ZAdd(ctx context.Context, key string, score float64, member string) (int64, error) {
	n, err := s.client.ZAdd(ctx, key, redis.Z{Score: score, Member: member}).Result()
	return n, redisErr("ZADD", err)
}

// ZRem implements ranking.Store.
func (s *RedisStore) ZRem(ctx context.Context, key, member string) (int64, error) {
	n, err := s.client.ZRem(ctx, key, member).Result()
	return n, redisErr("ZREM", err)
}

// ZCard implements ranking.Store.
func (s *RedisStore) ZCard(ctx context.Context, key string) (int64, error) {
	n, err := s.client.ZCard(ctx, key).Result()
	return n, redisErr("ZCARD", err)
}

// ZRevRange implements ranking.Store.
func (s *RedisStore) ZRevRange(ctx context.Context, key string, start, stop int64, withScores bool) ([]string, error) {
	if !withScores {
		out, err := s.client.ZRevRange(ctx, key, start, stop).Result()
		return nonNil(out), redisErr("ZREVRANGE", err)
	}
	zs, err := s.client.ZRevRangeWithScores(ctx, key, start, stop).Result()
	if err != nil {
		return nil, redisErr("ZREVRANGE", err)
	}
	return flatten(zs), nil
}

// ZRange implements ranking.Store.
func (s *RedisStore) ZRange(ctx context.Context, key string, start, stop int64, withScores bool) ([]string, error) {
	if !withScores {
		out, err := s.client.ZRange(ctx, key, start, stop).Result()
		return nonNil(out), redisErr("ZRANGE", err)
	}
	zs, err := s.client.ZRangeWithScores(ctx, key, start, stop).Result()
	if err != nil {
		return nil, redisErr("ZRANGE", err)
	}
	return flatten(zs), nil
}

// ZRevRank implements ranking.Store.
func (s *RedisStore) ZRevRank(ctx context.Context, key, member string) (int64, bool, error) {
	n, err := s.client.ZRevRank(ctx, key, member).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, redisErr("ZREVRANK", err)
	}
	return n, true, nil
}

// ZRemRangeByRank implements ranking.Store.
func (s *RedisStore) ZRemRangeByRank(ctx context.Context, key string, start, stop int64) (int64, error) {
	n, err := s.client.ZRemRangeByRank(ctx, key, start, stop).Result()
	return n, redisErr("ZREMRANGEBYRANK", err)
}

// ZScore implements ranking.Store.
func (s *RedisStore) ZScore(ctx context.Context, key, member string) (float64, bool, error) {
	f, err := s.client.ZScore(ctx, key, member).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, redisErr("ZSCORE", err)
	}
	return f, true, nil
}

// flatten turns scored members into the member, score, ... reply form.
func flatten(zs []redis.Z) []string {
	out := make([]string, 0, len(zs)*2)
	for _, z := range zs {
		out = append(out, fmt.Sprint(z.Member), formatScore(z.Score))
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
