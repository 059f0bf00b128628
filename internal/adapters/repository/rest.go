package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/okian/topboard/internal/domain/ranking"
	"github.com/okian/topboard/pkg/logger"
)

// maxReplyBytes caps how much of a reply body is read.
const maxReplyBytes = 8 << 20

// RESTStore talks to a key-value service that accepts a Redis command as a
// JSON array in the body of a POST and answers with JSON.
type RESTStore struct {
	url     string
	token   string
	timeout time.Duration
	client  *http.Client
	logger  logger.Logger
}

// NewRESTStore creates a store for url authenticated with a bearer token.
// A positive timeout bounds each command.
func NewRESTStore(url, token string, timeout time.Duration, opts ...RESTOption) *RESTStore {
	s := &RESTStore{
		url:     url,
		token:   token,
		timeout: timeout,
		client:  &http.Client{},
		logger:  logger.Named("store.rest"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// do sends one command and normalizes the reply.
func (s *RESTStore) do(ctx context.Context, args ...string) (r Reply, err error) {
	cmd := args[0]
	start := time.Now()
	defer func() { observe(backendREST, cmd, start, err) }()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	payload, err := json.Marshal(args)
	if err != nil {
		return Reply{}, protocolErr(backendREST, cmd, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return Reply{}, unavailable(backendREST, cmd, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return Reply{}, unavailable(backendREST, cmd, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return Reply{}, unavailable(backendREST, cmd, err)
	}

	r, err = normalizeReply(resp.StatusCode, body)
	if err != nil {
		var ce *CommandError
		if errors.As(err, &ce) {
			ce.Command = cmd
		}
		if errors.Is(err, ranking.ErrStoreProtocol) {
			s.logger.Error(ctx, "store reply could not be interpreted",
				logger.String("command", cmd),
				logger.Int("status", resp.StatusCode),
				logger.String("body", string(body)),
				logger.Error(err))
		}
		return Reply{}, err
	}
	return r, nil
}

// fail wraps a reply decoding error for cmd and logs the reply.
func (s *RESTStore) fail(ctx context.Context, cmd string, r Reply, err error) error {
	s.logger.Error(ctx, "store reply has unexpected shape",
		logger.String("command", cmd),
		logger.String("reply", r.v.Raw),
		logger.Error(err))
	return protocolErr(backendREST, cmd, err)
}

// Ping implements ranking.Store.
func (s *RESTStore) Ping(ctx context.Context) error {
	_, err := s.do(ctx, "PING")
	return err
}

// Get implements ranking.Store.
func (s *RESTStore) Get(ctx context.Context, key string) (string, bool, error) {
	r, err := s.do(ctx, "GET", key)
	if err != nil {
		return "", false, err
	}
	v, found, err := r.Text()
	if err != nil {
		return "", false, s.fail(ctx, "GET", r, err)
	}
	return v, found, nil
}

// Set implements ranking.Store.
func (s *RESTStore) Set(ctx context.Context, key, value string) error {
	_, err := s.do(ctx, "SET", key, value)
	return err
}

// Del implements ranking.Store.
func (s *RESTStore) Del(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	return s.intCmd(ctx, append([]string{"DEL"}, keys...)...)
}

// Exists implements ranking.Store.
func (s *RESTStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.intCmd(ctx, "EXISTS", key)
	return n > 0, err
}

// ZAdd implements ranking.Store.
func (s *RESTStore) ZAdd(ctx context.Context, key string, score float64, member string) (int64, error) {
	return s.intCmd(ctx, "ZADD", key, formatScore(score), member)
}

// ZRem implements ranking.Store.
func (s *RESTStore) ZRem(ctx context.Context, key, member string) (int64, error) {
	return s.intCmd(ctx, "ZREM", key, member)
}

// ZCard implements ranking.Store.
func (s *RESTStore) ZCard(ctx context.Context, key string) (int64, error) {
	return s.intCmd(ctx, "ZCARD", key)
}

// ZRevRange implements ranking.Store.
func (s *RESTStore) ZRevRange(ctx context.Context, key string, start, stop int64, withScores bool) ([]string, error) {
	return s.rangeCmd(ctx, "ZREVRANGE", key, start, stop, withScores)
}

// ZRange implements ranking.Store.
func (s *RESTStore) ZRange(ctx context.Context, key string, start, stop int64, withScores bool) ([]string, error) {
	return s.rangeCmd(ctx, "ZRANGE", key, start, stop, withScores)
}

// ZRevRank implements ranking.Store.
func (s *RESTStore) ZRevRank(ctx context.Context, key, member string) (int64, bool, error) {
	r, err := s.do(ctx, "ZREVRANK", key, member)
	if err != nil {
		return 0, false, err
	}
	if r.IsNil() {
		return 0, false, nil
	}
	n, err := r.Int()
	if err != nil {
		return 0, false, s.fail(ctx, "ZREVRANK", r, err)
	}
	return n, true, nil
}

// ZRemRangeByRank implements ranking.Store.
func (s *RESTStore) ZRemRangeByRank(ctx context.Context, key string, start, stop int64) (int64, error) {
	return s.intCmd(ctx, "ZREMRANGEBYRANK", key, itoa(start), itoa(stop))
}

// ZScore implements ranking.Store.
func (s *RESTStore) ZScore(ctx context.Context, key, member string) (float64, bool, error) {
	r, err := s.do(ctx, "ZSCORE", key, member)
	if err != nil {
		return 0, false, err
	}
	f, found, err := r.Float()
	if err != nil {
		return 0, false, s.fail(ctx, "ZSCORE", r, err)
	}
	return f, found, nil
}

func (s *RESTStore) intCmd(ctx context.Context, args ...string) (int64, error) {
	r, err := s.do(ctx, args...)
	if err != nil {
		return 0, err
	}
	n, err := r.Int()
	if err != nil {
		return 0, s.fail(ctx, args[0], r, err)
	}
	return n, nil
}

func (s *RESTStore) rangeCmd(ctx context.Context, cmd, key string, start, stop int64, withScores bool) ([]string, error) {
	args := []string{cmd, key, itoa(start), itoa(stop)}
	if withScores {
		args = append(args, "WITHSCORES")
	}
	r, err := s.do(ctx, args...)
	if err != nil {
		return nil, err
	}
	out, err := r.List()
	if err != nil {
		return nil, s.fail(ctx, cmd, r, err)
	}
	return out, nil
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
