package ranking

import "context"

// Store is the sorted-set and key-value surface the engine runs against.
// Every call is one round trip; implementations do not cache or retry.
//
// Missing keys are not errors: Get, ZRevRank and ZScore report found=false
// and range reads return an empty slice.
type Store interface {
	Ping(ctx context.Context) error

	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	Del(ctx context.Context, keys ...string) (int64, error)
	Exists(ctx context.Context, key string) (bool, error)

	ZAdd(ctx context.Context, key string, score float64, member string) (int64, error)
	ZRem(ctx context.Context, key, member string) (int64, error)
	ZCard(ctx context.Context, key string) (int64, error)
	// ZRevRange returns members from highest to lowest score. With scores
	// the reply is flat: member, score, member, score, ...
	ZRevRange(ctx context.Context, key string, start, stop int64, withScores bool) ([]string, error)
	ZRange(ctx context.Context, key string, start, stop int64, withScores bool) ([]string, error)
	ZRevRank(ctx context.Context, key, member string) (rank int64, found bool, err error)
	ZRemRangeByRank(ctx context.Context, key string, start, stop int64) (int64, error)
	ZScore(ctx context.Context, key, member string) (score float64, found bool, err error)
}
