package repository

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/okian/topboard/pkg/metrics"
)

// Treap-based, in-memory Store implementation.
//
// Each sorted-set key owns an order-statistic treap. Ordering matches
// Redis: score ASC, then member ASC byte-wise. ZREVRANGE and ZREVRANK walk
// the same order backwards, so equal scores come out in reverse member
// order exactly as a Redis server returns them.

// treap node
type node struct {
	member string
	score  float64
	prio   uint64
	left   *node
	right  *node
	size   int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less returns true if (aScore, aMember) sorts before (bScore, bMember).
func less(aScore float64, aMember string, bScore float64, bMember string) bool {
	if aScore != bScore {
		return aScore < bScore
	}
	return aMember < bMember
}

func rotateRight(y *node) *node {
	x := y.left
	t2 := x.right
	x.right = y
	y.left = t2
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	t2 := y.left
	y.left = x
	x.right = t2
	fix(x)
	fix(y)
	return y
}

// priority hashes the member so the tree shape is deterministic.
func priority(member string) uint64 {
	return xxhash.Sum64String(member)
}

func insert(n *node, member string, score float64) *node {
	if n == nil {
		return &node{member: member, score: score, prio: priority(member), size: 1}
	}
	if less(score, member, n.score, n.member) {
		n.left = insert(n.left, member, score)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, member, score)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, member string, score float64) *node {
	if n == nil {
		return nil
	}
	if score == n.score && member == n.member {
		// Rotate the higher-priority child up until the node is a leaf.
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, member, score)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, member, score)
		}
	} else if less(score, member, n.score, n.member) {
		n.left = deleteNode(n.left, member, score)
	} else {
		n.right = deleteNode(n.right, member, score)
	}
	fix(n)
	return n
}

// rankOf counts the nodes sorting before (score, member).
func rankOf(n *node, member string, score float64) int {
	rank := 0
	for n != nil {
		if less(score, member, n.score, n.member) {
			n = n.left
			continue
		}
		if score == n.score && member == n.member {
			return rank + nsize(n.left)
		}
		rank += nsize(n.left) + 1
		n = n.right
	}
	return rank
}

// collectRange appends nodes with ascending index in [lo, hi].
func collectRange(n *node, lo, hi, offset int, out *[]*node) {
	if n == nil {
		return
	}
	idx := offset + nsize(n.left)
	if lo < idx {
		collectRange(n.left, lo, hi, offset, out)
	}
	if idx >= lo && idx <= hi {
		*out = append(*out, n)
	}
	if hi > idx {
		collectRange(n.right, lo, hi, idx+1, out)
	}
}

// zset is one sorted-set key.
type zset struct {
	root   *node
	scores map[string]float64
}

func (z *zset) add(member string, score float64) bool {
	old, exists := z.scores[member]
	if exists {
		if old == score {
			return false
		}
		z.root = deleteNode(z.root, member, old)
	}
	z.scores[member] = score
	z.root = insert(z.root, member, score)
	return !exists
}

func (z *zset) remove(member string) bool {
	score, ok := z.scores[member]
	if !ok {
		return false
	}
	delete(z.scores, member)
	z.root = deleteNode(z.root, member, score)
	return true
}

// normalizeRange applies Redis index rules and reports an empty range.
func normalizeRange(start, stop int64, card int) (int, int, bool) {
	n := int64(card)
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || start >= n {
		return 0, 0, false
	}
	return int(start), int(stop), true
}

func formatScore(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// TreapStore is an in-process ranking.Store.
type TreapStore struct {
	mu     sync.RWMutex
	values map[string]string
	zsets  map[string]*zset

	metricsUpdateInterval time.Duration
	wg                    sync.WaitGroup
	stopChan              chan struct{}
	stopOnce              sync.Once
}

// NewTreapStore constructs a treap store with configuration options.
func NewTreapStore(ctx context.Context, opts ...Option) *TreapStore {
	s := &TreapStore{
		values:                make(map[string]string),
		zsets:                 make(map[string]*zset),
		metricsUpdateInterval: 5 * time.Second,
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.startMetricsUpdater(ctx)
	return s
}

// Close stops the background metrics goroutine.
func (s *TreapStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

// startMetricsUpdater periodically publishes the key count.
func (s *TreapStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				metrics.UpdateStoreKeys(backendMemory, s.keyCount())
			}
		}
	}()
}

func (s *TreapStore) keyCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values) + len(s.zsets)
}

// begin checks the context and starts a metrics observation.
func (s *TreapStore) begin(ctx context.Context, cmd string) (func(error) error, error) {
	start := time.Now()
	done := func(err error) error {
		observe(backendMemory, cmd, start, err)
		return err
	}
	if err := ctx.Err(); err != nil {
		return nil, done(unavailable(backendMemory, cmd, err))
	}
	return done, nil
}

// Ping implements ranking.Store.
func (s *TreapStore) Ping(ctx context.Context) error {
	done, err := s.begin(ctx, "PING")
	if err != nil {
		return err
	}
	return done(nil)
}

// Get implements ranking.Store.
func (s *TreapStore) Get(ctx context.Context, key string) (string, bool, error) {
	done, err := s.begin(ctx, "GET")
	if err != nil {
		return "", false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, isZ := s.zsets[key]; isZ {
		return "", false, done(protocolErr(backendMemory, "GET", errWrongType))
	}
	v, ok := s.values[key]
	return v, ok, done(nil)
}

// Set implements ranking.Store. Like Redis SET it replaces a key of any type.
func (s *TreapStore) Set(ctx context.Context, key, value string) error {
	done, err := s.begin(ctx, "SET")
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.zsets, key)
	s.values[key] = value
	return done(nil)
}

// Del implements ranking.Store.
func (s *TreapStore) Del(ctx context.Context, keys ...string) (int64, error) {
	done, err := s.begin(ctx, "DEL")
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := s.values[k]; ok {
			delete(s.values, k)
			n++
		}
		if _, ok := s.zsets[k]; ok {
			delete(s.zsets, k)
			n++
		}
	}
	return n, done(nil)
}

// Exists implements ranking.Store.
func (s *TreapStore) Exists(ctx context.Context, key string) (bool, error) {
	done, err := s.begin(ctx, "EXISTS")
	if err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, isV := s.values[key]
	_, isZ := s.zsets[key]
	return isV || isZ, done(nil)
}

// zsetLocked returns the sorted set under key. Callers hold s.mu.
func (s *TreapStore) zsetLocked(cmd, key string, create bool) (*zset, error) {
	if _, isV := s.values[key]; isV {
		return nil, protocolErr(backendMemory, cmd, errWrongType)
	}
	z, ok := s.zsets[key]
	if !ok && create {
		z = &zset{scores: make(map[string]float64)}
		s.zsets[key] = z
	}
	return z, nil
}

// dropIfEmpty removes empty sorted sets, as Redis does. Callers hold s.mu.
func (s *TreapStore) dropIfEmpty(key string, z *zset) {
	if z != nil && len(z.scores) == 0 {
		delete(s.zsets, key)
	}
}

// ZAdd implements ranking.Store.
func (s *TreapStore) ZAdd(ctx context.Context, key string, score float64, member string) (int64, error) {
	done, err := s.begin(ctx, "ZADD")
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	z, err := s.zsetLocked("ZADD", key, true)
	if err != nil {
		return 0, done(err)
	}
	if z.add(member, score) {
		return 1, done(nil)
	}
	return 0, done(nil)
}

// ZRem implements ranking.Store.
func (s *TreapStore) ZRem(ctx context.Context, key, member string) (int64, error) {
	done, err := s.begin(ctx, "ZREM")
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	z, err := s.zsetLocked("ZREM", key, false)
	if err != nil || z == nil {
		return 0, done(err)
	}
	var n int64
	if z.remove(member) {
		n = 1
	}
	s.dropIfEmpty(key, z)
	return n, done(nil)
}

// ZCard implements ranking.Store.
func (s *TreapStore) ZCard(ctx context.Context, key string) (int64, error) {
	done, err := s.begin(ctx, "ZCARD")
	if err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	z, err := s.zsetLocked("ZCARD", key, false)
	if err != nil || z == nil {
		return 0, done(err)
	}
	return int64(len(z.scores)), done(nil)
}

// ZRange implements ranking.Store.
func (s *TreapStore) ZRange(ctx context.Context, key string, start, stop int64, withScores bool) ([]string, error) {
	return s.zrange(ctx, "ZRANGE", key, start, stop, withScores, false)
}

// ZRevRange implements ranking.Store.
func (s *TreapStore) ZRevRange(ctx context.Context, key string, start, stop int64, withScores bool) ([]string, error) {
	return s.zrange(ctx, "ZREVRANGE", key, start, stop, withScores, true)
}

func (s *TreapStore) zrange(ctx context.Context, cmd, key string, start, stop int64, withScores, rev bool) ([]string, error) {
	done, err := s.begin(ctx, cmd)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	z, err := s.zsetLocked(cmd, key, false)
	if err != nil {
		return nil, done(err)
	}
	if z == nil {
		return []string{}, done(nil)
	}
	card := len(z.scores)
	lo, hi, ok := normalizeRange(start, stop, card)
	if !ok {
		return []string{}, done(nil)
	}
	if rev {
		lo, hi = card-1-hi, card-1-lo
	}

	nodes := make([]*node, 0, hi-lo+1)
	collectRange(z.root, lo, hi, 0, &nodes)
	if rev {
		for i, j := 0, len(nodes)-1; i < j; i, j = i+1, j-1 {
			nodes[i], nodes[j] = nodes[j], nodes[i]
		}
	}

	width := 1
	if withScores {
		width = 2
	}
	out := make([]string, 0, len(nodes)*width)
	for _, n := range nodes {
		out = append(out, n.member)
		if withScores {
			out = append(out, formatScore(n.score))
		}
	}
	return out, done(nil)
}

// ZRevRank implements ranking.Store.
func (s *TreapStore) ZRevRank(ctx context.Context, key, member string) (int64, bool, error) {
	done, err := s.begin(ctx, "ZREVRANK")
	if err != nil {
		return 0, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	z, err := s.zsetLocked("ZREVRANK", key, false)
	if err != nil || z == nil {
		return 0, false, done(err)
	}
	score, ok := z.scores[member]
	if !ok {
		return 0, false, done(nil)
	}
	asc := rankOf(z.root, member, score)
	return int64(len(z.scores) - 1 - asc), true, done(nil)
}

// ZRemRangeByRank implements ranking.Store.
func (s *TreapStore) ZRemRangeByRank(ctx context.Context, key string, start, stop int64) (int64, error) {
	done, err := s.begin(ctx, "ZREMRANGEBYRANK")
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	z, err := s.zsetLocked("ZREMRANGEBYRANK", key, false)
	if err != nil || z == nil {
		return 0, done(err)
	}
	lo, hi, ok := normalizeRange(start, stop, len(z.scores))
	if !ok {
		return 0, done(nil)
	}
	nodes := make([]*node, 0, hi-lo+1)
	collectRange(z.root, lo, hi, 0, &nodes)
	members := make([]string, len(nodes))
	for i, n := range nodes {
		members[i] = n.member
	}
	for _, m := range members {
		z.remove(m)
	}
	s.dropIfEmpty(key, z)
	return int64(len(members)), done(nil)
}

// ZScore implements ranking.Store.
func (s *TreapStore) ZScore(ctx context.Context, key, member string) (float64, bool, error) {
	done, err := s.begin(ctx, "ZSCORE")
	if err != nil {
		return 0, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	z, err := s.zsetLocked("ZSCORE", key, false)
	if err != nil || z == nil {
		return 0, false, done(err)
	}
	score, ok := z.scores[member]
	return score, ok, done(nil)
}
