// Package ranking implements the leaderboard policy: best score per player,
// top-N maintenance and rank computation over a sorted-set Store.
//
// Operations issue a strict sequence of store calls and stop at the first
// failure without rolling back. Nothing coordinates the read-modify-write in
// Submit and Edit, so concurrent submissions for the same player can race:
// both may read the same prior best and both supersede it, leaving a stale
// member in the set. A submission that fails between its ZREM and ZADD
// leaves the player with no ranked entry. Both gaps are known and accepted.
//
// Player best keys join mode and name with ':' and escape neither, so
// ("a", "b:c") and ("a:b", "c") share a key and one player's best can
// reject the other's submissions. The key layout is fixed by existing data.
package ranking

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/okian/topboard/internal/domain/entry"
	"github.com/okian/topboard/pkg/logger"
	"github.com/okian/topboard/pkg/metrics"
)

// Defaults for the engine.
const (
	DefaultBoardSize = 50
)

// DefaultModes is the closed set of modes ResetAll clears.
var DefaultModes = []string{"grid", "flick", "tracking", "switching", "microshot"}

// Submission outcomes recorded in metrics.
const (
	outcomeAccepted = "accepted"
	outcomeRejected = "rejected"
	outcomeInvalid  = "invalid"
	outcomeFailed   = "failed"
)

// SubmitResult is the outcome of a score submission. Rank is 1-based and
// only meaningful when Accepted is true; BoardSize+1 means the entry did not
// make the board.
type SubmitResult struct {
	Accepted bool `json:"accepted"`
	Rank     int  `json:"rank"`
}

// EditRequest replaces an entry identified by name and efficiency.
type EditRequest struct {
	Mode          string
	OldName       string
	OldEfficiency any
	NewName       string
	NewScore      any
	NewAccuracy   any
	NewEfficiency any
}

// otherMode labels metrics for modes outside the known set, so client
// supplied mode names cannot grow the series count.
const otherMode = "other"

// Engine applies the ranking policy against a Store.
type Engine struct {
	store     Store
	logger    logger.Logger
	boardSize int
	modes     []string
	now       func() time.Time
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithBoardSize sets how many entries a mode keeps.
func WithBoardSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.boardSize = n
		}
	}
}

// WithModes sets the known modes cleared by ResetAll.
func WithModes(modes []string) Option {
	return func(e *Engine) {
		var clean []string
		for _, m := range modes {
			if m = strings.TrimSpace(m); m != "" {
				clean = append(clean, m)
			}
		}
		if len(clean) > 0 {
			e.modes = clean
		}
	}
}

// WithClock overrides the time source used to date entries.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine constructs an Engine over store.
func NewEngine(store Store, opts ...Option) *Engine {
	e := &Engine{
		store:     store,
		boardSize: DefaultBoardSize,
		modes:     slices.Clone(DefaultModes),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logger.Named("ranking")
	}
	return e
}

// metricMode returns mode when it is known and otherMode otherwise.
func (e *Engine) metricMode(mode string) string {
	if mode = strings.TrimSpace(mode); slices.Contains(e.modes, mode) {
		return mode
	}
	return otherMode
}

// BoardSize returns the maximum number of entries kept per mode.
func (e *Engine) BoardSize() int { return e.boardSize }

// Modes returns a copy of the known modes.
func (e *Engine) Modes() []string { return slices.Clone(e.modes) }

// Fetch reads a mode's board, best first. The store is read once, before
// Fetch returns; members are decoded lazily as the sequence is consumed.
// The score half of each reply pair is authoritative for efficiency, and a
// member that is not structured JSON is yielded as an entry.Legacy.
func (e *Engine) Fetch(ctx context.Context, mode string) (iter.Seq[entry.Entry], error) {
	const op = "ranking.fetch"
	mode = strings.TrimSpace(mode)
	if mode == "" {
		return nil, fmt.Errorf("%s: %w: missing mode", op, ErrInvalidInput)
	}

	raw, err := e.store.ZRevRange(ctx, LeaderboardKey(mode), 0, int64(e.boardSize-1), true)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return func(yield func(entry.Entry) bool) {
		// An odd-length reply drops its trailing unpaired element.
		for i := 0; i+1 < len(raw); i += 2 {
			member, score := raw[i], raw[i+1]
			eff, err := strconv.ParseFloat(score, 64)
			if err != nil {
				e.logger.Warn(ctx, "skipping member with unparsable score",
					logger.String("mode", mode),
					logger.String("score", score),
				)
				continue
			}
			if !yield(entry.Decode(member, int64(eff))) {
				return
			}
		}
	}, nil
}

// Rankings collects Fetch into a slice.
func (e *Engine) Rankings(ctx context.Context, mode string) ([]entry.Entry, error) {
	seq, err := e.Fetch(ctx, mode)
	if err != nil {
		return nil, err
	}
	out := slices.Collect(seq)
	if out == nil {
		out = []entry.Entry{}
	}
	return out, nil
}

// Submit records a score if it beats the player's current best in the mode.
// A score that does not strictly improve the best is rejected without any
// write. Accepted entries are inserted, the board is trimmed, and the rank
// of the new entry is returned.
func (e *Engine) Submit(ctx context.Context, mode, name string, score, accuracy, efficiency any) (SubmitResult, error) {
	const op = "ranking.submit"
	sub, err := entry.ParseSubmission(mode, name, score, accuracy, efficiency)
	if err != nil {
		metrics.RecordSubmission(e.metricMode(mode), outcomeInvalid)
		return SubmitResult{}, fmt.Errorf("%s: %w", op, err)
	}

	res, err := e.submit(ctx, sub)
	switch {
	case err != nil:
		metrics.RecordSubmission(e.metricMode(sub.Mode), outcomeFailed)
		return SubmitResult{}, fmt.Errorf("%s: %w", op, err)
	case res.Accepted:
		metrics.RecordSubmission(e.metricMode(sub.Mode), outcomeAccepted)
	default:
		metrics.RecordSubmission(e.metricMode(sub.Mode), outcomeRejected)
	}
	return res, nil
}

func (e *Engine) submit(ctx context.Context, sub entry.Submission) (SubmitResult, error) {
	boardKey := LeaderboardKey(sub.Mode)
	playerKey := PlayerBestKey(sub.Mode, sub.Name)

	prior, found, err := e.store.Get(ctx, playerKey)
	if err != nil {
		return SubmitResult{}, err
	}
	if found {
		best, ok := entry.ParseStructured(prior)
		if !ok {
			e.logger.Warn(ctx, "unparsable player best; treating as no prior score",
				logger.String("key", playerKey),
				logger.String("value", prior),
			)
		} else if sub.Efficiency <= best.Efficiency {
			return SubmitResult{Accepted: false}, nil
		}
		// The stored string is the exact member that was inserted.
		if _, err := e.store.ZRem(ctx, boardKey, prior); err != nil {
			return SubmitResult{}, err
		}
	}

	member := entry.New(sub, e.now()).Encode()
	if _, err := e.store.ZAdd(ctx, boardKey, float64(sub.Efficiency), member); err != nil {
		return SubmitResult{}, err
	}
	if err := e.store.Set(ctx, playerKey, member); err != nil {
		return SubmitResult{}, err
	}
	if err := e.trim(ctx, sub.Mode); err != nil {
		return SubmitResult{}, err
	}

	rank, onBoard, err := e.store.ZRevRank(ctx, boardKey, member)
	if err != nil {
		return SubmitResult{}, err
	}
	res := SubmitResult{Accepted: true, Rank: e.boardSize + 1}
	if onBoard {
		res.Rank = int(rank) + 1
	}
	e.logger.Debug(ctx, "score accepted",
		logger.String("mode", sub.Mode),
		logger.String("name", sub.Name),
		logger.Int64("efficiency", sub.Efficiency),
		logger.Int("rank", res.Rank),
	)
	return res, nil
}

// trim evicts every entry below the board size.
func (e *Engine) trim(ctx context.Context, mode string) error {
	key := LeaderboardKey(mode)
	n, err := e.store.ZCard(ctx, key)
	if err != nil {
		return err
	}
	// Unknown modes share one label; a gauge for them would be meaningless.
	label := e.metricMode(mode)
	if slices.Contains(e.modes, mode) {
		metrics.UpdateBoardSize(label, min(int(n), e.boardSize))
	}
	if n <= int64(e.boardSize) {
		return nil
	}
	// Ascending ranks 0..-(size+1) are descending ranks size.. onwards.
	removed, err := e.store.ZRemRangeByRank(ctx, key, 0, -int64(e.boardSize)-1)
	if err != nil {
		return err
	}
	metrics.RecordEvictions(label, int(removed))
	return nil
}

// Delete removes the reduced {name, efficiency} member and the player's best
// key. Removal is by exact member match, so a full-field member is only
// removed if it happens to encode identically; otherwise the ZREM is a
// silent no-op.
func (e *Engine) Delete(ctx context.Context, mode, name string, efficiency any) error {
	const op = "ranking.delete"
	mode, name = strings.TrimSpace(mode), strings.TrimSpace(name)
	if mode == "" || name == "" {
		return fmt.Errorf("%s: %w: missing mode or name", op, ErrInvalidInput)
	}
	eff, err := entry.CoerceInt("efficiency", efficiency)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	member := entry.Legacy{Name: name, Efficiency: eff}.Encode()
	if _, err := e.store.ZRem(ctx, LeaderboardKey(mode), member); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if _, err := e.store.Del(ctx, PlayerBestKey(mode, name)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	metrics.RecordAdminOperation("delete")
	e.logger.Info(ctx, "entry deleted", logger.String("mode", mode), logger.String("name", name), logger.Int64("efficiency", eff))
	return nil
}

// Edit replaces the reduced old member with a fully specified new entry,
// moves the player's best key to the new name and re-trims the board.
func (e *Engine) Edit(ctx context.Context, req EditRequest) error {
	const op = "ranking.edit"
	sub, err := entry.ParseSubmission(req.Mode, req.NewName, req.NewScore, req.NewAccuracy, req.NewEfficiency)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	oldName := strings.TrimSpace(req.OldName)
	if oldName == "" {
		return fmt.Errorf("%s: %w: missing old name", op, ErrInvalidInput)
	}
	oldEff, err := entry.CoerceInt("old efficiency", req.OldEfficiency)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	boardKey := LeaderboardKey(sub.Mode)
	old := entry.Legacy{Name: oldName, Efficiency: oldEff}.Encode()
	if _, err := e.store.ZRem(ctx, boardKey, old); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	member := entry.New(sub, e.now()).Encode()
	if _, err := e.store.ZAdd(ctx, boardKey, float64(sub.Efficiency), member); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if oldName != sub.Name {
		if _, err := e.store.Del(ctx, PlayerBestKey(sub.Mode, oldName)); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	if err := e.store.Set(ctx, PlayerBestKey(sub.Mode, sub.Name), member); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := e.trim(ctx, sub.Mode); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	metrics.RecordAdminOperation("edit")
	e.logger.Info(ctx, "entry edited",
		logger.String("mode", sub.Mode),
		logger.String("old_name", oldName),
		logger.String("new_name", sub.Name),
		logger.Int64("efficiency", sub.Efficiency),
	)
	return nil
}

// ResetAll deletes the board of every known mode and returns the keys that
// existed. Player best keys are left in place because the store offers no
// key scan; a stale best can still reject a lower score after a reset.
func (e *Engine) ResetAll(ctx context.Context) ([]string, error) {
	const op = "ranking.reset"
	cleared := []string{}
	for _, mode := range e.modes {
		key := LeaderboardKey(mode)
		ok, err := e.store.Exists(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if !ok {
			continue
		}
		if _, err := e.store.Del(ctx, key); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		cleared = append(cleared, key)
		metrics.UpdateBoardSize(mode, 0)
	}
	metrics.RecordAdminOperation("reset")
	e.logger.Info(ctx, "boards reset", logger.Any("cleared", cleared))
	return cleared, nil
}

// Size returns the number of entries on a mode's board.
func (e *Engine) Size(ctx context.Context, mode string) (int64, error) {
	n, err := e.store.ZCard(ctx, LeaderboardKey(mode))
	if err != nil {
		return 0, fmt.Errorf("ranking.size: %w", err)
	}
	return n, nil
}

// Ping checks the store is reachable.
func (e *Engine) Ping(ctx context.Context) error {
	if err := e.store.Ping(ctx); err != nil {
		return fmt.Errorf("ranking.ping: %w", err)
	}
	return nil
}
