package loadgen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/okian/topboard/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
	filePermission      = 0600
)

// ErrVerification reports board invariant violations after a run.
var ErrVerification = errors.New("board verification failed")

// Validate checks the run configuration.
func (c *Config) Validate() error {
	switch {
	case c.BaseURL == "":
		return errors.New("base url is required")
	case c.Players < 1:
		return errors.New("players must be at least 1")
	case c.Submissions < 1:
		return errors.New("submissions must be at least 1")
	case len(c.Modes) == 0:
		return errors.New("at least one mode is required")
	case c.BoardSize < 1:
		return errors.New("board size must be at least 1")
	case c.Workers < 1:
		return errors.New("workers must be at least 1")
	case c.Reset && c.AdminSecret == "":
		return errors.New("reset needs the admin secret")
	}
	return nil
}

// Run executes a complete load run and verifies the boards afterwards.
// The returned Stats are filled in even when verification fails.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	l := logger.Named("loadgen")
	stats := &Stats{StartTime: time.Now()}
	client := NewClient(config.BaseURL, config.AdminSecret, config.Timeout)

	l.Info(ctx, "starting load run",
		logger.String("baseURL", config.BaseURL),
		logger.Int("players", config.Players),
		logger.Int("submissions", config.Submissions),
		logger.Any("modes", config.Modes),
		logger.Int("workers", config.Workers),
	)

	// Step 1: Check service readiness
	if err := client.Ready(ctx); err != nil {
		return nil, fmt.Errorf("service readiness check failed: %w", err)
	}

	// Step 2: Start from empty boards
	if config.Reset {
		cleared, err := client.Reset(ctx)
		if err != nil {
			return nil, fmt.Errorf("reset failed: %w", err)
		}
		l.Info(ctx, "boards reset", logger.Any("cleared", cleared))
	}

	// Step 3: Generate submissions
	subs := Generate(config)
	stats.Generated = len(subs)

	// Step 4: Submit concurrently
	processed := submitAll(ctx, l, client, config, subs, stats)
	if err := ctx.Err(); err != nil {
		return stats, fmt.Errorf("run interrupted: %w", err)
	}

	// Step 5: Read and verify every board
	strict := config.Reset && stats.Failed == 0
	if !strict {
		l.Warn(ctx, "checking structure only; best-score checks need -reset and no failed submissions")
	}
	expected := ExpectedBests(processed)
	for _, mode := range config.Modes {
		rows, err := client.Rankings(ctx, mode)
		if err != nil {
			return stats, fmt.Errorf("rankings for %s: %w", mode, err)
		}
		stats.Boards++
		var want map[string]int64
		if strict {
			want = expected[mode]
			if want == nil {
				want = map[string]int64{}
			}
		}
		stats.Violations = append(stats.Violations, VerifyBoard(mode, rows, config.BoardSize, want)...)
		l.Info(ctx, "board checked", logger.String("mode", mode), logger.Int("rows", len(rows)))
	}

	// Step 6: Save submissions to file
	if config.OutputFile != "" {
		if err := saveSubmissions(config.OutputFile, subs); err != nil {
			l.Warn(ctx, "failed to save submissions", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, l, stats)

	if len(stats.Violations) > 0 {
		for _, v := range stats.Violations {
			l.Error(ctx, "violation", logger.String("detail", v))
		}
		return stats, fmt.Errorf("%w: %d violations", ErrVerification, len(stats.Violations))
	}
	l.Info(ctx, "load run completed successfully")
	return stats, nil
}

// submitAll fans submissions out to workers. A player's submissions always
// land on the same worker so they reach the service in order. It returns
// the submissions the service answered.
func submitAll(ctx context.Context, l logger.Logger, client *Client, config *Config, subs []Submission, stats *Stats) []Submission {
	var (
		submitted, accepted, rejected, limited, failed atomic.Int64
		mu                                             sync.Mutex
		processed                                      = make([]Submission, 0, len(subs))
		wg                                             sync.WaitGroup
	)

	queues := make([]chan Submission, config.Workers)
	for i := range queues {
		queues[i] = make(chan Submission, WorkerChannelMultiplier)
		wg.Add(1)
		go func(in <-chan Submission) {
			defer wg.Done()
			for s := range in {
				res, retries, err := submitWithRetry(ctx, client, s)
				submitted.Add(1)
				limited.Add(int64(retries))
				switch {
				case err != nil:
					failed.Add(1)
					if config.Verbose {
						l.Warn(ctx, "submission failed", logger.String("name", s.Name), logger.Error(err))
					}
					continue
				case res.Accepted:
					accepted.Add(1)
				default:
					rejected.Add(1)
				}
				mu.Lock()
				processed = append(processed, s)
				mu.Unlock()
			}
		}(queues[i])
	}

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(progressInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				l.Info(ctx, "progress",
					logger.Int64("submitted", submitted.Load()),
					logger.Int("total", len(subs)),
					logger.Int64("failed", failed.Load()),
				)
			}
		}
	}()

feed:
	for _, s := range subs {
		q := queues[xxhash.Sum64String(s.Name)%uint64(len(queues))]
		select {
		case <-ctx.Done():
			break feed
		case q <- s:
		}
	}
	for _, q := range queues {
		close(q)
	}
	wg.Wait()
	close(done)

	stats.Submitted = int(submitted.Load())
	stats.Accepted = int(accepted.Load())
	stats.Rejected = int(rejected.Load())
	stats.RateLimited = int(limited.Load())
	stats.Failed = int(failed.Load())
	return processed
}

// submitWithRetry retries 429 answers with capped exponential backoff.
func submitWithRetry(ctx context.Context, client *Client, s Submission) (SubmitResult, int, error) {
	delay := retryDelay
	for attempt := 0; ; attempt++ {
		res, err := client.Submit(ctx, s)
		if !errors.Is(err, ErrRateLimited) || attempt >= maxRateRetries {
			return res, attempt, err
		}
		select {
		case <-ctx.Done():
			return SubmitResult{}, attempt, ctx.Err()
		case <-time.After(delay):
		}
		delay = min(delay*2, maxRetryDelay)
	}
}

// saveSubmissions writes subs as a JSON array.
func saveSubmissions(filename string, subs []Submission) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(subs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal submissions: %w", err)
	}
	if err := os.WriteFile(filename, data, filePermission); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, l logger.Logger, stats *Stats) {
	var acceptRate, perSecond float64
	if stats.Submitted > 0 {
		acceptRate = float64(stats.Accepted) / float64(stats.Submitted) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		perSecond = float64(stats.Submitted) / stats.Duration.Seconds()
	}

	l.Info(ctx, "final statistics",
		logger.Int("generated", stats.Generated),
		logger.Int("submitted", stats.Submitted),
		logger.Int("accepted", stats.Accepted),
		logger.Int("rejected", stats.Rejected),
		logger.Int("rateLimitedRetries", stats.RateLimited),
		logger.Int("failed", stats.Failed),
		logger.Int("boards", stats.Boards),
		logger.Int("violations", len(stats.Violations)),
		logger.Duration("duration", stats.Duration),
		logger.Float64("acceptRate", acceptRate),
		logger.Float64("submissionsPerSecond", perSecond),
	)
}
