package loadgen

import "time"

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
)

// Retry configuration for rate-limited submissions.
const (
	retryDelay     = 50 * time.Millisecond
	maxRetryDelay  = 2 * time.Second
	maxRateRetries = 200
)

// Runner configuration constants.
const (
	PercentageMultiplier = 100
	progressInterval     = time.Second
)
