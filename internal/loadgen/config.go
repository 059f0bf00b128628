package loadgen

import "time"

// Config holds configuration for a load run.
type Config struct {
	BaseURL     string        // Base URL of the service
	Players     int           // Distinct players to simulate
	Submissions int           // Total score submissions
	Modes       []string      // Modes submissions are spread over
	BoardSize   int           // Entries the service keeps per mode
	Workers     int           // Concurrent submitters
	Timeout     time.Duration // HTTP request timeout
	AdminSecret string        // Bearer secret; enables the initial reset
	Reset       bool          // Clear every board before submitting
	OutputFile  string        // Optional JSON dump of generated submissions
	Verbose     bool          // Log every rejected or failed request
}

// Submission is one POST /scores body.
type Submission struct {
	Mode       string `json:"mode"`
	Name       string `json:"name"`
	Score      int64  `json:"score"`
	Accuracy   string `json:"accuracy"`
	Efficiency int64  `json:"efficiency"`
}

// SubmitResult mirrors the service's submission response.
type SubmitResult struct {
	Accepted bool `json:"accepted"`
	Rank     int  `json:"rank"`
}

// Row is one line of GET /rankings.
type Row struct {
	Rank       int      `json:"rank"`
	Name       string   `json:"name"`
	Score      *int64   `json:"score,omitempty"`
	Accuracy   *float64 `json:"accuracy,omitempty"`
	Efficiency int64    `json:"efficiency"`
	Date       string   `json:"date,omitempty"`
}

// Stats holds run statistics.
type Stats struct {
	Generated   int
	Submitted   int
	Accepted    int
	Rejected    int
	RateLimited int
	Failed      int
	Boards      int
	Violations  []string
	StartTime   time.Time
	EndTime     time.Time
	Duration    time.Duration
}
