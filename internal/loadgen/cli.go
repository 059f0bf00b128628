// Package loadgen drives a running ranking service with concurrent score
// submissions and checks the resulting boards.
package loadgen

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/topboard/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging initializes the logger to write to stdout and a log file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string, verbose bool) (io.Closer, error) {
	if logFile == "" {
		logFile = "loadgen_" + time.Now().Format("20060102_150405") + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	if err := logger.Init(logger.WithWriter(io.MultiWriter(os.Stdout, file))); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		_ = logger.SetLevelString("debug")
	}
	return file, nil
}

// ShowHelp prints usage information for the load generator.
func ShowHelp() {
	os.Stdout.WriteString(`topboard load generator
=======================

Submits concurrent scores to a running service, then reads every board and
checks its invariants.

Usage:
  go run ./cmd/loadgen [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -players int
        Distinct players to simulate (default 200)
  -submissions int
        Total submissions (default 1000)
  -modes string
        Comma-separated modes (default "grid,flick,tracking,switching,microshot")
  -board int
        Entries the service keeps per mode (default 50)
  -workers int
        Concurrent submitters (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 10s)
  -secret string
        Admin bearer secret (default $TOPBOARD_ADMIN_SECRET)
  -reset
        Clear every board first; enables best-score checks
  -output string
        Write generated submissions to this JSON file
  -log string
        Log file (default: loadgen_TIMESTAMP.log)
  -verbose
        Log every failed request
  -help
        Show this help message

The service limits submissions per client; run it with
TOPBOARD_SUBMIT_RATE_PER_SEC=0 for large runs.

Examples:
  go run ./cmd/loadgen -reset -secret s3cret
  go run ./cmd/loadgen -players 1000 -submissions 20000 -workers 32
`)
}
