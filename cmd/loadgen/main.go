package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/okian/topboard/internal/loadgen"
)

// Default configuration constants.
const (
	defaultPlayers     = 200
	defaultSubmissions = 1000
	defaultBoardSize   = 50
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 10 * time.Second
	defaultRunTimeout  = 30 * time.Minute
	defaultModes       = "grid,flick,tracking,switching,microshot"
)

func main() {
	var (
		baseURL     = flag.String("url", "http://localhost:9080", "Base URL of the service")
		players     = flag.Int("players", defaultPlayers, "Distinct players to simulate")
		submissions = flag.Int("submissions", defaultSubmissions, "Total submissions")
		modes       = flag.String("modes", defaultModes, "Comma-separated modes")
		boardSize   = flag.Int("board", defaultBoardSize, "Entries the service keeps per mode")
		workers     = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Concurrent submitters")
		timeout     = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		secret      = flag.String("secret", os.Getenv("TOPBOARD_ADMIN_SECRET"), "Admin bearer secret")
		reset       = flag.Bool("reset", false, "Clear every board first")
		outputFile  = flag.String("output", "", "Write generated submissions to this JSON file")
		logFile     = flag.String("log", "", "Log file (default: loadgen_TIMESTAMP.log)")
		verbose     = flag.Bool("verbose", false, "Log every failed request")
		help        = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		loadgen.ShowHelp()
		return
	}

	closer, err := loadgen.SetupLogging(*logFile, *verbose)
	if err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultRunTimeout)
	defer cancel()

	config := &loadgen.Config{
		BaseURL:     strings.TrimRight(*baseURL, "/"),
		Players:     *players,
		Submissions: *submissions,
		Modes:       splitModes(*modes),
		BoardSize:   *boardSize,
		Workers:     *workers,
		Timeout:     *timeout,
		AdminSecret: *secret,
		Reset:       *reset,
		OutputFile:  *outputFile,
		Verbose:     *verbose,
	}

	if _, err := loadgen.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Load run failed: " + err.Error() + "\n")
		cancel()
		stop()
		_ = closer.Close()
		os.Exit(1)
	}
}

func splitModes(s string) []string {
	var out []string
	for _, m := range strings.Split(s, ",") {
		if m = strings.TrimSpace(m); m != "" {
			out = append(out, m)
		}
	}
	return out
}
