package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/rollcall/internal/domain/types"
	"github.com/okian/rollcall/internal/smoketest"
	"github.com/okian/rollcall/pkg/logger"
)

// Default configuration constants.
const (
	defaultTimeout    = 10 * time.Second
	defaultRunTimeout = 5 * time.Minute
)

func main() {
	var (
		baseURL = flag.String("url", "http://localhost:9080", "Base URL of the service")
		date    = flag.String("date", types.Today().String(), "Day to mark, YYYY-MM-DD")
		workers = flag.Int("workers", runtime.NumCPU(), "Number of concurrent section requests")
		timeout = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		format  = flag.String("log-format", logger.FormatText, "Log format: text or json")
		verbose = flag.Bool("verbose", false, "Log every section")
	)
	flag.Parse()

	if err := logger.Init(logger.WithFormat(*format)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	if _, err := types.ParseDate(*date); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	if _, err := smoketest.Run(ctx, &smoketest.Config{
		BaseURL: *baseURL,
		Date:    *date,
		Workers: *workers,
		Timeout: *timeout,
		Verbose: *verbose,
	}); err != nil {
		logger.Get().Error(ctx, "smoke run failed", logger.Error(err))
		os.Exit(1)
	}
}
