package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/buildflow/cashcast/internal/fixture"
)

// Default configuration constants.
const (
	defaultProjects    = 5
	defaultSeed        = 1
	defaultTimeout     = 30 * time.Second
	defaultRunTimeout  = 5 * time.Minute
	defaultOrgID       = "demo"
	defaultServiceBase = "http://localhost:9080"
)

func main() {
	var (
		baseURL    = flag.String("url", defaultServiceBase, "Base URL of the service")
		orgID      = flag.String("org", defaultOrgID, "Organization id to seed")
		projects   = flag.Int("projects", defaultProjects, "Number of projects to generate")
		seed       = flag.Int64("seed", defaultSeed, "Random seed; same seed, same portfolio")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		outputFile = flag.String("output", "", "Optional file to dump the generated batch")
		logFile    = flag.String("log", "", "Log file for run output (default: seed_log_TIMESTAMP.log)")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		fixture.ShowHelp()
		return
	}

	if err := fixture.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	cfg := &fixture.Config{
		BaseURL:    *baseURL,
		OrgID:      *orgID,
		Projects:   *projects,
		Seed:       *seed,
		Timeout:    *timeout,
		OutputFile: *outputFile,
		LogFile:    *logFile,
		Verbose:    *verbose,
	}

	if err := fixture.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("Seeding failed: " + err.Error() + "\n")
		return
	}
}
