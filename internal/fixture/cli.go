package fixture

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/buildflow/cashcast/pkg/logger"
)

const logFilePermission = 0600

// SetupLogging configures logging to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string) error {
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "seed_log_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	multiWriter := io.MultiWriter(os.Stdout, file)
	log.SetOutput(multiWriter)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the seeding tool.
func ShowHelp() {
	os.Stdout.WriteString(`Cashcast Portfolio Seeder
=========================

Generates a deterministic sample construction portfolio and submits it
to a running cashcast instance, then exercises the forecast and gap
endpoints.

Usage:
  go run cmd/seed/main.go [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -org string
        Organization id to seed (default "demo")
  -projects int
        Number of projects to generate (default 5)
  -seed int
        Random seed; the same seed produces the same portfolio (default 1)
  -timeout duration
        HTTP request timeout (default 30s)
  -output string
        Optional file to dump the generated batch as JSON
  -log string
        Log file for run output (default: seed_log_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Seed with default settings
  go run cmd/seed/main.go

  # Seed a bigger portfolio against a remote instance
  go run cmd/seed/main.go -projects 20 -url http://forecast.internal:9080

  # Reproduce a known portfolio and keep the payload
  go run cmd/seed/main.go -seed 42 -output portfolio_42.json
`)
}
