package fixture

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"

	"github.com/buildflow/cashcast/pkg/logger"
)

const (
	directoryPermission = 0750

	// applyGracePeriod gives the async workers time to drain the batch
	// before the read endpoints are queried.
	applyGracePeriod = 2 * time.Second

	forecastHorizonMonths = 8
)

// Run executes a complete seeding pass: generate a portfolio, submit
// it, replay it to prove idempotency, then exercise the forecast and
// gap endpoints against the stored records.
func Run(ctx context.Context, cfg *Config) error {
	stats := &Stats{StartTime: time.Now()}

	logger.Get().Info(ctx, "starting portfolio seeding",
		logger.String("baseURL", cfg.BaseURL),
		logger.String("orgID", cfg.OrgID),
		logger.Int("projects", cfg.Projects),
		logger.Int("seed", int(cfg.Seed)),
	)

	client := newHTTPClient(cfg.Timeout)

	if err := checkServiceHealth(ctx, client, cfg); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	batch := Generate(ctx, cfg, stats)

	if err := submitBatch(ctx, client, cfg, batch, stats); err != nil {
		return fmt.Errorf("batch submission failed: %w", err)
	}

	logger.Get().Info(ctx, "waiting for batch to be applied")
	select {
	case <-ctx.Done():
		return fmt.Errorf("context cancelled while waiting for apply: %w", ctx.Err())
	case <-time.After(applyGracePeriod):
	}

	if err := queryForecast(ctx, client, cfg, stats); err != nil {
		return fmt.Errorf("forecast query failed: %w", err)
	}
	if err := queryGaps(ctx, client, cfg, stats); err != nil {
		return fmt.Errorf("gap query failed: %w", err)
	}

	if err := saveBatchToFile(ctx, cfg, batch); err != nil {
		logger.Get().Warn(ctx, "failed to save batch to file", logger.Error(err))
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(stats)

	logger.Get().Info(ctx, "seeding completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *HTTPClient, cfg *Config) error {
	resp, err := client.Get(ctx, cfg.BaseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	if _, err := readResponseBody(resp); err != nil {
		return fmt.Errorf("failed to read health response: %w", err)
	}
	if resp.StatusCode != 200 {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}
	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// submitBatch posts the batch, then posts it again and checks the
// duplicate acknowledgement.
func submitBatch(ctx context.Context, client *HTTPClient, cfg *Config, batch Batch, stats *Stats) error {
	endpoint := cfg.BaseURL + "/batches"

	ack, status, err := postBatch(ctx, client, endpoint, batch)
	if err != nil {
		return err
	}
	if status != 202 {
		return fmt.Errorf("unexpected status %d for first submission (ack: %q)", status, ack.Status)
	}
	stats.BatchAccepted = true
	logger.Get().Info(ctx, "batch accepted", logger.String("batchID", batch.BatchID))

	ack, status, err = postBatch(ctx, client, endpoint, batch)
	if err != nil {
		return fmt.Errorf("replay submission failed: %w", err)
	}
	if status == 200 && ack.Duplicate {
		stats.ReplayDetected = true
		logger.Get().Info(ctx, "replay correctly reported as duplicate")
	} else {
		logger.Get().Warn(ctx, "replay was not reported as duplicate",
			logger.Int("status", status),
			logger.String("ack", ack.Status),
		)
	}
	return nil
}

func postBatch(ctx context.Context, client *HTTPClient, endpoint string, batch Batch) (AckResponse, int, error) {
	resp, err := client.Post(ctx, endpoint, batch)
	if err != nil {
		return AckResponse{}, 0, fmt.Errorf("post failed: %w", err)
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return AckResponse{}, resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}
	var ack AckResponse
	if err := json.Unmarshal(body, &ack); err != nil {
		return AckResponse{}, resp.StatusCode, fmt.Errorf("failed to decode ack: %w", err)
	}
	return ack, resp.StatusCode, nil
}

// queryForecast runs a monthly forecast over the generated horizon.
func queryForecast(ctx context.Context, client *HTTPClient, cfg *Config, stats *Stats) error {
	start := monthStart(time.Now().UTC())
	end := start.AddDate(0, forecastHorizonMonths, -1)

	q := url.Values{}
	q.Set("org", cfg.OrgID)
	q.Set("start", day(start))
	q.Set("end", day(end))
	q.Set("granularity", "monthly")
	q.Set("opening", "100000")

	resp, err := client.Get(ctx, cfg.BaseURL+"/forecast?"+q.Encode())
	if err != nil {
		return fmt.Errorf("forecast request failed: %w", err)
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return fmt.Errorf("failed to read forecast response: %w", err)
	}
	if resp.StatusCode != 200 {
		return fmt.Errorf("forecast request failed with status: %d", resp.StatusCode)
	}

	var out struct {
		Periods        []json.RawMessage `json:"periods"`
		TotalNet       string            `json:"total_net"`
		ClosingBalance string            `json:"closing_balance"`
		EventCount     int               `json:"event_count"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return fmt.Errorf("failed to decode forecast response: %w", err)
	}
	stats.ForecastPeriods = len(out.Periods)

	logger.Get().Info(ctx, "forecast retrieved",
		logger.Int("periods", len(out.Periods)),
		logger.Int("events", out.EventCount),
		logger.String("totalNet", out.TotalNet),
		logger.String("closingBalance", out.ClosingBalance),
	)
	return nil
}

// queryGaps runs gap detection with a tight minimum so generated
// portfolios usually surface at least one gap.
func queryGaps(ctx context.Context, client *HTTPClient, cfg *Config, stats *Stats) error {
	q := url.Values{}
	q.Set("org", cfg.OrgID)
	q.Set("opening", "100000")
	q.Set("minimum", "50000")

	resp, err := client.Get(ctx, cfg.BaseURL+"/gaps?"+q.Encode())
	if err != nil {
		return fmt.Errorf("gaps request failed: %w", err)
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return fmt.Errorf("failed to read gaps response: %w", err)
	}
	if resp.StatusCode != 200 {
		return fmt.Errorf("gaps request failed with status: %d", resp.StatusCode)
	}

	var out struct {
		Reports []json.RawMessage `json:"reports"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return fmt.Errorf("failed to decode gaps response: %w", err)
	}
	stats.GapsDetected = len(out.Reports)

	logger.Get().Info(ctx, "gap report retrieved", logger.Int("gaps", len(out.Reports)))
	return nil
}

// saveBatchToFile dumps the generated batch as JSON for later replay.
func saveBatchToFile(ctx context.Context, cfg *Config, batch Batch) error {
	filename := cfg.OutputFile
	if filename == "" {
		return nil
	}

	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(batch, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal batch: %w", err)
	}
	if err := os.WriteFile(filename, data, 0600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	logger.Get().Info(ctx, "batch saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats prints the final seeding statistics.
func displayFinalStats(stats *Stats) {
	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("projects", stats.ProjectsGenerated),
		logger.Int("incomes", stats.IncomesGenerated),
		logger.Int("costs", stats.CostsGenerated),
		logger.Int("transactions", stats.TransactionsGenerated),
		logger.Any("batchAccepted", stats.BatchAccepted),
		logger.Any("replayDetected", stats.ReplayDetected),
		logger.Int("forecastPeriods", stats.ForecastPeriods),
		logger.Int("gapsDetected", stats.GapsDetected),
		logger.String("duration", stats.Duration.String()),
	)
}
