// Package fixture generates a deterministic sample construction
// portfolio and submits it to a running service instance over HTTP.
package fixture

import "time"

// Config holds configuration for a seeding run.
type Config struct {
	BaseURL    string        // Base URL of the service
	OrgID      string        // Organization to seed
	Projects   int           // Number of projects to generate
	Seed       int64         // Random seed; same seed, same portfolio
	Timeout    time.Duration // HTTP request timeout
	OutputFile string        // Optional file to dump the generated batch
	LogFile    string        // Log file for run output
	Verbose    bool          // Enable verbose logging
}

// Batch is the wire shape accepted by POST /batches.
type Batch struct {
	BatchID       string        `json:"batch_id"`
	OrgID         string        `json:"org_id"`
	Projects      []Project     `json:"projects"`
	IncomeRecords []Income      `json:"income_records"`
	CostRecords   []Cost        `json:"cost_records"`
	Transactions  []Transaction `json:"transactions"`
}

// Project is a generated construction project.
type Project struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Income is a generated milestone income record.
type Income struct {
	ID           string `json:"id"`
	ProjectID    string `json:"project_id"`
	Amount       string `json:"amount"`
	ExpectedDate string `json:"expected_date"`
	Status       string `json:"status"`
	Description  string `json:"description"`
}

// CostLine is one payment of an itemized cost record.
type CostLine struct {
	Amount      string `json:"amount"`
	OffsetDays  int    `json:"offset_days"`
	Description string `json:"description"`
}

// Cost is a generated cost record anchored to a milestone.
type Cost struct {
	ID          string     `json:"id"`
	ProjectID   string     `json:"project_id"`
	IncomeID    string     `json:"income_id"`
	Source      string     `json:"source"`
	Mode        string     `json:"mode"`
	Amount      string     `json:"amount"`
	OffsetDays  int        `json:"offset_days"`
	Lines       []CostLine `json:"lines"`
	Status      string     `json:"status"`
	Description string     `json:"description"`
}

// Transaction is a generated actual bank transaction.
type Transaction struct {
	ID          string `json:"id"`
	ProjectID   string `json:"project_id"`
	Amount      string `json:"amount"`
	OccurredAt  string `json:"occurred_at"`
	Direction   string `json:"direction"`
	Source      string `json:"source"`
	Basis       string `json:"basis"`
	Description string `json:"description"`
}

// AckResponse is the response from batch submission.
type AckResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// Stats holds seeding run statistics.
type Stats struct {
	ProjectsGenerated     int
	IncomesGenerated      int
	CostsGenerated        int
	TransactionsGenerated int
	BatchAccepted         bool
	ReplayDetected        bool
	ForecastPeriods       int
	GapsDetected          int
	StartTime             time.Time
	EndTime               time.Time
	Duration              time.Duration
}
