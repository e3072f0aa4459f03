package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/meridian-erp/meridian-erp/internal/reporting"
)

// ReportWarmupJob pre-populates the reporting cache so the first
// dashboard hit after an invalidation does not pay the query cost.
type ReportWarmupJob struct {
	reports *reporting.Service
	logger  *slog.Logger
}

// NewReportWarmupJob constructs ReportWarmupJob.
func NewReportWarmupJob(reports *reporting.Service, logger *slog.Logger) *ReportWarmupJob {
	return &ReportWarmupJob{reports: reports, logger: logger}
}

// Handle processes one warmup task.
func (j *ReportWarmupJob) Handle(ctx context.Context, task *asynq.Task) error {
	payload := ReportWarmupPayload{Days: 30}
	if len(task.Payload()) > 0 {
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return fmt.Errorf("jobs: decode warmup payload: %w", err)
		}
	}
	if payload.Days <= 0 {
		payload.Days = 30
	}

	now := time.Now().UTC()
	from := now.AddDate(0, 0, -payload.Days)

	if _, err := j.reports.Profit(ctx, from, now); err != nil {
		return fmt.Errorf("jobs: warm profit report: %w", err)
	}
	if _, err := j.reports.Valuation(ctx); err != nil {
		return fmt.Errorf("jobs: warm valuation report: %w", err)
	}
	if _, err := j.reports.Dashboard(ctx); err != nil {
		return fmt.Errorf("jobs: warm dashboard report: %w", err)
	}

	j.logger.Info("reporting cache warmed", slog.Int("days", payload.Days))
	return nil
}
