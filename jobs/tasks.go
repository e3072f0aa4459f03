package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLedgerReconcile verifies movement sums against on-hand stock.
	TaskLedgerReconcile = "ledger:reconcile"
	// TaskReportWarmup pre-populates the reporting cache.
	TaskReportWarmup = "reporting:warmup"
)

// LedgerReconcilePayload configures a reconciliation sweep.
type LedgerReconcilePayload struct {
	// FailFast stops at the first mismatching product instead of
	// reporting all of them.
	FailFast bool `json:"fail_fast"`
}

// NewLedgerReconcileTask constructs the reconciliation task.
func NewLedgerReconcileTask(payload LedgerReconcilePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerReconcile, data), nil
}

// ReportWarmupPayload configures a cache warmup run.
type ReportWarmupPayload struct {
	Days int `json:"days"`
}

// NewReportWarmupTask constructs the warmup task.
func NewReportWarmupTask(payload ReportWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReportWarmup, data), nil
}
