// Package jobs defines the asynq background tasks and worker bootstrap.
package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/shelfline/shelfline/internal/cogs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskCOGSBackfill records COGS for sold items that missed it, e.g.
	// items skipped by a bulk sale's partial-success policy.
	TaskCOGSBackfill = "cogs:backfill"
)

// COGSBackfillPayload bounds one backfill sweep.
type COGSBackfillPayload struct {
	Limit int `json:"limit"`
}

// NewCOGSBackfillTask constructs the backfill task.
func NewCOGSBackfillTask(payload COGSBackfillPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCOGSBackfill, data), nil
}

// NewCOGSBackfillHandler binds the recorder service into an asynq handler.
func NewCOGSBackfillHandler(svc *cogs.Service, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload COGSBackfillPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		recorded, err := svc.Backfill(ctx, payload.Limit)
		if err != nil {
			return err
		}
		logger.Info("cogs backfill finished", slog.Int("recorded", recorded))
		return nil
	}
}
