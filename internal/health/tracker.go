package health

import (
	"context"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rcardoso/zapboard/internal/config"
	"github.com/rcardoso/zapboard/pkg/models"
)

// Store is the persistence surface for the singleton health row
type Store interface {
	UpdateSystemHealth(ctx context.Context, fn func(h *models.SystemHealth)) (*models.SystemHealth, error)
	GetSystemHealth(ctx context.Context) (*models.SystemHealth, error)
}

// Tracker maintains the pipeline status record. It is driven by
// success/failure signals from the request-handling layer (via pub/sub or
// direct calls from the health endpoints), never by the ingestion path.
type Tracker struct {
	store  Store
	cfg    *config.Config
	logger *slog.Logger
}

// New creates a new health tracker
func New(store Store, cfg *config.Config, logger *slog.Logger) *Tracker {
	return &Tracker{store: store, cfg: cfg, logger: logger}
}

// applySuccess marks the pipeline alive. Standing failures are intentionally
// kept: a success means "currently running", not "healthy again".
func applySuccess(h *models.SystemHealth, now time.Time) {
	h.Status = models.StatusActive
	h.LastExecution = now
}

// applyFailure bumps the failure window and recomputes the status from the
// configured threshold.
func applyFailure(h *models.SystemHealth, cfg *config.Config) {
	h.FailuresLast24h++
	h.PerformanceScore -= cfg.App.Health.FailurePenalty
	if h.PerformanceScore < cfg.App.Health.MinScore {
		h.PerformanceScore = cfg.App.Health.MinScore
	}
	if h.FailuresLast24h > cfg.App.Health.CriticalAfter {
		h.Status = models.StatusCritical
	} else {
		h.Status = models.StatusDegraded
	}
}

// applyWindowReset starts a fresh 24h failure window
func applyWindowReset(h *models.SystemHealth, cfg *config.Config) {
	h.FailuresLast24h = 0
	h.PerformanceScore = cfg.App.Health.DefaultScore
	h.Status = models.StatusActive
}

// RecordSuccess marks a successful pipeline execution
func (t *Tracker) RecordSuccess(ctx context.Context) (*models.SystemHealth, error) {
	return t.store.UpdateSystemHealth(ctx, func(h *models.SystemHealth) {
		applySuccess(h, time.Now())
	})
}

// RecordFailure registers a pipeline failure and recomputes the status
func (t *Tracker) RecordFailure(ctx context.Context) (*models.SystemHealth, error) {
	return t.store.UpdateSystemHealth(ctx, func(h *models.SystemHealth) {
		applyFailure(h, t.cfg)
	})
}

// ResetWindow clears the rolling failure counter (daily rollover)
func (t *Tracker) ResetWindow(ctx context.Context) (*models.SystemHealth, error) {
	return t.store.UpdateSystemHealth(ctx, func(h *models.SystemHealth) {
		applyWindowReset(h, t.cfg)
	})
}

// Current returns the health row, or sensible defaults when none exists yet
func (t *Tracker) Current(ctx context.Context) (*models.SystemHealth, error) {
	h, err := t.store.GetSystemHealth(ctx)
	if err != nil {
		return nil, err
	}
	if h == nil {
		now := time.Now()
		h = &models.SystemHealth{
			Status:           models.StatusActive,
			LastExecution:    now,
			PerformanceScore: t.cfg.App.Health.DefaultScore,
			UpdatedAt:        now,
		}
	}
	return h, nil
}

// Set overwrites health fields with caller-supplied absolute values,
// leaving nil fields untouched.
func (t *Tracker) Set(ctx context.Context, status *string, failures *int64, score *float64) (*models.SystemHealth, error) {
	return t.store.UpdateSystemHealth(ctx, func(h *models.SystemHealth) {
		if status != nil {
			h.Status = *status
		}
		if failures != nil {
			h.FailuresLast24h = *failures
		}
		if score != nil {
			h.PerformanceScore = *score
		}
		h.LastExecution = time.Now()
	})
}

// HandleSuccessEvent processes a pipeline.success message
func (t *Tracker) HandleSuccessEvent(msg *message.Message) error {
	event, err := UnmarshalPipelineSuccessEvent(msg.Payload)
	if err != nil {
		t.logger.Error("failed to unmarshal success event", slog.String("error", err.Error()))
		return err
	}

	if _, err := t.RecordSuccess(msg.Context()); err != nil {
		t.logger.Error("failed to record pipeline success",
			slog.String("source", event.Source),
			slog.String("error", err.Error()))
		return err
	}

	return nil
}

// HandleFailureEvent processes a pipeline.failure message
func (t *Tracker) HandleFailureEvent(msg *message.Message) error {
	event, err := UnmarshalPipelineFailureEvent(msg.Payload)
	if err != nil {
		t.logger.Error("failed to unmarshal failure event", slog.String("error", err.Error()))
		return err
	}

	h, err := t.RecordFailure(msg.Context())
	if err != nil {
		t.logger.Error("failed to record pipeline failure",
			slog.String("source", event.Source),
			slog.String("error", err.Error()))
		return err
	}

	t.logger.Warn("pipeline failure recorded",
		slog.String("source", event.Source),
		slog.String("reason", event.Reason),
		slog.String("status", h.Status),
		slog.Int64("failures_last_24h", h.FailuresLast24h))

	return nil
}

// HandleMidnightEvent resets the 24h failure window at the daily rollover
func (t *Tracker) HandleMidnightEvent(msg *message.Message) error {
	if !t.cfg.App.Health.ResetAtMidnight {
		return nil
	}

	event, err := UnmarshalMidnightEvent(msg.Payload)
	if err != nil {
		t.logger.Error("failed to unmarshal midnight event", slog.String("error", err.Error()))
		return err
	}

	if _, err := t.ResetWindow(msg.Context()); err != nil {
		t.logger.Error("failed to reset failure window", slog.String("error", err.Error()))
		return err
	}

	t.logger.Info("failure window reset", slog.Time("triggered_at", event.TriggeredAt))
	return nil
}
