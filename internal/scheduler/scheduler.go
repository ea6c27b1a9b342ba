package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rcardoso/zapboard/internal/config"
	"github.com/rcardoso/zapboard/internal/health"
	"github.com/samber/do"
)

// Scheduler publishes the daily rollover event that resets the health
// failure window
type Scheduler struct {
	publisher message.Publisher
	config    *config.Config
	logger    watermill.LoggerAdapter

	// Channel to stop the scheduler
	stopCh chan struct{}
}

// New creates a new scheduler instance
func New(publisher message.Publisher, config *config.Config, logger watermill.LoggerAdapter) *Scheduler {
	return &Scheduler{
		publisher: publisher,
		config:    config,
		logger:    logger,
		stopCh:    make(chan struct{}),
	}
}

// Start starts the scheduler with midnight cron job
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("Starting scheduler", nil)

	go s.runMidnightScheduler(ctx)

	select {
	case <-ctx.Done():
		s.logger.Info("Scheduler context cancelled", nil)
		return nil
	case <-s.stopCh:
		s.logger.Info("Scheduler stopped", nil)
		return nil
	}
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	close(s.stopCh)
}

// runMidnightScheduler checks every minute whether the configured timezone
// reached midnight
func (s *Scheduler) runMidnightScheduler(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case now := <-ticker.C:
			localTime := now.In(s.config.Location)
			if s.isMidnight(localTime) {
				s.logger.Info("Midnight reached, triggering daily rollover", watermill.LogFields{
					"time": localTime.Format("2006-01-02 15:04:05"),
				})

				if err := s.publishMidnightEvent(localTime); err != nil {
					s.logger.Error("Failed to publish midnight event", err, nil)
				}
			}
		}
	}
}

// isMidnight checks if the given time is midnight (00:00)
func (s *Scheduler) isMidnight(t time.Time) bool {
	return t.Hour() == 0 && t.Minute() == 0
}

// publishMidnightEvent publishes the daily rollover event
func (s *Scheduler) publishMidnightEvent(timestamp time.Time) error {
	event := health.MidnightEvent{
		TriggeredAt: timestamp,
	}

	msgData, err := event.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal midnight event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), msgData)
	return s.publisher.Publish(health.TopicMidnight, msg)
}

// RegisterDI registers scheduler in DI container
func RegisterDI(container *do.Injector) {
	do.Provide(container, func(i *do.Injector) (*Scheduler, error) {
		publisher := do.MustInvoke[message.Publisher](i)
		config := do.MustInvoke[*config.Config](i)
		logger := do.MustInvoke[watermill.LoggerAdapter](i)

		return New(publisher, config, logger), nil
	})
}
