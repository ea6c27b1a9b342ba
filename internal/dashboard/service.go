package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/rcardoso/zapboard/internal/config"
	"github.com/rcardoso/zapboard/internal/health"
	"github.com/rcardoso/zapboard/internal/repo"
	"github.com/rcardoso/zapboard/pkg/models"
)

// Snapshot is the composed read-side view the dashboard polls
type Snapshot struct {
	BotStats           *models.BotStats      `json:"botStats"`
	DailyMetrics       []*models.DailyMetric `json:"dailyMetrics"`
	RecentInteractions []*models.Interaction `json:"recentInteractions"`
	SystemHealth       *models.SystemHealth  `json:"systemHealth"`
}

// Service composes entity reads into the dashboard snapshot
type Service struct {
	repo    *repo.Repository
	tracker *health.Tracker
	cfg     *config.Config
	logger  *slog.Logger
}

// New creates the dashboard service
func New(repo *repo.Repository, tracker *health.Tracker, cfg *config.Config, logger *slog.Logger) *Service {
	return &Service{repo: repo, tracker: tracker, cfg: cfg, logger: logger}
}

// Snapshot builds the dashboard view. Stored leadsAttended, messagesPerDay
// and totalMediaMessages are not trusted verbatim: they are recounted from
// live queries and written back, healing any drift left by best-effort
// counter updates.
func (s *Service) Snapshot(ctx context.Context) (*Snapshot, error) {
	days := s.cfg.App.Limits.DashboardDays
	now := time.Now().In(s.cfg.Location)
	windowStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.cfg.Location).
		AddDate(0, 0, -(days - 1))

	stats, err := s.repo.GetBotStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read bot stats: %w", err)
	}
	if stats == nil {
		stats = &models.BotStats{
			Uptime:              0.998,
			AverageResponseTime: 1.2,
			LastUpdated:         now,
		}
	}

	// Self-heal derived counters from the source tables
	leads, err := s.repo.CountDistinctSenders(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count leads: %w", err)
	}

	text, audio, media, err := s.repo.CountMessagesSince(ctx, windowStart)
	if err != nil {
		return nil, fmt.Errorf("failed to count recent messages: %w", err)
	}
	perDay := int64(math.Round(float64(text+audio+media) / float64(days)))

	mediaTotal, err := s.repo.CountMediaMessages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count media messages: %w", err)
	}

	stats.LeadsAttended = leads
	stats.MessagesPerDay = perDay
	stats.TotalMediaMessages = mediaTotal

	if err := s.repo.SetDerivedStats(ctx, leads, perDay, mediaTotal); err != nil {
		// Read still succeeds; the write-back is itself best-effort
		s.logger.Error("failed to write back derived stats", slog.String("error", err.Error()))
	}

	metrics, err := s.repo.ListDailyMetrics(ctx, windowStart)
	if err != nil {
		return nil, fmt.Errorf("failed to list daily metrics: %w", err)
	}
	metrics = s.fillMissingDays(metrics, windowStart, days)

	interactions, err := s.repo.ListInteractions(ctx, s.cfg.App.Limits.RecentInteractions)
	if err != nil {
		return nil, fmt.Errorf("failed to list interactions: %w", err)
	}

	healthRow, err := s.tracker.Current(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read system health: %w", err)
	}

	return &Snapshot{
		BotStats:           stats,
		DailyMetrics:       metrics,
		RecentInteractions: interactions,
		SystemHealth:       healthRow,
	}, nil
}

// fillMissingDays pads the trend window with zeroed rows so the chart always
// shows a full week, oldest first.
func (s *Service) fillMissingDays(metrics []*models.DailyMetric, windowStart time.Time, days int) []*models.DailyMetric {
	byDate := make(map[string]*models.DailyMetric, len(metrics))
	for _, m := range metrics {
		byDate[m.Date.In(s.cfg.Location).Format("2006-01-02")] = m
	}

	filled := make([]*models.DailyMetric, 0, days)
	for i := 0; i < days; i++ {
		date := windowStart.AddDate(0, 0, i)
		if m, ok := byDate[date.Format("2006-01-02")]; ok {
			filled = append(filled, m)
			continue
		}
		filled = append(filled, &models.DailyMetric{
			Date: date,
			Day:  s.cfg.DayLabel(date),
		})
	}

	return filled
}
