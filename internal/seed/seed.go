package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rcardoso/zapboard/internal/config"
	"github.com/rcardoso/zapboard/internal/repo"
	"github.com/rcardoso/zapboard/pkg/models"
)

type dayCounts struct {
	text  int64
	audio int64
}

// Run clears the dashboard tables and loads a demo dataset
func Run(ctx context.Context, r *repo.Repository, cfg *config.Config, logger *slog.Logger) error {
	if err := r.TruncateDashboardTables(ctx); err != nil {
		return fmt.Errorf("failed to clear existing data: %w", err)
	}

	if err := r.SetBotStats(ctx, &models.BotStats{
		TotalMessages:       1247,
		AudioConverted:      342,
		ResponsesSent:       1189,
		LeadsAttended:       89,
		AutomationRate:      0.92,
		Uptime:              0.998,
		AverageResponseTime: 1.2,
	}); err != nil {
		return fmt.Errorf("failed to seed bot stats: %w", err)
	}

	week := []dayCounts{
		{45, 12}, {52, 18}, {38, 15}, {61, 22}, {55, 19}, {28, 8}, {22, 6},
	}

	now := time.Now().In(cfg.Location)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, cfg.Location)
	for i, counts := range week {
		date := today.AddDate(0, 0, -(len(week) - 1 - i))
		if err := r.UpsertDailyMetric(ctx, date, cfg.DayLabel(date), counts.text, counts.audio); err != nil {
			return fmt.Errorf("failed to seed daily metric: %w", err)
		}
	}

	interactions := []models.Interaction{
		{Time: "14:32", Type: "texto", Message: "Olá, gostaria de saber sobre preços", Response: "Enviada"},
		{Time: "14:28", Type: "áudio", Message: `Áudio convertido: "Qual o horário de funcionamento?"`, Response: "Enviada"},
		{Time: "14:25", Type: "texto", Message: "Preciso de ajuda com meu pedido", Response: "Enviada"},
		{Time: "14:20", Type: "áudio", Message: `Áudio convertido: "Obrigado pelo atendimento"`, Response: "Enviada"},
		{Time: "14:15", Type: "texto", Message: "Como faço para cancelar?", Response: "Enviada"},
	}

	for i := range interactions {
		in := interactions[i]
		in.CreatedAt = time.Now().Add(-time.Duration(i) * time.Minute)
		if _, err := r.LogInteraction(ctx, &in); err != nil {
			return fmt.Errorf("failed to seed interaction: %w", err)
		}
	}

	if _, err := r.UpdateSystemHealth(ctx, func(h *models.SystemHealth) {
		h.Status = models.StatusActive
		h.LastExecution = time.Now()
		h.FailuresLast24h = 0
		h.PerformanceScore = cfg.App.Health.DefaultScore
	}); err != nil {
		return fmt.Errorf("failed to seed system health: %w", err)
	}

	logger.Info("Demo dataset loaded",
		slog.Int("daily_metrics", len(week)),
		slog.Int("interactions", len(interactions)))

	return nil
}
