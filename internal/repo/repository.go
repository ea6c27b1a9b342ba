package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rcardoso/zapboard/pkg/models"
)

// Repository provides database operations
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new repository instance
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Message operations (append-only, never mutated after creation)

func (r *Repository) AppendTextMessage(ctx context.Context, m *models.TextMessage) error {
	query := `
		INSERT INTO text_messages (sender, message, message_id, is_group, group_name, quoted_message, received_at, processed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE)
		RETURNING id`

	return r.pool.QueryRow(ctx, query, m.Sender, m.Message, m.MessageID, m.IsGroup, m.GroupName, m.QuotedMessage, m.ReceivedAt).Scan(&m.ID)
}

func (r *Repository) AppendAudioMessage(ctx context.Context, m *models.AudioMessage) error {
	query := `
		INSERT INTO audio_messages (sender, audio_base64, audio_mime_type, duration, transcription, message_id, received_at, processed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE)
		RETURNING id`

	return r.pool.QueryRow(ctx, query, m.Sender, m.AudioBase64, m.AudioMimeType, m.Duration, m.Transcription, m.MessageID, m.ReceivedAt).Scan(&m.ID)
}

func (r *Repository) AppendMediaMessage(ctx context.Context, m *models.MediaMessage) error {
	query := `
		INSERT INTO media_messages (sender, media_base64, media_type, mime_type, file_name, file_size, caption, message_id, received_at, processed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, FALSE)
		RETURNING id`

	return r.pool.QueryRow(ctx, query, m.Sender, m.MediaBase64, m.MediaType, m.MimeType, m.FileName, m.FileSize, m.Caption, m.MessageID, m.ReceivedAt).Scan(&m.ID)
}

// Interaction operations

// LogInteraction inserts the interaction and counts the sender's rows in one
// transaction. Counting after the insert makes the first-ever interaction
// yield exactly 1. An advisory lock on the sender serializes concurrent
// inserts for the same sender; without it two racing first messages would
// each count only their own row and both look like a new lead.
func (r *Repository) LogInteraction(ctx context.Context, in *models.Interaction) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if in.Sender != nil {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, *in.Sender); err != nil {
			return 0, fmt.Errorf("failed to lock sender: %w", err)
		}
	}

	insert := `
		INSERT INTO interactions (time, type, message, response, sender, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	if err := tx.QueryRow(ctx, insert, in.Time, in.Type, in.Message, in.Response, in.Sender, in.CreatedAt).Scan(&in.ID); err != nil {
		return 0, fmt.Errorf("failed to insert interaction: %w", err)
	}

	var senderCount int64
	if in.Sender != nil {
		count := `SELECT COUNT(*) FROM interactions WHERE sender = $1`
		if err := tx.QueryRow(ctx, count, *in.Sender).Scan(&senderCount); err != nil {
			return 0, fmt.Errorf("failed to count sender interactions: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit interaction: %w", err)
	}

	return senderCount, nil
}

func (r *Repository) ListInteractions(ctx context.Context, limit int) ([]*models.Interaction, error) {
	query := `
		SELECT id, time, type, message, response, sender, created_at
		FROM interactions
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var interactions []*models.Interaction
	for rows.Next() {
		in := &models.Interaction{}
		err := rows.Scan(&in.ID, &in.Time, &in.Type, &in.Message, &in.Response, &in.Sender, &in.CreatedAt)
		if err != nil {
			return nil, err
		}
		interactions = append(interactions, in)
	}

	return interactions, rows.Err()
}

// CountDistinctSenders returns the number of unique leads recorded across
// all message kinds (interactions are the cross-kind log).
func (r *Repository) CountDistinctSenders(ctx context.Context) (int64, error) {
	query := `SELECT COUNT(DISTINCT sender) FROM interactions WHERE sender IS NOT NULL`

	var count int64
	if err := r.pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count distinct senders: %w", err)
	}

	return count, nil
}

// CountMessagesSince returns per-kind message counts received at or after since
func (r *Repository) CountMessagesSince(ctx context.Context, since time.Time) (text, audio, media int64, err error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM text_messages WHERE received_at >= $1),
			(SELECT COUNT(*) FROM audio_messages WHERE received_at >= $1),
			(SELECT COUNT(*) FROM media_messages WHERE received_at >= $1)`

	if err = r.pool.QueryRow(ctx, query, since).Scan(&text, &audio, &media); err != nil {
		return 0, 0, 0, fmt.Errorf("failed to count recent messages: %w", err)
	}

	return text, audio, media, nil
}

// CountMediaMessages returns the all-time media message count
func (r *Repository) CountMediaMessages(ctx context.Context) (int64, error) {
	var count int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM media_messages`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count media messages: %w", err)
	}
	return count, nil
}

// Bot stats operations (singleton row, id = 1)

func (r *Repository) GetBotStats(ctx context.Context) (*models.BotStats, error) {
	query := `
		SELECT total_messages, audio_converted, responses_sent, leads_attended,
		       automation_rate, uptime, average_response_time, messages_per_day,
		       total_media_messages, last_updated
		FROM bot_stats WHERE id = 1`

	stats := &models.BotStats{}
	err := r.pool.QueryRow(ctx, query).Scan(
		&stats.TotalMessages, &stats.AudioConverted, &stats.ResponsesSent, &stats.LeadsAttended,
		&stats.AutomationRate, &stats.Uptime, &stats.AverageResponseTime, &stats.MessagesPerDay,
		&stats.TotalMediaMessages, &stats.LastUpdated,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return stats, nil
}

// IncrementStats applies deltas to the singleton counters row in a single
// atomic upsert so concurrent increments are never lost.
func (r *Repository) IncrementStats(ctx context.Context, d models.StatDeltas) error {
	query := `
		INSERT INTO bot_stats (id, total_messages, audio_converted, responses_sent, leads_attended, total_media_messages, last_updated)
		VALUES (1, $1, $2, $3, $4, $5, $6)
		ON CONFLICT (id)
		DO UPDATE SET
			total_messages = bot_stats.total_messages + EXCLUDED.total_messages,
			audio_converted = bot_stats.audio_converted + EXCLUDED.audio_converted,
			responses_sent = bot_stats.responses_sent + EXCLUDED.responses_sent,
			leads_attended = bot_stats.leads_attended + EXCLUDED.leads_attended,
			total_media_messages = bot_stats.total_media_messages + EXCLUDED.total_media_messages,
			last_updated = EXCLUDED.last_updated`

	_, err := r.pool.Exec(ctx, query, d.Messages, d.AudioConverted, d.ResponsesSent, d.LeadsAttended, d.MediaMessages, time.Now())
	if err != nil {
		return fmt.Errorf("failed to increment bot stats: %w", err)
	}

	return nil
}

// SetBotStats overwrites the singleton counters row with absolute values
func (r *Repository) SetBotStats(ctx context.Context, stats *models.BotStats) error {
	query := `
		INSERT INTO bot_stats (id, total_messages, audio_converted, responses_sent, leads_attended,
		                       automation_rate, uptime, average_response_time, messages_per_day,
		                       total_media_messages, last_updated)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id)
		DO UPDATE SET
			total_messages = EXCLUDED.total_messages,
			audio_converted = EXCLUDED.audio_converted,
			responses_sent = EXCLUDED.responses_sent,
			leads_attended = EXCLUDED.leads_attended,
			automation_rate = EXCLUDED.automation_rate,
			uptime = EXCLUDED.uptime,
			average_response_time = EXCLUDED.average_response_time,
			messages_per_day = EXCLUDED.messages_per_day,
			total_media_messages = EXCLUDED.total_media_messages,
			last_updated = EXCLUDED.last_updated`

	stats.LastUpdated = time.Now()
	_, err := r.pool.Exec(ctx, query, stats.TotalMessages, stats.AudioConverted, stats.ResponsesSent,
		stats.LeadsAttended, stats.AutomationRate, stats.Uptime, stats.AverageResponseTime,
		stats.MessagesPerDay, stats.TotalMediaMessages, stats.LastUpdated)
	if err != nil {
		return fmt.Errorf("failed to set bot stats: %w", err)
	}

	return nil
}

// SetDerivedStats writes back the self-healed derived fields computed by the
// dashboard read path.
func (r *Repository) SetDerivedStats(ctx context.Context, leads, perDay, mediaTotal int64) error {
	query := `
		INSERT INTO bot_stats (id, leads_attended, messages_per_day, total_media_messages, last_updated)
		VALUES (1, $1, $2, $3, $4)
		ON CONFLICT (id)
		DO UPDATE SET
			leads_attended = EXCLUDED.leads_attended,
			messages_per_day = EXCLUDED.messages_per_day,
			total_media_messages = EXCLUDED.total_media_messages,
			last_updated = EXCLUDED.last_updated`

	_, err := r.pool.Exec(ctx, query, leads, perDay, mediaTotal, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set derived stats: %w", err)
	}

	return nil
}

// Daily metric operations (one row per calendar day, keyed by date)

// UpsertDailyMetric creates or increments the rollup row for date. The date
// must already be truncated to midnight by the caller.
func (r *Repository) UpsertDailyMetric(ctx context.Context, date time.Time, day string, textDelta, audioDelta int64) error {
	query := `
		INSERT INTO daily_metrics (date, day, text_messages, audio_messages, total_messages, updated_at)
		VALUES ($1, $2, $3, $4, $3 + $4, $5)
		ON CONFLICT (date)
		DO UPDATE SET
			text_messages = daily_metrics.text_messages + EXCLUDED.text_messages,
			audio_messages = daily_metrics.audio_messages + EXCLUDED.audio_messages,
			total_messages = daily_metrics.total_messages + EXCLUDED.total_messages,
			updated_at = EXCLUDED.updated_at`

	_, err := r.pool.Exec(ctx, query, date, day, textDelta, audioDelta, time.Now())
	if err != nil {
		return fmt.Errorf("failed to upsert daily metric: %w", err)
	}

	return nil
}

func (r *Repository) ListDailyMetrics(ctx context.Context, from time.Time) ([]*models.DailyMetric, error) {
	query := `
		SELECT id, date, day, text_messages, audio_messages, total_messages, updated_at
		FROM daily_metrics
		WHERE date >= $1
		ORDER BY date ASC`

	rows, err := r.pool.Query(ctx, query, from)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var metrics []*models.DailyMetric
	for rows.Next() {
		m := &models.DailyMetric{}
		err := rows.Scan(&m.ID, &m.Date, &m.Day, &m.TextMessages, &m.AudioMessages, &m.TotalMessages, &m.UpdatedAt)
		if err != nil {
			return nil, err
		}
		metrics = append(metrics, m)
	}

	return metrics, rows.Err()
}

// System health operations (singleton row, id = 1)

func (r *Repository) GetSystemHealth(ctx context.Context) (*models.SystemHealth, error) {
	query := `
		SELECT status, last_execution, failures_last_24h, performance_score, updated_at
		FROM system_health WHERE id = 1`

	h := &models.SystemHealth{}
	err := r.pool.QueryRow(ctx, query).Scan(&h.Status, &h.LastExecution, &h.FailuresLast24h, &h.PerformanceScore, &h.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return h, nil
}

// UpdateSystemHealth applies fn to the singleton health row under a row
// lock, creating the row with defaults first when absent. The lock keeps
// concurrent failure/success recordings from losing updates.
func (r *Repository) UpdateSystemHealth(ctx context.Context, fn func(h *models.SystemHealth)) (*models.SystemHealth, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `INSERT INTO system_health (id) VALUES (1) ON CONFLICT (id) DO NOTHING`); err != nil {
		return nil, fmt.Errorf("failed to ensure system health row: %w", err)
	}

	h := &models.SystemHealth{}
	selectQuery := `
		SELECT status, last_execution, failures_last_24h, performance_score, updated_at
		FROM system_health WHERE id = 1
		FOR UPDATE`
	if err := tx.QueryRow(ctx, selectQuery).Scan(&h.Status, &h.LastExecution, &h.FailuresLast24h, &h.PerformanceScore, &h.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to read system health: %w", err)
	}

	fn(h)
	h.UpdatedAt = time.Now()

	updateQuery := `
		UPDATE system_health
		SET status = $1, last_execution = $2, failures_last_24h = $3, performance_score = $4, updated_at = $5
		WHERE id = 1`
	if _, err := tx.Exec(ctx, updateQuery, h.Status, h.LastExecution, h.FailuresLast24h, h.PerformanceScore, h.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to update system health: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit system health: %w", err)
	}

	return h, nil
}

// TruncateDashboardTables clears the derived/demo tables before seeding
func (r *Repository) TruncateDashboardTables(ctx context.Context) error {
	for _, table := range []string{"interactions", "daily_metrics", "bot_stats", "system_health"} {
		if _, err := r.pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s", table)); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return nil
}
