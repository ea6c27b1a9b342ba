package health

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rcardoso/zapboard/internal/config"
	"github.com/rcardoso/zapboard/pkg/models"
)

// healthStore keeps the singleton row in memory, initializing it on first
// update the way the database layer does.
type healthStore struct {
	cfg *config.Config
	row *models.SystemHealth
}

func (s *healthStore) UpdateSystemHealth(_ context.Context, fn func(h *models.SystemHealth)) (*models.SystemHealth, error) {
	if s.row == nil {
		s.row = &models.SystemHealth{
			Status:           models.StatusActive,
			LastExecution:    time.Now(),
			PerformanceScore: s.cfg.App.Health.DefaultScore,
		}
	}
	fn(s.row)
	s.row.UpdatedAt = time.Now()
	out := *s.row
	return &out, nil
}

func (s *healthStore) GetSystemHealth(_ context.Context) (*models.SystemHealth, error) {
	if s.row == nil {
		return nil, nil
	}
	out := *s.row
	return &out, nil
}

func testConfig() *config.Config {
	cfg := &config.Config{Location: time.UTC}
	cfg.App.Health.CriticalAfter = 5
	cfg.App.Health.MinScore = 90.0
	cfg.App.Health.FailurePenalty = 1.0
	cfg.App.Health.DefaultScore = 99.8
	cfg.App.Health.ResetAtMidnight = true
	return cfg
}

func newTestTracker() (*Tracker, *healthStore) {
	cfg := testConfig()
	store := &healthStore{cfg: cfg}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(store, cfg, logger), store
}

func TestFailuresDegradeThenCritical(t *testing.T) {
	tracker, _ := newTestTracker()
	ctx := context.Background()

	var h *models.SystemHealth
	var err error
	for i := 0; i < 5; i++ {
		h, err = tracker.RecordFailure(ctx)
		if err != nil {
			t.Fatalf("RecordFailure %d: %v", i+1, err)
		}
	}

	if h.Status != models.StatusDegraded {
		t.Errorf("status after 5 failures = %s, want %s", h.Status, models.StatusDegraded)
	}
	if h.FailuresLast24h != 5 {
		t.Errorf("failures = %d, want 5", h.FailuresLast24h)
	}

	h, err = tracker.RecordFailure(ctx)
	if err != nil {
		t.Fatalf("RecordFailure 6: %v", err)
	}
	if h.Status != models.StatusCritical {
		t.Errorf("status after 6 failures = %s, want %s", h.Status, models.StatusCritical)
	}
}

func TestScoreClampedAtFloor(t *testing.T) {
	tracker, _ := newTestTracker()
	ctx := context.Background()

	var h *models.SystemHealth
	for i := 0; i < 20; i++ {
		var err error
		h, err = tracker.RecordFailure(ctx)
		if err != nil {
			t.Fatal(err)
		}
	}

	if h.PerformanceScore != 90.0 {
		t.Errorf("score = %.2f, want clamped to 90.0", h.PerformanceScore)
	}
}

func TestSuccessKeepsFailureWindow(t *testing.T) {
	tracker, _ := newTestTracker()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := tracker.RecordFailure(ctx); err != nil {
			t.Fatal(err)
		}
	}

	h, err := tracker.RecordSuccess(ctx)
	if err != nil {
		t.Fatalf("RecordSuccess: %v", err)
	}
	if h.Status != models.StatusActive {
		t.Errorf("status = %s, want %s", h.Status, models.StatusActive)
	}
	if h.FailuresLast24h != 3 {
		t.Errorf("failures = %d, want 3 preserved across a success", h.FailuresLast24h)
	}

	// Another failure keeps counting from the standing window
	h, err = tracker.RecordFailure(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if h.FailuresLast24h != 4 {
		t.Errorf("failures = %d, want 4", h.FailuresLast24h)
	}
}

func TestResetWindow(t *testing.T) {
	tracker, _ := newTestTracker()
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		if _, err := tracker.RecordFailure(ctx); err != nil {
			t.Fatal(err)
		}
	}

	h, err := tracker.ResetWindow(ctx)
	if err != nil {
		t.Fatalf("ResetWindow: %v", err)
	}
	if h.FailuresLast24h != 0 {
		t.Errorf("failures = %d, want 0", h.FailuresLast24h)
	}
	if h.Status != models.StatusActive {
		t.Errorf("status = %s, want %s", h.Status, models.StatusActive)
	}
	if h.PerformanceScore != 99.8 {
		t.Errorf("score = %.2f, want restored default 99.8", h.PerformanceScore)
	}
}

func TestCurrentDefaultsWhenEmpty(t *testing.T) {
	tracker, _ := newTestTracker()

	h, err := tracker.Current(context.Background())
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if h.Status != models.StatusActive {
		t.Errorf("status = %s, want %s", h.Status, models.StatusActive)
	}
	if h.PerformanceScore != 99.8 {
		t.Errorf("score = %.2f, want default 99.8", h.PerformanceScore)
	}
}

func TestSetPartialUpdate(t *testing.T) {
	tracker, _ := newTestTracker()
	ctx := context.Background()

	if _, err := tracker.RecordFailure(ctx); err != nil {
		t.Fatal(err)
	}

	score := 95.5
	h, err := tracker.Set(ctx, nil, nil, &score)
	if err != nil {
		t.Fatalf("Set: %v", err)
	}
	if h.PerformanceScore != 95.5 {
		t.Errorf("score = %.2f, want 95.5", h.PerformanceScore)
	}
	if h.FailuresLast24h != 1 {
		t.Errorf("failures = %d, want untouched 1", h.FailuresLast24h)
	}
	if h.Status != models.StatusDegraded {
		t.Errorf("status = %s, want untouched %s", h.Status, models.StatusDegraded)
	}
}

func TestHandleFailureEvent(t *testing.T) {
	tracker, store := newTestTracker()

	payload, err := PipelineFailureEvent{
		Source:    "webhook",
		Reason:    "db timeout",
		Timestamp: time.Now(),
	}.Marshal()
	if err != nil {
		t.Fatal(err)
	}

	msg := message.NewMessage("1", payload)
	if err := tracker.HandleFailureEvent(msg); err != nil {
		t.Fatalf("HandleFailureEvent: %v", err)
	}

	if store.row == nil || store.row.FailuresLast24h != 1 {
		t.Errorf("expected one recorded failure, got %+v", store.row)
	}
}

func TestHandleMidnightEventHonorsConfig(t *testing.T) {
	tracker, store := newTestTracker()
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		if _, err := tracker.RecordFailure(ctx); err != nil {
			t.Fatal(err)
		}
	}

	payload, err := MidnightEvent{TriggeredAt: time.Now()}.Marshal()
	if err != nil {
		t.Fatal(err)
	}

	if err := tracker.HandleMidnightEvent(message.NewMessage("1", payload)); err != nil {
		t.Fatalf("HandleMidnightEvent: %v", err)
	}
	if store.row.FailuresLast24h != 0 {
		t.Errorf("failures = %d, want 0 after midnight reset", store.row.FailuresLast24h)
	}

	// The rollover is inert when the reset is disabled
	tracker.cfg.App.Health.ResetAtMidnight = false
	if _, err := tracker.RecordFailure(ctx); err != nil {
		t.Fatal(err)
	}
	if err := tracker.HandleMidnightEvent(message.NewMessage("2", payload)); err != nil {
		t.Fatalf("HandleMidnightEvent (disabled): %v", err)
	}
	if store.row.FailuresLast24h != 1 {
		t.Errorf("failures = %d, want 1 when reset disabled", store.row.FailuresLast24h)
	}
}
