package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/volunteerhub/volunteerhub/internal/model"
	"github.com/volunteerhub/volunteerhub/internal/notify"
	"github.com/volunteerhub/volunteerhub/internal/store"
)

// ExpirySweeper periodically closes events whose end time has passed and
// notifies their owners through the pipeline.
type ExpirySweeper struct {
	mu       sync.RWMutex
	events   *store.EventStore
	pipeline *notify.Pipeline
	interval time.Duration
	logger   *slog.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewExpirySweeper(events *store.EventStore, pipeline *notify.Pipeline, logger *slog.Logger) *ExpirySweeper {
	return &ExpirySweeper{
		events:   events,
		pipeline: pipeline,
		interval: 60 * time.Second,
		logger:   logger,
	}
}

// Start begins the sweep loop.
func (s *ExpirySweeper) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Sweep(ctx)
			}
		}
	}()
}

// Stop gracefully stops the sweeper.
func (s *ExpirySweeper) Stop() {
	s.mu.RLock()
	cancel := s.cancel
	done := s.done
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Sweep runs one pass: expire overdue events and notify each owner.
func (s *ExpirySweeper) Sweep(ctx context.Context) {
	var expired []model.Event

	// SQLite may briefly return busy under write load; retry the read with
	// backoff before giving up on this pass.
	backoff := retry.WithMaxRetries(3, retry.NewExponential(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		events, err := s.events.ListExpired(time.Now())
		if err != nil {
			return retry.RetryableError(err)
		}
		expired = events
		return nil
	})
	if err != nil {
		s.logger.Error("list expired events", "error", err)
		return
	}

	for _, event := range expired {
		if err := s.events.MarkExpired(event.ID); err != nil {
			s.logger.Error("mark event expired", "event_id", event.ID, "error", err)
			continue
		}

		_, err := s.pipeline.CreateAndDeliver(ctx, notify.CreateInput{
			ReceiverID: event.OwnerID,
			Title:      "Event ended",
			Message:    fmt.Sprintf("Your event %q has ended.", event.Title),
			Type:       model.NotifTypeEventExpired,
			Data:       map[string]any{"event_id": event.ID},
		})
		if err != nil {
			s.logger.Error("notify event owner", "event_id", event.ID, "error", err)
		}
	}
}
