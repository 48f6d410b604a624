package rotation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mhollis/dutywheel/internal/store"
)

// Sweeper periodically runs the ensure-today cycle for every group, so
// instances appear on schedule even when no client triggers generation.
type Sweeper struct {
	mu       sync.RWMutex
	service  *Service
	groups   *store.GroupStore
	interval time.Duration
	logger   *slog.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewSweeper(service *Service, groups *store.GroupStore, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Sweeper{
		service:  service,
		groups:   groups,
		interval: interval,
		logger:   logger,
	}
}

// Start begins the sweep loop.
func (s *Sweeper) Start(ctx context.Context) {
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
				s.tick()
			}
		}
	}()
}

// Stop gracefully stops the sweeper.
func (s *Sweeper) Stop() {
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

func (s *Sweeper) tick() {
	groups, err := s.groups.List()
	if err != nil {
		s.logger.Error("sweep: list groups", "error", err)
		return
	}

	for _, g := range groups {
		result, err := s.service.EnsureToday(g.ID)
		if err != nil {
			s.logger.Error("sweep: ensure today", "group", g.ID, "error", err)
		}
		if result.Created > 0 || result.Deleted > 0 {
			s.logger.Info("sweep cycle", "group", g.ID, "created", result.Created, "deleted", result.Deleted)
		}
	}
}
