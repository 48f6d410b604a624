package rotation

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/mhollis/dutywheel/internal/feed"
	"github.com/mhollis/dutywheel/internal/store"
)

// Listener consumes the change-notification feed and turns completions,
// deletions, and skip requests into pointer advances. The feed delivers at
// least once, so every notification id is checked against the processed
// ledger before acting; redeliveries advance nothing.
type Listener struct {
	mu            sync.RWMutex
	bus           *feed.Bus
	notifications *store.NotificationStore
	advancer      *Advancer
	logger        *slog.Logger
	cancel        context.CancelFunc
	done          chan struct{}
}

func NewListener(bus *feed.Bus, notifications *store.NotificationStore, advancer *Advancer, logger *slog.Logger) *Listener {
	return &Listener{
		bus:           bus,
		notifications: notifications,
		advancer:      advancer,
		logger:        logger,
	}
}

// Start begins consuming the feed.
func (l *Listener) Start(ctx context.Context) {
	l.mu.Lock()
	ctx, l.cancel = context.WithCancel(ctx)
	l.done = make(chan struct{})
	l.mu.Unlock()

	go func() {
		defer close(l.done)
		for {
			select {
			case <-ctx.Done():
				return
			case n, ok := <-l.bus.Notifications():
				if !ok {
					return
				}
				l.Handle(n)
			}
		}
	}()
}

// Stop gracefully stops the listener.
func (l *Listener) Stop() {
	l.mu.RLock()
	cancel := l.cancel
	done := l.done
	l.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Handle processes one notification. Exported so tests (and synchronous
// transports) can deliver directly.
func (l *Listener) Handle(n feed.Notification) {
	first, err := l.notifications.MarkProcessed(n.ID)
	if err != nil {
		l.logger.Error("notification dedup check", "id", n.ID, "error", err)
		return
	}
	if !first {
		l.logger.Debug("duplicate notification dropped", "id", n.ID, "type", n.Type)
		return
	}

	// Instances are mapped to their rotation by the stored foreign key,
	// never by title; notifications without one are ad-hoc tasks.
	if n.RotationDefinitionID == 0 {
		return
	}

	switch n.Type {
	case feed.TypeInstanceCompleted:
		_, err = l.advancer.AdvanceForCompletion(n.RotationDefinitionID)
	case feed.TypeInstanceDeleted:
		_, err = l.advancer.AdvanceForDeletion(n.RotationDefinitionID, n.FirstAssignee)
	case feed.TypeSkipRequested:
		_, err = l.advancer.Skip(n.RotationDefinitionID, "skip requested via feed")
	case feed.TypeInstanceCreated:
		// Creation needs no engine reaction; it exists for outbound sync.
		return
	default:
		l.logger.Warn("unknown notification type", "type", n.Type)
		return
	}

	if err != nil {
		// The definition may have been deleted between the instance change
		// and this delivery; that is not an engine fault.
		if errors.Is(err, ErrDefinitionNotFound) {
			l.logger.Debug("notification for missing definition", "definition", n.RotationDefinitionID)
			return
		}
		l.logger.Error("advance from notification",
			"type", n.Type, "definition", n.RotationDefinitionID, "error", err)
	}
}
