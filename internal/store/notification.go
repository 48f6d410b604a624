package store

import (
	"database/sql"
	"fmt"
	"time"
)

// NotificationStore is the listener's dedup ledger. The change feed delivers
// at least once; a notification id lands here exactly once.
type NotificationStore struct {
	db *sql.DB
}

func NewNotificationStore(db *sql.DB) *NotificationStore {
	return &NotificationStore{db: db}
}

// MarkProcessed records a notification id and reports whether this call was
// the first to do so. INSERT OR IGNORE makes the check-and-record a single
// atomic statement, so two deliveries of the same notification cannot both
// see "first".
func (s *NotificationStore) MarkProcessed(id string) (bool, error) {
	result, err := s.db.Exec(`INSERT OR IGNORE INTO processed_notifications (id) VALUES (?)`, id)
	if err != nil {
		return false, fmt.Errorf("mark notification processed: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

// PruneBefore drops ledger entries older than the cutoff. The feed never
// redelivers beyond its retry horizon, so old entries only cost space.
func (s *NotificationStore) PruneBefore(cutoff time.Time) (int64, error) {
	result, err := s.db.Exec(`DELETE FROM processed_notifications WHERE processed_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune notifications: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
