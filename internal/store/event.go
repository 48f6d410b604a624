package store

import (
	"database/sql"
	"fmt"

	"github.com/mhollis/dutywheel/internal/model"
)

// RotationEventStore writes and reads the append-only advance audit trail.
// Events are never updated or deleted individually; they go away only when
// their definition is removed (cascade).
type RotationEventStore struct {
	db *sql.DB
}

func NewRotationEventStore(db *sql.DB) *RotationEventStore {
	return &RotationEventStore{db: db}
}

const eventCols = `id, rotation_definition_id, previous_index, next_index, chosen_member_id, source, reason, status, created_at`

func scanEvent(scanner interface{ Scan(...any) error }) (*model.RotationEvent, error) {
	var e model.RotationEvent
	err := scanner.Scan(
		&e.ID, &e.RotationDefinitionID, &e.PreviousIndex, &e.NextIndex,
		&e.ChosenMemberID, &e.Source, &e.Reason, &e.Status, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *RotationEventStore) Create(ev *model.RotationEvent) (*model.RotationEvent, error) {
	result, err := s.db.Exec(
		`INSERT INTO rotation_events (rotation_definition_id, previous_index, next_index, chosen_member_id, source, reason, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.RotationDefinitionID, ev.PreviousIndex, ev.NextIndex,
		ev.ChosenMemberID, ev.Source, ev.Reason, ev.Status,
	)
	if err != nil {
		return nil, fmt.Errorf("insert rotation event: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	row := s.db.QueryRow(`SELECT `+eventCols+` FROM rotation_events WHERE id = ?`, id)
	e, err := scanEvent(row)
	if err != nil {
		return nil, fmt.Errorf("get rotation event: %w", err)
	}
	return e, nil
}

func (s *RotationEventStore) ListByDefinition(definitionID int64) ([]model.RotationEvent, error) {
	rows, err := s.db.Query(
		`SELECT `+eventCols+` FROM rotation_events WHERE rotation_definition_id = ? ORDER BY created_at DESC, id DESC`,
		definitionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list rotation events: %w", err)
	}
	defer rows.Close()

	var events []model.RotationEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rotation event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}
