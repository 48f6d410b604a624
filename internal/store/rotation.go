package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/mhollis/dutywheel/internal/model"
)

type RotationStore struct {
	db *sql.DB
}

func NewRotationStore(db *sql.DB) *RotationStore {
	return &RotationStore{db: db}
}

const rotationCols = `id, group_id, name, cadence, weekly_days, monthly_day, roster, current_index, allow_multiple, is_active, is_paused, points, created_at, updated_at`

func scanRotation(scanner interface{ Scan(...any) error }) (*model.RotationDefinition, error) {
	var d model.RotationDefinition
	var weeklyDays, roster string

	err := scanner.Scan(
		&d.ID, &d.GroupID, &d.Name, &d.Cadence, &weeklyDays, &d.MonthlyDay,
		&roster, &d.CurrentIndex, &d.AllowMultiple, &d.IsActive, &d.IsPaused,
		&d.Points, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(weeklyDays), &d.WeeklyDays); err != nil {
		return nil, fmt.Errorf("decode weekly_days: %w", err)
	}
	if err := json.Unmarshal([]byte(roster), &d.Roster); err != nil {
		return nil, fmt.Errorf("decode roster: %w", err)
	}
	return &d, nil
}

func encodeInts[T int | int64](vals []T) string {
	if vals == nil {
		vals = []T{}
	}
	b, _ := json.Marshal(vals)
	return string(b)
}

func (s *RotationStore) Create(def *model.RotationDefinition) (*model.RotationDefinition, error) {
	result, err := s.db.Exec(
		`INSERT INTO rotation_definitions (group_id, name, cadence, weekly_days, monthly_day, roster, current_index, allow_multiple, is_active, is_paused, points)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		def.GroupID, def.Name, def.Cadence, encodeInts(def.WeeklyDays), def.MonthlyDay,
		encodeInts(def.Roster), def.CurrentIndex, def.AllowMultiple, def.IsActive,
		def.IsPaused, def.Points,
	)
	if err != nil {
		return nil, fmt.Errorf("insert rotation definition: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *RotationStore) GetByID(id int64) (*model.RotationDefinition, error) {
	row := s.db.QueryRow(`SELECT `+rotationCols+` FROM rotation_definitions WHERE id = ?`, id)
	d, err := scanRotation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get rotation definition: %w", err)
	}
	return d, nil
}

func (s *RotationStore) ListByGroup(groupID int64) ([]model.RotationDefinition, error) {
	rows, err := s.db.Query(
		`SELECT `+rotationCols+` FROM rotation_definitions WHERE group_id = ? ORDER BY name ASC`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("list rotation definitions: %w", err)
	}
	defer rows.Close()

	var defs []model.RotationDefinition
	for rows.Next() {
		d, err := scanRotation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rotation definition: %w", err)
		}
		defs = append(defs, *d)
	}
	return defs, rows.Err()
}

// ListActiveByGroup returns the group's active definitions, paused included.
// Callers that must skip paused definitions check IsPaused themselves.
func (s *RotationStore) ListActiveByGroup(groupID int64) ([]model.RotationDefinition, error) {
	rows, err := s.db.Query(
		`SELECT `+rotationCols+` FROM rotation_definitions WHERE group_id = ? AND is_active = 1 ORDER BY name ASC`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("list active rotation definitions: %w", err)
	}
	defer rows.Close()

	var defs []model.RotationDefinition
	for rows.Next() {
		d, err := scanRotation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rotation definition: %w", err)
		}
		defs = append(defs, *d)
	}
	return defs, rows.Err()
}

func (s *RotationStore) Update(def *model.RotationDefinition) (*model.RotationDefinition, error) {
	_, err := s.db.Exec(
		`UPDATE rotation_definitions
		 SET name = ?, cadence = ?, weekly_days = ?, monthly_day = ?, roster = ?, current_index = ?, allow_multiple = ?, is_active = ?, points = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		def.Name, def.Cadence, encodeInts(def.WeeklyDays), def.MonthlyDay,
		encodeInts(def.Roster), def.CurrentIndex, def.AllowMultiple, def.IsActive,
		def.Points, def.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update rotation definition: %w", err)
	}
	return s.GetByID(def.ID)
}

func (s *RotationStore) SetPaused(id int64, paused bool) (*model.RotationDefinition, error) {
	_, err := s.db.Exec(
		`UPDATE rotation_definitions SET is_paused = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		paused, id,
	)
	if err != nil {
		return nil, fmt.Errorf("set paused: %w", err)
	}
	return s.GetByID(id)
}

func (s *RotationStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM rotation_definitions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete rotation definition: %w", err)
	}
	return nil
}

// AdvanceIndex moves the rotation pointer with a conditional write keyed on
// the previous index value. It returns false when another writer advanced
// first (the row no longer holds fromIndex); the caller treats that as a
// stale advance and drops it.
func (s *RotationStore) AdvanceIndex(id int64, fromIndex, toIndex int) (bool, error) {
	result, err := s.db.Exec(
		`UPDATE rotation_definitions SET current_index = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND current_index = ?`,
		toIndex, id, fromIndex,
	)
	if err != nil {
		return false, fmt.Errorf("advance index: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}
