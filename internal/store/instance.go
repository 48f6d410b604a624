package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/mhollis/dutywheel/internal/model"
)

type InstanceStore struct {
	db *sql.DB
}

func NewInstanceStore(db *sql.DB) *InstanceStore {
	return &InstanceStore{db: db}
}

const instanceCols = `id, group_id, rotation_definition_id, title, assignees, due_date, points, created_at`

func scanInstance(scanner interface{ Scan(...any) error }) (*model.TaskInstance, error) {
	var i model.TaskInstance
	var defID sql.NullInt64
	var assignees string

	err := scanner.Scan(
		&i.ID, &i.GroupID, &defID, &i.Title, &assignees, &i.DueDate,
		&i.Points, &i.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if defID.Valid {
		i.RotationDefinitionID = &defID.Int64
	}
	if err := json.Unmarshal([]byte(assignees), &i.Assignees); err != nil {
		return nil, fmt.Errorf("decode assignees: %w", err)
	}
	return &i, nil
}

func (s *InstanceStore) Create(inst *model.TaskInstance) (*model.TaskInstance, error) {
	var defID sql.NullInt64
	if inst.RotationDefinitionID != nil {
		defID = sql.NullInt64{Int64: *inst.RotationDefinitionID, Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO task_instances (group_id, rotation_definition_id, title, assignees, due_date, points)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		inst.GroupID, defID, inst.Title, encodeInts(inst.Assignees), inst.DueDate, inst.Points,
	)
	if err != nil {
		return nil, fmt.Errorf("insert instance: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *InstanceStore) GetByID(id int64) (*model.TaskInstance, error) {
	row := s.db.QueryRow(`SELECT `+instanceCols+` FROM task_instances WHERE id = ?`, id)
	i, err := scanInstance(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get instance: %w", err)
	}
	if err := s.attachCompletions(i); err != nil {
		return nil, err
	}
	return i, nil
}

// ListForDay returns the group's instances due on the given yyyy-mm-dd date,
// completions attached, ordered oldest-created first (insertion order breaks
// same-second ties).
func (s *InstanceStore) ListForDay(groupID int64, dueDate string) ([]model.TaskInstance, error) {
	rows, err := s.db.Query(
		`SELECT `+instanceCols+` FROM task_instances WHERE group_id = ? AND due_date = ? ORDER BY created_at ASC, id ASC`,
		groupID, dueDate,
	)
	if err != nil {
		return nil, fmt.Errorf("list instances for day: %w", err)
	}
	defer rows.Close()

	var instances []model.TaskInstance
	for rows.Next() {
		i, err := scanInstance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan instance: %w", err)
		}
		instances = append(instances, *i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for idx := range instances {
		if err := s.attachCompletions(&instances[idx]); err != nil {
			return nil, err
		}
	}
	return instances, nil
}

// ListForDayByTitle narrows ListForDay to one definition's title; the
// generator uses it for its existence check before inserting.
func (s *InstanceStore) ListForDayByTitle(groupID int64, dueDate, title string) ([]model.TaskInstance, error) {
	rows, err := s.db.Query(
		`SELECT `+instanceCols+` FROM task_instances WHERE group_id = ? AND due_date = ? AND title = ? ORDER BY created_at ASC, id ASC`,
		groupID, dueDate, title,
	)
	if err != nil {
		return nil, fmt.Errorf("list instances by title: %w", err)
	}
	defer rows.Close()

	var instances []model.TaskInstance
	for rows.Next() {
		i, err := scanInstance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan instance: %w", err)
		}
		instances = append(instances, *i)
	}
	return instances, rows.Err()
}

func (s *InstanceStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM task_instances WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete instance: %w", err)
	}
	return nil
}

func (s *InstanceStore) attachCompletions(inst *model.TaskInstance) error {
	completions, err := s.ListCompletions(inst.ID)
	if err != nil {
		return err
	}
	inst.Completions = completions
	return nil
}

// --- Completion methods ---

const instCompletionCols = `id, instance_id, completed_by, completed_at`

func scanInstCompletion(scanner interface{ Scan(...any) error }) (*model.InstanceCompletion, error) {
	var c model.InstanceCompletion
	err := scanner.Scan(&c.ID, &c.InstanceID, &c.CompletedBy, &c.CompletedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *InstanceStore) CreateCompletion(instanceID, completedBy int64) (*model.InstanceCompletion, error) {
	result, err := s.db.Exec(
		`INSERT INTO instance_completions (instance_id, completed_by) VALUES (?, ?)`,
		instanceID, completedBy,
	)
	if err != nil {
		return nil, fmt.Errorf("insert completion: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	row := s.db.QueryRow(`SELECT `+instCompletionCols+` FROM instance_completions WHERE id = ?`, id)
	c, err := scanInstCompletion(row)
	if err != nil {
		return nil, fmt.Errorf("get completion: %w", err)
	}
	return c, nil
}

func (s *InstanceStore) DeleteCompletion(id int64) error {
	_, err := s.db.Exec(`DELETE FROM instance_completions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete completion: %w", err)
	}
	return nil
}

func (s *InstanceStore) ListCompletions(instanceID int64) ([]model.InstanceCompletion, error) {
	rows, err := s.db.Query(
		`SELECT `+instCompletionCols+` FROM instance_completions WHERE instance_id = ? ORDER BY completed_at ASC, id ASC`,
		instanceID,
	)
	if err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}
	defer rows.Close()

	var completions []model.InstanceCompletion
	for rows.Next() {
		c, err := scanInstCompletion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		completions = append(completions, *c)
	}
	return completions, rows.Err()
}
