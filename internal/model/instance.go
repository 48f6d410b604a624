package model

import "time"

// TaskInstance is one concrete, datable materialization of a rotation
// definition for a specific occurrence. RotationDefinitionID is nil for
// ad-hoc tasks that share the table but do not rotate.
type TaskInstance struct {
	ID                   int64                `json:"id"`
	GroupID              int64                `json:"group_id"`
	RotationDefinitionID *int64               `json:"rotation_definition_id"`
	Title                string               `json:"title"`
	Assignees            []int64              `json:"assignees"`
	DueDate              string               `json:"due_date"` // yyyy-mm-dd, group-local calendar date
	Points               int                  `json:"points"`
	CreatedAt            time.Time            `json:"created_at"`
	Completions          []InstanceCompletion `json:"completions,omitempty"`
}

// FirstAssignee returns the first assignee, or -1 when the instance has
// none. The sentinel keeps reconciliation grouping total.
func (i *TaskInstance) FirstAssignee() int64 {
	if len(i.Assignees) == 0 {
		return -1
	}
	return i.Assignees[0]
}

// Completed reports whether the instance has at least one completion record.
func (i *TaskInstance) Completed() bool {
	return len(i.Completions) > 0
}

// InstanceCompletion records one member completing an instance.
type InstanceCompletion struct {
	ID          int64     `json:"id"`
	InstanceID  int64     `json:"instance_id"`
	CompletedBy int64     `json:"completed_by"`
	CompletedAt time.Time `json:"completed_at"`
}
