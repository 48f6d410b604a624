package model

import "time"

// Cadence names how often a rotation definition produces an occurrence.
type Cadence string

const (
	CadenceDaily   Cadence = "daily"
	CadenceWeekly  Cadence = "weekly"
	CadenceMonthly Cadence = "monthly"
)

// RotationDefinition describes one recurring responsibility: who takes
// turns (roster, in order), how often (cadence), and whose turn it is
// (current index).
type RotationDefinition struct {
	ID            int64     `json:"id"`
	GroupID       int64     `json:"group_id"`
	Name          string    `json:"name"`
	Cadence       Cadence   `json:"cadence"`
	WeeklyDays    []int     `json:"weekly_days,omitempty"`
	MonthlyDay    int       `json:"monthly_day,omitempty"`
	Roster        []int64   `json:"roster"`
	CurrentIndex  int       `json:"current_index"`
	AllowMultiple bool      `json:"allow_multiple"`
	IsActive      bool      `json:"is_active"`
	IsPaused      bool      `json:"is_paused"`
	Points        int       `json:"points"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// OnDuty returns the member at the current pointer, or 0 when the roster
// is empty.
func (d *RotationDefinition) OnDuty() int64 {
	if len(d.Roster) == 0 || d.CurrentIndex < 0 || d.CurrentIndex >= len(d.Roster) {
		return 0
	}
	return d.Roster[d.CurrentIndex]
}

// NextUp returns the member after the current pointer, wrapping around.
func (d *RotationDefinition) NextUp() int64 {
	if len(d.Roster) == 0 {
		return 0
	}
	return d.Roster[(d.CurrentIndex+1)%len(d.Roster)]
}

// AdvanceSource records what caused a rotation pointer advance.
type AdvanceSource string

const (
	SourceCompletion AdvanceSource = "completion"
	SourceDeletion   AdvanceSource = "deletion"
	SourceManualSkip AdvanceSource = "manual_skip"
)

// Event statuses. An advance on a paused definition is still recorded
// (audit continuity) but skips regeneration.
const (
	EventStatusApplied = "applied"
	EventStatusPaused  = "paused"
)

// RotationEvent is one append-only audit record of a pointer advance.
// Never mutated after creation.
type RotationEvent struct {
	ID                   int64         `json:"id"`
	RotationDefinitionID int64         `json:"rotation_definition_id"`
	PreviousIndex        int           `json:"previous_index"`
	NextIndex            int           `json:"next_index"`
	ChosenMemberID       int64         `json:"chosen_member_id"`
	Source               AdvanceSource `json:"source"`
	Reason               string        `json:"reason,omitempty"`
	Status               string        `json:"status"`
	CreatedAt            time.Time     `json:"created_at"`
}
