package rotation

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/mhollis/dutywheel/internal/model"
	"github.com/mhollis/dutywheel/internal/store"
)

// Advancer moves a definition's rotation pointer to the next roster slot.
// The pointer update is a conditional write keyed on the previous index, so
// two racing advances for the same starting index produce exactly one
// increment: the loser's write matches zero rows and its advance is dropped.
type Advancer struct {
	rotations *store.RotationStore
	events    *store.RotationEventStore
	generator *Generator
	logger    *slog.Logger
	now       func() time.Time
}

func NewAdvancer(rotations *store.RotationStore, events *store.RotationEventStore, generator *Generator, logger *slog.Logger) *Advancer {
	return &Advancer{
		rotations: rotations,
		events:    events,
		generator: generator,
		logger:    logger,
		now:       time.Now,
	}
}

// AdvanceForCompletion handles a completed instance. Definitions that allow
// multiple completions keep a standing instance per member and have no "next
// person", so they never advance.
func (a *Advancer) AdvanceForCompletion(definitionID int64) (*model.RotationEvent, error) {
	def, err := a.load(definitionID)
	if err != nil {
		return nil, err
	}
	if def.AllowMultiple {
		return nil, nil
	}
	return a.advance(def, model.SourceCompletion, "")
}

// AdvanceForDeletion handles a deleted instance. Only a deletion of the
// on-duty member's instance moves the pointer; deleting a stale or
// reassigned instance leaves the rotation alone. After advancing, the
// replacement instance is generated immediately so the duty does not wait
// for the next scheduled trigger.
func (a *Advancer) AdvanceForDeletion(definitionID, deletedAssignee int64) (*model.RotationEvent, error) {
	def, err := a.load(definitionID)
	if err != nil {
		return nil, err
	}
	if def.AllowMultiple {
		return nil, nil
	}
	if len(def.Roster) == 0 {
		return nil, ErrEmptyRoster
	}
	if deletedAssignee != def.OnDuty() {
		return nil, nil
	}
	return a.advance(def, model.SourceDeletion, "on-duty instance deleted")
}

// Skip advances past the current member without any instance changing state;
// used when a member is unavailable.
func (a *Advancer) Skip(definitionID int64, reason string) (*model.RotationEvent, error) {
	def, err := a.load(definitionID)
	if err != nil {
		return nil, err
	}
	if def.AllowMultiple {
		return nil, nil
	}
	return a.advance(def, model.SourceManualSkip, reason)
}

func (a *Advancer) load(definitionID int64) (*model.RotationDefinition, error) {
	def, err := a.rotations.GetByID(definitionID)
	if err != nil {
		return nil, err
	}
	if def == nil {
		return nil, ErrDefinitionNotFound
	}
	return def, nil
}

// advance applies the pointer move, records the audit event, and regenerates
// the occurrence. A stale-index conflict returns (nil, nil): the racing
// writer's advance already achieved the intended effect.
func (a *Advancer) advance(def *model.RotationDefinition, source model.AdvanceSource, reason string) (*model.RotationEvent, error) {
	if len(def.Roster) == 0 {
		return nil, ErrEmptyRoster
	}

	prev := def.CurrentIndex
	next := (prev + 1) % len(def.Roster)

	// A one-member roster keeps its index, but the event is still recorded
	// for audit continuity.
	if next != prev {
		applied, err := a.rotations.AdvanceIndex(def.ID, prev, next)
		if err != nil {
			return nil, err
		}
		if !applied {
			a.logger.Debug("stale index conflict, advance dropped",
				"definition", def.Name, "from", prev, "source", source)
			return nil, nil
		}
	}
	def.CurrentIndex = next

	status := model.EventStatusApplied
	if def.IsPaused {
		status = model.EventStatusPaused
	}
	event, err := a.events.Create(&model.RotationEvent{
		RotationDefinitionID: def.ID,
		PreviousIndex:        prev,
		NextIndex:            next,
		ChosenMemberID:       def.Roster[next],
		Source:               source,
		Reason:               reason,
		Status:               status,
	})
	if err != nil {
		return nil, fmt.Errorf("record rotation event: %w", err)
	}

	a.logger.Info("rotation advanced",
		"definition", def.Name, "from", prev, "to", next,
		"member", def.Roster[next], "source", source)

	// Paused definitions accept and record the advance but skip generation.
	if def.IsActive && !def.IsPaused {
		if _, err := a.generator.EnsureDefinition(def, a.now()); err != nil {
			a.logger.Error("regenerate after advance", "definition", def.Name, "error", err)
		}
	}
	return event, nil
}
