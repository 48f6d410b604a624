package rotation

import (
	"fmt"
	"log/slog"
	"time"

	"go.uber.org/multierr"

	"github.com/mhollis/dutywheel/internal/cadence"
	"github.com/mhollis/dutywheel/internal/model"
	"github.com/mhollis/dutywheel/internal/store"
)

// Generator materializes task instances for due rotation definitions. It is
// deliberately lock-free: concurrent callers may each pass the existence
// check and insert, leaving a transient duplicate that the Reconciler
// collapses. Every call is safe to repeat.
type Generator struct {
	rotations *store.RotationStore
	instances *store.InstanceStore
	logger    *slog.Logger
}

func NewGenerator(rotations *store.RotationStore, instances *store.InstanceStore, logger *slog.Logger) *Generator {
	return &Generator{rotations: rotations, instances: instances, logger: logger}
}

// EnsureToday creates the missing instances for every active, unpaused, due
// definition in the group. It returns how many instances it created and the
// combined per-definition failures; a failing definition never stops its
// siblings from being processed.
func (g *Generator) EnsureToday(groupID int64, today time.Time) (int, error) {
	defs, err := g.rotations.ListActiveByGroup(groupID)
	if err != nil {
		return 0, fmt.Errorf("load definitions: %w", err)
	}

	var created int
	var errs error
	for i := range defs {
		def := &defs[i]
		if def.IsPaused {
			continue
		}
		n, err := g.EnsureDefinition(def, today)
		created += n
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("definition %q: %w", def.Name, err))
		}
	}
	return created, errs
}

// EnsureDefinition materializes today's instances for a single definition.
// Not due, not yet started, or already materialized all mean zero creates
// and no error.
func (g *Generator) EnsureDefinition(def *model.RotationDefinition, today time.Time) (int, error) {
	schedule, err := cadence.FromDefinition(def)
	if err != nil {
		return 0, err
	}

	day := cadence.StartOfDay(today)
	if day.Before(cadence.StartOfDay(def.CreatedAt)) {
		return 0, nil
	}
	if !schedule.IsDue(day) {
		return 0, nil
	}

	if len(def.Roster) == 0 {
		return 0, ErrEmptyRoster
	}

	key := cadence.DateKey(day)
	existing, err := g.instances.ListForDayByTitle(def.GroupID, key, def.Name)
	if err != nil {
		return 0, fmt.Errorf("check existing instances: %w", err)
	}

	if !def.AllowMultiple {
		if len(existing) > 0 {
			return 0, nil
		}
		if err := g.create(def, key, []int64{def.OnDuty()}); err != nil {
			return 0, err
		}
		g.logger.Info("instance generated", "definition", def.Name, "assignee", def.OnDuty(), "due", key)
		return 1, nil
	}

	// Shared duty: one standing instance per roster member.
	have := make(map[int64]bool, len(existing))
	for i := range existing {
		have[existing[i].FirstAssignee()] = true
	}

	var created int
	var errs error
	for _, member := range def.Roster {
		if have[member] {
			continue
		}
		if err := g.create(def, key, []int64{member}); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		created++
	}
	if created > 0 {
		g.logger.Info("instances generated", "definition", def.Name, "count", created, "due", key)
	}
	return created, errs
}

func (g *Generator) create(def *model.RotationDefinition, dueDate string, assignees []int64) error {
	defID := def.ID
	_, err := g.instances.Create(&model.TaskInstance{
		GroupID:              def.GroupID,
		RotationDefinitionID: &defID,
		Title:                def.Name,
		Assignees:            assignees,
		DueDate:              dueDate,
		Points:               def.Points,
	})
	if err != nil {
		return fmt.Errorf("create instance: %w", err)
	}
	return nil
}
