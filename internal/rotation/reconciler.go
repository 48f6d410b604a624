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

// Reconciler collapses the duplicate instances the lock-free Generator can
// leave behind. It runs after generation within an ensure cycle, and is
// harmless at any other time: with no duplicates it deletes nothing.
type Reconciler struct {
	rotations *store.RotationStore
	instances *store.InstanceStore
	logger    *slog.Logger
}

func NewReconciler(rotations *store.RotationStore, instances *store.InstanceStore, logger *slog.Logger) *Reconciler {
	return &Reconciler{rotations: rotations, instances: instances, logger: logger}
}

// ReconcileToday reduces every set of duplicate instances for today's
// occurrences to one survivor and returns how many rows it deleted.
// Per-group failures are combined; one failing delete never aborts the pass.
func (r *Reconciler) ReconcileToday(groupID int64, today time.Time) (int, error) {
	defs, err := r.rotations.ListActiveByGroup(groupID)
	if err != nil {
		return 0, fmt.Errorf("load definitions: %w", err)
	}
	if len(defs) == 0 {
		return 0, nil
	}

	// Definition name is the correlation key between instances and their
	// rotation; the same name never maps to two grouping modes.
	multiByName := make(map[string]bool, len(defs))
	for i := range defs {
		multiByName[defs[i].Name] = defs[i].AllowMultiple
	}

	key := cadence.DateKey(cadence.StartOfDay(today))
	instances, err := r.instances.ListForDay(groupID, key)
	if err != nil {
		return 0, fmt.Errorf("load instances: %w", err)
	}

	// Partition into duplicate-candidate buckets. ListForDay orders rows
	// oldest-created first (id breaks same-second ties), so each bucket
	// preserves creation order.
	buckets := make(map[string][]model.TaskInstance)
	for i := range instances {
		inst := instances[i]
		multi, ok := multiByName[inst.Title]
		if !ok {
			continue // not a rotating task
		}
		bucket := inst.Title
		if multi {
			bucket = fmt.Sprintf("%s|%d", inst.Title, inst.FirstAssignee())
		}
		buckets[bucket] = append(buckets[bucket], inst)
	}

	var deleted int
	var errs error
	for _, rows := range buckets {
		if len(rows) < 2 {
			continue
		}
		survivor := pickSurvivor(rows)
		for i := range rows {
			if rows[i].ID == survivor.ID {
				continue
			}
			if err := r.instances.Delete(rows[i].ID); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("delete duplicate %d: %w", rows[i].ID, err))
				continue
			}
			deleted++
		}
		r.logger.Info("duplicates reconciled",
			"title", survivor.Title, "survivor", survivor.ID, "removed", len(rows)-1)
	}
	return deleted, errs
}

// pickSurvivor applies the tie-break: the earliest-created row with no
// completions, or the earliest-created overall when every row has one.
// rows must be in creation order.
func pickSurvivor(rows []model.TaskInstance) model.TaskInstance {
	for i := range rows {
		if !rows[i].Completed() {
			return rows[i]
		}
	}
	return rows[0]
}
