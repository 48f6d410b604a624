package rotation

import (
	"log/slog"
	"time"

	"go.uber.org/multierr"

	"github.com/mhollis/dutywheel/internal/model"
	"github.com/mhollis/dutywheel/internal/store"
)

// Service is the engine's operation surface: the ensure/reconcile cycle,
// manual skips, pause/resume, and the assignee/audit read model. Handlers
// and the sweeper talk to the engine through it.
type Service struct {
	rotations  *store.RotationStore
	events     *store.RotationEventStore
	generator  *Generator
	reconciler *Reconciler
	advancer   *Advancer
	logger     *slog.Logger
	now        func() time.Time
}

func NewService(rotations *store.RotationStore, events *store.RotationEventStore, generator *Generator, reconciler *Reconciler, advancer *Advancer, logger *slog.Logger) *Service {
	return &Service{
		rotations:  rotations,
		events:     events,
		generator:  generator,
		reconciler: reconciler,
		advancer:   advancer,
		logger:     logger,
		now:        time.Now,
	}
}

// EnsureResult reports one ensure-today cycle.
type EnsureResult struct {
	Created int `json:"created"`
	Deleted int `json:"deleted"`
}

// EnsureToday runs the generate-then-reconcile cycle for a group. The two
// phases are each idempotent and the whole call is safe to retry or race;
// reconciliation restores the one-instance-per-occurrence invariant that
// optimistic generation may transiently break.
func (s *Service) EnsureToday(groupID int64) (EnsureResult, error) {
	today := s.now()

	created, genErr := s.generator.EnsureToday(groupID, today)
	deleted, recErr := s.reconciler.ReconcileToday(groupID, today)

	return EnsureResult{Created: created, Deleted: deleted}, multierr.Append(genErr, recErr)
}

// ReconcileToday runs the reconciliation pass alone, e.g. as a periodic sweep.
func (s *Service) ReconcileToday(groupID int64) (int, error) {
	return s.reconciler.ReconcileToday(groupID, s.now())
}

// Skip advances past the current on-duty member.
func (s *Service) Skip(definitionID int64, reason string) (*model.RotationEvent, error) {
	return s.advancer.Skip(definitionID, reason)
}

// Pause stops a definition from generating or advancing; it stays visible.
func (s *Service) Pause(definitionID int64) (*model.RotationDefinition, error) {
	return s.setPaused(definitionID, true)
}

// Resume reverses Pause.
func (s *Service) Resume(definitionID int64) (*model.RotationDefinition, error) {
	return s.setPaused(definitionID, false)
}

func (s *Service) setPaused(definitionID int64, paused bool) (*model.RotationDefinition, error) {
	def, err := s.rotations.GetByID(definitionID)
	if err != nil {
		return nil, err
	}
	if def == nil {
		return nil, ErrDefinitionNotFound
	}
	updated, err := s.rotations.SetPaused(definitionID, paused)
	if err != nil {
		return nil, err
	}
	s.logger.Info("rotation pause state changed", "definition", updated.Name, "paused", paused)
	return updated, nil
}

// AssigneePair is the read model for "whose turn is it, and who is next".
type AssigneePair struct {
	Current int64 `json:"current"`
	Next    int64 `json:"next"`
}

// Assignees returns the current and next on-duty members for a definition.
func (s *Service) Assignees(definitionID int64) (AssigneePair, error) {
	def, err := s.rotations.GetByID(definitionID)
	if err != nil {
		return AssigneePair{}, err
	}
	if def == nil {
		return AssigneePair{}, ErrDefinitionNotFound
	}
	if len(def.Roster) == 0 {
		return AssigneePair{}, ErrEmptyRoster
	}
	return AssigneePair{Current: def.OnDuty(), Next: def.NextUp()}, nil
}

// ListEvents returns a definition's advance audit trail, newest first.
func (s *Service) ListEvents(definitionID int64) ([]model.RotationEvent, error) {
	def, err := s.rotations.GetByID(definitionID)
	if err != nil {
		return nil, err
	}
	if def == nil {
		return nil, ErrDefinitionNotFound
	}
	return s.events.ListByDefinition(definitionID)
}
