package rotation

import (
	"log/slog"
	"testing"
	"time"

	"github.com/mhollis/dutywheel/internal/database"
	"github.com/mhollis/dutywheel/internal/feed"
	"github.com/mhollis/dutywheel/internal/model"
	"github.com/mhollis/dutywheel/internal/store"
)

// engine bundles the wired components every test in this package needs.
type engine struct {
	rotations     *store.RotationStore
	instances     *store.InstanceStore
	events        *store.RotationEventStore
	notifications *store.NotificationStore

	bus        *feed.Bus
	generator  *Generator
	reconciler *Reconciler
	advancer   *Advancer
	service    *Service
	listener   *Listener
}

// testDay is a fixed "today" far enough ahead of the row creation
// timestamps that every definition counts as already started.
var testDay = time.Date(2030, 3, 4, 10, 0, 0, 0, time.UTC) // a Monday

func setupEngine(t *testing.T) *engine {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.Default()
	e := &engine{
		rotations:     store.NewRotationStore(db),
		instances:     store.NewInstanceStore(db),
		events:        store.NewRotationEventStore(db),
		notifications: store.NewNotificationStore(db),
		bus:           feed.NewBus(),
	}
	t.Cleanup(e.bus.Close)
	e.generator = NewGenerator(e.rotations, e.instances, logger)
	e.reconciler = NewReconciler(e.rotations, e.instances, logger)
	e.advancer = NewAdvancer(e.rotations, e.events, e.generator, logger)
	e.advancer.now = func() time.Time { return testDay }
	e.service = NewService(e.rotations, e.events, e.generator, e.reconciler, e.advancer, logger)
	e.service.now = func() time.Time { return testDay }
	e.listener = NewListener(e.bus, e.notifications, e.advancer, logger)
	return e
}

func (e *engine) mustCreate(t *testing.T, def *model.RotationDefinition) *model.RotationDefinition {
	t.Helper()
	created, err := e.rotations.Create(def)
	if err != nil {
		t.Fatalf("create definition: %v", err)
	}
	return created
}

func dailyDefinition(name string, roster ...int64) *model.RotationDefinition {
	return &model.RotationDefinition{
		GroupID:  1,
		Name:     name,
		Cadence:  model.CadenceDaily,
		Roster:   roster,
		IsActive: true,
		Points:   5,
	}
}

func (e *engine) instancesFor(t *testing.T, day time.Time) []model.TaskInstance {
	t.Helper()
	list, err := e.instances.ListForDay(1, day.Format("2006-01-02"))
	if err != nil {
		t.Fatalf("list instances: %v", err)
	}
	return list
}
