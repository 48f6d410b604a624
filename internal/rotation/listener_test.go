package rotation

import (
	"context"
	"testing"
	"time"

	"github.com/mhollis/dutywheel/internal/feed"
)

func TestListenerAdvancesOnCompletion(t *testing.T) {
	e := setupEngine(t)
	def := e.mustCreate(t, dailyDefinition("Take out trash", 10, 20))

	e.listener.Handle(feed.New(feed.TypeInstanceCompleted, 1, 0, def.ID, 10))

	current, err := e.rotations.GetByID(def.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if current.CurrentIndex != 1 {
		t.Errorf("index = %d, want 1", current.CurrentIndex)
	}
}

func TestListenerRedeliveryAdvancesOnce(t *testing.T) {
	e := setupEngine(t)
	def := e.mustCreate(t, dailyDefinition("Take out trash", 10, 20, 30))

	n := feed.New(feed.TypeInstanceCompleted, 1, 0, def.ID, 10)
	e.listener.Handle(n)
	e.listener.Handle(n)
	e.listener.Handle(n)

	current, err := e.rotations.GetByID(def.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if current.CurrentIndex != 1 {
		t.Errorf("index = %d after redelivery, want 1", current.CurrentIndex)
	}
	events, err := e.events.ListByDefinition(def.ID)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 1 {
		t.Errorf("recorded %d events, want 1", len(events))
	}
}

func TestListenerIgnoresAdHocTasks(t *testing.T) {
	e := setupEngine(t)
	def := e.mustCreate(t, dailyDefinition("Take out trash", 10, 20))

	// No rotation behind the instance, nothing to advance.
	e.listener.Handle(feed.New(feed.TypeInstanceCompleted, 1, 42, 0, 10))

	current, err := e.rotations.GetByID(def.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if current.CurrentIndex != 0 {
		t.Errorf("index = %d, want 0", current.CurrentIndex)
	}
}

func TestListenerToleratesMissingDefinition(t *testing.T) {
	e := setupEngine(t)

	// Definition deleted between the instance change and the delivery.
	e.listener.Handle(feed.New(feed.TypeInstanceDeleted, 1, 42, 999, 10))
	e.listener.Handle(feed.New(feed.TypeSkipRequested, 1, 0, 999, 0))
}

func TestListenerConsumesBus(t *testing.T) {
	e := setupEngine(t)
	def := e.mustCreate(t, dailyDefinition("Take out trash", 10, 20))

	e.listener.Start(context.Background())
	defer e.listener.Stop()

	e.bus.Publish(feed.New(feed.TypeInstanceCompleted, 1, 0, def.ID, 10))

	deadline := time.After(2 * time.Second)
	for {
		current, err := e.rotations.GetByID(def.ID)
		if err != nil {
			t.Fatalf("reload: %v", err)
		}
		if current.CurrentIndex == 1 {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("index = %d, advance never arrived", current.CurrentIndex)
		case <-time.After(10 * time.Millisecond):
		}
	}
}
