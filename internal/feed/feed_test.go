package feed

import "testing"

func TestNewAssignsUniqueIDs(t *testing.T) {
	a := New(TypeInstanceCompleted, 1, 2, 3, 4)
	b := New(TypeInstanceCompleted, 1, 2, 3, 4)
	if a.ID == "" || b.ID == "" {
		t.Fatal("notification id missing")
	}
	if a.ID == b.ID {
		t.Errorf("ids collide: %s", a.ID)
	}
	if a.RotationDefinitionID != 3 || a.FirstAssignee != 4 {
		t.Errorf("fields not carried: %+v", a)
	}
}

func TestBusDeliversInOrder(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	bus.Publish(New(TypeInstanceCreated, 1, 10, 0, 0))
	bus.Publish(New(TypeInstanceCompleted, 1, 10, 0, 0))

	first := <-bus.Notifications()
	second := <-bus.Notifications()
	if first.Type != TypeInstanceCreated || second.Type != TypeInstanceCompleted {
		t.Errorf("order = %s, %s", first.Type, second.Type)
	}
}

func TestBusPublishAfterClose(t *testing.T) {
	bus := NewBus()
	bus.Publish(New(TypeInstanceCreated, 1, 10, 0, 0))
	bus.Close()
	bus.Close() // repeat close is harmless

	// Dropped silently, no panic.
	bus.Publish(New(TypeInstanceCompleted, 1, 10, 0, 0))

	// The pre-close notification drains; then the channel reports closed.
	if n, ok := <-bus.Notifications(); !ok || n.Type != TypeInstanceCreated {
		t.Errorf("drain = %+v ok=%v", n, ok)
	}
	if _, ok := <-bus.Notifications(); ok {
		t.Error("channel still open after close")
	}
}
