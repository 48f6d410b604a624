package rotation

import (
	"errors"
	"testing"
	"time"

	"github.com/mhollis/dutywheel/internal/cadence"
	"github.com/mhollis/dutywheel/internal/model"
)

func TestGenerateAssignsOnDutyMember(t *testing.T) {
	e := setupEngine(t)
	def := e.mustCreate(t, dailyDefinition("Take out trash", 10, 20, 30))

	created, err := e.generator.EnsureToday(1, testDay)
	if err != nil {
		t.Fatalf("ensure today: %v", err)
	}
	if created != 1 {
		t.Fatalf("created = %d, want 1", created)
	}

	instances := e.instancesFor(t, testDay)
	if len(instances) != 1 {
		t.Fatalf("expected 1 instance, got %d", len(instances))
	}
	inst := instances[0]
	if inst.Title != "Take out trash" {
		t.Errorf("title = %q", inst.Title)
	}
	if len(inst.Assignees) != 1 || inst.Assignees[0] != 10 {
		t.Errorf("assignees = %v, want [10]", inst.Assignees)
	}
	if inst.Points != def.Points {
		t.Errorf("points = %d, want %d", inst.Points, def.Points)
	}
	if inst.RotationDefinitionID == nil || *inst.RotationDefinitionID != def.ID {
		t.Errorf("rotation_definition_id = %v, want %d", inst.RotationDefinitionID, def.ID)
	}
}

func TestGenerateIsIdempotent(t *testing.T) {
	e := setupEngine(t)
	e.mustCreate(t, dailyDefinition("Take out trash", 10, 20))

	for i := 0; i < 5; i++ {
		if _, err := e.generator.EnsureToday(1, testDay); err != nil {
			t.Fatalf("ensure today #%d: %v", i+1, err)
		}
	}

	if got := len(e.instancesFor(t, testDay)); got != 1 {
		t.Fatalf("expected 1 instance after repeated generation, got %d", got)
	}
}

func TestGenerateMultipleCompletionsOnePerMember(t *testing.T) {
	e := setupEngine(t)
	def := dailyDefinition("Make your bed", 10, 20, 30)
	def.AllowMultiple = true
	e.mustCreate(t, def)

	created, err := e.generator.EnsureToday(1, testDay)
	if err != nil {
		t.Fatalf("ensure today: %v", err)
	}
	if created != 3 {
		t.Fatalf("created = %d, want 3", created)
	}

	instances := e.instancesFor(t, testDay)
	if len(instances) != 3 {
		t.Fatalf("expected 3 instances, got %d", len(instances))
	}
	seen := make(map[int64]bool)
	for _, inst := range instances {
		if len(inst.Assignees) != 1 {
			t.Errorf("assignees = %v, want a single member", inst.Assignees)
			continue
		}
		seen[inst.Assignees[0]] = true
	}
	for _, member := range []int64{10, 20, 30} {
		if !seen[member] {
			t.Errorf("no instance for member %d", member)
		}
	}

	// Re-running fills nothing in.
	created, err = e.generator.EnsureToday(1, testDay)
	if err != nil {
		t.Fatalf("second ensure: %v", err)
	}
	if created != 0 {
		t.Errorf("second run created = %d, want 0", created)
	}
}

func TestGenerateBackfillsMissingMember(t *testing.T) {
	e := setupEngine(t)
	def := dailyDefinition("Make your bed", 10, 20)
	def.AllowMultiple = true
	e.mustCreate(t, def)

	e.generator.EnsureToday(1, testDay)

	// Member 20's instance goes away; only that one is recreated.
	instances := e.instancesFor(t, testDay)
	for _, inst := range instances {
		if inst.FirstAssignee() == 20 {
			if err := e.instances.Delete(inst.ID); err != nil {
				t.Fatalf("delete instance: %v", err)
			}
		}
	}

	created, err := e.generator.EnsureToday(1, testDay)
	if err != nil {
		t.Fatalf("ensure after delete: %v", err)
	}
	if created != 1 {
		t.Errorf("created = %d, want 1", created)
	}
	if got := len(e.instancesFor(t, testDay)); got != 2 {
		t.Errorf("expected 2 instances, got %d", got)
	}
}

func TestGenerateSkipsPausedAndNotDue(t *testing.T) {
	e := setupEngine(t)

	paused := dailyDefinition("Paused duty", 10)
	e.mustCreate(t, paused)
	if _, err := e.rotations.SetPaused(1, true); err != nil {
		t.Fatalf("pause: %v", err)
	}

	weekly := dailyDefinition("Tuesday duty", 10)
	weekly.Cadence = model.CadenceWeekly
	weekly.WeeklyDays = []int{2} // testDay is a Monday
	e.mustCreate(t, weekly)

	created, err := e.generator.EnsureToday(1, testDay)
	if err != nil {
		t.Fatalf("ensure today: %v", err)
	}
	if created != 0 {
		t.Errorf("created = %d, want 0", created)
	}
	if got := len(e.instancesFor(t, testDay)); got != 0 {
		t.Errorf("expected 0 instances, got %d", got)
	}
}

func TestGenerateCollectsInvalidConfigWithoutAborting(t *testing.T) {
	e := setupEngine(t)

	broken := dailyDefinition("Broken duty", 10)
	broken.Cadence = model.CadenceWeekly // no weekly_days
	e.mustCreate(t, broken)

	e.mustCreate(t, dailyDefinition("Working duty", 20))

	created, err := e.generator.EnsureToday(1, testDay)
	if err == nil {
		t.Fatal("expected an invalid-config error")
	}
	var cfgErr *cadence.ErrInvalidConfig
	if !errors.As(err, &cfgErr) {
		t.Errorf("error type = %T, want *cadence.ErrInvalidConfig in chain", err)
	}
	// The healthy sibling still generated.
	if created != 1 {
		t.Errorf("created = %d, want 1", created)
	}
}

func TestGenerateBeforeDefinitionStart(t *testing.T) {
	e := setupEngine(t)
	def := e.mustCreate(t, dailyDefinition("Take out trash", 10))

	yesterday := def.CreatedAt.AddDate(0, 0, -1)
	created, err := e.generator.EnsureDefinition(def, yesterday)
	if err != nil {
		t.Fatalf("ensure before start: %v", err)
	}
	if created != 0 {
		t.Errorf("created = %d, want 0", created)
	}
}

func TestGenerateEmptyRoster(t *testing.T) {
	e := setupEngine(t)
	def := e.mustCreate(t, &model.RotationDefinition{
		GroupID:  1,
		Name:     "Orphan duty",
		Cadence:  model.CadenceDaily,
		Roster:   []int64{},
		IsActive: true,
	})

	_, err := e.generator.EnsureDefinition(def, testDay)
	if !errors.Is(err, ErrEmptyRoster) {
		t.Fatalf("error = %v, want ErrEmptyRoster", err)
	}
	if got := len(e.instancesFor(t, testDay)); got != 0 {
		t.Errorf("expected no instances, got %d", got)
	}
}

func TestGenerateMonthlyClampedDay(t *testing.T) {
	e := setupEngine(t)
	def := dailyDefinition("Pay rent", 10, 20)
	def.Cadence = model.CadenceMonthly
	def.MonthlyDay = 31
	e.mustCreate(t, def)

	endOfApril := time.Date(2030, 4, 30, 9, 0, 0, 0, time.UTC)
	created, err := e.generator.EnsureToday(1, endOfApril)
	if err != nil {
		t.Fatalf("ensure today: %v", err)
	}
	if created != 1 {
		t.Errorf("created = %d, want 1 on the clamped day", created)
	}
}
