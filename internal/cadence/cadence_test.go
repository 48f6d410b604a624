package cadence

import (
	"errors"
	"testing"
	"time"

	"github.com/mhollis/dutywheel/internal/model"
)

func TestDailyAlwaysDue(t *testing.T) {
	s, err := FromDefinition(&model.RotationDefinition{Cadence: model.CadenceDaily})
	if err != nil {
		t.Fatalf("FromDefinition error: %v", err)
	}

	dates := []time.Time{
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 2, 28, 12, 30, 0, 0, time.UTC),
		time.Date(2026, 12, 31, 23, 59, 0, 0, time.UTC),
	}
	for _, d := range dates {
		if !s.IsDue(d) {
			t.Errorf("IsDue(%v) = false, want true", d)
		}
	}
}

func TestWeeklyOnlyOnConfiguredDays(t *testing.T) {
	// Monday, Wednesday, Friday
	s, err := FromDefinition(&model.RotationDefinition{
		Cadence:    model.CadenceWeekly,
		WeeklyDays: []int{1, 3, 5},
	})
	if err != nil {
		t.Fatalf("FromDefinition error: %v", err)
	}

	// 2026-03-02 is a Monday
	monday := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	want := map[time.Weekday]bool{
		time.Monday:    true,
		time.Tuesday:   false,
		time.Wednesday: true,
		time.Thursday:  false,
		time.Friday:    true,
		time.Saturday:  false,
		time.Sunday:    false,
	}
	for i := 0; i < 7; i++ {
		d := monday.AddDate(0, 0, i)
		if got := s.IsDue(d); got != want[d.Weekday()] {
			t.Errorf("IsDue(%v %v) = %v, want %v", d.Weekday(), d.Format("2006-01-02"), got, want[d.Weekday()])
		}
	}
}

func TestMonthlyExactDay(t *testing.T) {
	s, err := FromDefinition(&model.RotationDefinition{
		Cadence:    model.CadenceMonthly,
		MonthlyDay: 15,
	})
	if err != nil {
		t.Fatalf("FromDefinition error: %v", err)
	}

	if !s.IsDue(time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC)) {
		t.Error("IsDue on the 15th = false, want true")
	}
	if s.IsDue(time.Date(2026, 4, 14, 0, 0, 0, 0, time.UTC)) {
		t.Error("IsDue on the 14th = true, want false")
	}
	if s.IsDue(time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC)) {
		t.Error("IsDue on the 30th = true, want false")
	}
}

func TestMonthlyClampsToShortMonths(t *testing.T) {
	s, err := FromDefinition(&model.RotationDefinition{
		Cadence:    model.CadenceMonthly,
		MonthlyDay: 31,
	})
	if err != nil {
		t.Fatalf("FromDefinition error: %v", err)
	}

	tests := []struct {
		date time.Time
		due  bool
	}{
		{time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC), true},  // 31-day month, exact
		{time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC), true},  // 30-day month, clamped
		{time.Date(2026, 4, 29, 0, 0, 0, 0, time.UTC), false}, // not the last day
		{time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC), true},  // non-leap February
		{time.Date(2028, 2, 29, 0, 0, 0, 0, time.UTC), true},  // leap February
		{time.Date(2028, 2, 28, 0, 0, 0, 0, time.UTC), false}, // leap February, not last
	}
	for _, tt := range tests {
		if got := s.IsDue(tt.date); got != tt.due {
			t.Errorf("IsDue(%v) = %v, want %v", tt.date.Format("2006-01-02"), got, tt.due)
		}
	}
}

func TestInvalidConfigs(t *testing.T) {
	tests := []struct {
		name string
		def  model.RotationDefinition
	}{
		{"weekly without days", model.RotationDefinition{Cadence: model.CadenceWeekly}},
		{"weekly day out of range", model.RotationDefinition{Cadence: model.CadenceWeekly, WeeklyDays: []int{7}}},
		{"weekly negative day", model.RotationDefinition{Cadence: model.CadenceWeekly, WeeklyDays: []int{-1}}},
		{"monthly without day", model.RotationDefinition{Cadence: model.CadenceMonthly}},
		{"monthly day too large", model.RotationDefinition{Cadence: model.CadenceMonthly, MonthlyDay: 32}},
		{"unknown cadence", model.RotationDefinition{Cadence: "fortnightly"}},
	}
	for _, tt := range tests {
		_, err := FromDefinition(&tt.def)
		if err == nil {
			t.Errorf("%s: expected error, got nil", tt.name)
			continue
		}
		var cfgErr *ErrInvalidConfig
		if !errors.As(err, &cfgErr) {
			t.Errorf("%s: error type = %T, want *ErrInvalidConfig", tt.name, err)
		}
	}
}

func TestDescribe(t *testing.T) {
	s, _ := FromDefinition(&model.RotationDefinition{
		Cadence:    model.CadenceWeekly,
		WeeklyDays: []int{5, 1},
	})
	if got := s.Describe(); got != "Repeats weekly on Mon, Fri" {
		t.Errorf("Describe() = %q", got)
	}
}

func TestDateKey(t *testing.T) {
	d := time.Date(2026, 3, 7, 15, 4, 5, 0, time.UTC)
	if got := DateKey(d); got != "2026-03-07" {
		t.Errorf("DateKey = %q, want 2026-03-07", got)
	}
}
