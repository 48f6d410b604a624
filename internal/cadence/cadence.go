package cadence

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mhollis/dutywheel/internal/model"
)

// ErrInvalidConfig reports a cadence whose frequency-specific field is
// missing or out of range. Configuration errors are surfaced, never
// silently corrected.
type ErrInvalidConfig struct {
	Reason string
}

func (e *ErrInvalidConfig) Error() string {
	return "invalid cadence config: " + e.Reason
}

// Schedule is the parsed, validated form of a definition's cadence fields.
// It is a pure value: IsDue has no side effects.
type Schedule struct {
	Freq     model.Cadence
	Days     []time.Weekday // weekly: which weekdays
	MonthDay int            // monthly: day of month, clamped to short months
}

// FromDefinition validates a definition's cadence fields and returns the
// schedule they describe.
func FromDefinition(def *model.RotationDefinition) (Schedule, error) {
	switch def.Cadence {
	case model.CadenceDaily:
		return Schedule{Freq: model.CadenceDaily}, nil

	case model.CadenceWeekly:
		if len(def.WeeklyDays) == 0 {
			return Schedule{}, &ErrInvalidConfig{Reason: "weekly cadence requires weekly_days"}
		}
		s := Schedule{Freq: model.CadenceWeekly}
		for _, d := range def.WeeklyDays {
			if d < 0 || d > 6 {
				return Schedule{}, &ErrInvalidConfig{Reason: fmt.Sprintf("weekday %d out of range", d)}
			}
			s.Days = append(s.Days, time.Weekday(d))
		}
		sort.Slice(s.Days, func(i, j int) bool { return s.Days[i] < s.Days[j] })
		return s, nil

	case model.CadenceMonthly:
		if def.MonthlyDay < 1 || def.MonthlyDay > 31 {
			return Schedule{}, &ErrInvalidConfig{Reason: fmt.Sprintf("monthly_day %d out of range", def.MonthlyDay)}
		}
		return Schedule{Freq: model.CadenceMonthly, MonthDay: def.MonthlyDay}, nil

	default:
		return Schedule{}, &ErrInvalidConfig{Reason: fmt.Sprintf("unknown cadence %q", def.Cadence)}
	}
}

// IsDue reports whether the schedule produces an occurrence on the given
// calendar date. Time-of-day and location on date are ignored.
func (s Schedule) IsDue(date time.Time) bool {
	switch s.Freq {
	case model.CadenceDaily:
		return true

	case model.CadenceWeekly:
		wd := date.Weekday()
		for _, d := range s.Days {
			if d == wd {
				return true
			}
		}
		return false

	case model.CadenceMonthly:
		// Clamp to the last day of short months: day 31 in April is due
		// on April 30.
		day := s.MonthDay
		if last := daysInMonth(date.Year(), date.Month()); day > last {
			day = last
		}
		return date.Day() == day
	}
	return false
}

// Describe returns a human-readable description of the schedule.
func (s Schedule) Describe() string {
	switch s.Freq {
	case model.CadenceDaily:
		return "Repeats daily"
	case model.CadenceWeekly:
		var names []string
		for _, d := range s.Days {
			names = append(names, d.String()[:3])
		}
		return "Repeats weekly on " + strings.Join(names, ", ")
	case model.CadenceMonthly:
		return fmt.Sprintf("Repeats monthly on day %d", s.MonthDay)
	}
	return ""
}

// StartOfDay truncates t to midnight in its location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DateKey formats t as the yyyy-mm-dd key used for instance due dates.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
