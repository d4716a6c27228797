package service

import (
	"math"
	"strings"

	"github.com/chemo-dose-safety/internal/domain"
	"github.com/chemo-dose-safety/internal/registry"
)

// Schedule patterns, matched in order against the normalized schedule string.
// Explicit interval phrases come first so "3weekly" and "biweekly" are not read
// as weekly. Bare fragments such as "3w" or "21d" come last, after "weekly", so
// a course length like "weekly x 3 weeks" keeps the weekly bucket
var schedulePatterns = []struct {
	bucket   string
	patterns []string
}{
	{domain.ScheduleEvery3Weeks, []string{"q3w", "q21d", "3weekly", "threeweekly", "every3weeks", "every21days", "triweekly"}},
	{domain.ScheduleEvery14Days, []string{"q14d", "q2w", "biweekly", "2weekly", "twoweekly", "every2weeks", "every14days", "fortnight"}},
	{domain.ScheduleWeekly, []string{"weekly", "qw", "q1w", "q7d", "every7days", "everyweek"}},
	{domain.ScheduleEvery3Weeks, []string{"3w", "21d"}},
	{domain.ScheduleEvery14Days, []string{"14d", "2w"}},
	{domain.ScheduleWeekly, []string{"7d", "wk"}},
}

// LimitValidator checks doses against per-cycle and lifetime maxima. Doses are
// expected in milligrams
type LimitValidator struct {
	registry *registry.Registry
}

// NewLimitValidator creates a limit validator
func NewLimitValidator(reg *registry.Registry) *LimitValidator {
	return &LimitValidator{registry: reg}
}

// CheckLimit compares dose against the drug's per-cycle maximum for the given
// schedule. Drugs without a limit never exceed
func (v *LimitValidator) CheckLimit(drug string, dose float64, schedule string) domain.LimitCheck {
	limit, ok := v.registry.Limit(drug)
	if !ok {
		return domain.LimitCheck{}
	}
	ceiling, bucket := ResolvePerCycleMax(limit, schedule)
	if ceiling <= 0 {
		return domain.LimitCheck{}
	}

	check := domain.LimitCheck{Limit: ceiling}
	dose = domain.NonNegative(dose)
	if dose <= ceiling {
		return check
	}

	check.IsExceeded = true
	kv := []any{"dose", domain.Round(dose, 1), "limit", ceiling, "unit", limit.Unit}
	if bucket != "" {
		kv = append(kv, "schedule", bucket)
	}
	check.Warning = domain.NewMessage(domain.MsgDoseLimitExceeded, drug, kv...)

	note := limit.WarningNote
	if note == "" {
		note = domain.NoteGenericReview
	}
	check.SuggestedAction = domain.NewMessage(domain.MsgSuggestedAction, drug, "note", note)
	return check
}

// CheckCumulative multiplies the per-cycle dose by the completed cycles and
// compares the total to the lifetime maximum. Without a lifetime maximum the
// limit is never exceeded
func (v *LimitValidator) CheckCumulative(drug string, dosePerCycle float64, cyclesCompleted int) domain.CumulativeCheck {
	cycles := cyclesCompleted
	if cycles < 0 {
		cycles = 0
	}
	perCycle := domain.NonNegative(dosePerCycle)
	check := domain.CumulativeCheck{CumulativeDose: perCycle * float64(cycles)}

	limit, ok := v.registry.Limit(drug)
	if !ok || limit.CumulativeMax <= 0 {
		return check
	}
	check.Limit = limit.CumulativeMax
	if check.CumulativeDose <= limit.CumulativeMax {
		return check
	}

	check.IsLimitExceeded = true
	check.Warning = domain.NewMessage(domain.MsgCumulativeLimitExceeded, drug,
		"cumulative_dose", domain.Round(check.CumulativeDose, 1),
		"limit", limit.CumulativeMax,
		"dose_per_cycle", domain.Round(perCycle, 1),
		"cycles", cycles,
		"unit", limit.Unit,
	)
	return check
}

// ResolvePerCycleMax picks the per-cycle maximum that applies to schedule and
// the schedule bucket it came from. A scalar limit ignores the schedule. A
// schedule-keyed limit tries an exact key, then the recognised buckets, then
// falls back to every-3-weeks, and to the smallest bucket when there is no
// every-3-weeks entry
func ResolvePerCycleMax(limit domain.DoseLimit, schedule string) (float64, string) {
	if len(limit.ScheduleMax) == 0 {
		return limit.MaxPerCycle, ""
	}

	s := domain.NormalizeKey(schedule)
	if s != "" {
		for key, ceiling := range limit.ScheduleMax {
			if domain.NormalizeKey(key) == s {
				return ceiling, key
			}
		}
		if bucket := ScheduleBucket(schedule); bucket != "" {
			if ceiling, ok := limit.ScheduleMax[bucket]; ok {
				return ceiling, bucket
			}
		}
	}

	if ceiling, ok := limit.ScheduleMax[domain.ScheduleEvery3Weeks]; ok {
		return ceiling, domain.ScheduleEvery3Weeks
	}

	smallest, bucket := math.Inf(1), ""
	for key, ceiling := range limit.ScheduleMax {
		if ceiling < smallest || (ceiling == smallest && key < bucket) {
			smallest, bucket = ceiling, key
		}
	}
	return smallest, bucket
}

// ScheduleBucket maps free schedule text onto weekly, q3w or q14d. It returns ""
// when nothing matches
func ScheduleBucket(schedule string) string {
	s := domain.NormalizeKey(schedule)
	if s == "" {
		return ""
	}
	for _, sp := range schedulePatterns {
		for _, p := range sp.patterns {
			if strings.Contains(s, p) {
				return sp.bucket
			}
		}
	}
	return ""
}
