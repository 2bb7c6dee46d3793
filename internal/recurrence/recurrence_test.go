package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAddMonths(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		n    int
		want time.Time
	}{
		{"plain", date(2025, 1, 15), 1, date(2025, 2, 15)},
		{"clamp_to_february", date(2025, 1, 31), 1, date(2025, 2, 28)},
		{"clamp_leap_year", date(2024, 1, 31), 1, date(2024, 2, 29)},
		{"year_rollover", date(2025, 11, 30), 3, date(2026, 2, 28)},
		{"negative", date(2025, 3, 31), -1, date(2025, 2, 28)},
		{"leap_day_plus_year", date(2024, 2, 29), 12, date(2025, 2, 28)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, AddMonths(tc.in, tc.n))
		})
	}
}

func TestScheduleNext(t *testing.T) {
	t.Run("monthly_after_start", func(t *testing.T) {
		s := Schedule{Unit: Month, Interval: 1, Start: date(2025, 10, 1)}
		next, ok := s.Next(date(2025, 10, 15))
		require.True(t, ok)
		assert.Equal(t, date(2025, 11, 1), next)
	})

	t.Run("reference_before_start_returns_start", func(t *testing.T) {
		s := Schedule{Unit: Month, Interval: 1, Start: date(2025, 10, 1)}
		next, ok := s.Next(date(2025, 9, 1))
		require.True(t, ok)
		assert.Equal(t, date(2025, 10, 1), next)
	})

	t.Run("occurrence_equal_to_reference_is_skipped", func(t *testing.T) {
		s := Schedule{Unit: Week, Interval: 1, Start: date(2025, 1, 6)}
		next, ok := s.Next(date(2025, 1, 13))
		require.True(t, ok)
		assert.Equal(t, date(2025, 1, 20), next)
	})

	t.Run("month_end_clamp_carries_forward", func(t *testing.T) {
		s := Schedule{Unit: Month, Interval: 1, Start: date(2025, 1, 31)}
		next, ok := s.Next(date(2025, 1, 31))
		require.True(t, ok)
		assert.Equal(t, date(2025, 2, 28), next)

		next, ok = s.Next(date(2025, 3, 1))
		require.True(t, ok)
		assert.Equal(t, date(2025, 3, 28), next)

		next, ok = s.Next(date(2025, 7, 1))
		require.True(t, ok)
		assert.Equal(t, date(2025, 7, 28), next)
	})

	t.Run("every_two_days", func(t *testing.T) {
		s := Schedule{Unit: Day, Interval: 2, Start: date(2025, 1, 1)}
		next, ok := s.Next(date(2025, 1, 4))
		require.True(t, ok)
		assert.Equal(t, date(2025, 1, 5), next)
	})

	t.Run("quarterly_far_from_start", func(t *testing.T) {
		s := Schedule{Unit: Month, Interval: 3, Start: date(2000, 2, 29)}
		next, ok := s.Next(date(2025, 6, 10))
		require.True(t, ok)
		assert.Equal(t, date(2025, 8, 28), next)

		next, ok = s.Next(date(2000, 3, 1))
		require.True(t, ok)
		assert.Equal(t, date(2000, 5, 29), next)
	})

	t.Run("yearly", func(t *testing.T) {
		s := Schedule{Unit: Year, Interval: 1, Start: date(2020, 2, 29)}
		next, ok := s.Next(date(2025, 1, 1))
		require.True(t, ok)
		assert.Equal(t, date(2025, 2, 28), next)
	})

	t.Run("past_end_date_is_absent", func(t *testing.T) {
		end := date(2020, 1, 1)
		s := Schedule{Unit: Month, Interval: 1, Start: date(2020, 1, 1), End: &end}
		_, ok := s.Next(date(2025, 1, 1))
		assert.False(t, ok)
	})

	t.Run("occurrence_on_end_date_is_included", func(t *testing.T) {
		end := date(2025, 3, 1)
		s := Schedule{Unit: Month, Interval: 1, Start: date(2025, 1, 1), End: &end}
		next, ok := s.Next(date(2025, 2, 10))
		require.True(t, ok)
		assert.Equal(t, end, next)
	})

	t.Run("time_of_day_reference", func(t *testing.T) {
		s := Schedule{Unit: Day, Interval: 1, Start: date(2025, 5, 1)}
		next, ok := s.Next(time.Date(2025, 5, 3, 9, 30, 0, 0, time.UTC))
		require.True(t, ok)
		assert.Equal(t, date(2025, 5, 4), next)
	})

	t.Run("invalid_interval_is_absent", func(t *testing.T) {
		s := Schedule{Unit: Day, Interval: 0, Start: date(2025, 5, 1)}
		_, ok := s.Next(date(2025, 5, 1))
		assert.False(t, ok)
	})
}

func TestScheduleStep(t *testing.T) {
	tests := []struct {
		name string
		s    Schedule
		from time.Time
		want time.Time
	}{
		{"days", Schedule{Unit: Day, Interval: 3}, date(2025, 2, 27), date(2025, 3, 2)},
		{"weeks", Schedule{Unit: Week, Interval: 2}, date(2025, 12, 25), date(2026, 1, 8)},
		{"months_clamped", Schedule{Unit: Month, Interval: 1}, date(2025, 1, 31), date(2025, 2, 28)},
		{"months_from_clamped_day", Schedule{Unit: Month, Interval: 1}, date(2025, 2, 28), date(2025, 3, 28)},
		{"years", Schedule{Unit: Year, Interval: 2}, date(2024, 2, 29), date(2026, 2, 28)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.s.Step(tc.from))
		})
	}
}

func TestNextMatchesStepWalk(t *testing.T) {
	start := date(2024, 1, 31)
	refs := []time.Time{date(2024, 1, 30), date(2024, 3, 3), date(2025, 7, 19), date(2026, 12, 31)}

	for _, unit := range []Unit{Day, Week, Month, Year} {
		for _, interval := range []int{1, 2, 5} {
			s := Schedule{Unit: unit, Interval: interval, Start: start}
			for _, ref := range refs {
				want := start
				for !want.After(ref) {
					want = s.Step(want)
				}
				got, ok := s.Next(ref)
				require.True(t, ok)
				assert.Equal(t, want, got, "unit=%s interval=%d ref=%s", unit, interval, ref.Format("2006-01-02"))
			}
		}
	}
}

func TestScheduleValidate(t *testing.T) {
	end := date(2024, 1, 1)
	assert.ErrorIs(t, Schedule{Unit: "fortnight", Interval: 1, Start: date(2025, 1, 1)}.Validate(), ErrInvalidSchedule)
	assert.ErrorIs(t, Schedule{Unit: Day, Interval: 0, Start: date(2025, 1, 1)}.Validate(), ErrInvalidSchedule)
	assert.ErrorIs(t, Schedule{Unit: Day, Interval: 1, Start: date(2025, 1, 1), End: &end}.Validate(), ErrInvalidSchedule)
	assert.NoError(t, Schedule{Unit: Year, Interval: 1, Start: date(2025, 1, 1)}.Validate())
}

func TestDue(t *testing.T) {
	ref := date(2025, 10, 1)
	assert.True(t, Due(date(2025, 10, 8), ref, 7))
	assert.False(t, Due(date(2025, 10, 9), ref, 7))
	assert.True(t, Due(date(2025, 9, 30), ref, 0))
}
