package schedule

import (
	"errors"
	"testing"
	"time"

	"github.com/pedalpost/rental-api/internal/domain"
)

func TestBuilder_Interval(t *testing.T) {
	t.Parallel()

	loc, err := time.LoadLocation("Europe/Amsterdam")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	hours := ShopHours{
		Open:  domain.TimeOfDay{Hour: 9, Minute: 30},
		Close: domain.TimeOfDay{Hour: 18, Minute: 0},
	}
	b := NewBuilder(loc, hours)
	date := time.Date(2025, 6, 7, 0, 0, 0, 0, loc)

	t.Run("hourly from start time", func(t *testing.T) {
		start := &domain.TimeOfDay{Hour: 10, Minute: 15}
		iv, err := b.Interval(domain.Hourly{PolicyCode: domain.PolicyTwoHour, Hours: 2}, BuildParams{
			Date:      date,
			StartTime: start,
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		wantStart := time.Date(2025, 6, 7, 10, 15, 0, 0, loc)
		if !iv.Start.Equal(wantStart) {
			t.Fatalf("expected start %v, got %v", wantStart, iv.Start)
		}
		if !iv.End.Equal(wantStart.Add(2 * time.Hour)) {
			t.Fatalf("expected end %v, got %v", wantStart.Add(2*time.Hour), iv.End)
		}
	})

	t.Run("hourly crossing midnight", func(t *testing.T) {
		start := &domain.TimeOfDay{Hour: 23, Minute: 0}
		iv, err := b.Interval(domain.Hourly{PolicyCode: domain.PolicyFourHour, Hours: 4}, BuildParams{
			Date:      date,
			StartTime: start,
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		wantEnd := time.Date(2025, 6, 8, 3, 0, 0, 0, loc)
		if !iv.End.Equal(wantEnd) {
			t.Fatalf("expected end %v, got %v", wantEnd, iv.End)
		}
	})

	t.Run("hourly requires start time", func(t *testing.T) {
		_, err := b.Interval(domain.Hourly{PolicyCode: domain.PolicyTwoHour, Hours: 2}, BuildParams{Date: date})
		if !errors.Is(err, domain.ErrStartTimeRequired) {
			t.Fatalf("expected ErrStartTimeRequired, got %v", err)
		}
	})

	t.Run("fixed window spans shop hours", func(t *testing.T) {
		iv, err := b.Interval(domain.FixedWindow{}, BuildParams{Date: date})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !iv.Start.Equal(time.Date(2025, 6, 7, 9, 30, 0, 0, loc)) {
			t.Fatalf("expected start at opening, got %v", iv.Start)
		}
		if !iv.End.Equal(time.Date(2025, 6, 7, 18, 0, 0, 0, loc)) {
			t.Fatalf("expected end at closing, got %v", iv.End)
		}
	})

	t.Run("immediate walk-in starts now", func(t *testing.T) {
		now := time.Date(2025, 6, 7, 14, 5, 0, 0, loc)
		iv, err := b.Interval(domain.FixedWindow{}, BuildParams{
			Date:      date,
			Now:       now,
			Immediate: true,
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !iv.Start.Equal(now) {
			t.Fatalf("expected start %v, got %v", now, iv.Start)
		}
		if !iv.End.Equal(time.Date(2025, 6, 7, 18, 0, 0, 0, loc)) {
			t.Fatalf("expected end at today's closing, got %v", iv.End)
		}
	})

	t.Run("immediate walk-in past closing rolls to next day", func(t *testing.T) {
		now := time.Date(2025, 6, 7, 19, 30, 0, 0, loc)
		iv, err := b.Interval(domain.FixedWindow{}, BuildParams{
			Date:      date,
			Now:       now,
			Immediate: true,
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !iv.End.Equal(time.Date(2025, 6, 8, 18, 0, 0, 0, loc)) {
			t.Fatalf("expected end at next day's closing, got %v", iv.End)
		}
	})

	t.Run("multi-day spans inclusive end date", func(t *testing.T) {
		end := time.Date(2025, 6, 9, 0, 0, 0, 0, loc)
		iv, err := b.Interval(domain.MultiDay{}, BuildParams{
			Date:    date,
			EndDate: &end,
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !iv.Start.Equal(time.Date(2025, 6, 7, 0, 0, 0, 0, loc)) {
			t.Fatalf("expected start at midnight, got %v", iv.Start)
		}
		// 7th through 9th inclusive ends at the 10th's midnight.
		if !iv.End.Equal(time.Date(2025, 6, 10, 0, 0, 0, 0, loc)) {
			t.Fatalf("expected end at midnight after last day, got %v", iv.End)
		}
	})

	t.Run("multi-day requires end date", func(t *testing.T) {
		_, err := b.Interval(domain.MultiDay{}, BuildParams{Date: date})
		if !errors.Is(err, domain.ErrEndDateRequired) {
			t.Fatalf("expected ErrEndDateRequired, got %v", err)
		}
	})

	t.Run("multi-day rejects end before start", func(t *testing.T) {
		end := date.AddDate(0, 0, -1)
		_, err := b.Interval(domain.MultiDay{}, BuildParams{Date: date, EndDate: &end})
		if !errors.Is(err, domain.ErrEndBeforeStart) {
			t.Fatalf("expected ErrEndBeforeStart, got %v", err)
		}
	})
}

func TestInclusiveDays(t *testing.T) {
	t.Parallel()

	day := func(d int) time.Time {
		return time.Date(2025, 6, d, 0, 0, 0, 0, time.UTC)
	}

	cases := []struct {
		name  string
		start time.Time
		end   time.Time
		want  int
	}{
		{"same day", day(7), day(7), 1},
		{"three days", day(7), day(9), 3},
		{"mid-day timestamps round to dates", day(7).Add(15 * time.Hour), day(9).Add(2 * time.Hour), 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := InclusiveDays(tc.start, tc.end)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %d days, got %d", tc.want, got)
			}
		})
	}

	t.Run("end before start", func(t *testing.T) {
		_, err := InclusiveDays(day(9), day(7))
		if !errors.Is(err, domain.ErrEndBeforeStart) {
			t.Fatalf("expected ErrEndBeforeStart, got %v", err)
		}
	})
}

func TestInclusiveDaysMatchesIntervalBound(t *testing.T) {
	t.Parallel()

	loc := time.UTC
	b := NewBuilder(loc, ShopHours{
		Open:  domain.TimeOfDay{Hour: 9, Minute: 30},
		Close: domain.TimeOfDay{Hour: 18, Minute: 0},
	})
	start := time.Date(2025, 6, 7, 0, 0, 0, 0, loc)
	end := time.Date(2025, 6, 11, 0, 0, 0, 0, loc)

	days, err := InclusiveDays(start, end)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	iv, err := b.Interval(domain.MultiDay{}, BuildParams{Date: start, EndDate: &end})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !iv.End.Equal(iv.Start.AddDate(0, 0, days)) {
		t.Fatalf("interval bound %v disagrees with %d-day count", iv.End, days)
	}
}
