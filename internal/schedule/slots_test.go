package schedule

import (
	"testing"
	"time"

	"tritmo/internal/models"
)

func TestSlots_EvenDivision(t *testing.T) {
	got := Slots("09:00", "12:00", 30)
	want := []string{"09:00", "09:30", "10:00", "10:30", "11:00", "11:30"}

	if len(got) != len(want) {
		t.Fatalf("expected %d slots, got %d (%v)", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("slot %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestSlots_HalfOpenBoundary(t *testing.T) {
	// 09:45 is strictly before 10:00, so it is emitted even though the
	// 45-minute duration would run past the closing time.
	got := Slots("09:00", "10:00", 45)
	want := []string{"09:00", "09:45"}

	if len(got) != 2 {
		t.Fatalf("expected 2 slots, got %d (%v)", len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("slot %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestSlots_UnevenDivision(t *testing.T) {
	// 09:50 starts before 10:00, so it is emitted even though the last
	// consultation runs past closing. No short final slot is invented.
	got := Slots("09:00", "10:00", 25)
	want := []string{"09:00", "09:25", "09:50"}
	if len(got) != len(want) {
		t.Fatalf("expected %d slots, got %d (%v)", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected slots %v", got)
		}
	}
}

func TestSlots_EmptyWindow(t *testing.T) {
	if got := Slots("10:00", "10:00", 30); len(got) != 0 {
		t.Fatalf("expected no slots for zero-width window, got %v", got)
	}
	if got := Slots("11:00", "10:00", 30); len(got) != 0 {
		t.Fatalf("expected no slots for inverted window, got %v", got)
	}
}

func TestSlots_MissingInputs(t *testing.T) {
	if got := Slots("", "12:00", 30); got != nil {
		t.Fatalf("expected nil for missing from, got %v", got)
	}
	if got := Slots("09:00", "", 30); got != nil {
		t.Fatalf("expected nil for missing to, got %v", got)
	}
	if got := Slots("09:00", "12:00", 0); got != nil {
		t.Fatalf("expected nil for zero duration, got %v", got)
	}
	if got := Slots("09:00", "12:00", -15); got != nil {
		t.Fatalf("expected nil for negative duration, got %v", got)
	}
	if got := Slots("nine", "12:00", 30); got != nil {
		t.Fatalf("expected nil for malformed from, got %v", got)
	}
}

func TestSlots_Properties(t *testing.T) {
	cases := []struct {
		from, to string
		duration int
	}{
		{"08:00", "17:00", 15},
		{"09:30", "13:45", 20},
		{"00:00", "23:59", 60},
		{"07:05", "07:50", 7},
	}

	for _, tc := range cases {
		slots := Slots(tc.from, tc.to, tc.duration)

		start, _ := ParseClock(tc.from)
		end, _ := ParseClock(tc.to)
		// One slot per duration step strictly inside [start, end).
		wantCount := (end - start + tc.duration - 1) / tc.duration
		if len(slots) != wantCount {
			t.Fatalf("%s-%s/%d: expected %d slots, got %d", tc.from, tc.to, tc.duration, wantCount, len(slots))
		}

		prev := -1
		for _, s := range slots {
			m, err := ParseClock(s)
			if err != nil {
				t.Fatalf("emitted unparsable slot %q", s)
			}
			if m < start || m >= end {
				t.Fatalf("slot %s outside [%s,%s)", s, tc.from, tc.to)
			}
			if m <= prev {
				t.Fatalf("slots not strictly increasing at %s", s)
			}
			prev = m
		}
	}
}

func TestAvailableSlots_FiltersBooked(t *testing.T) {
	profile := &models.DoctorProfile{
		WorkingDays:         "MON,TUE,WED,THU,FRI",
		WorkingHoursFrom:    "09:00",
		WorkingHoursTo:      "11:00",
		SlotDurationMinutes: 30,
	}
	monday := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)

	got := AvailableSlots(profile, monday, []string{"09:30", "10:30"})
	want := []string{"09:00", "10:00"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestAvailableSlots_NonWorkingDay(t *testing.T) {
	profile := &models.DoctorProfile{
		WorkingDays:         "MON,TUE",
		WorkingHoursFrom:    "09:00",
		WorkingHoursTo:      "17:00",
		SlotDurationMinutes: 30,
	}
	sunday := time.Date(2026, 9, 6, 0, 0, 0, 0, time.UTC)

	if got := AvailableSlots(profile, sunday, nil); len(got) != 0 {
		t.Fatalf("expected no slots on a non-working day, got %v", got)
	}
}

func TestAvailableSlots_NilProfile(t *testing.T) {
	if got := AvailableSlots(nil, time.Now(), nil); got != nil {
		t.Fatalf("expected nil for nil profile, got %v", got)
	}
}
