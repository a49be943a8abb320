// Package schedule derives bookable time slots from a doctor's working-hours
// window. Slots are start times on the half-open interval [from, to): a slot
// is emitted only while its start is strictly before the closing time, and no
// partial final slot is produced.
package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"tritmo/internal/models"
)

// ParseClock parses a zero-padded or bare "HH:MM" wall-clock string into
// minutes since midnight.
func ParseClock(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock value %q", s)
	}
	hour, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, fmt.Errorf("invalid hour in %q: %w", s, err)
	}
	minute, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, fmt.Errorf("invalid minute in %q: %w", s, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("clock value %q out of range", s)
	}
	return hour*60 + minute, nil
}

func formatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// Slots generates the candidate slot start times for a working-hours window.
// Missing or malformed inputs yield an empty list, never an error: a doctor
// without configured hours simply has nothing bookable.
func Slots(from, to string, slotDuration int) []string {
	if from == "" || to == "" || slotDuration <= 0 {
		return nil
	}
	start, err := ParseClock(from)
	if err != nil {
		return nil
	}
	end, err := ParseClock(to)
	if err != nil {
		return nil
	}

	var slots []string
	for cursor := start; cursor < end; cursor += slotDuration {
		slots = append(slots, formatClock(cursor))
	}
	return slots
}

// AvailableSlots computes the bookable slots for a doctor on a given date,
// dropping slots already taken. Recomputed on every call; nothing is cached
// across doctors. A date outside the doctor's working days has no slots.
func AvailableSlots(profile *models.DoctorProfile, date time.Time, booked []string) []string {
	if profile == nil || !profile.WorksOn(date.Weekday()) {
		return nil
	}

	taken := make(map[string]bool, len(booked))
	for _, slot := range booked {
		taken[slot] = true
	}

	var available []string
	for _, slot := range Slots(profile.WorkingHoursFrom, profile.WorkingHoursTo, profile.SlotDurationMinutes) {
		if !taken[slot] {
			available = append(available, slot)
		}
	}
	return available
}
