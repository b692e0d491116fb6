package reservation

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	SlotMinutes = 15
	SlotsPerDay = 24 * 60 / SlotMinutes // 96
)

// GenerateSlots returns every bookable start time of a day as "HH:MM", ascending from 00:00.
func GenerateSlots() []string {
	out := make([]string, 0, SlotsPerDay)
	for m := 0; m < 24*60; m += SlotMinutes {
		out = append(out, fmt.Sprintf("%02d:%02d", m/60, m%60))
	}
	return out
}

// FormatSlot renders "HH:MM" on a 12-hour clock, e.g. "00:00" -> "12:00 AM".
// Display only; the result is never parsed back.
func FormatSlot(slot string) string {
	h, m, err := splitClock(slot)
	if err != nil {
		return slot
	}
	ampm := "AM"
	if h >= 12 {
		ampm = "PM"
	}
	h12 := h % 12
	if h12 == 0 {
		h12 = 12
	}
	return fmt.Sprintf("%d:%02d %s", h12, m, ampm)
}

// IsSlot reports whether s is one of the 96 grid values.
func IsSlot(s string) bool {
	if len(s) != 5 {
		return false
	}
	h, m, err := splitClock(s)
	if err != nil {
		return false
	}
	return h < 24 && m < 60 && m%SlotMinutes == 0
}

// NormalizeTime trims the seconds the server appends ("19:00:00" -> "19:00").
func NormalizeTime(s string) string {
	s = strings.TrimSpace(s)
	if len(s) == 8 && strings.Count(s, ":") == 2 {
		return s[:5]
	}
	return s
}

func splitClock(s string) (int, int, error) {
	parts := strings.Split(NormalizeTime(s), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q (want HH:MM)", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h, m, nil
}
