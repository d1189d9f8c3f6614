package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// minuteOfDay converts a clock time to minutes since midnight.
func minuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// parseClock parses an "HH:MM" string into minutes since midnight.
func parseClock(value string) (int, error) {
	value = strings.TrimSpace(value)
	parts := strings.SplitN(value, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock value %q", value)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("invalid hour in %q", value)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid minute in %q", value)
	}

	return hour*60 + minute, nil
}

// inQuietHours reports whether now falls inside the configured quiet window.
// A start later than the end means the window spans midnight. Unparseable or
// absent bounds disable the window, erring toward delivery.
func inQuietHours(start, end string, now time.Time) bool {
	if strings.TrimSpace(start) == "" || strings.TrimSpace(end) == "" {
		return false
	}

	startMin, err := parseClock(start)
	if err != nil {
		return false
	}
	endMin, err := parseClock(end)
	if err != nil {
		return false
	}

	current := minuteOfDay(now)
	if startMin > endMin {
		// Overnight window, e.g. 22:00-08:00.
		return current >= startMin || current <= endMin
	}
	return current >= startMin && current <= endMin
}
