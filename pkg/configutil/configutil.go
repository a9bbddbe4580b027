package configutil

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	durationPattern = regexp.MustCompile(`(?i)^(?:(\d+)d)?(?:(\d+)h)?(?:(\d+)m)?(?:(\d+)s)?$`)
	byteSizePattern = regexp.MustCompile(`(?i)^\s*([+-]?\d+(?:\.\d+)?)\s*([kmgtpe]?i?b?)?\s*$`)
)

// ParseFlexibleDuration parses durations such as "30d", "1d12h" or "45m10s".
// Anything time.ParseDuration accepts is accepted as well.
func ParseFlexibleDuration(raw string) (time.Duration, error) {
	clean := strings.TrimSpace(raw)
	if clean == "" {
		return 0, fmt.Errorf("invalid duration %q", raw)
	}
	if clean == "0" {
		return 0, nil
	}
	matches := durationPattern.FindStringSubmatch(clean)
	if matches == nil {
		if dur, err := time.ParseDuration(clean); err == nil {
			return dur, nil
		}
		return 0, fmt.Errorf("invalid duration %q", raw)
	}
	var total time.Duration
	for i, unit := range []time.Duration{24 * time.Hour, time.Hour, time.Minute, time.Second} {
		part := matches[i+1]
		if part == "" {
			continue
		}
		n, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse duration %q: %w", raw, err)
		}
		total += time.Duration(n) * unit
	}
	return total, nil
}

// ParseByteSize parses sizes such as "512", "-2kb" or "1.5GiB" into bytes.
// Unit suffixes are binary multiples. Fractional results are rounded to the
// nearest byte.
func ParseByteSize(raw string) (int64, error) {
	clean := strings.TrimSpace(raw)
	if clean == "" {
		return 0, nil
	}
	matches := byteSizePattern.FindStringSubmatch(clean)
	if matches == nil {
		return 0, fmt.Errorf("invalid size %q", raw)
	}
	value, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, fmt.Errorf("parse size %q: %w", matches[1], err)
	}
	unit := strings.ToLower(strings.TrimSpace(matches[2]))
	multiplier, ok := sizeMultiplier(unit)
	if !ok {
		return 0, fmt.Errorf("unknown size unit %q", matches[2])
	}
	total := math.Round(value * float64(multiplier))
	if total >= 1<<63 || total < -(1<<63) {
		return 0, fmt.Errorf("size %q overflows", raw)
	}
	return int64(total), nil
}

// ParseByteCount accepts a plain finite number such as "1e6" or "-512.5",
// falling back to ParseByteSize for values with a unit suffix.
func ParseByteCount(raw string) (float64, error) {
	clean := strings.TrimSpace(raw)
	if clean == "" {
		return 0, fmt.Errorf("size value is required")
	}
	if value, err := strconv.ParseFloat(clean, 64); err == nil {
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return 0, fmt.Errorf("size value %q is not finite", raw)
		}
		return value, nil
	}
	size, err := ParseByteSize(clean)
	if err != nil {
		return 0, err
	}
	return float64(size), nil
}

func sizeMultiplier(unit string) (int64, bool) {
	switch unit {
	case "", "b":
		return 1, true
	case "k", "kb", "kib":
		return 1 << 10, true
	case "m", "mb", "mib":
		return 1 << 20, true
	case "g", "gb", "gib":
		return 1 << 30, true
	case "t", "tb", "tib":
		return 1 << 40, true
	case "p", "pb", "pib":
		return 1 << 50, true
	case "e", "eb", "eib":
		return 1 << 60, true
	default:
		return 0, false
	}
}
