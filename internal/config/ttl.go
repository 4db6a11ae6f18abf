package config

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"
)

var errInvalidDuration = errors.New("invalid duration")

// durationLabels maps every unit label Scala Steward accepts, in the form
// Scala's Duration parser knows them: a short label, then words which may
// also take a plural "s".
//
//nolint:gochecknoglobals // Read-only lookup table.
var durationLabels = expandLabels(map[time.Duration][]string{
	24 * time.Hour:   {"d", "day"},
	time.Hour:        {"h", "hr", "hour"},
	time.Minute:      {"m", "min", "minute"},
	time.Second:      {"s", "sec", "second"},
	time.Millisecond: {"ms", "milli", "millisecond"},
	time.Microsecond: {"µs", "micro", "microsecond"},
	time.Nanosecond:  {"ns", "nano", "nanosecond"},
})

func expandLabels(units map[time.Duration][]string) map[string]time.Duration {
	labels := make(map[string]time.Duration)

	for unit, names := range units {
		labels[names[0]] = unit

		for _, word := range names[1:] {
			labels[word] = unit
			labels[word+"s"] = unit
		}
	}

	return labels
}

// ParseTTL parses durations such as "2hours", "30min", "1.5 days", "20mins"
// or "90s". Whitespace is ignored and the amount may be fractional.
func ParseTTL(value string) (time.Duration, error) {
	compact := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}

		return r
	}, value)

	split := strings.LastIndexFunc(compact, func(r rune) bool { return !unicode.IsLetter(r) }) + 1
	if split == 0 || split == len(compact) {
		return 0, fmt.Errorf("%w: %q", errInvalidDuration, value)
	}

	unit, ok := durationLabels[compact[split:]]
	if !ok {
		return 0, fmt.Errorf("%w: unknown unit in %q", errInvalidDuration, value)
	}

	amount, err := strconv.ParseFloat(compact[:split], 64)
	if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, fmt.Errorf("%w: %q", errInvalidDuration, value)
	}

	nanos := amount * float64(unit)
	if nanos > math.MaxInt64 || nanos < math.MinInt64 {
		return 0, fmt.Errorf("%w: %q overflows", errInvalidDuration, value)
	}

	return time.Duration(math.Round(nanos)), nil
}
