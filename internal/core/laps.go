package core

import (
	"fmt"
	"strconv"
	"strings"
)

// Track lengths in meters.
const (
	FieldLapMeters = 120
	GymLapMeters   = 50
)

// DistanceFromLaps converts lap counts on the field and gym tracks to meters.
func DistanceFromLaps(fieldLaps, gymLaps int) (int64, error) {
	if fieldLaps < 0 || gymLaps < 0 {
		return 0, ErrNegativeLaps
	}
	return int64(fieldLaps)*FieldLapMeters + int64(gymLaps)*GymLapMeters, nil
}

// ParseLaps parses a lap count from a form value. Empty means zero.
func ParseLaps(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: lap count %q is not a whole number", ErrInvalidInput, s)
	}
	if n < 0 {
		return 0, ErrNegativeLaps
	}
	return n, nil
}
