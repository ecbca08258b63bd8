package fuzzy

import (
	"fmt"
	"math"
	"strings"
)

// Mode selects how rules conjoin antecedents, clip consequents and
// aggregate firings.
type Mode int

const (
	// Mamdani uses min for conjunction and implication, max for aggregation.
	Mamdani Mode = iota + 1
	// Larsen uses product for conjunction and implication, probabilistic sum
	// for aggregation.
	Larsen
)

// ParseMode accepts "mamdani" and "larsen", case-insensitively. The legacy
// spelling "mandami" found in older rule files is accepted as Mamdani.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mamdani", "mandami":
		return Mamdani, nil
	case "larsen":
		return Larsen, nil
	}
	return 0, fmt.Errorf("inference mode %q: expected %q or %q: %w", s, Mamdani, Larsen, ErrUnsupportedMode)
}

func (m Mode) String() string {
	switch m {
	case Mamdani:
		return "mamdani"
	case Larsen:
		return "larsen"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Valid returns an error wrapping ErrUnsupportedMode for unknown modes.
func (m Mode) Valid() error {
	if m == Mamdani || m == Larsen {
		return nil
	}
	return fmt.Errorf("inference mode %v: expected %q or %q: %w", m, Mamdani, Larsen, ErrUnsupportedMode)
}

// TNorm is the conjunction / implication operator of the mode.
func (m Mode) TNorm(a, b float64) float64 {
	if m == Larsen {
		return a * b
	}
	return math.Min(a, b)
}

// TConorm is the aggregation operator of the mode.
func (m Mode) TConorm(a, b float64) float64 {
	if m == Larsen {
		return probabilisticSum(a, b)
	}
	return math.Max(a, b)
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	if err := m.Valid(); err != nil {
		return nil, err
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(b []byte) error {
	v, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Method selects a defuzzification strategy.
type Method int

const (
	Centroid Method = iota + 1
	AverageMax
)

// AverageMaxBand is the absolute band below the maximum used by AverageMax.
const AverageMaxBand = 0.1

// ParseMethod accepts "centroid" and "averageMax", case-insensitively.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "centroid":
		return Centroid, nil
	case "averagemax":
		return AverageMax, nil
	}
	return 0, fmt.Errorf("defuzzification method %q: expected %q or %q: %w", s, Centroid, AverageMax, ErrUnsupportedMethod)
}

func (m Method) String() string {
	switch m {
	case Centroid:
		return "centroid"
	case AverageMax:
		return "averageMax"
	}
	return fmt.Sprintf("Method(%d)", int(m))
}
