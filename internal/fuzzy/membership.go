package fuzzy

import (
	"fmt"
	"math"
)

// Membership functions. Each vector form validates its parameters once and
// then maps the scalar form over x. Outputs are always clipped to [0,1].

func clip01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// rising returns (x-a)/(b-a), or 1 for a degenerate shoulder (a == b).
func rising(x, a, b float64) float64 {
	if a == b {
		return 1
	}
	return (x - a) / (b - a)
}

// falling returns (b-x)/(b-a), or 1 for a degenerate shoulder (a == b).
func falling(x, a, b float64) float64 {
	if a == b {
		return 1
	}
	return (b - x) / (b - a)
}

func finiteParams(shape string, params ...float64) error {
	for i, p := range params {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return fmt.Errorf("%s: parameter %d is not finite (%v): %w", shape, i, p, ErrInvalidParameter)
		}
	}
	return nil
}

func ordered(shape string, params ...float64) error {
	if err := finiteParams(shape, params...); err != nil {
		return err
	}
	for i := 1; i < len(params); i++ {
		if params[i-1] > params[i] {
			return fmt.Errorf("%s: parameters must be non-decreasing, got %v: %w", shape, params, ErrInvalidParameter)
		}
	}
	return nil
}

func mapScalar(x []float64, f func(float64) float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = f(v)
	}
	return out
}

func trim(x, a, b, c float64) float64 {
	return clip01(math.Min(rising(x, a, b), falling(x, b, c)))
}

func trap(x, a, b, c, d float64) float64 {
	return clip01(math.Min(math.Min(rising(x, a, b), 1), falling(x, c, d)))
}

func sig(x, a, c float64) float64 {
	return clip01(1 / (1 + math.Exp(-a*(x-c))))
}

func sCurve(x, a, b float64) float64 {
	mid := (a + b) / 2
	switch {
	case x <= a:
		return 0
	case x < mid:
		t := (x - a) / (b - a)
		return clip01(2 * t * t)
	case x < b:
		t := (b - x) / (b - a)
		return clip01(1 - 2*t*t)
	default:
		return 1
	}
}

// zCurve is the mirrored S-curve, falling from 1 at c to 0 at d.
func zCurve(x, c, d float64) float64 {
	mid := (c + d) / 2
	switch {
	case x <= c:
		return 1
	case x <= mid:
		t := (x - c) / (d - c)
		return clip01(1 - 2*t*t)
	case x < d:
		t := (d - x) / (d - c)
		return clip01(2 * t * t)
	default:
		return 0
	}
}

func pi(x, a, b, c, d float64) float64 {
	if x >= d {
		return 0
	}
	if x <= b {
		if a == b {
			if x < a {
				return 0
			}
			return 1
		}
		return sCurve(x, a, b)
	}
	if x <= c {
		return 1
	}
	return zCurve(x, c, d)
}

// Trimf is the triangular membership function with feet a, c and peak b.
// A degenerate shoulder (a == b or b == c) evaluates its ratio as 1.
func Trimf(x []float64, a, b, c float64) ([]float64, error) {
	if err := ordered("trimf", a, b, c); err != nil {
		return nil, err
	}
	return mapScalar(x, func(v float64) float64 { return trim(v, a, b, c) }), nil
}

// Trapmf is the trapezoidal membership function with feet a, d and plateau [b,c].
func Trapmf(x []float64, a, b, c, d float64) ([]float64, error) {
	if err := ordered("trapmf", a, b, c, d); err != nil {
		return nil, err
	}
	return mapScalar(x, func(v float64) float64 { return trap(v, a, b, c, d) }), nil
}

// Sigmf is the sigmoid 1/(1+exp(-a(x-c))).
func Sigmf(x []float64, a, c float64) ([]float64, error) {
	if err := finiteParams("sigmf", a, c); err != nil {
		return nil, err
	}
	return mapScalar(x, func(v float64) float64 { return sig(v, a, c) }), nil
}

// Smf is the quadratic S-curve rising from 0 at a to 1 at b. Requires a < b.
func Smf(x []float64, a, b float64) ([]float64, error) {
	if err := finiteParams("smf", a, b); err != nil {
		return nil, err
	}
	if a >= b {
		return nil, fmt.Errorf("smf: a must be lower than b, got a=%v b=%v: %w", a, b, ErrInvalidParameter)
	}
	return mapScalar(x, func(v float64) float64 { return sCurve(v, a, b) }), nil
}

// Pimf rises along an S-curve from a to b, stays at 1 on [b,c] and falls
// along the mirrored curve from c to d. The right foot is always 0, even
// when c == d.
func Pimf(x []float64, a, b, c, d float64) ([]float64, error) {
	if err := ordered("pimf", a, b, c, d); err != nil {
		return nil, err
	}
	return mapScalar(x, func(v float64) float64 { return pi(v, a, b, c, d) }), nil
}
