package fuzzy

import (
	"fmt"
	"math"
)

// Epsilon is the tolerance used by every threshold query on sampled sets.
const Epsilon = 1e-6

// maxSamples bounds the size of a sampled domain.
const maxSamples = 100_000_000

// Domain is the closed interval [Lo, Hi] of a linguistic variable. It is
// sampled as the half-open range [Lo, Hi).
type Domain struct {
	Lo float64
	Hi float64
}

// NewDomain validates and returns the interval [lo, hi].
func NewDomain(lo, hi float64) (Domain, error) {
	d := Domain{Lo: lo, Hi: hi}
	return d, d.Validate()
}

// Validate reports whether the bounds are finite and ordered.
func (d Domain) Validate() error {
	if math.IsNaN(d.Lo) || math.IsInf(d.Lo, 0) || math.IsNaN(d.Hi) || math.IsInf(d.Hi, 0) {
		return fmt.Errorf("domain [%v, %v] has non-finite bounds: %w", d.Lo, d.Hi, ErrInvalidParameter)
	}
	if d.Lo > d.Hi {
		return fmt.Errorf("domain [%v, %v] is reversed: %w", d.Lo, d.Hi, ErrInvalidParameter)
	}
	return nil
}

// Width returns Hi - Lo.
func (d Domain) Width() float64 { return d.Hi - d.Lo }

// Contains reports whether x lies in [Lo, Hi].
func (d Domain) Contains(x float64) bool { return x >= d.Lo && x <= d.Hi }

// Clamp limits x to [Lo, Hi].
func (d Domain) Clamp(x float64) float64 { return math.Max(d.Lo, math.Min(d.Hi, x)) }

// Sample returns Lo, Lo+step, ... strictly below Hi. The upper bound is
// never included; callers that need it must widen the domain.
func (d Domain) Sample(step float64) ([]float64, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if !(step > 0) || math.IsInf(step, 0) {
		return nil, fmt.Errorf("sampling step %v must be a positive finite number: %w", step, ErrInvalidParameter)
	}
	n := math.Ceil((d.Hi - d.Lo) / step)
	if n > maxSamples {
		return nil, fmt.Errorf("sampling [%v, %v) at step %v needs %.0f points (limit %d): %w",
			d.Lo, d.Hi, step, n, maxSamples, ErrInvalidParameter)
	}
	xs := make([]float64, 0, int(n))
	for i := 0; i < int(n); i++ {
		x := d.Lo + float64(i)*step
		if x >= d.Hi {
			break
		}
		xs = append(xs, x)
	}
	return xs, nil
}

func (d Domain) String() string { return fmt.Sprintf("[%g, %g]", d.Lo, d.Hi) }
