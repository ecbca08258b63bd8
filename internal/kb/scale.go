package kb

import (
	"fmt"
	"math"

	"bioclas/internal/fuzzy"
)

// ScaleKind names how a variable's normalised domain maps to physical units.
type ScaleKind int

const (
	Linear ScaleKind = iota
	Exponential
)

func (k ScaleKind) String() string {
	if k == Exponential {
		return "Exponencial"
	}
	return "Lineal"
}

// Scale converts between physical values and a variable's domain.
// An exponential scale with base B and constant K maps v to log_B(v/K).
type Scale struct {
	Kind     ScaleKind
	Base     float64
	Constant float64
}

// LinearScale is the identity mapping.
var LinearScale = Scale{Kind: Linear}

// NewExponentialScale validates B > 0, B != 1 and K > 0.
func NewExponentialScale(base, constant float64) (Scale, error) {
	if !(base > 0) || base == 1 || math.IsInf(base, 0) {
		return Scale{}, fmt.Errorf("exponential scale base %v must be positive and not 1: %w", base, ErrDefinition)
	}
	if !(constant > 0) || math.IsInf(constant, 0) {
		return Scale{}, fmt.Errorf("exponential scale constant %v must be positive: %w", constant, ErrDefinition)
	}
	return Scale{Kind: Exponential, Base: base, Constant: constant}, nil
}

// Normalize maps a physical value into domain units.
func (s Scale) Normalize(v float64) (float64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("value %v is not finite: %w", v, fuzzy.ErrInvalidValue)
	}
	if s.Kind == Linear {
		return v, nil
	}
	if v <= 0 {
		return 0, fmt.Errorf("value %v must be positive on an exponential scale: %w", v, fuzzy.ErrInvalidValue)
	}
	return math.Log(v/s.Constant) / math.Log(s.Base), nil
}

// Denormalize maps a domain value back to physical units.
func (s Scale) Denormalize(x float64) float64 {
	if s.Kind == Linear {
		return x
	}
	return s.Constant * math.Pow(s.Base, x)
}

// PhysicalDomain returns the domain bounds in physical units.
func (s Scale) PhysicalDomain(d fuzzy.Domain) fuzzy.Domain {
	return fuzzy.Domain{Lo: s.Denormalize(d.Lo), Hi: s.Denormalize(d.Hi)}
}

func (s Scale) String() string {
	if s.Kind == Linear {
		return s.Kind.String()
	}
	return fmt.Sprintf("%s(B=%g, K=%g)", s.Kind, s.Base, s.Constant)
}
