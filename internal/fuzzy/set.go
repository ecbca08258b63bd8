package fuzzy

import (
	"fmt"
	"math"
	"strings"
)

// Set is a named fuzzy set. It is immutable once built.
type Set struct {
	name string
	expr Expr
}

// NewSet names an expression. The name must contain a non-blank character.
func NewSet(name string, e Expr) (*Set, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("fuzzy set name %q: %w", name, ErrInvalidName)
	}
	if e == nil {
		return nil, fmt.Errorf("fuzzy set %q has no membership expression: %w", name, ErrInvalidParameter)
	}
	switch c := e.(type) {
	case Custom:
		if c.Fn == nil {
			return nil, fmt.Errorf("fuzzy set %q: custom function %q is nil: %w", name, c.Name, ErrInvalidParameter)
		}
	case *Custom:
		if c == nil || c.Fn == nil {
			return nil, fmt.Errorf("fuzzy set %q: custom function is nil: %w", name, ErrInvalidParameter)
		}
	}
	return &Set{name: name, expr: e}, nil
}

func newShapeSet(name string, kind ShapeKind, params ...float64) (*Set, error) {
	shape, err := NewShape(kind, params...)
	if err != nil {
		return nil, fmt.Errorf("fuzzy set %q: %w", name, err)
	}
	return NewSet(name, shape)
}

// Triangular builds a set with trimf(a, b, c).
func Triangular(name string, a, b, c float64) (*Set, error) {
	return newShapeSet(name, ShapeTriangular, a, b, c)
}

// Trapezoidal builds a set with trapmf(a, b, c, d).
func Trapezoidal(name string, a, b, c, d float64) (*Set, error) {
	return newShapeSet(name, ShapeTrapezoidal, a, b, c, d)
}

// Sigmoid builds a set with sigmf(a, c).
func Sigmoid(name string, a, c float64) (*Set, error) {
	return newShapeSet(name, ShapeSigmoid, a, c)
}

// S builds a set with smf(a, b).
func S(name string, a, b float64) (*Set, error) {
	return newShapeSet(name, ShapeS, a, b)
}

// Pi builds a set with pimf(a, b, c, d).
func Pi(name string, a, b, c, d float64) (*Set, error) {
	return newShapeSet(name, ShapePi, a, b, c, d)
}

// Singleton builds a set that is 1 within Epsilon of v and 0 elsewhere.
func Singleton(name string, v float64) (*Set, error) {
	return newShapeSet(name, ShapeSingleton, v)
}

func (s *Set) Name() string { return s.name }

// Expr returns the membership expression backing the set.
func (s *Set) Expr() Expr { return s.expr }

func (s *Set) String() string { return fmt.Sprintf("%s: %v", s.name, s.expr) }

// DOF returns the degree of membership of a single value.
func (s *Set) DOF(x float64) float64 { return s.expr.Eval(x) }

// MF evaluates the membership of every value in xs.
func (s *Set) MF(xs []float64) []float64 {
	return mapScalar(xs, s.expr.Eval)
}

// sampled evaluates the set over the sampled domain.
func (s *Set) sampled(d Domain, step float64) ([]float64, []float64, error) {
	xs, err := d.Sample(step)
	if err != nil {
		return nil, nil, fmt.Errorf("fuzzy set %q: %w", s.name, err)
	}
	return xs, s.MF(xs), nil
}

func (s *Set) where(d Domain, step float64, keep func(mu float64) bool) ([]float64, error) {
	xs, mu, err := s.sampled(d, step)
	if err != nil {
		return nil, err
	}
	out := make([]float64, 0, len(xs))
	for i, x := range xs {
		if keep(mu[i]) {
			out = append(out, x)
		}
	}
	return out, nil
}

// Support returns the sampled points with membership above Epsilon.
func (s *Set) Support(d Domain, step float64) ([]float64, error) {
	return s.where(d, step, func(mu float64) bool { return mu > Epsilon })
}

// Kernel returns the sampled points with membership of 1 within Epsilon.
func (s *Set) Kernel(d Domain, step float64) ([]float64, error) {
	return s.where(d, step, func(mu float64) bool { return mu >= 1-Epsilon })
}

// AlphaCut returns the sampled points with membership of at least alpha,
// within Epsilon.
func (s *Set) AlphaCut(d Domain, step, alpha float64) ([]float64, error) {
	if math.IsNaN(alpha) || alpha < 0 || alpha > 1 {
		return nil, fmt.Errorf("alpha %v outside [0,1]: %w", alpha, ErrInvalidValue)
	}
	return s.where(d, step, func(mu float64) bool { return mu >= alpha-Epsilon })
}

// Height returns the maximum sampled membership, or 0 when no point is sampled.
func (s *Set) Height(d Domain, step float64) (float64, error) {
	_, mu, err := s.sampled(d, step)
	if err != nil {
		return 0, err
	}
	h := 0.0
	for _, m := range mu {
		h = math.Max(h, m)
	}
	return h, nil
}

// IsNormal reports whether the set reaches 1 within Epsilon.
func (s *Set) IsNormal(d Domain, step float64) (bool, error) {
	h, err := s.Height(d, step)
	return err == nil && h >= 1-Epsilon, err
}

// IsEmpty reports whether the set stays within Epsilon of 0.
func (s *Set) IsEmpty(d Domain, step float64) (bool, error) {
	h, err := s.Height(d, step)
	return err == nil && h <= Epsilon, err
}
