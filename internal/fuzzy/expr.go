package fuzzy

import (
	"fmt"
	"math"
	"strings"
)

// Expr is a membership expression: either a leaf shape or an operator node
// over other expressions. Evaluation is recursive and never cached, so a
// derived set always reflects its operands.
//
// The set of node types is closed; new behaviour is added through Custom
// leaves or new operator families, not new node types.
type Expr interface {
	// Eval returns the membership degree of x, in [0,1].
	Eval(x float64) float64
	String() string
	isExpr()
}

// ShapeKind enumerates the parametric leaf shapes.
type ShapeKind int

const (
	ShapeTriangular ShapeKind = iota
	ShapeTrapezoidal
	ShapeSigmoid
	ShapeS
	ShapePi
	ShapeSingleton
)

var shapeNames = map[ShapeKind]string{
	ShapeTriangular:  "trimf",
	ShapeTrapezoidal: "trapmf",
	ShapeSigmoid:     "sigmf",
	ShapeS:           "smf",
	ShapePi:          "pimf",
	ShapeSingleton:   "singleton",
}

func (k ShapeKind) String() string {
	if n, ok := shapeNames[k]; ok {
		return n
	}
	return fmt.Sprintf("ShapeKind(%d)", int(k))
}

// Shape is a leaf node evaluating one of the standard membership functions.
// Build it with NewShape so the parameters are validated.
type Shape struct {
	Kind   ShapeKind
	Params []float64
}

var shapeArity = map[ShapeKind]int{
	ShapeTriangular:  3,
	ShapeTrapezoidal: 4,
	ShapeSigmoid:     2,
	ShapeS:           2,
	ShapePi:          4,
	ShapeSingleton:   1,
}

// NewShape validates params for kind and returns the leaf.
func NewShape(kind ShapeKind, params ...float64) (Shape, error) {
	arity, ok := shapeArity[kind]
	if !ok {
		return Shape{}, fmt.Errorf("unknown shape %v: %w", kind, ErrInvalidParameter)
	}
	if len(params) != arity {
		return Shape{}, fmt.Errorf("%v takes %d parameters, got %d: %w", kind, arity, len(params), ErrInvalidParameter)
	}
	var err error
	switch kind {
	case ShapeTriangular, ShapeTrapezoidal, ShapePi:
		err = ordered(kind.String(), params...)
	case ShapeS:
		err = finiteParams(kind.String(), params...)
		if err == nil && params[0] >= params[1] {
			err = fmt.Errorf("smf: a must be lower than b, got a=%v b=%v: %w", params[0], params[1], ErrInvalidParameter)
		}
	default:
		err = finiteParams(kind.String(), params...)
	}
	if err != nil {
		return Shape{}, err
	}
	return Shape{Kind: kind, Params: append([]float64(nil), params...)}, nil
}

func (s Shape) Eval(x float64) float64 {
	p := s.Params
	switch s.Kind {
	case ShapeTriangular:
		return trim(x, p[0], p[1], p[2])
	case ShapeTrapezoidal:
		return trap(x, p[0], p[1], p[2], p[3])
	case ShapeSigmoid:
		return sig(x, p[0], p[1])
	case ShapeS:
		return sCurve(x, p[0], p[1])
	case ShapePi:
		return pi(x, p[0], p[1], p[2], p[3])
	case ShapeSingleton:
		if math.Abs(x-p[0]) <= Epsilon {
			return 1
		}
		return 0
	}
	return 0
}

func (s Shape) String() string {
	parts := make([]string, len(s.Params))
	for i, p := range s.Params {
		parts[i] = fmt.Sprintf("%g", p)
	}
	return fmt.Sprintf("%v(%s)", s.Kind, strings.Join(parts, ", "))
}

func (Shape) isExpr() {}

// Custom wraps an arbitrary membership function. Its output is clipped to [0,1].
type Custom struct {
	Name string
	Fn   func(float64) float64
}

func (c Custom) Eval(x float64) float64 { return clip01(c.Fn(x)) }
func (c Custom) String() string         { return c.Name }
func (Custom) isExpr()                  {}

// TNormExpr is the pointwise t-norm of two expressions under Family.
type TNormExpr struct {
	Family      Family
	Left, Right Expr
}

func (n TNormExpr) Eval(x float64) float64 {
	return n.Family.ops.TNorm(n.Left.Eval(x), n.Right.Eval(x))
}

func (n TNormExpr) String() string {
	return fmt.Sprintf("%s.tnorm(%v, %v)", n.Family, n.Left, n.Right)
}

func (TNormExpr) isExpr() {}

// TConormExpr is the pointwise t-conorm of two expressions under Family.
type TConormExpr struct {
	Family      Family
	Left, Right Expr
}

func (n TConormExpr) Eval(x float64) float64 {
	return n.Family.ops.TConorm(n.Left.Eval(x), n.Right.Eval(x))
}

func (n TConormExpr) String() string {
	return fmt.Sprintf("%s.tconorm(%v, %v)", n.Family, n.Left, n.Right)
}

func (TConormExpr) isExpr() {}

// ComplementExpr is the pointwise complement of Arg under Family.
type ComplementExpr struct {
	Family Family
	Arg    Expr
}

func (n ComplementExpr) Eval(x float64) float64 {
	return n.Family.ops.Complement(n.Arg.Eval(x))
}

func (n ComplementExpr) String() string {
	return fmt.Sprintf("%s.complement(%v)", n.Family, n.Arg)
}

func (ComplementExpr) isExpr() {}
