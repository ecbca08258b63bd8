// Package fuzzy implements the fuzzy inference engine behind the life-zone
// classifier: membership functions, fuzzy sets built as expression trees,
// parametrised operator families, linguistic variables (quantitative and
// qualitative), rules and the rule base (FIS).
//
// Typical flow:
//
//	v, _ := fuzzy.NewVariable("e", fuzzy.Domain{Lo: -20, Hi: 20})
//	cero, _ := fuzzy.Triangular("cero", -2, 0, 2)
//	_ = v.AddSet(cero)
//	sys, _ := fuzzy.New([]*fuzzy.Variable{v}, out)
//	_ = sys.AddRule("r1", map[string]string{"e": "cero"}, "media")
//	cv, degrees, _ := sys.Eval(map[string]float64{"e": 0.8}, fuzzy.Mamdani)
//	crisp, _ := cv.Defuzzify(degrees, fuzzy.Centroid, fuzzy.Mamdani, 0.01)
//
// Everything in this package is pure: no I/O, no logging, no shared mutable
// state once construction is finished. A FIS, its variables and its rules
// become read-only on the first Eval and may then be shared across
// goroutines.
package fuzzy
