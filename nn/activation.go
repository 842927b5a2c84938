package nn

import (
	"fmt"
	"math"
	"sort"
)

// Activator is an element-wise nonlinearity. Derivative is evaluated at the
// pre-activation value x, not at Activate(x).
type Activator interface {
	Activate(x float64) float64
	Derivative(x float64) float64
	fmt.Stringer
}

// ActivatorLookup maps activation names to implementations.
var ActivatorLookup = map[string]Activator{
	"linear":  Linear{},
	"sigmoid": Sigmoid{},
	"relu":    ReLU{},
	"tanh":    Tanh{},
}

// LookupActivator returns the activator registered under name.
func LookupActivator(name string) (Activator, error) {
	a, ok := ActivatorLookup[name]
	if !ok {
		return nil, fmt.Errorf("unknown activation %q (want one of %v)", name, ActivationNames())
	}
	return a, nil
}

// ActivationNames returns the registered names in sorted order.
func ActivationNames() []string {
	names := make([]string, 0, len(ActivatorLookup))
	for name := range ActivatorLookup {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type Linear struct{}

func (Linear) Activate(x float64) float64 { return x }

func (Linear) Derivative(float64) float64 { return 1 }

func (Linear) String() string {
	return "linear"
}

// maxExp bounds the exponent argument of Sigmoid; exp(±500) is finite.
const maxExp = 500

type Sigmoid struct{}

func (s Sigmoid) Activate(x float64) float64 {
	x = clamp(x, -maxExp, maxExp)
	if x >= 0 {
		return 1.0 / (1.0 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1.0 + e)
}

func (s Sigmoid) Derivative(x float64) float64 {
	y := s.Activate(x)
	return y * (1 - y)
}

func (s Sigmoid) String() string {
	return "sigmoid"
}

type Tanh struct{}

func (Tanh) Activate(x float64) float64 {
	return math.Tanh(x)
}

func (Tanh) Derivative(x float64) float64 {
	t := math.Tanh(x)
	return 1.0 - t*t
}

func (Tanh) String() string {
	return "tanh"
}

// ReLU uses the subgradient 0 at x == 0.
type ReLU struct{}

func (ReLU) Activate(x float64) float64 {
	if x > 0 {
		return x
	}
	return 0
}

func (ReLU) Derivative(x float64) float64 {
	if x > 0 {
		return 1
	}
	return 0
}

func (ReLU) String() string {
	return "relu"
}
