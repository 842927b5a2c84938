package nn

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// PreActivationLimit bounds pre-activation values before an activation is
// applied.
const PreActivationLimit = 1e6

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// Sanitize maps NaN to 0 and clamps x to ±PreActivationLimit.
func Sanitize(x float64) float64 {
	if math.IsNaN(x) {
		return 0
	}
	return clamp(x, -PreActivationLimit, PreActivationLimit)
}

// randomArray draws size values from U(-1/sqrt(v), 1/sqrt(v)).
func randomArray(size int, v float64, src rand.Source) []float64 {
	dist := distuv.Uniform{
		Min: -1 / math.Sqrt(v),
		Max: 1 / math.Sqrt(v),
		Src: src,
	}

	data := make([]float64, size)
	for i := 0; i < size; i++ {
		data[i] = dist.Rand()
	}
	return data
}

func apply(fn func(v float64) float64, v mat.Vector) *mat.VecDense {
	o := mat.NewVecDense(v.Len(), nil)
	for i := 0; i < v.Len(); i++ {
		o.SetVec(i, fn(v.AtVec(i)))
	}
	return o
}

// rawDense returns the backing slice of a matrix allocated by mat.NewDense.
func rawDense(m *mat.Dense) []float64 {
	return m.RawMatrix().Data
}

func rawVec(v *mat.VecDense) []float64 {
	return v.RawVector().Data
}

func zero(data []float64) {
	for i := range data {
		data[i] = 0
	}
}
