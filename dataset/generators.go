package dataset

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"nnviz/nn"
)

// NewXOR returns the four boolean pairs labelled with their exclusive or.
func NewXOR() *TrainingData {
	return &TrainingData{
		Name: XOR,
		Task: nn.Classification,
		Inputs: [][]float64{
			{0, 0},
			{0, 1},
			{1, 0},
			{1, 1},
		},
		Outputs: [][]float64{
			{0},
			{1},
			{1},
			{0},
		},
	}
}

// NewCircle samples n points uniformly in the unit square. Points closer
// than 0.5 to the centre (0.5, 0.5) are labelled 1.
func NewCircle(n int, src rand.Source) *TrainingData {
	const radius, cx, cy = 0.5, 0.5, 0.5

	d := &TrainingData{Name: Circle, Task: nn.Classification}
	unit := distuv.Uniform{Min: 0, Max: 1, Src: src}
	for i := 0; i < n; i++ {
		x, y := unit.Rand(), unit.Rand()
		label := 0.0
		if math.Hypot(x-cx, y-cy) < radius {
			label = 1
		}
		d.add([]float64{x, y}, label)
	}
	return d
}

// spiralTurns is the number of full turns of each spiral arm.
const spiralTurns = 2

// NewSpiral returns two interleaved spirals, the second rotated by π.
// Point i of arm k has radius i/(n/2)·0.8 + 0.1 and angle
// i/(n/2)·turns·2π + k·π, scaled by 0.5 around (0.5, 0.5). Arm 0 gets the
// extra point when n is odd.
func NewSpiral(n int) *TrainingData {
	d := &TrainingData{Name: Spiral, Task: nn.Classification}
	half := float64(n) / 2
	counts := [2]int{(n + 1) / 2, n / 2}
	for k := 0; k < 2; k++ {
		for i := 0; i < counts[k]; i++ {
			t := float64(i) / half
			r := t*0.8 + 0.1
			theta := t*spiralTurns*math.Pi*2 + float64(k)*math.Pi
			x := 0.5 + r*math.Cos(theta)*0.5
			y := 0.5 + r*math.Sin(theta)*0.5
			d.add([]float64{x, y}, float64(k))
		}
	}
	return d
}

// linearMargin is the smallest distance a linear sample keeps from y = x.
const linearMargin = 0.02

// NewLinear samples n points in the unit square labelled 1 above the
// diagonal y = x and 0 below it. Points within linearMargin of the diagonal
// are redrawn, so the classes are strictly separable.
func NewLinear(n int, src rand.Source) *TrainingData {
	d := &TrainingData{Name: Linear, Task: nn.Classification}
	unit := distuv.Uniform{Min: 0, Max: 1, Src: src}
	for len(d.Inputs) < n {
		x, y := unit.Rand(), unit.Rand()
		if math.Abs(y-x)/math.Sqrt2 < linearMargin {
			continue
		}
		label := 0.0
		if y > x {
			label = 1
		}
		d.add([]float64{x, y}, label)
	}
	return d
}

// sineNoise is the half width of the uniform noise added to sine targets.
const sineNoise = 0.05

// NewSine returns one period of a noisy sine wave as a regression set.
// Sample i has x = i/(n-1), inputs (x, 1-x) and target
// 0.5 + 0.4·sin(2πx) + U(-0.05, 0.05), clamped to [0, 1].
func NewSine(n int, src rand.Source) *TrainingData {
	d := &TrainingData{Name: Sine, Task: nn.Regression}
	noise := distuv.Uniform{Min: -sineNoise, Max: sineNoise, Src: src}
	for i := 0; i < n; i++ {
		x := 0.0
		if n > 1 {
			x = float64(i) / float64(n-1)
		}
		y := 0.5 + 0.4*math.Sin(2*math.Pi*x) + noise.Rand()
		d.add([]float64{x, 1 - x}, math.Max(0, math.Min(1, y)))
	}
	return d
}
