// Package dataset generates the small synthetic training sets the trainer
// works on. Every generator is deterministic for a given point count and
// seed.
package dataset

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/exp/rand"

	"nnviz/nn"
)

// Name identifies a built-in dataset.
type Name string

const (
	XOR    Name = "xor"
	Circle Name = "circle"
	Spiral Name = "spiral"
	Linear Name = "linear"
	Sine   Name = "sine"
)

// DefaultPoints is the sample count of the sampled datasets.
const DefaultPoints = 100

// ErrUnknownDataset is returned for a name with no generator.
var ErrUnknownDataset = errors.New("unknown dataset")

// Names returns every built-in dataset name.
func Names() []Name {
	return []Name{XOR, Circle, Spiral, Linear, Sine}
}

// Line is a single training sample.
type Line struct {
	Inputs  []float64
	Targets []float64
}

// TrainingData holds parallel input and output rows.
type TrainingData struct {
	Name    Name
	Task    nn.Task
	Inputs  [][]float64
	Outputs [][]float64
}

// Len returns the number of samples.
func (d *TrainingData) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Inputs)
}

// InputDim returns the width of an input row, or 0 for an empty set.
func (d *TrainingData) InputDim() int {
	if d.Len() == 0 {
		return 0
	}
	return len(d.Inputs[0])
}

// OutputDim returns the width of an output row, or 0 for an empty set.
func (d *TrainingData) OutputDim() int {
	if d.Len() == 0 || len(d.Outputs) == 0 {
		return 0
	}
	return len(d.Outputs[0])
}

// Line returns sample i.
func (d *TrainingData) Line(i int) Line {
	return Line{Inputs: d.Inputs[i], Targets: d.Outputs[i]}
}

// Validate checks that inputs and outputs are parallel and every row of each
// has the same width.
func (d *TrainingData) Validate() error {
	if d == nil {
		return fmt.Errorf("dataset is nil")
	}
	if len(d.Inputs) != len(d.Outputs) {
		return fmt.Errorf("dataset %q: %d inputs but %d outputs", d.Name, len(d.Inputs), len(d.Outputs))
	}
	in, out := d.InputDim(), d.OutputDim()
	for i := range d.Inputs {
		if len(d.Inputs[i]) != in || in == 0 {
			return fmt.Errorf("dataset %q: input row %d has width %d, want %d", d.Name, i, len(d.Inputs[i]), in)
		}
		if len(d.Outputs[i]) != out || out == 0 {
			return fmt.Errorf("dataset %q: output row %d has width %d, want %d", d.Name, i, len(d.Outputs[i]), out)
		}
	}
	return nil
}

// Clone returns a deep copy.
func (d *TrainingData) Clone() *TrainingData {
	c := &TrainingData{
		Name:    d.Name,
		Task:    d.Task,
		Inputs:  make([][]float64, len(d.Inputs)),
		Outputs: make([][]float64, len(d.Outputs)),
	}
	for i := range d.Inputs {
		c.Inputs[i] = append([]float64(nil), d.Inputs[i]...)
	}
	for i := range d.Outputs {
		c.Outputs[i] = append([]float64(nil), d.Outputs[i]...)
	}
	return c
}

func (d *TrainingData) add(inputs []float64, target float64) {
	d.Inputs = append(d.Inputs, inputs)
	d.Outputs = append(d.Outputs, []float64{target})
}

// Options controls generation of the sampled datasets.
type Options struct {
	Points int    // sample count, DefaultPoints when zero
	Seed   uint64 // random seed, derived from the clock when zero
}

// Generate builds the named dataset.
func Generate(name Name, opts Options) (*TrainingData, error) {
	if opts.Points < 0 {
		return nil, fmt.Errorf("dataset %q: negative point count %d", name, opts.Points)
	}
	if opts.Points == 0 {
		opts.Points = DefaultPoints
	}
	seed := opts.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	src := rand.NewSource(seed)

	switch name {
	case XOR:
		return NewXOR(), nil
	case Circle:
		return NewCircle(opts.Points, src), nil
	case Spiral:
		return NewSpiral(opts.Points), nil
	case Linear:
		return NewLinear(opts.Points, src), nil
	case Sine:
		return NewSine(opts.Points, src), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDataset, name)
}
