package viz

import (
	"fmt"

	"nnviz/model"
)

// Depth classifies an architecture by its layer count.
type Depth string

const (
	Shallow  Depth = "shallow"
	Balanced Depth = "balanced"
	Deep     Depth = "deep"
)

// Summary describes the size of an architecture.
type Summary struct {
	Layers      int   `json:"layers"`
	Neurons     int   `json:"neurons"`
	Connections int   `json:"connections"`
	Parameters  int   `json:"parameters"`
	Advice      Depth `json:"advice"`

	// TrainingMemory is the float64 storage of every parameter, its gradient
	// and both Adam moments, in megabytes.
	TrainingMemory float64 `json:"trainingMemory"`
}

// buffersPerParameter counts value, gradient and the two Adam moments.
const buffersPerParameter = 4

// TotalConnections returns Σ n_i·n_(i+1) over adjacent layers.
func TotalConnections(cfgs []model.LayerConfig) int {
	total := 0
	for i := 0; i+1 < len(cfgs); i++ {
		total += cfgs[i].Neurons * cfgs[i+1].Neurons
	}
	return total
}

// TotalNeurons returns the neuron count over all layers.
func TotalNeurons(cfgs []model.LayerConfig) int {
	total := 0
	for _, c := range cfgs {
		total += c.Neurons
	}
	return total
}

// TotalParameters returns the weight and bias count of the dense layers.
func TotalParameters(cfgs []model.LayerConfig) int {
	if len(cfgs) == 0 {
		return 0
	}
	return TotalConnections(cfgs) + TotalNeurons(cfgs) - cfgs[0].Neurons
}

// Summarize counts layers, neurons, connections and parameters.
func Summarize(cfgs []model.LayerConfig) Summary {
	s := Summary{
		Layers:      len(cfgs),
		Neurons:     TotalNeurons(cfgs),
		Connections: TotalConnections(cfgs),
		Parameters:  TotalParameters(cfgs),
	}
	s.TrainingMemory = float64(s.Parameters*buffersPerParameter*8) / (1024 * 1024)
	switch {
	case s.Layers <= 2:
		s.Advice = Shallow
	case s.Layers <= 4:
		s.Advice = Balanced
	default:
		s.Advice = Deep
	}
	return s
}

var symbols = map[string]string{
	"sigmoid": "σ",
	"relu":    "ReLU",
	"tanh":    "tanh",
}

// Equations returns one formula per layer, e.g. "a(1) = ReLU(W(1)·a(0) + b(1))".
// The input layer's entry is empty and linear layers have no outer function.
func Equations(cfgs []model.LayerConfig) []string {
	eqs := make([]string, len(cfgs))
	for i := 1; i < len(cfgs); i++ {
		affine := fmt.Sprintf("W(%d)·a(%d) + b(%d)", i, i-1, i)
		if sym, ok := symbols[cfgs[i].Activation]; ok {
			eqs[i] = fmt.Sprintf("a(%d) = %s(%s)", i, sym, affine)
		} else {
			eqs[i] = fmt.Sprintf("a(%d) = %s", i, affine)
		}
	}
	return eqs
}
