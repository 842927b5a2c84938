// Package viz projects a network's topology, weights and activations onto a
// 2-D graph that a renderer can draw directly. Every function here is pure:
// the same inputs always give the same graph.
package viz

import (
	"fmt"
	"math"

	"nnviz/model"
)

// Size is the drawing area in pixels.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// DefaultSize is used when a caller has no drawing area yet.
var DefaultSize = Size{Width: 800, Height: 500}

// Polarity is the sign of a connection weight.
type Polarity string

const (
	Positive Polarity = "positive"
	Negative Polarity = "negative"
	Neutral  Polarity = "neutral"
)

// NeuronView is one drawn neuron.
type NeuronView struct {
	ID                 string     `json:"id"`
	LayerIndex         int        `json:"layerIndex"`
	NeuronIndex        int        `json:"neuronIndex"`
	X                  float64    `json:"x"`
	Y                  float64    `json:"y"`
	Activation         float64    `json:"activation"`
	ActivationFunction string     `json:"activationFunction"`
	LayerRole          model.Role `json:"layerRole"`

	// Opacity maps |activation| from [0, 1] onto [0.3, 1].
	Opacity float64 `json:"opacity"`
	// Active is set when |activation| > 0.5.
	Active bool `json:"active"`
}

// ConnectionView is one drawn edge between adjacent layers.
type ConnectionView struct {
	ID       string   `json:"id"`
	SourceID string   `json:"sourceId"`
	TargetID string   `json:"targetId"`
	Weight   float64  `json:"weight"`
	Polarity Polarity `json:"polarity"`

	// StrokeWidth is 3|w| capped at 5, or 1 for a zero weight.
	StrokeWidth float64 `json:"strokeWidth"`
}

// LayerView labels one column of neurons.
type LayerView struct {
	Index int        `json:"index"`
	X     float64    `json:"x"`
	Label string     `json:"label"`
	Role  model.Role `json:"role"`
}

// Graph is a read-only projection of a network.
type Graph struct {
	Layers      []LayerView      `json:"layers"`
	Neurons     []NeuronView     `json:"neurons"`
	Connections []ConnectionView `json:"connections"`
}

// NeuronID names neuron j of layer i.
func NeuronID(i, j int) string {
	return fmt.Sprintf("L%dN%d", i, j)
}

// ConnectionID names the edge between two neurons.
func ConnectionID(sourceID, targetID string) string {
	return sourceID + "-" + targetID
}

// Build lays out cfgs in size. Layer i of L sits at x = width/(L+1)·(i+1) and
// neuron j of k at y = height/(k+1)·(j+1). Connection weights come from
// weights[i] at (j, k) and neuron activations from activations[i][j]; any
// value missing from the snapshots reads as 0.
func Build(cfgs []model.LayerConfig, weights []model.LayerWeights, activations [][]float64, size Size) Graph {
	g := Graph{
		Layers:      make([]LayerView, 0, len(cfgs)),
		Neurons:     make([]NeuronView, 0, max(TotalNeurons(cfgs), 0)),
		Connections: make([]ConnectionView, 0, max(TotalConnections(cfgs), 0)),
	}
	layerSpacing := size.Width / float64(len(cfgs)+1)

	for i, c := range cfgs {
		x := layerSpacing * float64(i+1)
		g.Layers = append(g.Layers, LayerView{Index: i, X: x, Label: layerLabel(cfgs, i), Role: c.Role})

		neuronSpacing := size.Height / float64(c.Neurons+1)
		for j := 0; j < c.Neurons; j++ {
			a := activationAt(activations, i, j)
			g.Neurons = append(g.Neurons, NeuronView{
				ID:                 NeuronID(i, j),
				LayerIndex:         i,
				NeuronIndex:        j,
				X:                  x,
				Y:                  neuronSpacing * float64(j+1),
				Activation:         a,
				ActivationFunction: c.Activation,
				LayerRole:          c.Role,
				Opacity:            0.3 + math.Min(math.Abs(a), 1)*0.7,
				Active:             math.Abs(a) > 0.5,
			})
		}
	}

	for i := 0; i+1 < len(cfgs); i++ {
		for j := 0; j < cfgs[i].Neurons; j++ {
			src := NeuronID(i, j)
			for k := 0; k < cfgs[i+1].Neurons; k++ {
				dst := NeuronID(i+1, k)
				w := weightAt(weights, i, j, k)
				g.Connections = append(g.Connections, ConnectionView{
					ID:          ConnectionID(src, dst),
					SourceID:    src,
					TargetID:    dst,
					Weight:      w,
					Polarity:    polarity(w),
					StrokeWidth: strokeWidth(w),
				})
			}
		}
	}
	return g
}

// Snapshot builds the graph of n's current state.
func Snapshot(n *model.Network, size Size) Graph {
	return Build(n.Configs(), n.Weights(), n.Activations(), size)
}

func activationAt(activations [][]float64, i, j int) float64 {
	if i >= len(activations) || j >= len(activations[i]) {
		return 0
	}
	return finite(activations[i][j])
}

func weightAt(weights []model.LayerWeights, i, j, k int) float64 {
	if i >= len(weights) {
		return 0
	}
	w, ok := weights[i].Weights.Lookup(j, k)
	if !ok {
		return 0
	}
	return finite(w)
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func polarity(w float64) Polarity {
	switch {
	case w > 0:
		return Positive
	case w < 0:
		return Negative
	}
	return Neutral
}

func strokeWidth(w float64) float64 {
	if w == 0 {
		return 1
	}
	return math.Min(math.Abs(w)*3, 5)
}

func layerLabel(cfgs []model.LayerConfig, i int) string {
	switch cfgs[i].Role {
	case model.RoleInput:
		return "Input Layer"
	case model.RoleOutput:
		return fmt.Sprintf("Output Layer (%s)", cfgs[i].Activation)
	}
	return fmt.Sprintf("Hidden Layer %d (%s)", i, cfgs[i].Activation)
}
