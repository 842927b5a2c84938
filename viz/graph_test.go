package viz

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nnviz/model"
	"nnviz/tensor"
)

func testWeights(t *testing.T) []model.LayerWeights {
	t.Helper()
	w0, err := tensor.FromRows([][]float64{
		{0.1, -0.2, 0.3, 0},
		{-0.4, 0.5, -0.6, 2},
	})
	require.NoError(t, err)
	w1, err := tensor.FromRows([][]float64{{1}, {-1}, {0.5}, {0}})
	require.NoError(t, err)
	return []model.LayerWeights{
		{Weights: w0, Biases: tensor.New(4)},
		{Weights: w1, Biases: tensor.New(1)},
	}
}

func TestBuildLayout(t *testing.T) {
	cfgs := model.DefaultConfigs()
	acts := [][]float64{{1, 0}, {0.2, 0.9, 0, -0.7}, {0.4}}
	g := Build(cfgs, testWeights(t), acts, Size{Width: 800, Height: 500})

	require.Len(t, g.Layers, 3)
	require.Len(t, g.Neurons, 7)
	require.Len(t, g.Connections, 12)

	assert.Equal(t, "Input Layer", g.Layers[0].Label)
	assert.Equal(t, "Hidden Layer 1 (relu)", g.Layers[1].Label)
	assert.Equal(t, "Output Layer (sigmoid)", g.Layers[2].Label)

	first := g.Neurons[0]
	assert.Equal(t, "L0N0", first.ID)
	assert.Equal(t, 200.0, first.X)
	assert.InDelta(t, 500.0/3, first.Y, 1e-9)
	assert.Equal(t, 1.0, first.Activation)
	assert.Equal(t, model.RoleInput, first.LayerRole)
	assert.Equal(t, "linear", first.ActivationFunction)
	assert.InDelta(t, 1.0, first.Opacity, 1e-12)
	assert.True(t, first.Active)

	hidden := g.Neurons[2+3]
	assert.Equal(t, "L1N3", hidden.ID)
	assert.Equal(t, 400.0, hidden.X)
	assert.Equal(t, 400.0, hidden.Y)
	assert.Equal(t, -0.7, hidden.Activation)
	assert.True(t, hidden.Active)

	out := g.Neurons[6]
	assert.Equal(t, "L2N0", out.ID)
	assert.Equal(t, 600.0, out.X)
	assert.Equal(t, 250.0, out.Y)
	assert.False(t, out.Active)

	c := g.Connections[0]
	assert.Equal(t, "L0N0-L1N0", c.ID)
	assert.Equal(t, "L0N0", c.SourceID)
	assert.Equal(t, "L1N0", c.TargetID)
	assert.Equal(t, 0.1, c.Weight)
	assert.Equal(t, Positive, c.Polarity)
	assert.InDelta(t, 0.3, c.StrokeWidth, 1e-12)

	// L0N1 → L1N3 carries 2, capped stroke
	c = g.Connections[7]
	assert.Equal(t, "L0N1-L1N3", c.ID)
	assert.Equal(t, 2.0, c.Weight)
	assert.Equal(t, 5.0, c.StrokeWidth)

	c = g.Connections[9]
	assert.Equal(t, "L1N1-L2N0", c.ID)
	assert.Equal(t, -1.0, c.Weight)
	assert.Equal(t, Negative, c.Polarity)

	c = g.Connections[11]
	assert.Equal(t, Neutral, c.Polarity)
	assert.Equal(t, 1.0, c.StrokeWidth)
}

func TestBuildIsDeterministic(t *testing.T) {
	cfgs := model.AddHiddenLayer(model.DefaultConfigs())
	n := model.New(model.WithSeed(3))
	require.NoError(t, n.Initialize(cfgs))
	_, err := n.TrainStep()
	require.NoError(t, err)

	a := Build(n.Configs(), n.Weights(), n.Activations(), DefaultSize)
	b := Build(n.Configs(), n.Weights(), n.Activations(), DefaultSize)
	assert.Equal(t, a, b)
	assert.Equal(t, a, Snapshot(n, DefaultSize))
}

func TestBuildWithMissingSnapshots(t *testing.T) {
	cfgs := model.DefaultConfigs()
	g := Build(cfgs, nil, nil, DefaultSize)
	require.Len(t, g.Connections, TotalConnections(cfgs))
	for _, c := range g.Connections {
		assert.Zero(t, c.Weight)
	}
	for _, n := range g.Neurons {
		assert.Zero(t, n.Activation)
		assert.InDelta(t, 0.3, n.Opacity, 1e-12)
	}

	// a snapshot taken from a smaller network
	partial := testWeights(t)[:1]
	bigger, err := model.SetNeurons(cfgs, 1, 6)
	require.NoError(t, err)
	g = Build(bigger, partial, [][]float64{{1}}, DefaultSize)
	require.Len(t, g.Connections, 2*6+6*1)
	for _, c := range g.Connections {
		if c.SourceID == "L0N0" && c.TargetID == "L1N5" {
			assert.Zero(t, c.Weight)
		}
		if c.SourceID == "L1N0" {
			assert.Zero(t, c.Weight)
		}
	}
	assert.Zero(t, g.Neurons[1].Activation)
}

func TestBuildWithNegativeNeurons(t *testing.T) {
	cfgs := []model.LayerConfig{
		{Neurons: 2, Activation: "linear", Role: model.RoleInput},
		{Neurons: -3, Activation: "relu", Role: model.RoleHidden},
		{Neurons: 1, Activation: "sigmoid", Role: model.RoleOutput},
	}
	var g Graph
	require.NotPanics(t, func() { g = Build(cfgs, nil, nil, DefaultSize) })
	assert.Len(t, g.Layers, 3)
	assert.Len(t, g.Neurons, 3)
	assert.Empty(t, g.Connections)

	cfgs[0].Neurons = -1
	cfgs[1].Neurons = -1
	require.NotPanics(t, func() { g = Build(cfgs[:2], nil, nil, DefaultSize) })
	assert.Empty(t, g.Neurons)
}

func TestSnapshotBeforeTraining(t *testing.T) {
	n := model.New(model.WithSeed(1))
	require.NoError(t, n.Initialize(model.DefaultConfigs()))
	g := Snapshot(n, DefaultSize)
	require.Len(t, g.Neurons, 7)
	for _, nv := range g.Neurons {
		assert.Zero(t, nv.Activation)
	}

	n.Dispose()
	g = Snapshot(n, DefaultSize)
	assert.Empty(t, g.Neurons)
	assert.Empty(t, g.Connections)
}

func TestGraphJSONNames(t *testing.T) {
	g := Build(model.DefaultConfigs(), nil, nil, DefaultSize)
	raw, err := json.Marshal(g)
	require.NoError(t, err)

	var decoded map[string][]map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	neuron := decoded["neurons"][0]
	for _, key := range []string{"id", "layerIndex", "neuronIndex", "x", "y", "activation", "activationFunction", "layerRole"} {
		assert.Contains(t, neuron, key)
	}
	conn := decoded["connections"][0]
	for _, key := range []string{"id", "sourceId", "targetId", "weight"} {
		assert.Contains(t, conn, key)
	}
}
