package viz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nnviz/model"
)

func TestTotalConnections(t *testing.T) {
	cfgs := model.DefaultConfigs()
	assert.Equal(t, 12, TotalConnections(cfgs))
	assert.Equal(t, 7, TotalNeurons(cfgs))

	deeper := model.AddHiddenLayer(cfgs)
	assert.Equal(t, 2*4+4*4+4*1, TotalConnections(deeper))
	assert.Zero(t, TotalConnections(nil))
}

func TestSummarize(t *testing.T) {
	two := []model.LayerConfig{
		{Neurons: 2, Activation: "linear", Role: model.RoleInput},
		{Neurons: 1, Activation: "sigmoid", Role: model.RoleOutput},
	}
	s := Summarize(two)
	assert.Equal(t, 2, s.Layers)
	assert.Equal(t, 3, s.Neurons)
	assert.Equal(t, 2, s.Connections)
	assert.Equal(t, 3, s.Parameters)
	assert.Equal(t, Shallow, s.Advice)
	assert.InDelta(t, 3*4*8/(1024.0*1024.0), s.TrainingMemory, 1e-15)

	cfgs := model.DefaultConfigs()
	assert.Equal(t, Balanced, Summarize(cfgs).Advice)
	assert.Equal(t, 12+4+1, TotalParameters(cfgs))
	assert.Zero(t, TotalParameters(nil))
	cfgs = model.AddHiddenLayer(cfgs)
	assert.Equal(t, Balanced, Summarize(cfgs).Advice)
	cfgs = model.AddHiddenLayer(cfgs)
	assert.Equal(t, Deep, Summarize(cfgs).Advice)
}

func TestEquations(t *testing.T) {
	cfgs, err := model.SetActivation(model.AddHiddenLayer(model.DefaultConfigs()), 2, "linear")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"",
		"a(1) = ReLU(W(1)·a(0) + b(1))",
		"a(2) = W(2)·a(1) + b(2)",
		"a(3) = σ(W(3)·a(2) + b(3))",
	}, Equations(cfgs))
}
