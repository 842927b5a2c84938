package model

import (
	"nnviz/nn"
)

// The editing helpers below never modify their argument. They return a new
// list, or a *ConfigError when the edit targets the input or output layer
// in a way the role layout forbids.

// AddHiddenLayer inserts a 4-neuron relu layer just before the output layer.
func AddHiddenLayer(cfgs []LayerConfig) []LayerConfig {
	if len(cfgs) == 0 {
		return nil
	}
	out := make([]LayerConfig, 0, len(cfgs)+1)
	out = append(out, cfgs[:len(cfgs)-1]...)
	out = append(out, LayerConfig{Neurons: 4, Activation: "relu", Role: RoleHidden})
	return append(out, cfgs[len(cfgs)-1])
}

// RemoveLayer removes hidden layer i.
func RemoveLayer(cfgs []LayerConfig, i int) ([]LayerConfig, error) {
	if err := checkHidden(cfgs, i); err != nil {
		return nil, err
	}
	out := make([]LayerConfig, 0, len(cfgs)-1)
	out = append(out, cfgs[:i]...)
	return append(out, cfgs[i+1:]...), nil
}

// SetNeurons sets the neuron count of layer i, clamped to at least 1. The
// output layer may be resized; the input layer may not.
func SetNeurons(cfgs []LayerConfig, i, n int) ([]LayerConfig, error) {
	if err := checkEditable(cfgs, i); err != nil {
		return nil, err
	}
	out := cloneConfigs(cfgs)
	out[i].Neurons = max(n, 1)
	return out, nil
}

// SetActivation sets the activation of layer i.
func SetActivation(cfgs []LayerConfig, i int, name string) ([]LayerConfig, error) {
	if err := checkEditable(cfgs, i); err != nil {
		return nil, err
	}
	if _, err := nn.LookupActivator(name); err != nil {
		return nil, &ConfigError{Index: i, Reason: err.Error()}
	}
	out := cloneConfigs(cfgs)
	out[i].Activation = name
	return out, nil
}

func checkEditable(cfgs []LayerConfig, i int) error {
	if i < 0 || i >= len(cfgs) {
		return &ConfigError{Index: i, Reason: "index out of range"}
	}
	if i == 0 {
		return &ConfigError{Index: i, Reason: "input layer is not editable"}
	}
	return nil
}

func checkHidden(cfgs []LayerConfig, i int) error {
	if err := checkEditable(cfgs, i); err != nil {
		return err
	}
	if i == len(cfgs)-1 {
		return &ConfigError{Index: i, Reason: "output layer cannot be removed"}
	}
	return nil
}
