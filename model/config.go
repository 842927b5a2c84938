package model

import (
	"fmt"

	"nnviz/nn"
	"nnviz/utils"
)

// Role is the position of a layer in the network.
type Role string

const (
	RoleInput  Role = "input"
	RoleHidden Role = "hidden"
	RoleOutput Role = "output"
)

// LayerConfig describes one layer. The input layer is a pass-through and
// contributes no weights.
type LayerConfig struct {
	Neurons    int    `json:"neurons"`
	Activation string `json:"activation"`
	Role       Role   `json:"role"`
}

// ConfigError reports an invalid layer configuration list. Index is the
// offending entry, or -1 when the list as a whole is invalid.
type ConfigError struct {
	Index  int
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Index < 0 {
		return "invalid layer config: " + e.Reason
	}
	return fmt.Sprintf("invalid layer config %d: %s", e.Index, e.Reason)
}

// DefaultConfigs returns the starting 2-4-1 architecture.
func DefaultConfigs() []LayerConfig {
	return []LayerConfig{
		{Neurons: 2, Activation: "linear", Role: RoleInput},
		{Neurons: 4, Activation: "relu", Role: RoleHidden},
		{Neurons: 1, Activation: "sigmoid", Role: RoleOutput},
	}
}

// ValidateConfigs checks the role layout, neuron counts and activation names.
func ValidateConfigs(cfgs []LayerConfig) error {
	if len(cfgs) < 2 {
		return &ConfigError{Index: -1, Reason: fmt.Sprintf("need at least 2 layers, got %d", len(cfgs))}
	}
	last := len(cfgs) - 1
	for i, c := range cfgs {
		want := RoleHidden
		switch i {
		case 0:
			want = RoleInput
		case last:
			want = RoleOutput
		}
		if c.Role != want {
			return &ConfigError{Index: i, Reason: fmt.Sprintf("role %q, want %q", c.Role, want)}
		}
		if c.Neurons <= 0 {
			return &ConfigError{Index: i, Reason: fmt.Sprintf("neuron count %d must be positive", c.Neurons)}
		}
		if _, err := nn.LookupActivator(c.Activation); err != nil {
			return &ConfigError{Index: i, Reason: err.Error()}
		}
	}
	if cfgs[0].Activation != "linear" {
		return &ConfigError{Index: 0, Reason: fmt.Sprintf("input layer activation %q, want linear", cfgs[0].Activation)}
	}
	return nil
}

// FromSpecs assigns roles to a parsed architecture. Missing activations
// default to linear for the input, relu for hidden layers and sigmoid for
// the output.
func FromSpecs(specs []utils.LayerSpec) ([]LayerConfig, error) {
	cfgs := make([]LayerConfig, len(specs))
	last := len(specs) - 1
	for i, s := range specs {
		c := LayerConfig{Neurons: s.Neurons, Activation: s.Activation, Role: RoleHidden}
		switch i {
		case 0:
			c.Role = RoleInput
		case last:
			c.Role = RoleOutput
		}
		if c.Activation == "" {
			c.Activation = defaultActivation(c.Role)
		}
		cfgs[i] = c
	}
	if err := ValidateConfigs(cfgs); err != nil {
		return nil, err
	}
	return cfgs, nil
}

func defaultActivation(r Role) string {
	switch r {
	case RoleInput:
		return "linear"
	case RoleOutput:
		return "sigmoid"
	}
	return "relu"
}

func cloneConfigs(cfgs []LayerConfig) []LayerConfig {
	if cfgs == nil {
		return nil
	}
	return append([]LayerConfig(nil), cfgs...)
}
