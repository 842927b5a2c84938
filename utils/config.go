package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MinInterval is the fastest continuous training rate.
const MinInterval = 100 * time.Millisecond

// Config holds training configuration
type Config struct {
	Architecture []LayerSpec
	Dataset      string
	Steps        int
	Seed         uint64
	Interval     time.Duration
	Continuous   bool
}

// LayerSpec is one parsed entry of an architecture string.
type LayerSpec struct {
	Neurons    int
	Activation string
}

// ParseArchitecture parses an architecture string such as
// "2 4:relu 1:sigmoid". Each field is a neuron count with an optional
// ":activation" suffix; a missing activation is left empty.
func ParseArchitecture(archStr string) ([]LayerSpec, error) {
	archParts := strings.Fields(archStr)
	arch := make([]LayerSpec, len(archParts))
	for i, s := range archParts {
		count, act, _ := strings.Cut(s, ":")
		n, err := strconv.Atoi(count)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		arch[i] = LayerSpec{Neurons: n, Activation: strings.ToLower(act)}
	}
	return arch, nil
}

// ValidateConfig validates training configuration
func ValidateConfig(config *Config) error {
	if len(config.Architecture) < 2 {
		return fmt.Errorf("architecture must have at least 2 layers (input and output)")
	}

	for i, l := range config.Architecture {
		if l.Neurons <= 0 {
			return fmt.Errorf("layer %d: neuron count must be positive", i)
		}
	}

	if config.Steps <= 0 {
		return fmt.Errorf("steps must be positive")
	}

	if config.Dataset == "" {
		return fmt.Errorf("dataset must be set")
	}

	if config.Continuous && config.Interval < MinInterval {
		return fmt.Errorf("interval must be at least %v", MinInterval)
	}

	return nil
}
