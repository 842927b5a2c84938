// Package optim implements the Adam optimizer used to train dense networks.
//
// The optimizer owns only the shared timestep. Moment buffers live next to the
// parameters they track (see nn.Dense), so every parameter in a network is
// bias-corrected with the same t within one training step:
//
//	c := adam.Step()
//	for i := range params {
//	    adam.Update(params[i], grads[i], m[i], v[i], c)
//	}
package optim

import (
	"fmt"
	"math"
)

// AdamConfig holds Adam hyperparameters. Zero fields take the defaults
// returned by DefaultAdamConfig.
type AdamConfig struct {
	LR    float64 // Learning rate (default: 0.01)
	Beta1 float64 // First moment decay (default: 0.9)
	Beta2 float64 // Second moment decay (default: 0.999)
	Eps   float64 // Term for numerical stability (default: 1e-8)
}

// DefaultAdamConfig returns the fixed hyperparameters of the training engine.
func DefaultAdamConfig() AdamConfig {
	return AdamConfig{LR: 0.01, Beta1: 0.9, Beta2: 0.999, Eps: 1e-8}
}

// Correction holds the bias-correction denominators for one timestep:
// 1 - beta1^t and 1 - beta2^t.
type Correction struct {
	T      int
	First  float64
	Second float64
}

// Adam implements the Adam (Adaptive Moment Estimation) update rule:
//
//	m_t = beta1 * m_{t-1} + (1-beta1) * g
//	v_t = beta2 * v_{t-1} + (1-beta2) * g²
//	m_hat = m_t / (1 - beta1^t)
//	v_hat = v_t / (1 - beta2^t)
//	param = param - lr * m_hat / (sqrt(v_hat) + eps)
type Adam struct {
	lr    float64
	beta1 float64
	beta2 float64
	eps   float64
	t     int
}

// NewAdam creates a new Adam optimizer with t = 0.
func NewAdam(config AdamConfig) *Adam {
	def := DefaultAdamConfig()
	if config.LR == 0 {
		config.LR = def.LR
	}
	if config.Beta1 == 0 {
		config.Beta1 = def.Beta1
	}
	if config.Beta2 == 0 {
		config.Beta2 = def.Beta2
	}
	if config.Eps == 0 {
		config.Eps = def.Eps
	}
	return &Adam{
		lr:    config.LR,
		beta1: config.Beta1,
		beta2: config.Beta2,
		eps:   config.Eps,
	}
}

// Step advances the shared timestep and returns its bias corrections.
// Call it once per training step, before updating any parameter.
func (a *Adam) Step() Correction {
	a.t++
	return Correction{
		T:      a.t,
		First:  1.0 - math.Pow(a.beta1, float64(a.t)),
		Second: 1.0 - math.Pow(a.beta2, float64(a.t)),
	}
}

// Update applies one Adam update to params in place, using and updating the
// moment buffers m and v. All four slices must have the same length.
func (a *Adam) Update(params, grads, m, v []float64, c Correction) error {
	n := len(params)
	if len(grads) != n || len(m) != n || len(v) != n {
		return fmt.Errorf("adam: length mismatch params=%d grads=%d m=%d v=%d", n, len(grads), len(m), len(v))
	}
	if c.T == 0 {
		return fmt.Errorf("adam: update before Step")
	}
	for i := range params {
		g := grads[i]
		m[i] = a.beta1*m[i] + (1.0-a.beta1)*g
		v[i] = a.beta2*v[i] + (1.0-a.beta2)*g*g
		mHat := m[i] / c.First
		vHat := v[i] / c.Second
		params[i] -= a.lr * mHat / (math.Sqrt(vHat) + a.eps)
	}
	return nil
}

// Reset sets the timestep back to zero.
func (a *Adam) Reset() {
	a.t = 0
}

// Timestep returns the current timestep.
func (a *Adam) Timestep() int {
	return a.t
}

// LR returns the learning rate.
func (a *Adam) LR() float64 {
	return a.lr
}
