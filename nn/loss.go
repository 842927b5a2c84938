package nn

import (
	"gonum.org/v1/gonum/floats"
)

// Task selects how predictions are scored.
type Task string

const (
	Classification Task = "classification"
	Regression     Task = "regression"
)

// Threshold binarizes single-output classification predictions and targets.
const Threshold = 0.5

// Tolerance is the largest absolute error for a regression output to count
// as correct.
const Tolerance = 0.1

// MSE is the mean squared error loss.
type MSE struct{}

// Loss returns mean((pred_i - target_i)^2).
func (MSE) Loss(pred, target []float64) float64 {
	if len(pred) == 0 {
		return 0
	}
	diff := make([]float64, len(pred))
	floats.SubTo(diff, pred, target)
	return floats.Dot(diff, diff) / float64(len(pred))
}

// Gradient returns 2*(pred_i - target_i)/N.
func (MSE) Gradient(pred, target []float64) []float64 {
	grad := make([]float64, len(pred))
	if len(pred) == 0 {
		return grad
	}
	floats.SubTo(grad, pred, target)
	floats.Scale(2/float64(len(pred)), grad)
	return grad
}

// Correct reports whether one prediction counts as correct for task.
//
// Classification with one output compares both values binarized at
// Threshold; with several outputs the argmax positions must agree.
// Regression requires every output within Tolerance of its target.
func Correct(pred, target []float64, task Task) bool {
	if len(pred) == 0 || len(pred) != len(target) {
		return false
	}
	if task == Regression {
		for i := range pred {
			if d := pred[i] - target[i]; d > Tolerance || d < -Tolerance {
				return false
			}
		}
		return true
	}
	if len(pred) == 1 {
		return (pred[0] >= Threshold) == (target[0] >= Threshold)
	}
	return floats.MaxIdx(pred) == floats.MaxIdx(target)
}
