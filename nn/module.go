package nn

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"nnviz/optim"
)

// Sequential chains dense layers in order.
type Sequential struct {
	Layers []*Dense
}

// Forward applies each layer in sequence.
func (s *Sequential) Forward(x *mat.VecDense) (*mat.VecDense, error) {
	out := x
	for i, layer := range s.Layers {
		var err error
		out, err = layer.Forward(out)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
	}
	return out, nil
}

// Trace runs a forward pass and returns the input followed by every layer's
// output.
func (s *Sequential) Trace(x *mat.VecDense) ([][]float64, error) {
	trace := make([][]float64, 0, len(s.Layers)+1)
	trace = append(trace, append([]float64(nil), rawVec(x)...))
	out := x
	for i, layer := range s.Layers {
		var err error
		out, err = layer.Forward(out)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		trace = append(trace, append([]float64(nil), rawVec(out)...))
	}
	return trace, nil
}

// Backward applies Backward in reverse order.
func (s *Sequential) Backward(grad *mat.VecDense) (*mat.VecDense, error) {
	out := grad
	for i := len(s.Layers) - 1; i >= 0; i-- {
		var err error
		out, err = s.Layers[i].Backward(out)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
	}
	return out, nil
}

// ZeroGrad clears the gradients of every layer.
func (s *Sequential) ZeroGrad() {
	for _, layer := range s.Layers {
		layer.ZeroGrad()
	}
}

// ScaleGrad scales the gradients of every layer.
func (s *Sequential) ScaleGrad(f float64) {
	for _, layer := range s.Layers {
		layer.ScaleGrad(f)
	}
}

// Apply runs one optimizer step over every parameter of every layer. The
// timestep is advanced once so all parameters share the same bias correction.
func (s *Sequential) Apply(opt *optim.Adam) error {
	c := opt.Step()
	for i, layer := range s.Layers {
		if err := layer.Apply(opt, c); err != nil {
			return fmt.Errorf("layer %d: %w", i, err)
		}
	}
	return nil
}

// InDim returns the input width of the first layer.
func (s *Sequential) InDim() int {
	if len(s.Layers) == 0 {
		return 0
	}
	return s.Layers[0].In()
}

// OutDim returns the output width of the last layer.
func (s *Sequential) OutDim() int {
	if len(s.Layers) == 0 {
		return 0
	}
	return s.Layers[len(s.Layers)-1].Out()
}

// Release drops every layer's buffers.
func (s *Sequential) Release() {
	for _, layer := range s.Layers {
		layer.Release()
	}
	s.Layers = nil
}
