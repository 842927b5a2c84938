package nn

import (
	"errors"
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"

	"nnviz/optim"
	"nnviz/tensor"
)

// ErrNoForward is returned by Backward when no forward pass has been cached.
var ErrNoForward = errors.New("backward called before forward")

// Dense is a fully connected layer computing act(x·W + b).
//
// W has shape [in × out] and b has length out. The layer also owns the Adam
// moment buffers for W and b and the gradients accumulated since the last
// ZeroGrad.
type Dense struct {
	in, out int
	act     Activator

	W *mat.Dense    // [in, out]
	B *mat.VecDense // [out]

	gradW *mat.Dense
	gradB *mat.VecDense

	mW, vW *mat.Dense
	mB, vB *mat.VecDense

	lastInput *mat.VecDense
	lastPre   *mat.VecDense
}

// NewDense builds a layer and initializes it from src.
func NewDense(in, out int, act Activator, src rand.Source) (*Dense, error) {
	if in <= 0 || out <= 0 {
		return nil, fmt.Errorf("dense layer dimensions must be positive, got %d→%d", in, out)
	}
	if act == nil {
		return nil, fmt.Errorf("dense layer %d→%d: nil activator", in, out)
	}
	d := &Dense{
		in:    in,
		out:   out,
		act:   act,
		W:     mat.NewDense(in, out, nil),
		B:     mat.NewVecDense(out, nil),
		gradW: mat.NewDense(in, out, nil),
		gradB: mat.NewVecDense(out, nil),
		mW:    mat.NewDense(in, out, nil),
		vW:    mat.NewDense(in, out, nil),
		mB:    mat.NewVecDense(out, nil),
		vB:    mat.NewVecDense(out, nil),
	}
	d.Init(src)
	return d, nil
}

// Init draws fresh weights from U(-1/sqrt(in), 1/sqrt(in)), zeroes the bias,
// the gradients, the moment buffers and the forward cache.
func (d *Dense) Init(src rand.Source) {
	copy(rawDense(d.W), randomArray(d.in*d.out, float64(d.in), src))
	zero(rawVec(d.B))
	d.ZeroGrad()
	d.ResetMoments()
	d.lastInput, d.lastPre = nil, nil
}

// In returns the input width.
func (d *Dense) In() int { return d.in }

// Out returns the output width.
func (d *Dense) Out() int { return d.out }

// Activator returns the layer's activation function.
func (d *Dense) Activator() Activator { return d.act }

// Forward computes act(x·W + b) and caches x and the pre-activation.
func (d *Dense) Forward(x *mat.VecDense) (*mat.VecDense, error) {
	if x.Len() != d.in {
		return nil, fmt.Errorf("dense forward: input width %d, want %d", x.Len(), d.in)
	}
	pre := mat.NewVecDense(d.out, nil)
	pre.MulVec(d.W.T(), x)
	pre.AddVec(pre, d.B)
	pre = apply(Sanitize, pre)

	d.lastInput = mat.VecDenseCopyOf(x)
	d.lastPre = pre
	return apply(d.act.Activate, pre), nil
}

// Backward takes dL/d(output) and returns dL/d(input). The parameter
// gradients xᵀ·delta and delta are added to the layer's accumulators.
func (d *Dense) Backward(gradOut *mat.VecDense) (*mat.VecDense, error) {
	if d.lastPre == nil {
		return nil, ErrNoForward
	}
	if gradOut.Len() != d.out {
		return nil, fmt.Errorf("dense backward: gradient width %d, want %d", gradOut.Len(), d.out)
	}
	delta := apply(d.act.Derivative, d.lastPre)
	delta.MulElemVec(delta, gradOut)

	d.gradW.RankOne(d.gradW, 1, d.lastInput, delta)
	d.gradB.AddVec(d.gradB, delta)

	gradIn := mat.NewVecDense(d.in, nil)
	gradIn.MulVec(d.W, delta)
	return gradIn, nil
}

// ZeroGrad clears the accumulated gradients.
func (d *Dense) ZeroGrad() {
	zero(rawDense(d.gradW))
	zero(rawVec(d.gradB))
}

// ScaleGrad multiplies the accumulated gradients by s.
func (d *Dense) ScaleGrad(s float64) {
	d.gradW.Scale(s, d.gradW)
	d.gradB.ScaleVec(s, d.gradB)
}

// ResetMoments clears the Adam moment buffers.
func (d *Dense) ResetMoments() {
	zero(rawDense(d.mW))
	zero(rawDense(d.vW))
	zero(rawVec(d.mB))
	zero(rawVec(d.vB))
}

// Apply performs one optimizer update of W and b from the accumulated
// gradients.
func (d *Dense) Apply(opt *optim.Adam, c optim.Correction) error {
	if err := opt.Update(rawDense(d.W), rawDense(d.gradW), rawDense(d.mW), rawDense(d.vW), c); err != nil {
		return fmt.Errorf("weights: %w", err)
	}
	if err := opt.Update(rawVec(d.B), rawVec(d.gradB), rawVec(d.mB), rawVec(d.vB), c); err != nil {
		return fmt.Errorf("biases: %w", err)
	}
	return nil
}

// Weights returns a copy of W.
func (d *Dense) Weights() *tensor.Tensor {
	return tensor.FromMatrix(d.W)
}

// Biases returns a copy of b.
func (d *Dense) Biases() *tensor.Tensor {
	return tensor.FromVector(d.B)
}

// Gradients returns copies of the accumulated weight and bias gradients.
func (d *Dense) Gradients() (*tensor.Tensor, *tensor.Tensor) {
	return tensor.FromMatrix(d.gradW), tensor.FromVector(d.gradB)
}

// Release drops every buffer the layer owns. The layer must not be used
// afterwards.
func (d *Dense) Release() {
	d.W, d.B = nil, nil
	d.gradW, d.gradB = nil, nil
	d.mW, d.vW, d.mB, d.vB = nil, nil, nil, nil
	d.lastInput, d.lastPre = nil, nil
}
