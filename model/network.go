// Package model holds the trainable network: an ordered stack of dense
// layers, the active dataset, the Adam optimizer and a cache of the
// activations of one representative sample.
//
// A Network is not safe for concurrent use. The training controller
// serializes every call.
package model

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"

	"nnviz/dataset"
	"nnviz/nn"
	"nnviz/optim"
	"nnviz/tensor"
	"nnviz/utils"
)

var (
	// ErrDisposed is returned by every mutating call after Dispose.
	ErrDisposed = errors.New("network disposed")
	// ErrShapeMismatch is returned when a sample does not fit the layer widths.
	ErrShapeMismatch = errors.New("shape mismatch")
	// ErrNotInitialized is returned by Predict before Initialize.
	ErrNotInitialized = errors.New("network not initialized")
)

// DefaultDataset is loaded by Initialize when no dataset is active.
const DefaultDataset = dataset.XOR

// Metrics are the batch-averaged results of one training step.
type Metrics struct {
	Loss     float64 `json:"loss"`
	Accuracy float64 `json:"accuracy"`
}

// LayerWeights is a detached copy of one dense layer's parameters.
type LayerWeights struct {
	Weights *tensor.Tensor // [in, out]
	Biases  *tensor.Tensor // [out]
}

// Option configures a Network.
type Option func(*Network)

// WithSeed fixes the random seed used for weight initialization and dataset
// sampling. A zero seed is replaced by one derived from the clock.
func WithSeed(seed uint64) Option {
	return func(n *Network) { n.seed = seed }
}

// WithTiming records per-step durations into stats.
func WithTiming(stats *utils.TimingStats) Option {
	return func(n *Network) { n.timing = stats }
}

type Network struct {
	seed   uint64
	src    rand.Source
	timing *utils.TimingStats

	configs     []LayerConfig
	layers      *nn.Sequential
	opt         *optim.Adam
	loss        nn.MSE
	data        *dataset.TrainingData
	activations [][]float64
	steps       int
	disposed    bool
}

// New returns an uninitialized network.
func New(opts ...Option) *Network {
	n := &Network{}
	for _, opt := range opts {
		opt(n)
	}
	if n.seed == 0 {
		n.seed = uint64(time.Now().UnixNano())
	}
	n.src = rand.NewSource(n.seed)
	return n
}

// Initialize validates cfgs and builds one dense layer per adjacent pair of
// configs, replacing any previous layers. The step counter, optimizer state
// and activation cache start empty. The default dataset is loaded when no
// dataset is active.
func (n *Network) Initialize(cfgs []LayerConfig) error {
	if n.disposed {
		return ErrDisposed
	}
	if err := ValidateConfigs(cfgs); err != nil {
		return err
	}

	layers := make([]*nn.Dense, len(cfgs)-1)
	for i := range layers {
		act, err := nn.LookupActivator(cfgs[i+1].Activation)
		if err != nil {
			return &ConfigError{Index: i + 1, Reason: err.Error()}
		}
		layers[i], err = nn.NewDense(cfgs[i].Neurons, cfgs[i+1].Neurons, act, n.src)
		if err != nil {
			return &ConfigError{Index: i + 1, Reason: err.Error()}
		}
	}

	if n.layers != nil {
		n.layers.Release()
	}
	n.layers = &nn.Sequential{Layers: layers}
	n.configs = cloneConfigs(cfgs)
	n.opt = optim.NewAdam(optim.DefaultAdamConfig())
	n.steps = 0
	n.activations = nil
	utils.Logf("network initialized: %s", describe(cfgs))

	if n.data == nil {
		return n.LoadDatasetByName(string(DefaultDataset))
	}
	return nil
}

// LoadDataset swaps in a copy of data. Weights, optimizer state and the step
// counter are untouched; the activation cache is cleared.
func (n *Network) LoadDataset(data *dataset.TrainingData) error {
	if n.disposed {
		return ErrDisposed
	}
	if err := data.Validate(); err != nil {
		return err
	}
	n.data = data.Clone()
	n.activations = nil
	utils.Logf("dataset %q loaded: %d samples", data.Name, data.Len())
	return nil
}

// LoadDatasetByName generates a built-in dataset with the network's seed and
// loads it.
func (n *Network) LoadDatasetByName(name string) error {
	if n.disposed {
		return ErrDisposed
	}
	data, err := dataset.Generate(dataset.Name(name), dataset.Options{Seed: n.seed})
	if err != nil {
		return err
	}
	return n.LoadDataset(data)
}

// TrainStep runs one full-batch step: a forward and backward pass over every
// sample, gradients averaged over the batch, then one Adam update of every
// parameter. The activations of sample 0 are cached afterwards.
//
// An uninitialized network or a missing dataset yields zero Metrics and no
// error.
func (n *Network) TrainStep() (Metrics, error) {
	if n.disposed {
		return Metrics{}, ErrDisposed
	}
	if n.layers == nil || n.data.Len() == 0 {
		return Metrics{}, nil
	}
	if err := n.checkShape(n.data.InputDim(), n.data.OutputDim()); err != nil {
		return Metrics{}, fmt.Errorf("dataset %q: %w", n.data.Name, err)
	}

	var (
		fwd, bwd   time.Duration
		totalLoss  float64
		numCorrect int
	)
	n.layers.ZeroGrad()
	for i := range n.data.Inputs {
		line := n.data.Line(i)

		start := time.Now()
		out, err := n.layers.Forward(vector(line.Inputs))
		if err != nil {
			return Metrics{}, fmt.Errorf("sample %d: %w", i, err)
		}
		pred := out.RawVector().Data
		totalLoss += n.loss.Loss(pred, line.Targets)
		if nn.Correct(pred, line.Targets, n.data.Task) {
			numCorrect++
		}
		fwd += time.Since(start)

		start = time.Now()
		if _, err := n.layers.Backward(vector(n.loss.Gradient(pred, line.Targets))); err != nil {
			return Metrics{}, fmt.Errorf("sample %d: %w", i, err)
		}
		bwd += time.Since(start)
	}

	count := float64(n.data.Len())
	start := time.Now()
	n.layers.ScaleGrad(1 / count)
	if err := n.layers.Apply(n.opt); err != nil {
		return Metrics{}, fmt.Errorf("update: %w", err)
	}
	update := time.Since(start)
	n.steps++

	start = time.Now()
	trace, err := n.layers.Trace(vector(n.data.Inputs[0]))
	if err != nil {
		return Metrics{}, fmt.Errorf("activation snapshot: %w", err)
	}
	n.activations = trace
	n.timing.Add(fwd, bwd, update, time.Since(start))

	m := Metrics{
		Loss:     totalLoss / count,
		Accuracy: float64(numCorrect) / count,
	}
	utils.Logf("step %d: loss=%.6f accuracy=%.3f", n.steps, m.Loss, m.Accuracy)
	return m, nil
}

// Predict runs inference on a single input row.
func (n *Network) Predict(input []float64) ([]float64, error) {
	if n.disposed {
		return nil, ErrDisposed
	}
	if n.layers == nil {
		return nil, ErrNotInitialized
	}
	if len(input) != n.layers.InDim() {
		return nil, fmt.Errorf("%w: input width %d, want %d", ErrShapeMismatch, len(input), n.layers.InDim())
	}
	out, err := n.layers.Forward(vector(input))
	if err != nil {
		return nil, err
	}
	return append([]float64(nil), out.RawVector().Data...), nil
}

// Weights returns a deep snapshot of every layer's parameters, or nil when
// the network has no layers.
func (n *Network) Weights() []LayerWeights {
	if n.layers == nil {
		return nil
	}
	ws := make([]LayerWeights, len(n.layers.Layers))
	for i, l := range n.layers.Layers {
		ws[i] = LayerWeights{Weights: l.Weights(), Biases: l.Biases()}
	}
	return ws
}

// Activations returns a copy of the cached activations, input first. Before
// the first step it returns EmptyActivations.
func (n *Network) Activations() [][]float64 {
	if n.activations == nil {
		return n.EmptyActivations()
	}
	out := make([][]float64, len(n.activations))
	for i, a := range n.activations {
		out[i] = append([]float64(nil), a...)
	}
	return out
}

// EmptyActivations returns one zero vector per configured layer.
func (n *Network) EmptyActivations() [][]float64 {
	if n.configs == nil {
		return nil
	}
	out := make([][]float64, len(n.configs))
	for i, c := range n.configs {
		out[i] = make([]float64, c.Neurons)
	}
	return out
}

// Reset draws fresh weights, zeroes biases and optimizer state, and clears
// the step counter and activation cache. Configs and dataset are kept.
func (n *Network) Reset() error {
	if n.disposed {
		return ErrDisposed
	}
	if n.layers == nil {
		return nil
	}
	for _, l := range n.layers.Layers {
		l.Init(n.src)
	}
	n.opt.Reset()
	n.steps = 0
	n.activations = nil
	utils.Logf("network reset")
	return nil
}

// Dispose releases every buffer the network owns. It is safe to call more
// than once.
func (n *Network) Dispose() {
	if n.disposed {
		return
	}
	if n.layers != nil {
		n.layers.Release()
	}
	n.layers = nil
	n.opt = nil
	n.data = nil
	n.activations = nil
	n.configs = nil
	n.disposed = true
}

// Configs returns a copy of the layer configs.
func (n *Network) Configs() []LayerConfig { return cloneConfigs(n.configs) }

// Dataset returns the active dataset. Callers must not modify it.
func (n *Network) Dataset() *dataset.TrainingData { return n.data }

// Steps returns the number of training steps since the last initialize or
// reset.
func (n *Network) Steps() int { return n.steps }

// Seed returns the seed the network was built with.
func (n *Network) Seed() uint64 { return n.seed }

// Timing returns the stats passed to WithTiming, possibly nil.
func (n *Network) Timing() *utils.TimingStats { return n.timing }

// Initialized reports whether the network has layers and is not disposed.
func (n *Network) Initialized() bool { return n.layers != nil }

// Disposed reports whether Dispose has been called.
func (n *Network) Disposed() bool { return n.disposed }

func (n *Network) checkShape(in, out int) error {
	if in != n.layers.InDim() || out != n.layers.OutDim() {
		return fmt.Errorf("%w: samples are %d→%d, network is %d→%d",
			ErrShapeMismatch, in, out, n.layers.InDim(), n.layers.OutDim())
	}
	return nil
}

func vector(xs []float64) *mat.VecDense {
	return mat.NewVecDense(len(xs), append([]float64(nil), xs...))
}

func describe(cfgs []LayerConfig) string {
	s := ""
	for i, c := range cfgs {
		if i > 0 {
			s += " → "
		}
		s += fmt.Sprintf("%d:%s", c.Neurons, c.Activation)
	}
	return s
}
