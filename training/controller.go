// Package training drives a model.Network either continuously on a tick
// source or one step at a time, and keeps the metrics history.
package training

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"nnviz/model"
	"nnviz/utils"
	"nnviz/viz"
)

// ErrAlreadyRunning is returned by Start while a run is active.
var ErrAlreadyRunning = errors.New("training already running")

// Ticker delivers the ticks of a continuous run.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFunc creates a Ticker firing every d.
type TickerFunc func(d time.Duration) Ticker

type timeTicker struct{ t *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

// NewTimeTicker is the default TickerFunc, backed by time.Ticker.
func NewTimeTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}

// StepEvent reports one finished step to an observer.
type StepEvent struct {
	RunID    string // empty for single steps
	Epoch    int
	Metrics  model.Metrics
	Rating   Rating
	Progress Progress
	Trend    Trend
	Err      error
}

// Option configures a Controller.
type Option func(*Controller)

// WithInterval sets the tick period of continuous runs. Periods shorter
// than utils.MinInterval are raised to it.
func WithInterval(d time.Duration) Option {
	return func(c *Controller) { c.interval = max(d, utils.MinInterval) }
}

// WithTicker replaces the tick source.
func WithTicker(fn TickerFunc) Option {
	return func(c *Controller) { c.newTicker = fn }
}

// WithObserver registers fn to be called after every step. fn runs without
// the controller lock held, on the run's goroutine for continuous steps. It
// may call any controller method, including Stop, Reset and Configure.
func WithObserver(fn func(StepEvent)) Option {
	return func(c *Controller) { c.observer = fn }
}

// Controller owns a network and serializes every operation on it. At most one
// training step runs at a time.
type Controller struct {
	mu       sync.Mutex
	net      *model.Network
	history  *History
	interval time.Duration

	newTicker TickerFunc
	observer  func(StepEvent)

	// set while a continuous run is active
	cancel context.CancelFunc
	done   chan struct{}
	runID  string

	// done channel of the run whose loop is inside the observer
	observing chan struct{}
}

// NewController takes ownership of net.
func NewController(net *model.Network, opts ...Option) *Controller {
	c := &Controller{
		net:       net,
		history:   &History{},
		interval:  utils.MinInterval,
		newTicker: NewTimeTicker,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start begins a continuous run: one step per tick until Stop, Reset,
// Configure or a failing step.
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		return ErrAlreadyRunning
	}
	if c.net.Disposed() {
		return model.ErrDisposed
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	c.runID = uuid.NewString()

	utils.Logf("run %s: started, interval %v", c.runID, c.interval)
	go c.loop(ctx, c.newTicker(c.interval), c.done, c.runID)
	return nil
}

func (c *Controller) loop(ctx context.Context, t Ticker, done chan struct{}, runID string) {
	defer close(done)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C():
		}

		c.mu.Lock()
		if ctx.Err() != nil {
			c.mu.Unlock()
			return
		}
		ev := c.stepLocked()
		ev.RunID = runID
		if ev.Err != nil {
			utils.Logf("run %s: stopped after error: %v", runID, ev.Err)
			c.finishLocked(done)
		}
		c.observing = done
		c.mu.Unlock()

		c.notify(ev)

		c.mu.Lock()
		if c.observing == done {
			c.observing = nil
		}
		c.mu.Unlock()
		if ev.Err != nil {
			return
		}
	}
}

// finishLocked clears the run state if it still belongs to the run that
// owns done.
func (c *Controller) finishLocked(done chan struct{}) {
	if c.done != done {
		return
	}
	c.cancel()
	c.cancel, c.done, c.runID = nil, nil, ""
}

// Stop ends the continuous run and waits for its loop to exit. A step that
// has already begun completes; no step starts after Stop is called. While
// the loop is delivering a step to the observer Stop does not wait, since
// the observer itself may be the caller; the loop exits once it returns.
func (c *Controller) Stop() {
	c.mu.Lock()
	done := c.done
	wait := done != nil && c.observing != done
	if c.cancel != nil {
		utils.Logf("run %s: stopping", c.runID)
		c.finishLocked(done)
	}
	c.mu.Unlock()

	if wait {
		<-done
	}
}

// Running reports whether a continuous run is active.
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancel != nil
}

// Step runs exactly one training step.
func (c *Controller) Step() (model.Metrics, error) {
	c.mu.Lock()
	ev := c.stepLocked()
	c.mu.Unlock()

	c.notify(ev)
	return ev.Metrics, ev.Err
}

func (c *Controller) stepLocked() StepEvent {
	before := c.net.Steps()
	m, err := c.net.TrainStep()
	if err != nil {
		return StepEvent{Err: err}
	}
	ev := StepEvent{Epoch: c.net.Steps(), Metrics: m, Rating: Rate(m.Accuracy)}
	if c.net.Steps() > before {
		c.history.Append(ev.Epoch, m)
	}
	ev.Progress = c.history.Progress()
	ev.Trend = c.history.Trend()
	return ev
}

func (c *Controller) notify(ev StepEvent) {
	if c.observer != nil {
		c.observer(ev)
	}
}

// Reset stops training, re-randomizes the network and clears the history.
func (c *Controller) Reset() error {
	c.Stop()

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.net.Reset(); err != nil {
		return err
	}
	c.history.Clear()
	return nil
}

// Configure stops training and replaces the network with a new one built
// from cfgs. The seed, timing stats and dataset carry over. An invalid cfgs
// leaves the current network in place.
func (c *Controller) Configure(cfgs []model.LayerConfig) error {
	if err := model.ValidateConfigs(cfgs); err != nil {
		return err
	}
	c.Stop()

	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.net
	if old.Disposed() {
		return model.ErrDisposed
	}
	data := old.Dataset()
	if data != nil {
		data = data.Clone()
	}
	opts := []model.Option{model.WithSeed(old.Seed()), model.WithTiming(old.Timing())}
	old.Dispose()

	net := model.New(opts...)
	if err := net.Initialize(cfgs); err != nil {
		return err
	}
	if data != nil {
		if err := net.LoadDataset(data); err != nil {
			return err
		}
	}
	c.net = net
	c.history.Clear()
	return nil
}

// SelectDataset swaps in the named built-in dataset. Weights, step counter
// and history are kept, and a continuous run keeps going.
func (c *Controller) SelectDataset(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.net.LoadDatasetByName(name)
}

// History returns a copy of the metrics history.
func (c *Controller) History() *History {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.history.clone()
}

// Graph snapshots the network for drawing.
func (c *Controller) Graph(size viz.Size) viz.Graph {
	c.mu.Lock()
	defer c.mu.Unlock()
	return viz.Snapshot(c.net, size)
}

// Network returns the current network. It is replaced by Configure, and must
// not be used concurrently with the controller.
func (c *Controller) Network() *model.Network {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.net
}

// Interval returns the tick period of continuous runs.
func (c *Controller) Interval() time.Duration { return c.interval }
