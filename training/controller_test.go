package training

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nnviz/dataset"
	"nnviz/model"
	"nnviz/viz"
)

type fakeTicker struct {
	ch      chan time.Time
	stopped chan struct{}
	once    sync.Once
}

func (f *fakeTicker) C() <-chan time.Time { return f.ch }

func (f *fakeTicker) Stop() { f.once.Do(func() { close(f.stopped) }) }

type fakeClock struct {
	mu      sync.Mutex
	tickers []*fakeTicker
	periods []time.Duration
}

func (c *fakeClock) NewTicker(d time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTicker{ch: make(chan time.Time, 1), stopped: make(chan struct{})}
	c.tickers = append(c.tickers, t)
	c.periods = append(c.periods, d)
	return t
}

func (c *fakeClock) last() *fakeTicker {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tickers[len(c.tickers)-1]
}

const waitTimeout = 5 * time.Second

func newTestController(t *testing.T, cfgs []model.LayerConfig, opts ...Option) (*Controller, *fakeClock, chan StepEvent) {
	t.Helper()
	net := model.New(model.WithSeed(21))
	require.NoError(t, net.Initialize(cfgs))

	clock := &fakeClock{}
	events := make(chan StepEvent, 64)
	opts = append([]Option{
		WithTicker(clock.NewTicker),
		WithObserver(func(ev StepEvent) { events <- ev }),
	}, opts...)
	return NewController(net, opts...), clock, events
}

func tick(t *testing.T, ft *fakeTicker, events chan StepEvent) StepEvent {
	t.Helper()
	ft.ch <- time.Now()
	select {
	case ev := <-events:
		return ev
	case <-time.After(waitTimeout):
		t.Fatal("no step after tick")
	}
	return StepEvent{}
}

func waitStopped(t *testing.T, ft *fakeTicker) {
	t.Helper()
	select {
	case <-ft.stopped:
	case <-time.After(waitTimeout):
		t.Fatal("ticker was not stopped")
	}
}

func TestStepModeCountsSteps(t *testing.T) {
	c, _, events := newTestController(t, model.DefaultConfigs())
	const n = 25
	for i := 0; i < n; i++ {
		m, err := c.Step()
		require.NoError(t, err)
		assert.GreaterOrEqual(t, m.Loss, 0.0)
		ev := <-events
		assert.Equal(t, i+1, ev.Epoch)
		assert.Empty(t, ev.RunID)
		assert.NotEmpty(t, ev.Progress)
		if i < 4 {
			assert.Equal(t, NotEnoughData, ev.Trend)
		} else {
			assert.NotEqual(t, NotEnoughData, ev.Trend)
		}
	}
	h := c.History()
	assert.Equal(t, n, h.Len())
	assert.Equal(t, n, c.Network().Steps())
	for i, e := range h.Epochs() {
		assert.Equal(t, i+1, e)
	}
	assert.False(t, c.Running())
}

func TestStepBeforeInitialize(t *testing.T) {
	c := NewController(model.New(model.WithSeed(1)))
	m, err := c.Step()
	require.NoError(t, err)
	assert.Equal(t, model.Metrics{}, m)
	assert.Zero(t, c.History().Len())
}

func TestContinuousRun(t *testing.T) {
	c, clock, events := newTestController(t, model.DefaultConfigs())
	require.NoError(t, c.Start())
	assert.True(t, c.Running())
	assert.ErrorIs(t, c.Start(), ErrAlreadyRunning)

	ft := clock.last()
	var runID string
	for i := 1; i <= 3; i++ {
		ev := tick(t, ft, events)
		require.NoError(t, ev.Err)
		assert.Equal(t, i, ev.Epoch)
		assert.NotEmpty(t, ev.RunID)
		if runID == "" {
			runID = ev.RunID
		}
		assert.Equal(t, runID, ev.RunID)
	}

	c.Stop()
	waitStopped(t, ft)
	assert.False(t, c.Running())
	assert.Equal(t, 3, c.History().Len())

	// a tick after Stop never reaches the network
	select {
	case ft.ch <- time.Now():
	default:
	}
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 3, c.Network().Steps())
	assert.Empty(t, events)

	// Stop is idempotent and a new run gets a new id
	c.Stop()
	require.NoError(t, c.Start())
	ev := tick(t, clock.last(), events)
	assert.NotEqual(t, runID, ev.RunID)
	assert.Equal(t, 4, ev.Epoch)
	c.Stop()
}

func TestStepDuringRunIsSerialized(t *testing.T) {
	c, clock, events := newTestController(t, model.DefaultConfigs())
	require.NoError(t, c.Start())
	ft := clock.last()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Step()
			assert.NoError(t, err)
		}()
	}
	for i := 0; i < 5; i++ {
		ft.ch <- time.Now()
	}
	wg.Wait()
	c.Stop()

	// drain whatever the loop managed before Stop
	n := len(events)
	assert.GreaterOrEqual(t, n, 10)
	assert.Equal(t, n, c.Network().Steps())
	assert.Equal(t, n, c.History().Len())
}

func TestIntervalIsClamped(t *testing.T) {
	c, clock, _ := newTestController(t, model.DefaultConfigs(), WithInterval(10*time.Millisecond))
	assert.Equal(t, 100*time.Millisecond, c.Interval())
	require.NoError(t, c.Start())
	c.Stop()
	assert.Equal(t, []time.Duration{100 * time.Millisecond}, clock.periods)

	c, _, _ = newTestController(t, model.DefaultConfigs(), WithInterval(time.Second))
	assert.Equal(t, time.Second, c.Interval())
}

func TestRunStopsOnStepError(t *testing.T) {
	cfgs := []model.LayerConfig{
		{Neurons: 3, Activation: "linear", Role: model.RoleInput},
		{Neurons: 1, Activation: "sigmoid", Role: model.RoleOutput},
	}
	c, clock, events := newTestController(t, cfgs)
	require.NoError(t, c.Start())
	ft := clock.last()

	ev := tick(t, ft, events)
	assert.ErrorIs(t, ev.Err, model.ErrShapeMismatch)
	waitStopped(t, ft)
	assert.False(t, c.Running())
	assert.Zero(t, c.History().Len())
	c.Stop()
}

// newObservedController wires an observer that can reach the controller it
// observes.
func newObservedController(t *testing.T, fn func(c *Controller, ev StepEvent)) (*Controller, *fakeClock, chan StepEvent) {
	t.Helper()
	net := model.New(model.WithSeed(21))
	require.NoError(t, net.Initialize(model.DefaultConfigs()))

	clock := &fakeClock{}
	events := make(chan StepEvent, 64)
	var c *Controller
	c = NewController(net,
		WithTicker(clock.NewTicker),
		WithObserver(func(ev StepEvent) {
			fn(c, ev)
			events <- ev
		}),
	)
	return c, clock, events
}

func TestObserverStopsRun(t *testing.T) {
	c, clock, events := newObservedController(t, func(c *Controller, ev StepEvent) {
		if ev.Epoch == 2 {
			c.Stop()
		}
	})
	require.NoError(t, c.Start())
	ft := clock.last()

	tick(t, ft, events)
	ev := tick(t, ft, events)
	assert.Equal(t, 2, ev.Epoch)
	waitStopped(t, ft)
	assert.False(t, c.Running())
	assert.Equal(t, 2, c.Network().Steps())
	assert.Equal(t, 2, c.History().Len())

	// the controller is usable again
	require.NoError(t, c.Start())
	ev = tick(t, clock.last(), events)
	assert.Equal(t, 3, ev.Epoch)
	c.Stop()
}

func TestObserverResetsRun(t *testing.T) {
	resets := make(chan error, 1)
	c, clock, events := newObservedController(t, func(c *Controller, ev StepEvent) {
		if ev.Epoch == 1 {
			resets <- c.Reset()
		}
	})
	require.NoError(t, c.Start())
	ft := clock.last()

	tick(t, ft, events)
	require.NoError(t, <-resets)
	waitStopped(t, ft)
	assert.False(t, c.Running())
	assert.Zero(t, c.Network().Steps())
	assert.Zero(t, c.History().Len())
}

func TestResetStopsAndClears(t *testing.T) {
	c, clock, events := newTestController(t, model.DefaultConfigs())
	require.NoError(t, c.Start())
	ft := clock.last()
	tick(t, ft, events)
	tick(t, ft, events)

	require.NoError(t, c.Reset())
	waitStopped(t, ft)
	assert.False(t, c.Running())
	assert.Zero(t, c.History().Len())
	assert.Zero(t, c.Network().Steps())
	assert.Equal(t, c.Network().EmptyActivations(), c.Network().Activations())
}

func TestConfigureReplacesNetwork(t *testing.T) {
	c, clock, events := newTestController(t, model.DefaultConfigs())
	require.NoError(t, c.SelectDataset("circle"))
	require.NoError(t, c.Start())
	ft := clock.last()
	tick(t, ft, events)

	old := c.Network()
	cfgs := model.AddHiddenLayer(model.DefaultConfigs())
	require.NoError(t, c.Configure(cfgs))
	waitStopped(t, ft)

	assert.True(t, old.Disposed())
	net := c.Network()
	assert.NotSame(t, old, net)
	assert.Equal(t, cfgs, net.Configs())
	assert.Equal(t, uint64(21), net.Seed())
	assert.Equal(t, dataset.Circle, net.Dataset().Name)
	assert.Zero(t, net.Steps())
	assert.Zero(t, c.History().Len())
	assert.False(t, c.Running())

	_, err := c.Step()
	require.NoError(t, err)
	assert.Equal(t, 1, c.History().Len())
}

func TestConfigureRejectsInvalidConfigs(t *testing.T) {
	c, _, _ := newTestController(t, model.DefaultConfigs())
	old := c.Network()
	err := c.Configure([]model.LayerConfig{{Neurons: 2, Activation: "linear", Role: model.RoleInput}})
	var cfgErr *model.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Same(t, old, c.Network())
	assert.False(t, old.Disposed())
}

func TestSelectDatasetKeepsState(t *testing.T) {
	c, _, _ := newTestController(t, model.DefaultConfigs())
	for i := 0; i < 3; i++ {
		_, err := c.Step()
		require.NoError(t, err)
	}
	before := c.Network().Weights()
	require.NoError(t, c.SelectDataset("spiral"))
	assert.Equal(t, before, c.Network().Weights())
	assert.Equal(t, 3, c.History().Len())
	assert.ErrorIs(t, c.SelectDataset("moons"), dataset.ErrUnknownDataset)
}

func TestGraph(t *testing.T) {
	c, _, _ := newTestController(t, model.DefaultConfigs())
	g := c.Graph(viz.DefaultSize)
	assert.Len(t, g.Neurons, 7)
	assert.Len(t, g.Connections, 12)
}

func TestHistoryIsACopy(t *testing.T) {
	c, _, _ := newTestController(t, model.DefaultConfigs())
	_, err := c.Step()
	require.NoError(t, err)
	h := c.History()
	h.Clear()
	assert.Equal(t, 1, c.History().Len())
}

func TestTimeTicker(t *testing.T) {
	net := model.New(model.WithSeed(5))
	require.NoError(t, net.Initialize(model.DefaultConfigs()))
	events := make(chan StepEvent, 16)
	c := NewController(net, WithObserver(func(ev StepEvent) { events <- ev }))

	start := time.Now()
	require.NoError(t, c.Start())
	for i := 0; i < 2; i++ {
		select {
		case ev := <-events:
			require.NoError(t, ev.Err)
		case <-time.After(waitTimeout):
			t.Fatal("no step from the time ticker")
		}
	}
	c.Stop()
	assert.GreaterOrEqual(t, time.Since(start), 2*100*time.Millisecond)
}

func TestStartAfterDispose(t *testing.T) {
	c, _, _ := newTestController(t, model.DefaultConfigs())
	c.Network().Dispose()
	assert.ErrorIs(t, c.Start(), model.ErrDisposed)
	assert.False(t, c.Running())
}
