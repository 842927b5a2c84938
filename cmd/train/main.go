// nnviz-train: trains a small dense network on a built-in dataset and
// optionally writes the final visualization graph as JSON.
//
// Usage:
//
//	nnviz-train --layers="2 4:relu 1:sigmoid" --dataset=xor --steps=500
//	nnviz-train --dataset=circle --continuous --interval=100ms --graph=graph.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"nnviz/dataset"
	"nnviz/model"
	"nnviz/nn"
	"nnviz/training"
	"nnviz/utils"
	"nnviz/viz"
)

var (
	layers     = flag.String("layers", "2 4:relu 1:sigmoid", "Architecture: neuron counts with optional :activation ("+strings.Join(nn.ActivationNames(), ", ")+")")
	datasetArg = flag.String("dataset", string(dataset.XOR), "Dataset: "+datasetNames())
	steps      = flag.Int("steps", 500, "Number of training steps")
	seed       = flag.Uint64("seed", 42, "Random seed (0 = from clock)")
	interval   = flag.Duration("interval", utils.MinInterval, "Step period in continuous mode")
	continuous = flag.Bool("continuous", false, "Train on a timer instead of back to back")
	every      = flag.Int("every", 50, "Print metrics every N steps")
	graphOut   = flag.String("graph", "", "Write the final graph as JSON to this file (- for stdout)")
	width      = flag.Float64("width", viz.DefaultSize.Width, "Graph width")
	height     = flag.Float64("height", viz.DefaultSize.Height, "Graph height")
	verbose    = flag.Bool("verbose", false, "Verbose output")
)

func main() {
	flag.Parse()
	utils.Verbose = *verbose

	arch, err := utils.ParseArchitecture(*layers)
	if err != nil {
		fail("parsing architecture: %v", err)
	}
	config := &utils.Config{
		Architecture: arch,
		Dataset:      *datasetArg,
		Steps:        *steps,
		Seed:         *seed,
		Interval:     *interval,
		Continuous:   *continuous,
	}
	if err := utils.ValidateConfig(config); err != nil {
		fail("invalid configuration: %v", err)
	}
	cfgs, err := model.FromSpecs(config.Architecture)
	if err != nil {
		fail("%v", err)
	}

	fmt.Println("╔══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                    nnviz Trainer                             ║")
	fmt.Println("╚══════════════════════════════════════════════════════════════╝")
	summary := viz.Summarize(cfgs)
	fmt.Printf("\nConfiguration:\n")
	fmt.Printf("  Layers:        %s\n", *layers)
	fmt.Printf("  Neurons:       %d\n", summary.Neurons)
	fmt.Printf("  Connections:   %d (%s)\n", summary.Connections, summary.Advice)
	fmt.Printf("  Dataset:       %s\n", config.Dataset)
	fmt.Printf("  Steps:         %d\n", config.Steps)
	fmt.Printf("  Seed:          %d\n", config.Seed)
	if config.Continuous {
		fmt.Printf("  Interval:      %v\n", config.Interval)
	}
	fmt.Println()
	for _, eq := range viz.Equations(cfgs) {
		if eq != "" {
			fmt.Printf("  %s\n", eq)
		}
	}

	stats := &utils.TimingStats{}
	net := model.New(model.WithSeed(config.Seed), model.WithTiming(stats))
	if err := net.Initialize(cfgs); err != nil {
		fail("initializing network: %v", err)
	}
	if err := net.LoadDatasetByName(config.Dataset); err != nil {
		fail("loading dataset: %v", err)
	}
	fmt.Printf("\nDataset %q: %d samples (%s)\n", config.Dataset, net.Dataset().Len(), net.Dataset().Task)

	events := make(chan training.StepEvent, 1)
	quit := make(chan struct{})
	ctrl := training.NewController(net,
		training.WithInterval(config.Interval),
		training.WithObserver(func(ev training.StepEvent) {
			report(ev)
			if !config.Continuous {
				return
			}
			select {
			case events <- ev:
			case <-quit:
			}
		}),
	)

	fmt.Println("\nStarting training...")
	start := time.Now()
	if config.Continuous {
		runContinuous(ctrl, config.Steps, events, quit)
	} else {
		for i := 0; i < config.Steps; i++ {
			if _, err := ctrl.Step(); err != nil {
				fail("step %d: %v", i+1, err)
			}
		}
	}

	h := ctrl.History()
	fmt.Printf("\nTraining complete! %d steps in %.2fs\n", h.Len(), time.Since(start).Seconds())
	if last, ok := h.Last(); ok {
		fmt.Printf("Final loss:     %.6f\n", last.Loss)
		fmt.Printf("Final accuracy: %.1f%% (%s)\n", last.Accuracy*100, training.Rate(last.Accuracy))
	}
	if best, ok := h.Best(); ok {
		fmt.Printf("Best loss:      %.6f at step %d\n", best.Loss, best.Epoch)
	}
	fmt.Printf("Progress:       %s, %s\n", h.Progress(), h.Trend())
	printPredictions(ctrl.Network(), 8)
	utils.PrintTimingStats(stats)

	if *graphOut != "" {
		g := ctrl.Graph(viz.Size{Width: *width, Height: *height})
		if err := writeGraph(*graphOut, g); err != nil {
			fail("writing graph: %v", err)
		}
	}
}

// runContinuous trains on the controller's ticker until n steps are done or
// the process is interrupted. quit is closed before stopping so the observer
// never blocks the run loop.
func runContinuous(ctrl *training.Controller, n int, events <-chan training.StepEvent, quit chan struct{}) {
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	defer signal.Stop(interrupt)

	if err := ctrl.Start(); err != nil {
		fail("starting: %v", err)
	}
	defer ctrl.Stop()
	defer close(quit)

	for done := 0; done < n; {
		select {
		case ev := <-events:
			if ev.Err != nil {
				fail("step: %v", ev.Err)
			}
			done++
		case <-interrupt:
			fmt.Println("\nInterrupted, stopping...")
			return
		}
	}
}

func report(ev training.StepEvent) {
	if ev.Err != nil || *every <= 0 {
		return
	}
	if ev.Epoch == 1 || ev.Epoch%*every == 0 {
		fmt.Printf("Step %5d | Loss: %.6f | Accuracy: %5.1f%% | %s | %s, %s\n",
			ev.Epoch, ev.Metrics.Loss, ev.Metrics.Accuracy*100, ev.Rating, ev.Progress, ev.Trend)
	}
}

func printPredictions(net *model.Network, limit int) {
	data := net.Dataset()
	if data.Len() == 0 {
		return
	}
	fmt.Println("\nPredictions:")
	for i := 0; i < min(limit, data.Len()); i++ {
		line := data.Line(i)
		out, err := net.Predict(line.Inputs)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  sample %d: %v\n", i, err)
			continue
		}
		fmt.Printf("  %s → %s (target %s)\n", formatRow(line.Inputs), formatRow(out), formatRow(line.Targets))
	}
	if data.Len() > limit {
		fmt.Printf("  ... %d more\n", data.Len()-limit)
	}
}

func formatRow(xs []float64) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = fmt.Sprintf("%.3f", x)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func writeGraph(path string, g viz.Graph) error {
	var w io.Writer = os.Stdout
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(g); err != nil {
		return err
	}
	if path != "-" {
		fmt.Printf("\nGraph written to %s (%d neurons, %d connections)\n", path, len(g.Neurons), len(g.Connections))
	}
	return nil
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func datasetNames() string {
	names := make([]string, 0, len(dataset.Names()))
	for _, n := range dataset.Names() {
		names = append(names, string(n))
	}
	return strings.Join(names, ", ")
}
