package utils

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"
)

// Verbose controls whether timing statistics and log lines are printed.
// Set to true to enable output.
var Verbose = false

// Output is the writer where timing statistics and log lines are printed.
// Defaults to os.Stdout.
var Output io.Writer = os.Stdout

var logger = log.New(Output, "nnviz ", log.LstdFlags|log.Lmicroseconds)

// Logf prints one log line to Output when Verbose is set.
func Logf(format string, args ...any) {
	if !Verbose {
		return
	}
	logger.SetOutput(Output)
	logger.Printf(format, args...)
}

// TimingStats holds timing information for different operations
type TimingStats struct {
	Steps            int
	TotalTime        time.Duration
	ForwardPassTime  time.Duration
	BackwardPassTime time.Duration
	UpdateTime       time.Duration
	SnapshotTime     time.Duration
}

// Add accumulates one step's durations.
func (s *TimingStats) Add(forward, backward, update, snapshot time.Duration) {
	if s == nil {
		return
	}
	s.Steps++
	s.ForwardPassTime += forward
	s.BackwardPassTime += backward
	s.UpdateTime += update
	s.SnapshotTime += snapshot
	s.TotalTime += forward + backward + update + snapshot
}

// Reset zeroes all counters.
func (s *TimingStats) Reset() {
	if s == nil {
		return
	}
	*s = TimingStats{}
}

// PrintTimingStats prints detailed timing statistics.
// Respects the Verbose flag - does nothing if Verbose is false.
func PrintTimingStats(stats *TimingStats) {
	if !Verbose || stats == nil || stats.Steps == 0 {
		return
	}
	steps := time.Duration(stats.Steps)
	fmt.Fprintln(Output, "\n=== TIMING STATISTICS ===")
	fmt.Fprintf(Output, "Total training time: %v\n", stats.TotalTime)
	fmt.Fprintf(Output, "Average time per step: %v\n", stats.TotalTime/steps)
	fmt.Fprintf(Output, "Steps completed: %d\n", stats.Steps)
	fmt.Fprintln(Output, "\nBreakdown by operation:")
	fmt.Fprintf(Output, "  Forward pass: %v (%.1f%%)\n", stats.ForwardPassTime, percent(stats.ForwardPassTime, stats.TotalTime))
	fmt.Fprintf(Output, "  Backward pass: %v (%.1f%%)\n", stats.BackwardPassTime, percent(stats.BackwardPassTime, stats.TotalTime))
	fmt.Fprintf(Output, "  Weight updates: %v (%.1f%%)\n", stats.UpdateTime, percent(stats.UpdateTime, stats.TotalTime))
	fmt.Fprintf(Output, "  Activation snapshot: %v (%.1f%%)\n", stats.SnapshotTime, percent(stats.SnapshotTime, stats.TotalTime))
	fmt.Fprintln(Output, "\nPerformance metrics:")
	fmt.Fprintf(Output, "  Average forward pass time: %.1fµs\n", DurationUS(stats.ForwardPassTime/steps))
	fmt.Fprintf(Output, "  Average backward pass time: %.1fµs\n", DurationUS(stats.BackwardPassTime/steps))
	fmt.Fprintf(Output, "  Average update time: %.1fµs\n", DurationUS(stats.UpdateTime/steps))
}

func percent(part, total time.Duration) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

// DurationUS converts any time.Duration to micro-seconds as float64
func DurationUS(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1_000.0
}
