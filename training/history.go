package training

import (
	"gonum.org/v1/gonum/floats"

	"nnviz/model"
)

// Entry is the metrics of one recorded step.
type Entry struct {
	Epoch    int     `json:"epoch"`
	Loss     float64 `json:"loss"`
	Accuracy float64 `json:"accuracy"`
}

// History is the ordered list of step metrics since the last reset.
type History struct {
	entries []Entry
}

// Append records the metrics of step epoch.
func (h *History) Append(epoch int, m model.Metrics) {
	h.entries = append(h.entries, Entry{Epoch: epoch, Loss: m.Loss, Accuracy: m.Accuracy})
}

func (h *History) Len() int { return len(h.entries) }

// Last returns the most recent entry.
func (h *History) Last() (Entry, bool) {
	if len(h.entries) == 0 {
		return Entry{}, false
	}
	return h.entries[len(h.entries)-1], true
}

// Best returns the entry with the lowest loss.
func (h *History) Best() (Entry, bool) {
	if len(h.entries) == 0 {
		return Entry{}, false
	}
	return h.entries[floats.MinIdx(h.Losses())], true
}

// Entries returns a copy of every entry.
func (h *History) Entries() []Entry {
	return append([]Entry(nil), h.entries...)
}

func (h *History) Losses() []float64 {
	out := make([]float64, len(h.entries))
	for i, e := range h.entries {
		out[i] = e.Loss
	}
	return out
}

func (h *History) Accuracies() []float64 {
	out := make([]float64, len(h.entries))
	for i, e := range h.entries {
		out[i] = e.Accuracy
	}
	return out
}

func (h *History) Epochs() []int {
	out := make([]int, len(h.entries))
	for i, e := range h.entries {
		out[i] = e.Epoch
	}
	return out
}

// MeanLoss averages the loss of the last n entries, or of all entries when
// fewer are recorded.
func (h *History) MeanLoss(n int) float64 {
	losses := h.Losses()
	if len(losses) == 0 || n <= 0 {
		return 0
	}
	if n < len(losses) {
		losses = losses[len(losses)-n:]
	}
	return floats.Sum(losses) / float64(len(losses))
}

// Clear drops every entry.
func (h *History) Clear() { h.entries = nil }

func (h *History) clone() *History {
	return &History{entries: h.Entries()}
}

// Rating is a coarse description of an accuracy value.
type Rating string

const (
	Excellent        Rating = "excellent"
	Good             Rating = "good"
	Fair             Rating = "fair"
	NeedsImprovement Rating = "needs improvement"
)

// Rate buckets accuracy: above 0.95 is excellent, above 0.8 good, above 0.6
// fair.
func Rate(accuracy float64) Rating {
	switch {
	case accuracy > 0.95:
		return Excellent
	case accuracy > 0.8:
		return Good
	case accuracy > 0.6:
		return Fair
	}
	return NeedsImprovement
}

// Progress describes how far the loss has fallen since the first entry.
type Progress string

const (
	JustStarting    Progress = "just starting"
	LearningSlowly  Progress = "learning slowly"
	MakingProgress  Progress = "making progress"
	LearningWell    Progress = "learning well"
	AlmostConverged Progress = "almost converged"
)

// Progress buckets the percentage drop from the first to the last loss:
// below 10 is just starting, below 30 learning slowly, below 60 making
// progress and below 80 learning well. Fewer than two entries, or a first
// loss of zero, count as just starting.
func (h *History) Progress() Progress {
	if len(h.entries) < 2 {
		return JustStarting
	}
	first, last := h.entries[0].Loss, h.entries[len(h.entries)-1].Loss
	if first == 0 {
		return JustStarting
	}
	reduction := (first - last) / first * 100
	switch {
	case reduction < 10:
		return JustStarting
	case reduction < 30:
		return LearningSlowly
	case reduction < 60:
		return MakingProgress
	case reduction < 80:
		return LearningWell
	}
	return AlmostConverged
}

// Trend is the direction of the recent loss.
type Trend string

const (
	NotEnoughData Trend = "not enough data"
	Improving     Trend = "improving"
	Stable        Trend = "stable"
	Worsening     Trend = "worsening"
)

// trendWindow is the number of recent losses Trend looks at.
const trendWindow = 5

// Trend averages the per-step change over the last five losses. A mean drop
// above 0.01 is improving and a mean rise above 0.01 is worsening.
func (h *History) Trend() Trend {
	n := len(h.entries)
	if n < trendWindow {
		return NotEnoughData
	}
	change := (h.entries[n-trendWindow].Loss - h.entries[n-1].Loss) / (trendWindow - 1)
	switch {
	case change > 0.01:
		return Improving
	case change < -0.01:
		return Worsening
	}
	return Stable
}
