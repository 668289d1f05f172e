package pipeline

import (
	"log/slog"

	"github.com/joseph-ayodele/document-pipeline/constants"
)

// Stats counts terminal outcomes of one run. It is only touched by the
// goroutine draining the pool.
type Stats map[constants.Outcome]int

// NewStats returns Stats with every known outcome at zero.
func NewStats() Stats {
	s := make(Stats, len(constants.AllOutcomes))
	for _, o := range constants.AllOutcomes {
		s[o] = 0
	}
	return s
}

// Add counts o. Labels outside the known set are counted as errors.
func (s Stats) Add(o constants.Outcome) {
	if !constants.IsKnownOutcome(o) {
		o = constants.OutcomeError
	}
	s[o]++
}

// Total is the number of documents counted.
func (s Stats) Total() int {
	n := 0
	for _, c := range s {
		n += c
	}
	return n
}

// Succeeded counts documents that produced a result in this run.
func (s Stats) Succeeded() int {
	return s[constants.OutcomeInvoice] + s[constants.OutcomeContract] +
		s[constants.OutcomeMaintenanceReport] + s[constants.OutcomeUnknown]
}

// LogAttrs renders the counters in reporting order.
func (s Stats) LogAttrs() []any {
	attrs := make([]any, 0, 2*len(constants.AllOutcomes)+2)
	for _, o := range constants.AllOutcomes {
		attrs = append(attrs, string(o), s[o])
	}
	return append(attrs, "total", s.Total())
}

func (s Stats) log(logger *slog.Logger) {
	logger.Info("pipeline.stats", s.LogAttrs()...)
}
