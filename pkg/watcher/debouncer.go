package watcher

import (
	"context"
	"time"

	"github.com/ritzau/crystal-bonds/pkg/logging"
)

// Debouncer batches rapid file system events to avoid excessive re-analysis.
// A batch is emitted once no event arrived for quietPeriod, or maxWait after
// its first event, whichever comes first.
type Debouncer struct {
	input       <-chan ChangeEvent
	output      chan []ChangeEvent
	quietPeriod time.Duration
	maxWait     time.Duration
}

// NewDebouncer creates a new event debouncer
func NewDebouncer(input <-chan ChangeEvent, quietPeriod, maxWait time.Duration) *Debouncer {
	return &Debouncer{
		input:       input,
		output:      make(chan []ChangeEvent, 10),
		quietPeriod: quietPeriod,
		maxWait:     maxWait,
	}
}

// Start begins processing events with debouncing
func (d *Debouncer) Start(ctx context.Context) {
	go d.run(ctx)
}

func (d *Debouncer) run(ctx context.Context) {
	defer close(d.output)

	var (
		quiet, deadline <-chan time.Time
		accumulated     = make(map[ChangeType][]string)
		eventCount      int
	)

	flush := func() {
		quiet, deadline = nil, nil
		if eventCount == 0 {
			return
		}
		logging.Debug("flushing accumulated events", "count", eventCount)

		// Crystal first, then radii, then rules
		var batch []ChangeEvent
		now := time.Now()
		for _, t := range []ChangeType{ChangeTypeCrystal, ChangeTypeRadii, ChangeTypeRules} {
			if paths := accumulated[t]; len(paths) > 0 {
				batch = append(batch, ChangeEvent{Type: t, Paths: dedupe(paths), Timestamp: now})
			}
		}
		accumulated = make(map[ChangeType][]string)
		eventCount = 0
		d.output <- batch
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return

		case event, ok := <-d.input:
			if !ok {
				flush()
				return
			}
			accumulated[event.Type] = append(accumulated[event.Type], event.Paths...)
			eventCount++

			quiet = time.After(d.quietPeriod)
			if deadline == nil {
				deadline = time.After(d.maxWait)
			}

		case <-quiet:
			flush()

		case <-deadline:
			flush()
		}
	}
}

// Output returns the channel of debounced batches
func (d *Debouncer) Output() <-chan []ChangeEvent {
	return d.output
}

func dedupe(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := paths[:0:0]
	for _, p := range paths {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}
