package watcher

import (
	"context"
	"time"

	"github.com/ritzau/service-catalog/pkg/logging"
)

// Debouncer merges bursts of change events. It emits once the input has been
// quiet for quietPeriod, or after maxWait since the first pending event.
type Debouncer struct {
	input       <-chan ChangeEvent
	output      chan ChangeEvent
	quietPeriod time.Duration
	maxWait     time.Duration
}

// NewDebouncer creates a debouncer reading from input.
func NewDebouncer(input <-chan ChangeEvent, quietPeriod, maxWait time.Duration) *Debouncer {
	return &Debouncer{
		input:       input,
		output:      make(chan ChangeEvent, 4),
		quietPeriod: quietPeriod,
		maxWait:     maxWait,
	}
}

// Start runs the debouncer until ctx is done or the input closes.
func (d *Debouncer) Start(ctx context.Context) {
	go d.run(ctx)
}

func (d *Debouncer) run(ctx context.Context) {
	defer close(d.output)

	var (
		quiet   *time.Timer
		maxWait *time.Timer
		pending = map[ChangeType][]string{}
		count   int
	)

	stopTimers := func() {
		if quiet != nil {
			quiet.Stop()
			quiet = nil
		}
		if maxWait != nil {
			maxWait.Stop()
			maxWait = nil
		}
	}

	flush := func() {
		stopTimers()
		if count == 0 {
			return
		}
		logging.Debug("flushing debounced file changes", "events", count)

		// A removal followed by a write is a replace-on-save; report the write
		if len(pending[ChangeTypeWritten]) > 0 {
			d.send(ctx, ChangeEvent{Type: ChangeTypeWritten, Paths: pending[ChangeTypeWritten], Timestamp: time.Now()})
		} else if len(pending[ChangeTypeRemoved]) > 0 {
			d.send(ctx, ChangeEvent{Type: ChangeTypeRemoved, Paths: pending[ChangeTypeRemoved], Timestamp: time.Now()})
		}
		pending = map[ChangeType][]string{}
		count = 0
	}

	timerC := func(t *time.Timer) <-chan time.Time {
		if t == nil {
			return nil
		}
		return t.C
	}

	for {
		select {
		case <-ctx.Done():
			stopTimers()
			return

		case event, ok := <-d.input:
			if !ok {
				flush()
				return
			}
			for _, p := range event.Paths {
				pending[event.Type] = appendOnce(pending[event.Type], p)
			}
			if event.Type == ChangeTypeWritten {
				delete(pending, ChangeTypeRemoved)
			}
			count++

			if quiet == nil {
				quiet = time.NewTimer(d.quietPeriod)
			} else {
				quiet.Reset(d.quietPeriod)
			}
			if maxWait == nil {
				maxWait = time.NewTimer(d.maxWait)
			}

		case <-timerC(quiet):
			quiet = nil
			flush()

		case <-timerC(maxWait):
			maxWait = nil
			flush()
		}
	}
}

func (d *Debouncer) send(ctx context.Context, event ChangeEvent) {
	select {
	case d.output <- event:
	case <-ctx.Done():
	}
}

// Output returns the channel of debounced events.
func (d *Debouncer) Output() <-chan ChangeEvent {
	return d.output
}
