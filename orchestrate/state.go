package orchestrate

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// State is a step of a longitudinal run.
type State int

const (
	Idle State = iota
	Listing
	Confirming
	TypeSelection
	Scraping
	Aggregating
	Submitting
	Done
	Aborted
)

var stateNames = [...]string{
	Idle:          "idle",
	Listing:       "listing",
	Confirming:    "confirming",
	TypeSelection: "type_selection",
	Scraping:      "scraping",
	Aggregating:   "aggregating",
	Submitting:    "submitting",
	Done:          "done",
	Aborted:       "aborted",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("orchestrate.State(%d)", int(s))
	}
	return stateNames[s]
}

// MarshalText renders the state name.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool { return s == Done || s == Aborted }

// Event describes one transition. Index and URL are set while scraping.
type Event struct {
	RunID  string
	From   State
	To     State
	Index  int
	URL    string
	Reason string
	At     time.Time
}

// Observer receives every transition of a run, in order.
type Observer interface {
	Transition(ctx context.Context, ev Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, ev Event)

func (f ObserverFunc) Transition(ctx context.Context, ev Event) { f(ctx, ev) }

// Observers fans an event out to several observers.
type Observers []Observer

func (o Observers) Transition(ctx context.Context, ev Event) {
	for _, obs := range o {
		if obs != nil {
			obs.Transition(ctx, ev)
		}
	}
}

// LogObserver logs transitions at info level.
func LogObserver(logger *slog.Logger) Observer {
	return ObserverFunc(func(ctx context.Context, ev Event) {
		attrs := []any{"run_id", ev.RunID, "from", ev.From.String(), "to", ev.To.String()}
		if ev.To == Scraping {
			attrs = append(attrs, "index", ev.Index, "url", ev.URL)
		}
		if ev.Reason != "" {
			attrs = append(attrs, "reason", ev.Reason)
		}
		logger.InfoContext(ctx, "orchestrate: transition", attrs...)
	})
}
