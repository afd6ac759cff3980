package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Action is the kind of mutation applied to a repository record.
type Action string

const (
	// ActionCreated is raised after a record is created.
	ActionCreated Action = "created"
	// ActionUpdated is raised after a record is updated.
	ActionUpdated Action = "updated"
	// ActionDeleted is raised after a record is deleted.
	ActionDeleted Action = "deleted"
)

// Record is the view of a repository record carried by an event.
type Record struct {
	ID            uint   `json:"id"`
	Owner         string `json:"owner"`
	MachineName   string `json:"machine_name"`
	Source        string `json:"source"`
	Label         string `json:"label"`
	Description   string `json:"description"`
	NumOpenIssues int    `json:"num_open_issues"`
	URL           string `json:"url"`
	Hash          string `json:"hash"`
}

// Event is one lifecycle notification.
type Event struct {
	Action Action    `json:"action"`
	Record Record    `json:"record"`
	At     time.Time `json:"at"`
}

// Sink receives events. Implementations must not block for long.
type Sink interface {
	Notify(ctx context.Context, event Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, event Event)

// Notify calls f.
func (f SinkFunc) Notify(ctx context.Context, event Event) {
	f(ctx, event)
}

// Multi fans events out to every sink in order.
type Multi []Sink

// Notify forwards the event to all sinks.
func (m Multi) Notify(ctx context.Context, event Event) {
	for _, s := range m {
		s.Notify(ctx, event)
	}
}

// Discard drops every event.
var Discard Sink = SinkFunc(func(context.Context, Event) {})

// LogSink logs events.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a sink writing to logger.
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Notify logs the event at info level.
func (s *LogSink) Notify(_ context.Context, event Event) {
	s.logger.Info("Repository "+string(event.Action),
		zap.String("owner", event.Record.Owner),
		zap.String("machine_name", event.Record.MachineName),
		zap.String("source", event.Record.Source),
		zap.String("url", event.Record.URL),
	)
}

// Recorder keeps the last events in memory.
type Recorder struct {
	mu     sync.RWMutex
	limit  int
	events []Event
}

// NewRecorder creates a recorder keeping at most limit events. A limit of
// zero or less keeps everything.
func NewRecorder(limit int) *Recorder {
	return &Recorder{limit: limit}
}

// Notify stores the event.
func (r *Recorder) Notify(_ context.Context, event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	if r.limit > 0 && len(r.events) > r.limit {
		r.events = r.events[len(r.events)-r.limit:]
	}
}

// Events returns a copy of the stored events, oldest first.
func (r *Recorder) Events() []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Reset clears the recorder.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
