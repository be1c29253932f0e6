// Package realtimetest provides a Publisher that records events for tests.
package realtimetest

import (
	"context"
	"sync"

	"github.com/nikhil/chatgenius/internal/realtime"
)

type Recorder struct {
	mu     sync.Mutex
	events []realtime.Event
	Err    error
}

func (r *Recorder) Publish(_ context.Context, event realtime.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.Err
}

func (r *Recorder) Events() []realtime.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]realtime.Event(nil), r.events...)
}

// Names lists recorded event names in publish order.
func (r *Recorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.events))
	for _, event := range r.events {
		names = append(names, event.Name)
	}
	return names
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
