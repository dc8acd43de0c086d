package relay

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
)

// Listener receives complete application payloads for a topic. Chunked
// messages reach listeners only once fully reassembled and verified.
type Listener func(ctx context.Context, topic string, payload json.RawMessage)

// listenerRegistry maps topics to application listeners.
type listenerRegistry struct {
	mu        sync.RWMutex
	listeners map[string][]Listener
}

func newListenerRegistry() *listenerRegistry {
	return &listenerRegistry{listeners: make(map[string][]Listener)}
}

// add registers l and reports whether it is the first listener for topic.
func (r *listenerRegistry) add(topic string, l Listener) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	first := len(r.listeners[topic]) == 0
	r.listeners[topic] = append(r.listeners[topic], l)
	return first
}

// topics returns the subscribed topics, sorted.
func (r *listenerRegistry) topics() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.listeners))
	for t := range r.listeners {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// dispatch calls every listener of topic and returns how many were called.
func (r *listenerRegistry) dispatch(ctx context.Context, topic string, payload json.RawMessage) int {
	r.mu.RLock()
	ls := append([]Listener(nil), r.listeners[topic]...)
	r.mu.RUnlock()

	for _, l := range ls {
		l(ctx, topic, payload)
	}
	return len(ls)
}
