// Package model contains the domain models shared by the relay: queued messages,
// chunk metadata, dead letters and the health snapshot.
package model

import "time"

// tablePrefix is the default prefix for relay tables.
const tablePrefix = "relay_"

// ChunkMetadata describes one chunk of an oversized payload on the wire.
// All chunks of one payload share ID, Total and Checksum.
type ChunkMetadata struct {
	ID       string `json:"id"`
	Index    int    `json:"index"`
	Total    int    `json:"total"`
	Checksum string `json:"checksum"`
}

// Valid reports whether the metadata is internally consistent.
func (c ChunkMetadata) Valid() bool {
	return c.ID != "" && c.Checksum != "" && c.Total > 0 && c.Index >= 0 && c.Index < c.Total
}

// SameSet reports whether two chunks describe the same logical payload.
func (c ChunkMetadata) SameSet(other ChunkMetadata) bool {
	return c.Total == other.Total && c.Checksum == other.Checksum
}

// Failure is the most recent delivery failure recorded by the publisher.
type Failure struct {
	Topic string    `json:"topic"`
	Error string    `json:"error"`
	At    time.Time `json:"at"`
}

// HealthSnapshot is the operational view of the relay exposed to status routes.
type HealthSnapshot struct {
	Enabled       bool     `json:"enabled"`
	ProducerReady bool     `json:"producerReady"`
	ConsumerReady bool     `json:"consumerReady"`
	Backpressure  bool     `json:"backpressure"`
	QueueDepth    int      `json:"queueDepth"`
	LastFailure   *Failure `json:"lastFailure,omitempty"`
}
