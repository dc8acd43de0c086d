// Package chunk implements the relay's chunking protocol: oversized payloads are
// split into checksummed, indexed envelopes on the sending side and reassembled
// from staging files on the receiving side.
package chunk

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/RCK777-BALL/WorkPro3-sub006/model"
	sha256 "github.com/minio/sha256-simd"
)

// Envelope is the wire form of one chunk.
type Envelope struct {
	Chunk   model.ChunkMetadata `json:"chunk"`
	Payload string              `json:"payload"` // base64 chunk bytes
}

// Checksum returns the hex SHA-256 of data.
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Split cuts data into envelopes of at most chunkSize raw bytes each.
// Every envelope carries the id, its index, the total and the checksum of data.
func Split(id string, data []byte, chunkSize int) ([]Envelope, error) {
	if chunkSize <= 0 {
		return nil, ErrInvalidChunkSize
	}
	if err := validateID(id); err != nil {
		return nil, err
	}

	total := (len(data) + chunkSize - 1) / chunkSize
	if total == 0 {
		total = 1
	}
	checksum := Checksum(data)

	envelopes := make([]Envelope, 0, total)
	for i := 0; i < total; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > len(data) {
			end = len(data)
		}
		envelopes = append(envelopes, Envelope{
			Chunk: model.ChunkMetadata{
				ID:       id,
				Index:    i,
				Total:    total,
				Checksum: checksum,
			},
			Payload: base64.StdEncoding.EncodeToString(data[start:end]),
		})
	}

	return envelopes, nil
}

// Encode serializes an envelope for the wire.
func Encode(env Envelope) ([]byte, error) {
	return json.Marshal(env)
}

// Decode returns the raw bytes carried by an envelope.
func Decode(env Envelope) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(env.Payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidChunk, err)
	}
	return data, nil
}

// ParseEnvelope reports whether raw has the chunk envelope shape, an object
// with a "chunk" metadata object and a string "payload", and returns it.
// Metadata is not validated here; AssemblyStore.Accept rejects bad envelopes
// so they are dropped rather than delivered as plain messages. Anything else,
// including objects with an unrelated "chunk" field, is a plain message.
func ParseEnvelope(raw []byte) (Envelope, bool) {
	var probe struct {
		Chunk   *model.ChunkMetadata `json:"chunk"`
		Payload *string              `json:"payload"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return Envelope{}, false
	}
	if probe.Chunk == nil || probe.Payload == nil {
		return Envelope{}, false
	}
	return Envelope{Chunk: *probe.Chunk, Payload: *probe.Payload}, true
}
