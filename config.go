package relay

import (
	"time"

	"github.com/RCK777-BALL/WorkPro3-sub006/chunk"
	"github.com/RCK777-BALL/WorkPro3-sub006/retry"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Config holds the relay's tuning knobs.
type Config struct {
	Enabled        bool          // False when no broker is configured; Publish then drops
	QueueLimit     int           // Retry queue capacity; the oldest entry is evicted beyond it
	MaxAttempts    int           // Failed retries before a message is dead-lettered
	BaseBackoff    time.Duration // Backoff after the first failed retry
	MaxBackoff     time.Duration // Backoff cap, jitter excluded
	JitterRatio    float64       // Jitter as a fraction of the backoff, in [0, 1]
	ChunkSize      int           // Serialized payloads above this many bytes are chunked
	MaxMessageSize int64         // Largest chunked payload accepted on receive, in bytes
	RetryInterval  time.Duration // Retry drain poll interval
	ChunkTTL       time.Duration // Age after which an incomplete assembly is purged
	SweepInterval  time.Duration // Chunk cleanup poll interval
	ChunkDir       string        // Staging directory for {id}.part files
}

// DefaultConfig returns the relay defaults.
func DefaultConfig() Config {
	return Config{
		Enabled:        true,
		QueueLimit:     1000,
		MaxAttempts:    5,
		BaseBackoff:    time.Second,
		MaxBackoff:     time.Minute,
		JitterRatio:    0.2,
		ChunkSize:      512000,
		MaxMessageSize: chunk.DefaultMaxMessageSize,
		RetryInterval:  5 * time.Second,
		ChunkTTL:       5 * time.Minute,
		SweepInterval:  time.Minute,
		ChunkDir:       "./data/chunks",
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.QueueLimit, validation.Required, validation.Min(1)),
		validation.Field(&c.MaxAttempts, validation.Required, validation.Min(1)),
		validation.Field(&c.BaseBackoff, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.MaxBackoff, validation.Required, validation.Min(c.BaseBackoff)),
		validation.Field(&c.JitterRatio, validation.Min(0.0), validation.Max(1.0)),
		validation.Field(&c.ChunkSize, validation.Required, validation.Min(1)),
		validation.Field(&c.MaxMessageSize, validation.Required, validation.Min(int64(c.ChunkSize))),
		validation.Field(&c.RetryInterval, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.ChunkTTL, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.SweepInterval, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.ChunkDir, validation.Required),
	)
}

// Strategy returns the retry strategy described by the configuration.
func (c Config) Strategy() retry.Strategy {
	return retry.Strategy{
		MaxAttempts:     c.MaxAttempts,
		BaseDelay:       c.BaseBackoff,
		MaxDelay:        c.MaxBackoff,
		ExponentialBase: 2.0,
		JitterRatio:     c.JitterRatio,
	}
}
