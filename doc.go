// Package relay provides a resilient message relay between a CMMS backend and
// an MQTT broker, with a bounded retry queue, jittered exponential backoff,
// chunked transfer of large payloads and a health snapshot for status routes.
//
// The relay never blocks or fails the caller: Publish either sends the
// message now or queues it for retry. Messages that exhaust their attempts,
// or are evicted because the queue is full, become dead letters. Dead letters
// are logged, signalled to the NotificationService and, when a repository is
// configured, stored for inspection.
//
// # Features
//
//   - Publish that never fails the caller; undeliverable messages are queued
//   - Bounded retry queue with oldest-first eviction and backpressure signal
//   - Exponential backoff with jitter, capped at a maximum delay
//   - Queue snapshots persisted across restarts (adapters/file)
//   - Large payloads split into checksummed chunks and reassembled on receipt
//   - Health snapshot: connection readiness, queue depth, backpressure, last failure
//   - Pluggable broker (adapters/mqtt, adapters/memory), logger (adapters/zaplog),
//     metrics (adapters/prometheus) and dead-letter storage (adapters/relica)
//
// # Quick Start
//
//	broker, _ := mqtt.New(mqtt.Config{
//	    Brokers:  []string{"tcp://localhost:1883"},
//	    ClientID: "workpro-relay",
//	})
//
//	service, err := relay.NewService(
//	    relay.WithBroker(broker),
//	    relay.WithLogger(logger),
//	    relay.WithStateStore(file.NewQueueStore("./data/relay-queue.json")),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	_ = service.Subscribe(ctx, "workorders", func(ctx context.Context, topic string, payload json.RawMessage) {
//	    // handle inbound message
//	})
//
//	if err := service.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer service.Close()
//
//	service.Publish(ctx, "workorders", map[string]any{"id": 42, "status": "closed"})
//
// # Retry Strategy
//
// Each failed delivery increments the message's attempt count. The next
// attempt is scheduled after
//
//	backoff = min(BaseBackoff * 2^(attempts-1), MaxBackoff)
//	delay   = backoff + backoff*JitterRatio*r
//
// where r is uniform in [0,1). With the defaults (1s base, 1m cap, 0.2 jitter)
// the nominal schedule is 1s, 2s, 4s, 8s and the message is dead-lettered
// after 5 attempts.
//
// # Chunking
//
// Payloads larger than ChunkSize bytes are split into envelopes that carry a
// shared id, index, total and a SHA-256 checksum of the whole payload. The
// receiving side stores parts on disk (package chunk) until all have arrived,
// verifies the checksum and hands the payload to listeners. Incomplete
// assemblies expire after ChunkTTL.
//
// # Standalone Server
//
// cmd/relay-server runs the relay with an HTTP API:
//
//	POST /api/v1/publish          publish {"topic": "...", "data": {...}}
//	GET  /api/v1/health           health snapshot (503 while disconnected)
//	GET  /api/v1/deadletters      newest stored dead letters (?topic=, ?limit=)
//	GET  /api/v1/deadletters/stats dead-letter counts by reason
//	DELETE /api/v1/deadletters/{id} remove a handled dead letter
//	GET  /api/v1/retry-schedule   configured backoff schedule
//	GET  /metrics                 Prometheus metrics
package relay
