// Package producer publishes domain events to a message broker (Kafka) for downstream consumers.
package producer

import "referral-gate-bot/internal/telemetry"

// Producer emits domain events. Callers use it best-effort: log and ignore errors.
type Producer interface {
	telemetry.EventEmitter
	// Close releases resources (e.g. Kafka writer). Safe to call if already closed.
	Close() error
}
