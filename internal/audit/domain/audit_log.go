package domain

import "time"

// AuditLog represents one administrator action.
type AuditLog struct {
	ID        string
	ActorID   int64
	Action    string
	Resource  string
	Metadata  string
	CreatedAt time.Time
}
