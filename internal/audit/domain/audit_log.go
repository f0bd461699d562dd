package domain

import "time"

// AuditLog is one recorded security event.
type AuditLog struct {
	ID         string
	IdentityID string
	Action     string
	Resource   string
	IP         string
	Metadata   string
	CreatedAt  time.Time
}
