// internal/domain/models/status.go
package models

// Record statuses shared by users, farms, rooms and supervisors.
const (
	StatusActive   = "active"
	StatusDisabled = "disabled"
)
