package models

import "time"

// Audit actions recorded for administrative and migration writes.
const (
	ActionUserStatus    = "USER_STATUS_UPDATE"
	ActionUserRole      = "USER_ROLE_UPDATE"
	ActionUserDelete    = "USER_DELETE"
	ActionResumeMigrate = "RESUME_MIGRATE"
)

// AuditLog represents an audit trail event.
type AuditLog struct {
	ID         string                 `json:"id" firestore:"-"`
	Timestamp  time.Time              `json:"timestamp" firestore:"timestamp"`
	UserID     string                 `json:"userId" firestore:"userId"` // who performed the action
	Action     string                 `json:"action" firestore:"action"`
	TargetType string                 `json:"targetType,omitempty" firestore:"targetType,omitempty"` // "USER" or "RESUME"
	TargetID   string                 `json:"targetId,omitempty" firestore:"targetId,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty" firestore:"details,omitempty"`
}
