package notification

import (
	"time"
)

// Severity drives how the portal renders a notification
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

func (s Severity) IsValid() bool {
	switch s {
	case SeverityInfo, SeveritySuccess, SeverityWarning, SeverityError:
		return true
	}
	return false
}

// Category groups notifications by the feature that produced them
type Category string

const (
	CategoryLeave        Category = "leave"
	CategoryAttendance   Category = "attendance"
	CategorySystem       Category = "system"
	CategoryAnnouncement Category = "announcement"
)

func (c Category) IsValid() bool {
	switch c {
	case CategoryLeave, CategoryAttendance, CategorySystem, CategoryAnnouncement:
		return true
	}
	return false
}

// Priority of a notification
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Notification represents a notification entity
type Notification struct {
	ID             string
	RecipientID    string
	SenderID       *string
	Title          string
	Message        string
	Severity       Severity
	Category       Category
	Priority       Priority
	ActionRequired bool
	Data           map[string]interface{}
	IsRead         bool
	ReadAt         *time.Time
	CreatedAt      time.Time
}
