package kafka

import "time"

// NotificationEvent is a workflow notification decision
type NotificationEvent struct {
	EventID         string    `json:"event_id"`
	EventType       string    `json:"event_type"`
	Kind            string    `json:"kind"`
	EntityType      string    `json:"entity_type"`
	EntityID        uint      `json:"entity_id"`
	ActorID         uint      `json:"actor_id"`
	DepartmentScope []uint    `json:"department_scope"`
	Timestamp       time.Time `json:"timestamp"`
}

// DepartmentTreeChangedEvent announces an edit of the department tree
type DepartmentTreeChangedEvent struct {
	EventID      string    `json:"event_id"`
	EventType    string    `json:"event_type"`
	DepartmentID uint      `json:"department_id"`
	ActorID      uint      `json:"actor_id"`
	Timestamp    time.Time `json:"timestamp"`
}

// Event types
const (
	EventTypeNotification          = "notification"
	EventTypeDepartmentTreeChanged = "department.tree_changed"
)
