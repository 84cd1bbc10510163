package models

import "time"

// TaskPriority is the urgency bucket shown on the tasks screen.
type TaskPriority string

const (
	PriorityHigh   TaskPriority = "high"
	PriorityMedium TaskPriority = "medium"
	PriorityLow    TaskPriority = "low"
)

// TaskStatus tracks a task through its lifecycle. Once a task leaves
// "pending" via ToggleComplete it never returns there.
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in-progress"
	StatusCompleted  TaskStatus = "completed"
)

// Task is a to-do item owned entirely by the device. Tasks are persisted to
// the local state database and never synced to the server.
type Task struct {
	ID          string       `gorm:"primaryKey" json:"id"`
	Title       string       `gorm:"not null" json:"title"`
	Description string       `json:"description"`
	Subject     string       `json:"subject"`
	Priority    TaskPriority `gorm:"type:varchar(8);default:'medium'" json:"priority"`
	Status      TaskStatus   `gorm:"type:varchar(16);default:'pending'" json:"status"`
	Deadline    string       `json:"deadline"`
	Completed   bool         `gorm:"default:false" json:"completed"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// TaskUpdate carries the mutable fields of a task edit. Nil means unchanged.
type TaskUpdate struct {
	Title       *string       `json:"title,omitempty"`
	Description *string       `json:"description,omitempty"`
	Subject     *string       `json:"subject,omitempty"`
	Priority    *TaskPriority `json:"priority,omitempty"`
	Status      *TaskStatus   `json:"status,omitempty"`
	Deadline    *string       `json:"deadline,omitempty"`
}
