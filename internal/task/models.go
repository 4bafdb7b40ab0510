package task

import "time"

// Task represents a work item. A task is not owned by a single party: the
// assignee may toggle completion, while the creator (or an admin) controls
// details and deletion.
type Task struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at"`
	AssignedTo  string     `json:"assigned_to"`
	CreatedBy   string     `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
}

// AssignedToUsername returns the assignee's username.
func (t *Task) AssignedToUsername() string { return t.AssignedTo }

// CreatedByUsername returns the creator's username.
func (t *Task) CreatedByUsername() string { return t.CreatedBy }

// CreateTaskInput holds the fields required to create a task.
type CreateTaskInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	AssignedTo  string `json:"assigned_to"`
	CreatedBy   string `json:"created_by"`
}

// Stats summarizes the tasks visible to a caller.
type Stats struct {
	Total     int64 `json:"total"`
	Completed int64 `json:"completed"`
	Pending   int64 `json:"pending"`
}
