package store

import (
	"fmt"
	"sync"
	"time"

	"unihub/internal/localstate"
	"unihub/internal/models"
	"unihub/internal/observability"
)

// TaskStore manages the device-local task list. Every mutation is written
// through to local storage; the in-memory list is the source of truth for
// reads.
type TaskStore struct {
	local  *localstate.Store
	logger *observability.Logger

	mu    sync.RWMutex
	tasks []*models.Task
}

// NewTaskStore returns a TaskStore loaded with the persisted tasks.
func NewTaskStore(local *localstate.Store) (*TaskStore, error) {
	tasks, err := local.LoadTasks()
	if err != nil {
		return nil, err
	}
	return &TaskStore{
		local:  local,
		logger: observability.Named("task-store"),
		tasks:  tasks,
	}, nil
}

// Add creates a task and returns its id. New tasks start pending and not
// completed regardless of the arguments.
func (s *TaskStore) Add(title, description, subject, deadline string, priority models.TaskPriority) (string, error) {
	if title == "" {
		return "", models.NewValidationError("Task title is required")
	}
	if priority == "" {
		priority = models.PriorityMedium
	}

	now := time.Now()
	t := &models.Task{
		ID:          fmt.Sprintf("%d", now.UnixNano()),
		Title:       title,
		Description: description,
		Subject:     subject,
		Priority:    priority,
		Status:      models.StatusPending,
		Deadline:    deadline,
		Completed:   false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.local.SaveTask(t); err != nil {
		return "", err
	}

	s.mu.Lock()
	s.tasks = append([]*models.Task{t}, s.tasks...)
	s.mu.Unlock()
	return t.ID, nil
}

// Update merges the provided fields into the task. Nil fields are left
// unchanged.
func (s *TaskStore) Update(id string, upd models.TaskUpdate) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.find(id)
	if t == nil {
		return nil, models.NewNotFoundError("task", id)
	}

	if upd.Title != nil {
		t.Title = *upd.Title
	}
	if upd.Description != nil {
		t.Description = *upd.Description
	}
	if upd.Subject != nil {
		t.Subject = *upd.Subject
	}
	if upd.Priority != nil {
		t.Priority = *upd.Priority
	}
	if upd.Status != nil {
		t.Status = *upd.Status
		t.Completed = t.Status == models.StatusCompleted
	}
	if upd.Deadline != nil {
		t.Deadline = *upd.Deadline
	}
	t.UpdatedAt = time.Now()

	if err := s.local.SaveTask(t); err != nil {
		return nil, err
	}
	cp := *t
	return &cp, nil
}

// ToggleComplete flips the completed flag. Completing sets the status to
// completed; un-completing moves it to in-progress, never back to pending.
func (s *TaskStore) ToggleComplete(id string) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.find(id)
	if t == nil {
		return nil, models.NewNotFoundError("task", id)
	}

	t.Completed = !t.Completed
	if t.Completed {
		t.Status = models.StatusCompleted
	} else {
		t.Status = models.StatusInProgress
	}
	t.UpdatedAt = time.Now()

	if err := s.local.SaveTask(t); err != nil {
		return nil, err
	}
	cp := *t
	return &cp, nil
}

// Delete removes a task. Deleting an unknown id is a no-op.
func (s *TaskStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, t := range s.tasks {
		if t.ID == id {
			if err := s.local.DeleteTask(id); err != nil {
				return err
			}
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			return nil
		}
	}
	return nil
}

// Tasks returns the task list, newest first.
func (s *TaskStore) Tasks() []*models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// find returns the task with the id, or nil. Caller holds the lock.
func (s *TaskStore) find(id string) *models.Task {
	for _, t := range s.tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}
