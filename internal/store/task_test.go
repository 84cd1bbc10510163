package store

import (
	"testing"

	"unihub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTaskFixture(t *testing.T) *TaskStore {
	t.Helper()

	s, err := NewTaskStore(openTestLocal(t))
	require.NoError(t, err)
	return s
}

func TestTaskStore_Add(t *testing.T) {
	t.Parallel()
	s := newTaskFixture(t)

	id, err := s.Add("Finish essay", "2000 words", "Literature", "2026-09-10", models.PriorityHigh)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	tasks := s.Tasks()
	require.Len(t, tasks, 1)
	task := tasks[0]
	assert.Equal(t, "Finish essay", task.Title)
	assert.Equal(t, models.PriorityHigh, task.Priority)
	assert.Equal(t, models.StatusPending, task.Status)
	assert.False(t, task.Completed)
	assert.False(t, task.CreatedAt.IsZero())

	t.Run("title required", func(t *testing.T) {
		_, err := s.Add("", "", "", "", "")
		assert.Equal(t, models.CodeValidation, models.CodeOf(err))
	})

	t.Run("priority defaults to medium", func(t *testing.T) {
		id, err := s.Add("Untitled priority", "", "", "", "")
		require.NoError(t, err)
		for _, task := range s.Tasks() {
			if task.ID == id {
				assert.Equal(t, models.PriorityMedium, task.Priority)
			}
		}
	})
}

func TestTaskStore_ToggleComplete(t *testing.T) {
	t.Parallel()
	s := newTaskFixture(t)

	id, err := s.Add("Lab report", "", "Chemistry", "", models.PriorityMedium)
	require.NoError(t, err)

	task, err := s.ToggleComplete(id)
	require.NoError(t, err)
	assert.True(t, task.Completed)
	assert.Equal(t, models.StatusCompleted, task.Status)

	// Un-completing infers in-progress, never back to pending.
	task, err = s.ToggleComplete(id)
	require.NoError(t, err)
	assert.False(t, task.Completed)
	assert.Equal(t, models.StatusInProgress, task.Status)

	task, err = s.ToggleComplete(id)
	require.NoError(t, err)
	assert.True(t, task.Completed)
	assert.Equal(t, models.StatusCompleted, task.Status)

	t.Run("unknown id", func(t *testing.T) {
		_, err := s.ToggleComplete("missing")
		assert.Equal(t, models.CodeNotFound, models.CodeOf(err))
	})
}

func TestTaskStore_Update(t *testing.T) {
	t.Parallel()
	s := newTaskFixture(t)

	id, err := s.Add("Draft", "v1", "History", "", models.PriorityLow)
	require.NoError(t, err)

	title := "Final draft"
	status := models.StatusCompleted
	task, err := s.Update(id, models.TaskUpdate{Title: &title, Status: &status})
	require.NoError(t, err)
	assert.Equal(t, "Final draft", task.Title)
	assert.Equal(t, models.StatusCompleted, task.Status)
	// Setting the status to completed keeps the flag consistent.
	assert.True(t, task.Completed)
	// Untouched fields are preserved.
	assert.Equal(t, "v1", task.Description)
	assert.Equal(t, models.PriorityLow, task.Priority)

	t.Run("unknown id", func(t *testing.T) {
		_, err := s.Update("missing", models.TaskUpdate{})
		assert.Equal(t, models.CodeNotFound, models.CodeOf(err))
	})
}

func TestTaskStore_Delete(t *testing.T) {
	t.Parallel()
	s := newTaskFixture(t)

	id, err := s.Add("Temp", "", "", "", "")
	require.NoError(t, err)

	require.NoError(t, s.Delete(id))
	assert.Empty(t, s.Tasks())

	// Deleting an unknown id is a no-op.
	require.NoError(t, s.Delete(id))
}

func TestTaskStore_PersistsAcrossReload(t *testing.T) {
	t.Parallel()
	local := openTestLocal(t)

	first, err := NewTaskStore(local)
	require.NoError(t, err)
	id, err := first.Add("Survives restart", "", "", "", models.PriorityMedium)
	require.NoError(t, err)
	_, err = first.ToggleComplete(id)
	require.NoError(t, err)

	second, err := NewTaskStore(local)
	require.NoError(t, err)
	tasks := second.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, "Survives restart", tasks[0].Title)
	assert.True(t, tasks[0].Completed)
	assert.Equal(t, models.StatusCompleted, tasks[0].Status)
}
