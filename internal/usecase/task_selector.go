package usecase

import (
	"fmt"
	"sync"

	"signsync/internal/domain"
)

// TaskSelector holds the task chosen for the capture view.
type TaskSelector struct {
	mu   sync.RWMutex
	task domain.Task
}

func NewTaskSelector(initial domain.Task) *TaskSelector {
	if !initial.Valid() {
		initial = domain.DefaultTask
	}
	return &TaskSelector{task: initial}
}

func (s *TaskSelector) Select(task domain.Task) error {
	if !task.Valid() {
		return fmt.Errorf("unknown task %q", task)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.task = task
	return nil
}

func (s *TaskSelector) Current() domain.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.task
}
