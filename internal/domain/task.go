package domain

import (
	"fmt"
	"strings"
)

// Task is the recognition task a capture is sent for.
type Task string

const (
	TaskEmotion Task = "emotion"
	TaskSign    Task = "sign"
	TaskBoth    Task = "both"
)

// DefaultTask is selected before the user picks anything.
const DefaultTask = TaskEmotion

// Tasks lists the closed set of tasks in display order.
func Tasks() []Task {
	return []Task{TaskEmotion, TaskSign, TaskBoth}
}

func (t Task) Valid() bool {
	switch t {
	case TaskEmotion, TaskSign, TaskBoth:
		return true
	default:
		return false
	}
}

// ParseTask accepts a task name case-insensitively.
func ParseTask(value string) (Task, error) {
	task := Task(strings.ToLower(strings.TrimSpace(value)))
	if !task.Valid() {
		return "", fmt.Errorf("unknown task %q", value)
	}
	return task, nil
}
