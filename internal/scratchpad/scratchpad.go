// Package scratchpad implements the per-agent ScratchpadState: a
// mutex-guarded note/task list exclusive to one running agent, exposed to
// the model through the "workspace" tool.
package scratchpad

import (
	"encoding/json"
	"sync"

	"github.com/git-iris/gitiris/internal/girerr"
)

// TaskStatus is the lifecycle state of a scratchpad task.
type TaskStatus string

const (
	StatusPending    TaskStatus = "Pending"
	StatusInProgress TaskStatus = "InProgress"
	StatusCompleted  TaskStatus = "Completed"
	StatusBlocked    TaskStatus = "Blocked"
)

// Priority is the urgency of a scratchpad task.
type Priority string

const (
	PriorityLow      Priority = "Low"
	PriorityMedium   Priority = "Medium"
	PriorityHigh     Priority = "High"
	PriorityCritical Priority = "Critical"
)

// Task is one scratchpad task entry.
type Task struct {
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
	Priority    Priority   `json:"priority"`
}

// State is the process-local, per-agent scratchpad: notes and tasks
// accumulated during one agent run. Created fresh per agent, owned
// exclusively by that agent, and destroyed with it. Guarded by a mutex
// since tool handlers may be dispatched from any task on the runtime.
type State struct {
	mu    sync.Mutex
	notes []string
	tasks []Task
}

// New returns an empty scratchpad.
func New() *State {
	return &State{}
}

// Summary is the JSON shape returned by GetSummary and after every mutating
// action, so the model always sees the scratchpad's current contents.
type Summary struct {
	Notes []string `json:"notes"`
	Tasks []Task   `json:"tasks"`
}

// AddNote appends a note and returns the updated summary.
func (s *State) AddNote(content string) Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes = append(s.notes, content)
	return s.summaryLocked()
}

// AddTask appends a task with the given priority (defaulting to Medium when
// empty) in Pending status, and returns the updated summary.
func (s *State) AddTask(description string, priority Priority) Summary {
	if priority == "" {
		priority = PriorityMedium
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, Task{Description: description, Status: StatusPending, Priority: priority})
	return s.summaryLocked()
}

// UpdateTask sets the status of the task at index, returning a
// girerr.KindContext error if the index is out of bounds.
func (s *State) UpdateTask(index int, status TaskStatus) (Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.tasks) {
		return Summary{}, girerr.New(girerr.KindContext, "scratchpad.UpdateTask", "task index out of bounds", nil)
	}
	s.tasks[index].Status = status
	return s.summaryLocked(), nil
}

// GetSummary returns the current notes and tasks.
func (s *State) GetSummary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summaryLocked()
}

func (s *State) summaryLocked() Summary {
	notes := append([]string{}, s.notes...)
	tasks := append([]Task{}, s.tasks...)
	return Summary{Notes: notes, Tasks: tasks}
}

// MarshalJSON renders the summary for tool-result bodies.
func (sm Summary) MarshalJSON() ([]byte, error) {
	type alias Summary
	notes := sm.Notes
	if notes == nil {
		notes = []string{}
	}
	tasks := sm.Tasks
	if tasks == nil {
		tasks = []Task{}
	}
	return json.Marshal(alias{Notes: notes, Tasks: tasks})
}
