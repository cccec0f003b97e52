package scratchpad

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddTaskDefaultsToMediumPriority(t *testing.T) {
	s := New()
	sum := s.AddTask("write tests", "")
	require.Len(t, sum.Tasks, 1)
	require.Equal(t, PriorityMedium, sum.Tasks[0].Priority)
	require.Equal(t, StatusPending, sum.Tasks[0].Status)
}

func TestUpdateTaskOutOfBoundsErrors(t *testing.T) {
	s := New()
	_, err := s.UpdateTask(0, StatusCompleted)
	require.Error(t, err)
}

func TestUpdateTaskChangesStatus(t *testing.T) {
	s := New()
	s.AddTask("ship it", PriorityHigh)
	sum, err := s.UpdateTask(0, StatusInProgress)
	require.NoError(t, err)
	require.Equal(t, StatusInProgress, sum.Tasks[0].Status)
}

func TestGetSummaryReturnsIndependentCopies(t *testing.T) {
	s := New()
	s.AddNote("first note")
	sum := s.GetSummary()
	sum.Notes[0] = "mutated"
	require.Equal(t, "first note", s.GetSummary().Notes[0])
}
