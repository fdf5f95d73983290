package tasklist

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskapi/internal/model"
)

func ids(tasks []model.Task) []int64 {
	out := make([]int64, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func positions(tasks []model.Task) []int64 {
	out := make([]int64, len(tasks))
	for i, t := range tasks {
		out[i] = t.Position
	}
	return out
}

func sample() []model.Task {
	return []model.Task{
		{ID: 1, Title: "a", Position: 3},
		{ID: 2, Title: "b", Position: 7},
		{ID: 3, Title: "c", Position: 9},
	}
}

func TestReorder_Dense(t *testing.T) {
	out, ok := Reorder(sample(), 2, -1, true)
	require.True(t, ok)
	assert.Equal(t, []int64{1, 3, 2}, ids(out))
	assert.Equal(t, []int64{1, 2, 3}, positions(out))
}

func TestReorder_ReusesSlots(t *testing.T) {
	out, ok := Reorder(sample(), 0, 2, false)
	require.True(t, ok)
	assert.Equal(t, []int64{2, 3, 1}, ids(out))
	assert.Equal(t, []int64{3, 7, 9}, positions(out))
}

func TestReorder_DuplicateSlotsFallBackToDense(t *testing.T) {
	tasks := []model.Task{
		{ID: 1, Title: "a", Position: 5},
		{ID: 2, Title: "b", Position: 5},
	}
	out, ok := Reorder(tasks, 1, -1, false)
	require.True(t, ok)
	assert.Equal(t, []int64{2, 1}, ids(out))
	assert.Equal(t, []int64{1, 2}, positions(out))
}

func TestReorder_OutOfRange(t *testing.T) {
	for _, tc := range []struct{ from, delta int }{{0, -1}, {2, 1}, {1, 0}, {5, -1}} {
		_, ok := Reorder(sample(), tc.from, tc.delta, true)
		assert.False(t, ok, "from %d delta %d", tc.from, tc.delta)
	}
}

func TestReorder_DoesNotMutateInput(t *testing.T) {
	in := sample()
	_, ok := Reorder(in, 0, 1, true)
	require.True(t, ok)
	assert.Equal(t, sample(), in)
}

func TestModel_FilterCycle(t *testing.T) {
	m := New(80, 20)
	assert.Equal(t, "", m.Filter())
	assert.Equal(t, model.FilterCompleted, m.CycleFilter())
	assert.Equal(t, model.FilterIncomplete, m.CycleFilter())
	assert.Equal(t, "", m.CycleFilter())

	m.SetFilter(model.FilterIncomplete)
	assert.Equal(t, model.FilterIncomplete, m.Filter())
	m.SetFilter("bogus")
	assert.Equal(t, "", m.Filter())
}

func TestModel_SetTasksKeepsSelection(t *testing.T) {
	m := New(80, 20)
	m.SetTasks(sample(), 3)

	sel, ok := m.SelectedTask()
	require.True(t, ok)
	assert.Equal(t, int64(3), sel.ID)

	moved, ok := m.Move(-1)
	require.True(t, ok)
	assert.Equal(t, []int64{1, 3, 2}, ids(moved))

	m.SetTasks(sample()[:1], 0)
	sel, ok = m.SelectedTask()
	require.True(t, ok)
	assert.Equal(t, int64(1), sel.ID)
}

func TestRelativeTime(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{10 * time.Second, "just now"},
		{5 * time.Minute, "5m ago"},
		{3 * time.Hour, "3h ago"},
		{2 * 24 * time.Hour, "2d ago"},
		{15 * 24 * time.Hour, "2w ago"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, relativeTime(now, now.Add(-tt.ago)))
	}
	assert.Equal(t, "", relativeTime(now, time.Time{}))
}
