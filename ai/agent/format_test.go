package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatTaskList(t *testing.T) {
	t.Run("empty list states so explicitly", func(t *testing.T) {
		got := formatTaskList(nil)
		assert.Contains(t, got, "Your task list is empty. You have no pending tasks.")
	})

	t.Run("tasks are grouped by completion state", func(t *testing.T) {
		got := formatTaskList([]TaskPayload{
			{Title: "walk dog", Description: "around the block"},
			{Title: "pay rent", Completed: true},
		})
		assert.Contains(t, got, "📋 Your Task List:")
		assert.Contains(t, got, "📋 Pending Tasks:")
		assert.Contains(t, got, "○ walk dog - around the block")
		assert.Contains(t, got, "✅ Completed Tasks:")
		assert.Contains(t, got, "✓ pay rent")
		assert.Contains(t, got, "Is there anything else I can help you with?")
	})

	t.Run("only pending omits the completed group", func(t *testing.T) {
		got := formatTaskList([]TaskPayload{{Title: "walk dog"}})
		assert.NotContains(t, got, "✅ Completed Tasks:")
	})
}

func TestFormatToolResult(t *testing.T) {
	testCases := []struct {
		name     string
		tool     string
		result   *Result
		contains string
	}{
		{
			name:     "error envelope narrates the failure",
			tool:     toolCreateTask,
			result:   errorResult(CodeInvocationFailed, "title too long"),
			contains: "⚠ Task operation failed: title too long",
		},
		{
			name:     "create confirms with the title",
			tool:     toolCreateTask,
			result:   successResult(&ResultData{Task: &TaskPayload{Title: "Buy milk"}}, nil),
			contains: "✓ Task created successfully: 'Buy milk'.",
		},
		{
			name:     "toggle echoes the status message",
			tool:     toolToggleTask,
			result:   successResult(&ResultData{Message: `Task "Buy milk" marked as completed`}, nil),
			contains: `✓ Task "Buy milk" marked as completed!`,
		},
		{
			name:     "delete gets the bin emoji",
			tool:     toolDeleteTask,
			result:   successResult(&ResultData{Message: "Task deleted successfully"}, nil),
			contains: "🗑️ Task deleted successfully!",
		},
		{
			name:     "update falls through to the generic confirmation",
			tool:     toolUpdateTask,
			result:   successResult(&ResultData{Message: `Task "Buy milk" updated successfully`}, nil),
			contains: "✓ Operation completed:",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := formatToolResult(tc.tool, tc.result)
			assert.Contains(t, got, tc.contains)
		})
	}
}
