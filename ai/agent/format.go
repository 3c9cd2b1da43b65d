package agent

import (
	"fmt"
	"strings"
)

const malformedArgsNotice = "\n\n⚠ Failed to process task operation due to malformed data."

// formatToolResult converts a tool invocation result into the
// human-readable narration appended to the assistant's reply. Every
// result produces text; a tool call is never silently swallowed.
func formatToolResult(toolName string, result *Result) string {
	if !result.OK() {
		return fmt.Sprintf("\n\n⚠ Task operation failed: %s", result.Error.Message)
	}

	switch toolName {
	case toolListTasks:
		return formatTaskList(result.Data.Tasks)
	case toolCreateTask:
		title := "task"
		if result.Data.Task != nil {
			title = result.Data.Task.Title
		}
		return fmt.Sprintf("\n\n✓ Task created successfully: '%s'.", title)
	case toolToggleTask:
		return fmt.Sprintf("\n\n✓ %s!", result.Data.Message)
	case toolDeleteTask:
		return fmt.Sprintf("\n\n🗑️ %s!", result.Data.Message)
	default:
		return fmt.Sprintf("\n\n✓ Operation completed: %s", result.Data.Message)
	}
}

// formatTaskList renders tasks grouped by completion state. An empty
// list states so explicitly.
func formatTaskList(tasks []TaskPayload) string {
	if len(tasks) == 0 {
		return "\n\nYour task list is empty. You have no pending tasks."
	}

	var pending, completed []TaskPayload
	for _, task := range tasks {
		if task.Completed {
			completed = append(completed, task)
		} else {
			pending = append(pending, task)
		}
	}

	var b strings.Builder
	b.WriteString("\n\n📋 Your Task List:\n")
	if len(pending) > 0 {
		b.WriteString("\n📋 Pending Tasks:\n")
		for _, task := range pending {
			b.WriteString("  ○ " + task.Title)
			if task.Description != "" {
				b.WriteString(" - " + task.Description)
			}
			b.WriteString("\n")
		}
	}
	if len(completed) > 0 {
		b.WriteString("\n✅ Completed Tasks:\n")
		for _, task := range completed {
			b.WriteString("  ✓ " + task.Title)
			if task.Description != "" {
				b.WriteString(" - " + task.Description)
			}
			b.WriteString("\n")
		}
	}
	b.WriteString("\nIs there anything else I can help you with?")
	return b.String()
}
