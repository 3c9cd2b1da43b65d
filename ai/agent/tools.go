package agent

import "github.com/hrygo/taskdeck/ai/llm"

const (
	toolCreateTask = "create_task"
	toolListTasks  = "list_tasks"
	toolUpdateTask = "update_task"
	toolDeleteTask = "delete_task"
	toolToggleTask = "toggle_task_completion"
)

// taskTools is the static set of tool schemas submitted with every chat
// turn. The user identifier is never part of a schema; it is injected
// server-side at invocation time.
var taskTools = []llm.ToolDescriptor{
	{
		Name:        toolCreateTask,
		Description: "Creates a new task for the user",
		Parameters: `{
			"type": "object",
			"properties": {
				"title": {
					"type": "string",
					"description": "Task title (required)"
				},
				"description": {
					"type": "string",
					"description": "Optional task description including due dates or details"
				}
			},
			"required": ["title"]
		}`,
	},
	{
		Name:        toolListTasks,
		Description: "Lists the user's tasks with optional filtering",
		Parameters: `{
			"type": "object",
			"properties": {
				"status_filter": {
					"type": "string",
					"enum": ["all", "completed", "incomplete"],
					"description": "Filter tasks by completion status"
				}
			}
		}`,
	},
	{
		Name:        toolUpdateTask,
		Description: "Updates an existing task",
		Parameters: `{
			"type": "object",
			"properties": {
				"task_id": {
					"type": "string",
					"description": "Task ID to update"
				},
				"updates": {
					"type": "object",
					"description": "Fields to update (title, description, completed)",
					"properties": {
						"title": {"type": "string"},
						"description": {"type": "string"},
						"completed": {"type": "boolean"}
					}
				}
			},
			"required": ["task_id", "updates"]
		}`,
	},
	{
		Name:        toolDeleteTask,
		Description: "Deletes a task",
		Parameters: `{
			"type": "object",
			"properties": {
				"task_id": {
					"type": "string",
					"description": "Task ID to delete"
				}
			},
			"required": ["task_id"]
		}`,
	},
	{
		Name:        toolToggleTask,
		Description: "Toggles task completion status",
		Parameters: `{
			"type": "object",
			"properties": {
				"task_id": {
					"type": "string",
					"description": "Task ID to toggle"
				}
			},
			"required": ["task_id"]
		}`,
	},
}
