package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/hrygo/taskdeck/store"
)

// Structured error codes returned inside a Result envelope.
const (
	CodeUnknownTool      = "UNKNOWN_TOOL"
	CodeInvocationFailed = "TOOL_INVOCATION_FAILED"
	CodeTaskNotFound     = "TASK_NOT_FOUND"
)

// TaskPayload is the slice of a task echoed back to the orchestrator so
// it can narrate the mutation.
type TaskPayload struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
}

// ResultData carries the success payload of a tool invocation.
type ResultData struct {
	Task    *TaskPayload  `json:"task,omitempty"`
	Tasks   []TaskPayload `json:"tasks,omitempty"`
	Count   int           `json:"count,omitempty"`
	Message string        `json:"message"`
}

// ResultError carries the structured error of a failed invocation.
type ResultError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Result is the envelope every tool invocation returns.
type Result struct {
	Status string            `json:"status"`
	Data   *ResultData       `json:"data,omitempty"`
	Error  *ResultError      `json:"error,omitempty"`
	Meta   map[string]string `json:"meta,omitempty"`
}

func (r *Result) OK() bool {
	return r.Status == "success"
}

func successResult(data *ResultData, meta map[string]string) *Result {
	return &Result{Status: "success", Data: data, Meta: meta}
}

func errorResult(code, message string) *Result {
	return &Result{Status: "error", Error: &ResultError{Code: code, Message: message}}
}

// Invoker routes a tool name plus argument bag to a task store
// operation. The acting user is asserted by the server and never taken
// from model-supplied arguments.
type Invoker struct {
	store *store.Store
}

func NewInvoker(s *store.Store) *Invoker {
	return &Invoker{store: s}
}

// Invoke executes one tool call on behalf of userID. A missing user is a
// precondition failure surfaced as a plain error before any operation
// runs; operational failures come back inside the Result envelope.
func (iv *Invoker) Invoke(ctx context.Context, userID int32, toolName string, args map[string]any) (*Result, error) {
	if userID <= 0 {
		return nil, errors.New("user id is required for all tool operations")
	}

	slog.Info("invoking tool", "tool", toolName, "user_id", userID)

	switch toolName {
	case toolCreateTask:
		return iv.createTask(ctx, userID, args)
	case toolListTasks:
		return iv.listTasks(ctx, userID, args)
	case toolUpdateTask:
		return iv.updateTask(ctx, userID, args)
	case toolDeleteTask:
		return iv.deleteTask(ctx, userID, args)
	case toolToggleTask:
		return iv.toggleTask(ctx, userID, args)
	default:
		return errorResult(CodeUnknownTool, fmt.Sprintf("unknown tool: %s", toolName)), nil
	}
}

func (iv *Invoker) createTask(ctx context.Context, userID int32, args map[string]any) (*Result, error) {
	title, _ := args["title"].(string)
	description, _ := args["description"].(string)

	task, err := iv.store.CreateTask(ctx, &store.Task{
		CreatorID:   userID,
		Title:       title,
		Description: description,
	})
	if err != nil {
		return errorResult(CodeInvocationFailed, err.Error()), nil
	}
	return successResult(&ResultData{
		Task:    taskPayload(task),
		Message: fmt.Sprintf("Task %q created successfully", task.Title),
	}, map[string]string{"tool_name": toolCreateTask, "task_id": task.UID}), nil
}

func (iv *Invoker) listTasks(ctx context.Context, userID int32, args map[string]any) (*Result, error) {
	statusFilter, _ := args["status_filter"].(string)
	if statusFilter == "" {
		statusFilter = string(store.TaskFilterAll)
	}

	tasks, err := iv.store.ListTasksByFilter(ctx, userID, store.TaskFilter(statusFilter))
	if err != nil {
		return errorResult(CodeInvocationFailed, err.Error()), nil
	}
	payloads := make([]TaskPayload, len(tasks))
	for i, task := range tasks {
		payloads[i] = *taskPayload(task)
	}
	return successResult(&ResultData{
		Tasks:   payloads,
		Count:   len(payloads),
		Message: fmt.Sprintf("Found %d tasks", len(payloads)),
	}, map[string]string{"tool_name": toolListTasks, "status_filter": statusFilter}), nil
}

func (iv *Invoker) updateTask(ctx context.Context, userID int32, args map[string]any) (*Result, error) {
	taskUID, _ := args["task_id"].(string)
	updates, _ := args["updates"].(map[string]any)

	update := &store.UpdateTask{UID: taskUID, CreatorID: userID}
	if v, ok := updates["title"].(string); ok {
		update.Title = &v
	}
	if v, ok := updates["description"].(string); ok {
		update.Description = &v
	}
	if v, ok := updates["completed"].(bool); ok {
		update.Completed = &v
	}

	task, err := iv.store.UpdateTask(ctx, update)
	if errors.Is(err, store.ErrNotFound) {
		return errorResult(CodeTaskNotFound, "Task not found or unauthorized"), nil
	}
	if err != nil {
		return errorResult(CodeInvocationFailed, err.Error()), nil
	}
	return successResult(&ResultData{
		Task:    taskPayload(task),
		Message: fmt.Sprintf("Task %q updated successfully", task.Title),
	}, map[string]string{"tool_name": toolUpdateTask, "task_id": task.UID}), nil
}

func (iv *Invoker) deleteTask(ctx context.Context, userID int32, args map[string]any) (*Result, error) {
	taskUID, _ := args["task_id"].(string)

	err := iv.store.DeleteTask(ctx, &store.DeleteTask{UID: taskUID, CreatorID: userID})
	if errors.Is(err, store.ErrNotFound) {
		return errorResult(CodeTaskNotFound, "Task not found or unauthorized"), nil
	}
	if err != nil {
		return errorResult(CodeInvocationFailed, err.Error()), nil
	}
	return successResult(&ResultData{
		Message: "Task deleted successfully",
	}, map[string]string{"tool_name": toolDeleteTask, "task_id": taskUID}), nil
}

func (iv *Invoker) toggleTask(ctx context.Context, userID int32, args map[string]any) (*Result, error) {
	taskUID, _ := args["task_id"].(string)

	task, err := iv.store.ToggleTask(ctx, userID, taskUID)
	if errors.Is(err, store.ErrNotFound) {
		return errorResult(CodeTaskNotFound, "Task not found or unauthorized"), nil
	}
	if err != nil {
		return errorResult(CodeInvocationFailed, err.Error()), nil
	}
	status := "incomplete"
	if task.Completed {
		status = "completed"
	}
	return successResult(&ResultData{
		Task:    taskPayload(task),
		Message: fmt.Sprintf("Task %q marked as %s", task.Title, status),
	}, map[string]string{"tool_name": toolToggleTask, "task_id": task.UID, "new_status": status}), nil
}

func taskPayload(task *store.Task) *TaskPayload {
	return &TaskPayload{
		ID:          task.UID,
		Title:       task.Title,
		Description: task.Description,
		Completed:   task.Completed,
	}
}
