package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/taskdeck/ai/llm"
	"github.com/hrygo/taskdeck/ai/metrics"
	"github.com/hrygo/taskdeck/store"
)

// maxHistoryMessages bounds how much prior conversation is replayed to
// the model each turn.
const maxHistoryMessages = 100

const systemInstructions = `You are a helpful AI assistant for managing todo tasks. Your role is to help users:

1. Create tasks - Extract title and description from natural language
2. List tasks - Show tasks with optional filtering (all, completed, incomplete)
3. Update tasks - Modify task details based on user requests
4. Delete tasks - Remove tasks when requested
5. Toggle completion - Mark tasks as done or undone

TASK LIST DISPLAY:
- When you successfully retrieve tasks using a tool, you MUST explicitly list them out for the user in your text response.
- Do not just confirm the tool was called.
- If the user asks for "all tasks" or "everything", call list_tasks with status_filter="all".
- If there are no tasks, say so explicitly: "Your task list is empty."
- Display tasks in a neat, organized format:
  Use checkmarks (✓) for completed tasks and empty circles (○) for pending tasks.
  Group tasks under "📋 Pending Tasks:" and "✅ Completed Tasks:".
  For each task, show title, description (if any), and status.

TASK COMPLETION & CONFIRMATION:
- When a task is marked complete, confirm it and explicitly state the task title.

IMPORTANT RULES:
- NEVER give a silent response like "Task operation completed: Success".
- ALWAYS be descriptive and list the results of the tool call.
- Provide a summary of what you did.`

// Agent orchestrates one chat turn: it streams the model's reply,
// accumulates tool-call fragments, executes the accumulated calls after
// the stream ends, and persists the conversation state. It is stateless
// between turns; history is reloaded from the store every time.
type Agent struct {
	store   *store.Store
	llm     llm.Service
	invoker *Invoker
}

func New(s *store.Store, llmService llm.Service) *Agent {
	return &Agent{
		store:   s,
		llm:     llmService,
		invoker: NewInvoker(s),
	}
}

// toolCallBuffer accumulates the fragments of a single tool call keyed
// by its stream-assigned index. The name arrives once; arguments arrive
// as partial JSON appended in order.
type toolCallBuffer struct {
	name string
	args strings.Builder
}

// Stream runs one chat turn and forwards every reply fragment through
// emit. Exactly two durable writes happen per successful turn: the user
// message before the model call and the assistant message after all
// streaming and tool execution completes. On an unhandled failure a
// single apology fragment is emitted and persisted best-effort.
func (a *Agent) Stream(ctx context.Context, conversation *store.Conversation, userText string, emit func(string) error) error {
	err := a.turn(ctx, conversation, userText, emit)
	if err == nil {
		metrics.ChatTurns.WithLabelValues("ok").Inc()
		return nil
	}
	if ctx.Err() != nil {
		// Client went away; tool side effects already executed stay
		// durable, only the narration is lost.
		metrics.ChatTurns.WithLabelValues("cancelled").Inc()
		return err
	}

	slog.Error("agent turn failed", "conversation", conversation.UID, "error", err)
	metrics.ChatTurns.WithLabelValues("error").Inc()

	apology := fmt.Sprintf("I apologize, but I encountered an error: %s", err)
	if emitErr := emit(apology); emitErr != nil {
		slog.Warn("failed to emit error message", "error", emitErr)
	}
	if _, persistErr := a.store.CreateMessage(ctx, &store.Message{
		ConversationID: conversation.ID,
		CreatorID:      conversation.CreatorID,
		Role:           store.MessageRoleAssistant,
		Content:        apology,
	}); persistErr != nil {
		slog.Error("failed to persist error message", "error", persistErr)
	}
	return nil
}

func (a *Agent) turn(ctx context.Context, conversation *store.Conversation, userText string, emit func(string) error) error {
	history, err := a.loadHistory(ctx, conversation)
	if err != nil {
		return errors.Wrap(err, "load conversation history")
	}

	// The user message is durable before the model is invoked.
	if _, err := a.store.CreateMessage(ctx, &store.Message{
		ConversationID: conversation.ID,
		CreatorID:      conversation.CreatorID,
		Role:           store.MessageRoleUser,
		Content:        userText,
	}); err != nil {
		return errors.Wrap(err, "persist user message")
	}

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.SystemPrompt(systemInstructions))
	messages = append(messages, history...)
	messages = append(messages, llm.UserMessage(userText))

	deltas, errs := a.llm.ChatStream(ctx, messages, taskTools)

	var full strings.Builder
	accumulator := map[int]*toolCallBuffer{}
	for delta := range deltas {
		if delta.Content != "" {
			full.WriteString(delta.Content)
			metrics.StreamFragments.Inc()
			if err := emit(delta.Content); err != nil {
				return errors.Wrap(err, "emit fragment")
			}
		}
		for _, chunk := range delta.ToolCalls {
			buf := accumulator[chunk.Index]
			if buf == nil {
				buf = &toolCallBuffer{}
				accumulator[chunk.Index] = buf
			}
			if chunk.Name != "" {
				buf.name = chunk.Name
			}
			buf.args.WriteString(chunk.Arguments)
		}
	}
	if err := <-errs; err != nil {
		return err
	}

	// Drain the accumulator only after the stream has ended, in
	// call-index order. One bad call does not abort its siblings.
	indexes := make([]int, 0, len(accumulator))
	for index := range accumulator {
		indexes = append(indexes, index)
	}
	sort.Ints(indexes)
	for _, index := range indexes {
		narration := a.executeToolCall(ctx, conversation.CreatorID, accumulator[index])
		full.WriteString(narration)
		metrics.StreamFragments.Inc()
		if err := emit(narration); err != nil {
			return errors.Wrap(err, "emit tool narration")
		}
	}

	// One assistant message per turn, written only once the turn is
	// final. Nothing partial is ever persisted mid-stream.
	if full.Len() > 0 {
		if _, err := a.store.CreateMessage(ctx, &store.Message{
			ConversationID: conversation.ID,
			CreatorID:      conversation.CreatorID,
			Role:           store.MessageRoleAssistant,
			Content:        full.String(),
		}); err != nil {
			return errors.Wrap(err, "persist assistant message")
		}
	}
	return nil
}

// executeToolCall parses, invokes, and narrates one accumulated tool
// call. Failures are converted to narration so the turn keeps going.
func (a *Agent) executeToolCall(ctx context.Context, userID int32, buf *toolCallBuffer) string {
	args := map[string]any{}
	if raw := buf.args.String(); raw != "" {
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			slog.Error("failed to parse tool arguments", "tool", buf.name, "arguments", raw, "error", err)
			metrics.ToolInvocations.WithLabelValues(buf.name, "malformed").Inc()
			return malformedArgsNotice
		}
	}

	result, err := a.invoker.Invoke(ctx, userID, buf.name, args)
	if err != nil {
		slog.Error("tool invocation failed", "tool", buf.name, "error", err)
		metrics.ToolInvocations.WithLabelValues(buf.name, "error").Inc()
		return fmt.Sprintf("\n\n⚠ Task operation failed: %s", err)
	}
	metrics.ToolInvocations.WithLabelValues(buf.name, result.Status).Inc()
	return formatToolResult(buf.name, result)
}

func (a *Agent) loadHistory(ctx context.Context, conversation *store.Conversation) ([]llm.Message, error) {
	list, err := a.store.ListMessages(ctx, &store.FindMessage{
		ConversationID: &conversation.ID,
		CreatorID:      &conversation.CreatorID,
	})
	if err != nil {
		return nil, err
	}
	if len(list) > maxHistoryMessages {
		list = list[len(list)-maxHistoryMessages:]
	}
	history := make([]llm.Message, len(list))
	for i, message := range list {
		history[i] = llm.Message{Role: string(message.Role), Content: message.Content}
	}
	return history, nil
}

// GenerateTitle asks the model for a short conversation title, falling
// back to a truncation of the first user message.
func (a *Agent) GenerateTitle(ctx context.Context, userText string) string {
	fallback := truncateTitle(userText, 50)
	title, err := a.llm.Chat(ctx, []llm.Message{
		llm.SystemPrompt("Generate a concise title (at most 6 words) for a conversation that starts with the following message. Reply with the title only, no quotes."),
		llm.UserMessage(userText),
	})
	if err != nil {
		slog.Warn("title generation failed, using fallback", "error", err)
		return fallback
	}
	title = strings.Trim(strings.TrimSpace(title), `"`)
	if title == "" {
		return fallback
	}
	return truncateTitle(title, 50)
}

func truncateTitle(s string, max int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
