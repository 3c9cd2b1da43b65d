package v1

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/hrygo/taskdeck/store"
)

type chatRequest struct {
	ConversationID string `json:"conversation_id"`
	Text           string `json:"text"`
	NewThread      bool   `json:"new_thread"`
}

type chatFragment struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatDone struct {
	Done     bool   `json:"done"`
	ThreadID string `json:"thread_id"`
}

type chatError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// handleChat drives one agent turn and relays its output as a
// server-sent event stream of {role, content} fragments terminated by a
// {done, thread_id} event.
func (s *APIV1Service) handleChat(c echo.Context) error {
	if s.Agent == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "AI chat is not configured")
	}
	user, err := s.requireAuth(c)
	if err != nil {
		return err
	}

	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request")
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "text required")
	}

	if !s.chatLimiter(user.ID).Allow() {
		return echo.NewHTTPError(http.StatusTooManyRequests, "too many chat requests")
	}

	ctx := c.Request().Context()
	if err := s.chatSemaphore.Acquire(ctx, 1); err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "server busy")
	}
	defer s.chatSemaphore.Release(1)

	conversation, isNew, err := s.resolveConversation(ctx, user, &req)
	if err != nil {
		return err
	}

	rw := c.Response()
	rw.Header().Set("Content-Type", "text/event-stream")
	rw.Header().Set("Cache-Control", "no-cache")
	rw.Header().Set("Connection", "keep-alive")
	rw.Header().Set("X-Accel-Buffering", "no")
	rw.WriteHeader(http.StatusOK)

	emitEvent := func(payload any) error {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(rw, "data: %s\n\n", data); err != nil {
			return err
		}
		rw.Flush()
		return nil
	}
	emitFragment := func(content string) error {
		return emitEvent(chatFragment{Role: "assistant", Content: content})
	}

	if isNew {
		go s.autoTitleConversation(conversation.UID, user.ID, req.Text)
	}

	if err := s.Agent.Stream(ctx, conversation, req.Text, emitFragment); err != nil {
		slog.Warn("chat stream aborted", "conversation", conversation.UID, "error", err)
		if ctx.Err() == nil {
			var ev chatError
			ev.Error.Code = "CHAT_STREAM_FAILED"
			ev.Error.Message = "chat stream failed"
			_ = emitEvent(ev)
		}
		return nil
	}

	// Touch the conversation so it sorts to the top of the list.
	if _, err := s.Store.UpdateConversation(ctx, &store.UpdateConversation{
		UID:       conversation.UID,
		CreatorID: user.ID,
	}); err != nil {
		slog.Warn("failed to touch conversation", "conversation", conversation.UID, "error", err)
	}

	return emitEvent(chatDone{Done: true, ThreadID: conversation.UID})
}

// resolveConversation loads the requested thread or starts a new one.
// A foreign or unknown thread id is a 404, indistinguishable from a
// missing row.
func (s *APIV1Service) resolveConversation(ctx context.Context, user *store.User, req *chatRequest) (*store.Conversation, bool, error) {
	if !req.NewThread && req.ConversationID != "" {
		conversation, err := s.Store.GetConversation(ctx, &store.FindConversation{
			UID:       &req.ConversationID,
			CreatorID: &user.ID,
		})
		if err != nil {
			return nil, false, echo.NewHTTPError(http.StatusInternalServerError, "failed to load conversation")
		}
		if conversation == nil {
			return nil, false, echo.NewHTTPError(http.StatusNotFound, "conversation not found")
		}
		return conversation, false, nil
	}

	conversation, err := s.Store.CreateConversation(ctx, &store.Conversation{
		CreatorID: user.ID,
		Title:     firstLine(req.Text, 50),
	})
	if err != nil {
		return nil, false, echo.NewHTTPError(http.StatusInternalServerError, "failed to create conversation")
	}
	return conversation, true, nil
}

// autoTitleConversation asks the model for a better title than the raw
// first-message truncation. Best-effort; runs detached from the request.
func (s *APIV1Service) autoTitleConversation(conversationUID string, userID int32, firstMessage string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	title := s.Agent.GenerateTitle(ctx, firstMessage)
	if title == "" {
		return
	}
	if _, err := s.Store.UpdateConversation(ctx, &store.UpdateConversation{
		UID:       conversationUID,
		CreatorID: userID,
		Title:     &title,
	}); err != nil && !errors.Is(err, store.ErrNotFound) {
		slog.Warn("failed to auto-title conversation", "conversation", conversationUID, "error", err)
	}
}

func firstLine(s string, max int) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	runes := []rune(strings.TrimSpace(s))
	if len(runes) > max {
		runes = runes[:max]
	}
	return string(runes)
}
