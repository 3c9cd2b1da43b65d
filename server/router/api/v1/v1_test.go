package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/taskdeck/ai/agent"
	"github.com/hrygo/taskdeck/ai/llm"
	"github.com/hrygo/taskdeck/internal/profile"
	"github.com/hrygo/taskdeck/server/auth"
	"github.com/hrygo/taskdeck/store"
	"github.com/hrygo/taskdeck/store/db/sqlite"
)

const testSecret = "test-secret"

// scriptedLLM replays fixed stream output for end-to-end chat tests.
type scriptedLLM struct {
	deltas []llm.Delta
}

func (f *scriptedLLM) Chat(_ context.Context, _ []llm.Message) (string, error) {
	return "Test title", nil
}

func (f *scriptedLLM) ChatStream(_ context.Context, _ []llm.Message, _ []llm.ToolDescriptor) (<-chan llm.Delta, <-chan error) {
	deltas := make(chan llm.Delta, len(f.deltas))
	errs := make(chan error, 1)
	for _, delta := range f.deltas {
		deltas <- delta
	}
	close(deltas)
	close(errs)
	return deltas, errs
}

func newTestAPI(t *testing.T, chatAgent func(s *store.Store) *agent.Agent) (*echo.Echo, *store.Store) {
	t.Helper()
	dir := t.TempDir()
	prof := &profile.Profile{
		Mode:   "dev",
		Driver: "sqlite",
		Data:   dir,
		DSN:    filepath.Join(dir, "taskdeck_test.db"),
		Secret: testSecret,
	}
	driver, err := sqlite.NewDB(prof)
	require.NoError(t, err)
	s := store.New(driver, prof)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() {
		_ = s.Close()
	})

	var a *agent.Agent
	if chatAgent != nil {
		a = chatAgent(s)
	}
	e := echo.New()
	NewAPIV1Service(testSecret, prof, s, a).RegisterRoutes(e)
	return e, s
}

func doJSON(t *testing.T, e *echo.Echo, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func signUpUser(t *testing.T, e *echo.Echo, email string) sessionResponse {
	t.Helper()
	rec := doJSON(t, e, http.MethodPost, "/api/auth/signup", "", signUpRequest{
		Email:    email,
		Nickname: "tester",
		Password: "correct-horse",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var session sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
	require.NotEmpty(t, session.Token)
	return session
}

func TestSignUpAndSignIn(t *testing.T) {
	e, _ := newTestAPI(t, nil)

	session := signUpUser(t, e, "alice@example.com")
	assert.Equal(t, "alice@example.com", session.User.Email)
	assert.NotEmpty(t, session.User.UID)

	t.Run("signup sets the access token cookie", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodPost, "/api/auth/signup", "", signUpRequest{
			Email:    "cookie@example.com",
			Password: "correct-horse",
		})
		require.Equal(t, http.StatusCreated, rec.Code)
		cookies := rec.Result().Cookies()
		var found *http.Cookie
		for _, cookie := range cookies {
			if cookie.Name == auth.CookieName {
				found = cookie
			}
		}
		require.NotNil(t, found)
		assert.True(t, found.HttpOnly)
		assert.NotEmpty(t, found.Value)
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodPost, "/api/auth/signup", "", signUpRequest{
			Email:    "alice@example.com",
			Password: "correct-horse",
		})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("short password rejected", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodPost, "/api/auth/signup", "", signUpRequest{
			Email:    "short@example.com",
			Password: "short",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid email rejected", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodPost, "/api/auth/signup", "", signUpRequest{
			Email:    "not-an-email",
			Password: "correct-horse",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("signin succeeds with correct credentials", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodPost, "/api/auth/signin", "", signInRequest{
			Email:    "Alice@Example.com",
			Password: "correct-horse",
		})
		assert.Equal(t, http.StatusOK, rec.Code, "email lookup is case-insensitive")
	})

	t.Run("wrong password and unknown email are indistinguishable", func(t *testing.T) {
		wrongPassword := doJSON(t, e, http.MethodPost, "/api/auth/signin", "", signInRequest{
			Email:    "alice@example.com",
			Password: "wrong-password",
		})
		unknownEmail := doJSON(t, e, http.MethodPost, "/api/auth/signin", "", signInRequest{
			Email:    "nobody@example.com",
			Password: "correct-horse",
		})
		assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
		assert.Equal(t, http.StatusUnauthorized, unknownEmail.Code)
		assert.Equal(t, wrongPassword.Body.String(), unknownEmail.Body.String())
	})
}

func TestSessionEndpoint(t *testing.T) {
	e, _ := newTestAPI(t, nil)
	session := signUpUser(t, e, "alice@example.com")

	t.Run("bearer token", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodGet, "/api/auth/session", session.Token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var user userResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
		assert.Equal(t, session.User.UID, user.UID)
	})

	t.Run("cookie token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
		req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: session.Token})
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing token", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodGet, "/api/auth/session", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodGet, "/api/auth/session", "garbage", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestTaskEndpoints(t *testing.T) {
	e, _ := newTestAPI(t, nil)
	session := signUpUser(t, e, "alice@example.com")
	base := "/api/users/" + session.User.UID + "/tasks"

	var task taskResponse

	t.Run("create", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodPost, base, session.Token, createTaskRequest{
			Title:       "Buy milk",
			Description: "2 liters",
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &task))
		assert.NotEmpty(t, task.UID)
		assert.False(t, task.Completed)
	})

	t.Run("create with empty title fails", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodPost, base, session.Token, createTaskRequest{Title: "  "})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("get", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodGet, base+"/"+task.UID, session.Token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("update", func(t *testing.T) {
		title := "Buy oat milk"
		rec := doJSON(t, e, http.MethodPatch, base+"/"+task.UID, session.Token, updateTaskRequest{Title: &title})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var updated taskResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
		assert.Equal(t, "Buy oat milk", updated.Title)
	})

	t.Run("update with no fields fails", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodPatch, base+"/"+task.UID, session.Token, updateTaskRequest{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("toggle", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodPost, base+"/"+task.UID+"/toggle", session.Token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var toggled taskResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &toggled))
		assert.True(t, toggled.Completed)
	})

	t.Run("stats", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodGet, base+"/stats", session.Token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var stats taskStatsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
		assert.Equal(t, 1, stats.Total)
		assert.Equal(t, 1, stats.Completed)
		assert.Equal(t, 0, stats.Incomplete)
	})

	t.Run("list with filter", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodGet, base+"?filter=completed", session.Token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var tasks []taskResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tasks))
		assert.Len(t, tasks, 1)
	})

	t.Run("delete", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodDelete, base+"/"+task.UID, session.Token, nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = doJSON(t, e, http.MethodGet, base+"/"+task.UID, session.Token, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestUserScopeEnforcement(t *testing.T) {
	e, _ := newTestAPI(t, nil)
	alice := signUpUser(t, e, "alice@example.com")
	bob := signUpUser(t, e, "bob@example.com")

	rec := doJSON(t, e, http.MethodPost, "/api/users/"+alice.User.UID+"/tasks", alice.Token, createTaskRequest{Title: "secret"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var task taskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &task))

	t.Run("foreign user path is forbidden", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodGet, "/api/users/"+alice.User.UID+"/tasks", bob.Token, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("foreign row under own path is not found", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodGet, "/api/users/"+bob.User.UID+"/tasks/"+task.UID, bob.Token, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("unauthenticated request is unauthorized", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodGet, "/api/users/"+alice.User.UID+"/tasks", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestConversationEndpoints(t *testing.T) {
	e, _ := newTestAPI(t, nil)
	session := signUpUser(t, e, "alice@example.com")
	base := "/api/users/" + session.User.UID + "/conversations"

	rec := doJSON(t, e, http.MethodPost, base, session.Token, conversationRequest{Title: "groceries"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var conversation conversationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conversation))

	t.Run("list includes total", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodGet, base, session.Token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var list conversationListResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
		assert.Equal(t, 1, list.Total)
		require.Len(t, list.Conversations, 1)
		assert.Equal(t, "groceries", list.Conversations[0].Title)
	})

	t.Run("rename requires a title", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodPatch, base+"/"+conversation.UID, session.Token, conversationRequest{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("messages of an unknown conversation are not found", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodGet, base+"/nope/messages", session.Token, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("delete", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodDelete, base+"/"+conversation.UID, session.Token, nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func TestChatEndpoint(t *testing.T) {
	t.Run("without agent returns service unavailable", func(t *testing.T) {
		e, _ := newTestAPI(t, nil)
		session := signUpUser(t, e, "alice@example.com")
		rec := doJSON(t, e, http.MethodPost, "/api/chat", session.Token, chatRequest{Text: "hi", NewThread: true})
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("streams fragments and a done event", func(t *testing.T) {
		e, s := newTestAPI(t, func(s *store.Store) *agent.Agent {
			return agent.New(s, &scriptedLLM{deltas: []llm.Delta{
				{Content: "Hello "},
				{Content: "there!"},
			}})
		})
		session := signUpUser(t, e, "alice@example.com")

		rec := doJSON(t, e, http.MethodPost, "/api/chat", session.Token, chatRequest{
			Text:      "say hello",
			NewThread: true,
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/event-stream")

		body := rec.Body.String()
		assert.Contains(t, body, `data: {"role":"assistant","content":"Hello "}`)
		assert.Contains(t, body, `"done":true`)
		assert.Contains(t, body, `"thread_id"`)

		// The turn persisted both sides of the exchange.
		user, err := s.GetUser(context.Background(), &store.FindUser{UID: &session.User.UID})
		require.NoError(t, err)
		conversations, err := s.ListConversations(context.Background(), &store.FindConversation{CreatorID: &user.ID})
		require.NoError(t, err)
		require.Len(t, conversations, 1)
		messages, err := s.ListMessages(context.Background(), &store.FindMessage{ConversationID: &conversations[0].ID})
		require.NoError(t, err)
		require.Len(t, messages, 2)
		assert.Equal(t, store.MessageRoleUser, messages[0].Role)
		assert.Equal(t, store.MessageRoleAssistant, messages[1].Role)
		assert.Equal(t, "Hello there!", messages[1].Content)
	})

	t.Run("empty text is rejected", func(t *testing.T) {
		e, _ := newTestAPI(t, func(s *store.Store) *agent.Agent {
			return agent.New(s, &scriptedLLM{})
		})
		session := signUpUser(t, e, "alice@example.com")
		rec := doJSON(t, e, http.MethodPost, "/api/chat", session.Token, chatRequest{Text: "   "})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown thread id is not found", func(t *testing.T) {
		e, _ := newTestAPI(t, func(s *store.Store) *agent.Agent {
			return agent.New(s, &scriptedLLM{})
		})
		session := signUpUser(t, e, "alice@example.com")
		rec := doJSON(t, e, http.MethodPost, "/api/chat", session.Token, chatRequest{
			Text:           "hi",
			ConversationID: "does-not-exist",
		})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "hello", firstLine("hello\nworld", 50))
	assert.Equal(t, "hi", firstLine("  hi  ", 50))
	long := fmt.Sprintf("%060d", 0)
	assert.Len(t, firstLine(long, 50), 50)
}
