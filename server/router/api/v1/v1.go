package v1

import (
	"net/http"
	"strings"
	"sync"

	"github.com/labstack/echo/v4"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/hrygo/taskdeck/ai/agent"
	"github.com/hrygo/taskdeck/internal/profile"
	"github.com/hrygo/taskdeck/server/auth"
	"github.com/hrygo/taskdeck/store"
)

// maxConcurrentChats bounds in-flight chat turns across all users.
const maxConcurrentChats = 8

type APIV1Service struct {
	Profile *profile.Profile
	Store   *store.Store
	Agent   *agent.Agent
	Secret  string

	chatSemaphore *semaphore.Weighted

	mu           sync.Mutex
	chatLimiters map[int32]*rate.Limiter
}

func NewAPIV1Service(secret string, profile *profile.Profile, store *store.Store, chatAgent *agent.Agent) *APIV1Service {
	return &APIV1Service{
		Profile:       profile,
		Store:         store,
		Agent:         chatAgent,
		Secret:        secret,
		chatSemaphore: semaphore.NewWeighted(maxConcurrentChats),
		chatLimiters:  map[int32]*rate.Limiter{},
	}
}

// RegisterRoutes wires all REST endpoints onto the Echo instance.
func (s *APIV1Service) RegisterRoutes(e *echo.Echo) {
	api := e.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.POST("/signup", s.signUp)
	authGroup.POST("/signin", s.signIn)
	authGroup.POST("/signout", s.signOut)
	authGroup.GET("/session", s.getSession)

	users := api.Group("/users/:userUID")
	users.GET("/tasks", s.listTasks)
	users.POST("/tasks", s.createTask)
	users.GET("/tasks/stats", s.getTaskStats)
	users.GET("/tasks/:uid", s.getTask)
	users.PATCH("/tasks/:uid", s.updateTask)
	users.DELETE("/tasks/:uid", s.deleteTask)
	users.POST("/tasks/:uid/toggle", s.toggleTask)

	users.GET("/conversations", s.listConversations)
	users.POST("/conversations", s.createConversation)
	users.GET("/conversations/:uid", s.getConversation)
	users.PATCH("/conversations/:uid", s.updateConversation)
	users.DELETE("/conversations/:uid", s.deleteConversation)
	users.GET("/conversations/:uid/messages", s.listMessages)

	api.POST("/chat", s.handleChat)
}

// requireAuth resolves the authenticated user from the bearer header or
// the access-token cookie.
func (s *APIV1Service) requireAuth(c echo.Context) (*store.User, error) {
	token := extractToken(c)
	if token == "" {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	userUID, err := auth.VerifyAccessToken(token, []byte(s.Secret))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired access token")
	}
	user, err := s.Store.GetUser(c.Request().Context(), &store.FindUser{UID: &userUID})
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "failed to load user")
	}
	if user == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "user no longer exists")
	}
	return user, nil
}

// requireUserScope authenticates the caller and enforces that the URL's
// user segment matches the authenticated identity. Mismatch is 403.
func (s *APIV1Service) requireUserScope(c echo.Context) (*store.User, error) {
	user, err := s.requireAuth(c)
	if err != nil {
		return nil, err
	}
	if c.Param("userUID") != user.UID {
		return nil, echo.NewHTTPError(http.StatusForbidden, "access denied")
	}
	return user, nil
}

func extractToken(c echo.Context) string {
	if header := c.Request().Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	if cookie, err := c.Cookie(auth.CookieName); err == nil && cookie != nil {
		return cookie.Value
	}
	return ""
}

// chatLimiter returns the per-user rate limiter for the chat endpoint,
// creating it on first use. One turn per 2s with a small burst.
func (s *APIV1Service) chatLimiter(userID int32) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	limiter, ok := s.chatLimiters[userID]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(0.5), 3)
		s.chatLimiters[userID] = limiter
	}
	return limiter
}
