package v1

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/taskdeck/internal/util"
	"github.com/hrygo/taskdeck/server/auth"
	"github.com/hrygo/taskdeck/store"
)

type signUpRequest struct {
	Email    string `json:"email"`
	Nickname string `json:"nickname"`
	Password string `json:"password"`
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	UID       string `json:"uid"`
	Email     string `json:"email"`
	Nickname  string `json:"nickname"`
	CreatedTs int64  `json:"createdTs"`
}

type sessionResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

func (s *APIV1Service) signUp(c echo.Context) error {
	var req signUpRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request")
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if !util.ValidateEmail(req.Email) {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid email address")
	}
	if len(req.Password) < 8 {
		return echo.NewHTTPError(http.StatusBadRequest, "password must be at least 8 characters")
	}

	ctx := c.Request().Context()
	existing, err := s.Store.GetUser(ctx, &store.FindUser{Email: &req.Email})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to check existing user")
	}
	if existing != nil {
		return echo.NewHTTPError(http.StatusConflict, "email already registered")
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to hash password")
	}
	user, err := s.Store.CreateUser(ctx, &store.User{
		Email:        req.Email,
		Nickname:     strings.TrimSpace(req.Nickname),
		PasswordHash: passwordHash,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create user")
	}
	return s.issueSession(c, user, http.StatusCreated)
}

func (s *APIV1Service) signIn(c echo.Context) error {
	var req signInRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request")
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	user, err := s.Store.GetUser(c.Request().Context(), &store.FindUser{Email: &req.Email})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load user")
	}
	// Same response for unknown email and wrong password.
	if user == nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid email or password")
	}
	return s.issueSession(c, user, http.StatusOK)
}

func (s *APIV1Service) signOut(c echo.Context) error {
	c.SetCookie(&http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	return c.NoContent(http.StatusNoContent)
}

func (s *APIV1Service) getSession(c echo.Context) error {
	user, err := s.requireAuth(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, convertUser(user))
}

// issueSession signs a time-limited token and returns it both as a JSON
// field and an HTTP-only cookie.
func (s *APIV1Service) issueSession(c echo.Context, user *store.User, status int) error {
	expirationTime := time.Now().Add(auth.AccessTokenDuration)
	token, err := auth.GenerateAccessToken(user.UID, expirationTime, []byte(s.Secret))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to generate access token")
	}
	c.SetCookie(&http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expirationTime,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	return c.JSON(status, sessionResponse{
		Token: token,
		User:  convertUser(user),
	})
}

func convertUser(user *store.User) userResponse {
	return userResponse{
		UID:       user.UID,
		Email:     user.Email,
		Nickname:  user.Nickname,
		CreatedTs: user.CreatedTs,
	}
}
