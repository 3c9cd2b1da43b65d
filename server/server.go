package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hrygo/taskdeck/ai/agent"
	"github.com/hrygo/taskdeck/ai/llm"
	"github.com/hrygo/taskdeck/internal/profile"
	apiv1 "github.com/hrygo/taskdeck/server/router/api/v1"
	"github.com/hrygo/taskdeck/store"
)

type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	echoServer *echo.Echo
}

func NewServer(ctx context.Context, profile *profile.Profile, store *store.Store) (*Server, error) {
	e := echo.New()
	e.Debug = profile.IsDev()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogMethod: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			slog.Debug("request", "method", v.Method, "uri", v.URI, "status", v.Status)
			return nil
		},
	}))
	corsConfig := middleware.DefaultCORSConfig
	corsConfig.AllowCredentials = true
	if profile.Origins != "" {
		corsConfig.AllowOrigins = strings.Split(profile.Origins, ",")
	}
	e.Use(middleware.CORSWithConfig(corsConfig))

	s := &Server{
		Profile:    profile,
		Store:      store,
		echoServer: e,
	}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "Service ready.")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	var chatAgent *agent.Agent
	if profile.IsAIEnabled() {
		llmService, err := llm.NewService(&llm.Config{
			Provider: profile.LLMProvider,
			Model:    profile.LLMModel,
			APIKey:   profile.LLMAPIKey,
			BaseURL:  profile.LLMBaseURL,
			Timeout:  profile.LLMTimeout,
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to create LLM service")
		}
		chatAgent = agent.New(store, llmService)
		slog.Info("chat agent initialized", "provider", profile.LLMProvider, "model", profile.LLMModel)
	} else {
		slog.Info("AI features disabled; chat endpoint will return 503")
	}

	apiV1Service := apiv1.NewAPIV1Service(profile.Secret, profile, store, chatAgent)
	apiV1Service.RegisterRoutes(e)

	return s, nil
}

func (s *Server) Start(_ context.Context) error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	go func() {
		if err := s.echoServer.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to start echo server", "error", err)
		}
	}()
	return nil
}

func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}
	if err := s.Store.Close(); err != nil {
		slog.Error("failed to close database", "error", err)
	}
	slog.Info("taskdeck stopped properly")
}
