package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/hrygo/taskdeck/store"
)

type createTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type updateTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Completed   *bool   `json:"completed"`
}

type taskResponse struct {
	UID         string `json:"uid"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
	CreatedTs   int64  `json:"createdTs"`
	UpdatedTs   int64  `json:"updatedTs"`
}

type taskStatsResponse struct {
	Total      int `json:"total"`
	Completed  int `json:"completed"`
	Incomplete int `json:"incomplete"`
}

func (s *APIV1Service) listTasks(c echo.Context) error {
	user, err := s.requireUserScope(c)
	if err != nil {
		return err
	}
	filter := store.TaskFilter(c.QueryParam("filter"))
	tasks, err := s.Store.ListTasksByFilter(c.Request().Context(), user.ID, filter)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	resp := make([]taskResponse, 0, len(tasks))
	for _, task := range tasks {
		resp = append(resp, convertTask(task))
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *APIV1Service) createTask(c echo.Context) error {
	user, err := s.requireUserScope(c)
	if err != nil {
		return err
	}
	var req createTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request")
	}
	task, err := s.Store.CreateTask(c.Request().Context(), &store.Task{
		CreatorID:   user.ID,
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, convertTask(task))
}

func (s *APIV1Service) getTask(c echo.Context) error {
	user, err := s.requireUserScope(c)
	if err != nil {
		return err
	}
	uid := c.Param("uid")
	task, err := s.Store.GetTask(c.Request().Context(), &store.FindTask{UID: &uid, CreatorID: &user.ID})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load task")
	}
	if task == nil {
		return echo.NewHTTPError(http.StatusNotFound, "task not found")
	}
	return c.JSON(http.StatusOK, convertTask(task))
}

func (s *APIV1Service) updateTask(c echo.Context) error {
	user, err := s.requireUserScope(c)
	if err != nil {
		return err
	}
	var req updateTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request")
	}
	if req.Title == nil && req.Description == nil && req.Completed == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "no fields to update")
	}
	task, err := s.Store.UpdateTask(c.Request().Context(), &store.UpdateTask{
		UID:         c.Param("uid"),
		CreatorID:   user.ID,
		Title:       req.Title,
		Description: req.Description,
		Completed:   req.Completed,
	})
	if errors.Is(err, store.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "task not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, convertTask(task))
}

func (s *APIV1Service) deleteTask(c echo.Context) error {
	user, err := s.requireUserScope(c)
	if err != nil {
		return err
	}
	err = s.Store.DeleteTask(c.Request().Context(), &store.DeleteTask{
		UID:       c.Param("uid"),
		CreatorID: user.ID,
	})
	if errors.Is(err, store.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "task not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to delete task")
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *APIV1Service) toggleTask(c echo.Context) error {
	user, err := s.requireUserScope(c)
	if err != nil {
		return err
	}
	task, err := s.Store.ToggleTask(c.Request().Context(), user.ID, c.Param("uid"))
	if errors.Is(err, store.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "task not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to toggle task")
	}
	return c.JSON(http.StatusOK, convertTask(task))
}

func (s *APIV1Service) getTaskStats(c echo.Context) error {
	user, err := s.requireUserScope(c)
	if err != nil {
		return err
	}
	tasks, err := s.Store.ListTasks(c.Request().Context(), &store.FindTask{CreatorID: &user.ID})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load tasks")
	}
	stats := taskStatsResponse{Total: len(tasks)}
	for _, task := range tasks {
		if task.Completed {
			stats.Completed++
		} else {
			stats.Incomplete++
		}
	}
	return c.JSON(http.StatusOK, stats)
}

func convertTask(task *store.Task) taskResponse {
	return taskResponse{
		UID:         task.UID,
		Title:       task.Title,
		Description: task.Description,
		Completed:   task.Completed,
		CreatedTs:   task.CreatedTs,
		UpdatedTs:   task.UpdatedTs,
	}
}
