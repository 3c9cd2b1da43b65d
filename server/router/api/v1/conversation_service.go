package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/hrygo/taskdeck/store"
)

type conversationRequest struct {
	Title string `json:"title"`
}

type conversationResponse struct {
	UID       string `json:"uid"`
	Title     string `json:"title"`
	CreatedTs int64  `json:"createdTs"`
	UpdatedTs int64  `json:"updatedTs"`
}

type conversationListResponse struct {
	Conversations []conversationResponse `json:"conversations"`
	Total         int                    `json:"total"`
}

type messageResponse struct {
	UID       string `json:"uid"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedTs int64  `json:"createdTs"`
}

func (s *APIV1Service) listConversations(c echo.Context) error {
	user, err := s.requireUserScope(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	find := &store.FindConversation{CreatorID: &user.ID}
	if limit, err := strconv.Atoi(c.QueryParam("limit")); err == nil && limit > 0 {
		find.Limit = &limit
		if offset, err := strconv.Atoi(c.QueryParam("offset")); err == nil && offset > 0 {
			find.Offset = &offset
		}
	}
	conversations, err := s.Store.ListConversations(ctx, find)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list conversations")
	}
	total, err := s.Store.CountConversations(ctx, &store.FindConversation{CreatorID: &user.ID})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to count conversations")
	}

	resp := conversationListResponse{
		Conversations: make([]conversationResponse, 0, len(conversations)),
		Total:         total,
	}
	for _, conversation := range conversations {
		resp.Conversations = append(resp.Conversations, convertConversation(conversation))
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *APIV1Service) createConversation(c echo.Context) error {
	user, err := s.requireUserScope(c)
	if err != nil {
		return err
	}
	var req conversationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request")
	}
	conversation, err := s.Store.CreateConversation(c.Request().Context(), &store.Conversation{
		CreatorID: user.ID,
		Title:     req.Title,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create conversation")
	}
	return c.JSON(http.StatusCreated, convertConversation(conversation))
}

func (s *APIV1Service) getConversation(c echo.Context) error {
	user, err := s.requireUserScope(c)
	if err != nil {
		return err
	}
	uid := c.Param("uid")
	conversation, err := s.Store.GetConversation(c.Request().Context(), &store.FindConversation{
		UID:       &uid,
		CreatorID: &user.ID,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load conversation")
	}
	if conversation == nil {
		return echo.NewHTTPError(http.StatusNotFound, "conversation not found")
	}
	return c.JSON(http.StatusOK, convertConversation(conversation))
}

func (s *APIV1Service) updateConversation(c echo.Context) error {
	user, err := s.requireUserScope(c)
	if err != nil {
		return err
	}
	var req conversationRequest
	if err := c.Bind(&req); err != nil || req.Title == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "title required")
	}
	conversation, err := s.Store.UpdateConversation(c.Request().Context(), &store.UpdateConversation{
		UID:       c.Param("uid"),
		CreatorID: user.ID,
		Title:     &req.Title,
	})
	if errors.Is(err, store.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "conversation not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, convertConversation(conversation))
}

func (s *APIV1Service) deleteConversation(c echo.Context) error {
	user, err := s.requireUserScope(c)
	if err != nil {
		return err
	}
	err = s.Store.DeleteConversation(c.Request().Context(), &store.DeleteConversation{
		UID:       c.Param("uid"),
		CreatorID: user.ID,
	})
	if errors.Is(err, store.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "conversation not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to delete conversation")
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *APIV1Service) listMessages(c echo.Context) error {
	user, err := s.requireUserScope(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	uid := c.Param("uid")

	conversation, err := s.Store.GetConversation(ctx, &store.FindConversation{
		UID:       &uid,
		CreatorID: &user.ID,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load conversation")
	}
	if conversation == nil {
		return echo.NewHTTPError(http.StatusNotFound, "conversation not found")
	}

	find := &store.FindMessage{ConversationID: &conversation.ID, CreatorID: &user.ID}
	if limit, err := strconv.Atoi(c.QueryParam("limit")); err == nil && limit > 0 {
		find.Limit = &limit
		if offset, err := strconv.Atoi(c.QueryParam("offset")); err == nil && offset > 0 {
			find.Offset = &offset
		}
	}
	messages, err := s.Store.ListMessages(ctx, find)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list messages")
	}
	resp := make([]messageResponse, 0, len(messages))
	for _, message := range messages {
		resp = append(resp, messageResponse{
			UID:       message.UID,
			Role:      string(message.Role),
			Content:   message.Content,
			CreatedTs: message.CreatedTs,
		})
	}
	return c.JSON(http.StatusOK, resp)
}

func convertConversation(conversation *store.Conversation) conversationResponse {
	return conversationResponse{
		UID:       conversation.UID,
		Title:     conversation.Title,
		CreatedTs: conversation.CreatedTs,
		UpdatedTs: conversation.UpdatedTs,
	}
}
