package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/askbox/ai/chat"
)

type selectModelRequest struct {
	ConversationID *int32 `json:"conversationId"`
	Model          string `json:"model"`
}

type instructionRequest struct {
	AboutUser  *string `json:"aboutUser"`
	Preference *string `json:"preference"`
	IsActive   *bool   `json:"isActive"`
}

type commandRequest struct {
	Command     string `json:"command"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Prompt      string `json:"prompt"`
}

func (s *APIV1Service) ListModels(c echo.Context) error {
	models, err := s.Chat.ListModels(c.Request().Context())
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"models": models})
}

func (s *APIV1Service) SelectModel(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	var req selectModelRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	user, err := s.Chat.SelectModel(c.Request().Context(), userID, req.Model, req.ConversationID)
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, convertUser(user))
}

func (s *APIV1Service) ListInstructions(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	list, err := s.Chat.ListInstructions(c.Request().Context(), userID)
	if err != nil {
		return toHTTPError(c, err)
	}
	out := make([]*CustomInstruction, 0, len(list))
	for _, i := range list {
		out = append(out, convertInstruction(i))
	}
	return c.JSON(http.StatusOK, map[string]any{"instructions": out})
}

func (s *APIV1Service) CreateInstruction(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	var req instructionRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	created, err := s.Chat.SaveInstruction(c.Request().Context(), userID, chat.InstructionInput{
		AboutUser:  req.AboutUser,
		Preference: req.Preference,
	})
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusCreated, convertInstruction(created))
}

func (s *APIV1Service) UpdateInstruction(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req instructionRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	updated, err := s.Chat.UpdateInstruction(c.Request().Context(), userID, id, chat.InstructionInput(req))
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, convertInstruction(updated))
}

func (s *APIV1Service) ListCommands(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	list, err := s.Chat.ListCommands(c.Request().Context(), userID)
	if err != nil {
		return toHTTPError(c, err)
	}
	out := make([]*CustomCommand, 0, len(list))
	for _, cmd := range list {
		out = append(out, convertCommand(cmd))
	}
	return c.JSON(http.StatusOK, map[string]any{"commands": out})
}

func (s *APIV1Service) CreateCommand(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	var req commandRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	created, err := s.Chat.CreateCommand(c.Request().Context(), userID, chat.CommandInput(req))
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusCreated, convertCommand(created))
}

func (s *APIV1Service) DeleteCommand(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := s.Chat.DeleteCommand(c.Request().Context(), userID, id); err != nil {
		return toHTTPError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
