package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/askbox/ai/chat"
)

type createConversationRequest struct {
	Model     string `json:"model"`
	Temporary bool   `json:"temporary"`
}

type renameConversationRequest struct {
	Title string `json:"title"`
}

type sendMessageRequest struct {
	Text  string `json:"text"`
	Model string `json:"model"`
}

type sendMessageResponse struct {
	Conversation  *Conversation   `json:"conversation"`
	Messages      []*Message      `json:"messages"`
	Conversations []*Conversation `json:"conversations"`
}

func (s *APIV1Service) ListConversations(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	list, err := s.Chat.ListConversations(c.Request().Context(), userID)
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"conversations": convertConversations(list)})
}

func (s *APIV1Service) CreateConversation(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	var req createConversationRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	conv, err := s.Chat.StartConversation(c.Request().Context(), chat.StartConversationInput{
		Model:     req.Model,
		UserID:    userID,
		Temporary: req.Temporary,
	})
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusCreated, convertConversation(conv))
}

func (s *APIV1Service) GetConversation(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	conv, err := s.Chat.GetConversation(c.Request().Context(), userID, id)
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, convertConversation(conv))
}

func (s *APIV1Service) DeleteConversation(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := s.Chat.DeleteConversation(c.Request().Context(), userID, id); err != nil {
		return toHTTPError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *APIV1Service) RenameConversation(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req renameConversationRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	conv, err := s.Chat.RenameConversation(c.Request().Context(), userID, id, req.Title)
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, convertConversation(conv))
}

func (s *APIV1Service) ListMessages(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	list, err := s.Chat.ListMessages(c.Request().Context(), userID, id)
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"messages": convertMessages(list)})
}

// SendMessage expands a leading custom command, then runs one exchange.
func (s *APIV1Service) SendMessage(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req sendMessageRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	text, err := s.Chat.ExpandCommand(ctx, userID, req.Text)
	if err != nil {
		return toHTTPError(c, err)
	}
	out, err := s.Chat.SendMessage(ctx, chat.SendMessageInput{
		Text:           text,
		Model:          req.Model,
		UserID:         userID,
		ConversationID: id,
	})
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, sendMessageResponse{
		Conversation:  convertConversation(out.Conversation),
		Messages:      convertMessages(out.Messages),
		Conversations: convertConversations(out.Conversations),
	})
}
