// Package v1 exposes the chat orchestrator as a JSON HTTP API.
package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/askbox/ai/chat"
	"github.com/hrygo/askbox/server/auth"
)

// APIV1Service serves /api/v1.
type APIV1Service struct {
	Chat   *chat.Service
	Secret string
}

func NewAPIV1Service(secret string, chatService *chat.Service) *APIV1Service {
	return &APIV1Service{Chat: chatService, Secret: secret}
}

// RegisterRoutes mounts every authenticated route on g.
func (s *APIV1Service) RegisterRoutes(g *echo.Group) {
	g.Use(auth.Middleware([]byte(s.Secret)))

	g.GET("/models", s.ListModels)
	g.POST("/user/model", s.SelectModel)

	g.GET("/conversations", s.ListConversations)
	g.POST("/conversations", s.CreateConversation)
	g.GET("/conversations/:id", s.GetConversation)
	g.DELETE("/conversations/:id", s.DeleteConversation)
	g.PATCH("/conversations/:id/title", s.RenameConversation)
	g.GET("/conversations/:id/messages", s.ListMessages)
	g.POST("/conversations/:id/messages", s.SendMessage)

	g.GET("/custom-instructions", s.ListInstructions)
	g.POST("/custom-instructions", s.CreateInstruction)
	g.PUT("/custom-instructions/:id", s.UpdateInstruction)

	g.GET("/custom-commands", s.ListCommands)
	g.POST("/custom-commands", s.CreateCommand)
	g.DELETE("/custom-commands/:id", s.DeleteCommand)
}

func currentUserID(c echo.Context) (int32, error) {
	claims := auth.GetUserClaims(c.Request().Context())
	if claims == nil {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "unauthenticated")
	}
	return claims.UserID, nil
}

func pathID(c echo.Context) (int32, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 32)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return int32(id), nil
}

func bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	return nil
}
