package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/switchboard/internal/apperr"
	"github.com/zulandar/switchboard/internal/board"
)

// registerRoutes sets up all API routes on the Gin router.
func (s *Server) registerRoutes(router *gin.Engine) {
	api := router.Group("/api")

	api.GET("/boards", s.handleListBoards)
	api.POST("/boards", s.handleCreateBoard)
	api.GET("/boards/:id", s.handleGetBoard)
	api.PATCH("/boards/:id", s.handleUpdateBoard)
	api.DELETE("/boards/:id", s.handleDeleteBoard)

	api.POST("/boards/:id/columns", s.handleCreateColumn)
	api.POST("/boards/:id/columns/reorder", s.handleReorderColumns)
	api.PATCH("/columns/:id", s.handleUpdateColumn)
	api.DELETE("/columns/:id", s.handleDeleteColumn)

	api.POST("/cards", s.handleCreateCard)
	api.GET("/cards/:id", s.handleGetCard)
	api.PATCH("/cards/:id", s.handleUpdateCard)
	api.POST("/cards/:id/move", s.handleMoveCard)
	api.DELETE("/cards/:id", s.handleDeleteCard)

	api.POST("/boards/:id/permissions", s.handleAddPermission)
	api.DELETE("/permissions/:id", s.handleRemovePermission)

	api.GET("/rules", s.handleListRules)
	api.POST("/rules", s.handleCreateRule)
	api.POST("/rules/reorder", s.handleReorderRules)
	api.PATCH("/rules/:id", s.handleUpdateRule)
	api.DELETE("/rules/:id", s.handleDeleteRule)

	api.POST("/action-plans/:id/promote", s.handlePromote)

	api.GET("/events", s.handleSSE)
	api.GET("/events/recent", s.handleRecentEvents)
}

// actor derives the caller identity from request headers. Absent headers
// mean an unprivileged actor; reads are never gated.
func actor(c *gin.Context) board.Actor {
	a := board.Actor{UserID: c.GetHeader("X-Actor-User")}
	if teams := c.GetHeader("X-Actor-Teams"); teams != "" {
		for _, t := range strings.Split(teams, ",") {
			if t = strings.TrimSpace(t); t != "" {
				a.TeamIDs = append(a.TeamIDs, t)
			}
		}
	}
	return a
}

// fail maps the error taxonomy onto HTTP statuses.
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperr.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, apperr.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, apperr.ErrConflict):
		status = http.StatusConflict
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
