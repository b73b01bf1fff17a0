package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/bioagents/logger"
	"github.com/meghashyamc/bioagents/services/roleplay"
)

type TurnRequest struct {
	Cenario  string             `json:"cenario"`
	Messages []roleplay.Message `json:"messages"`
}

type SessionResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
}

type SessionsResponse struct {
	Sessions []map[string]any `json:"sessions"`
	Error    string           `json:"error,omitempty"`
}

type ScenariosResponse struct {
	Scenarios []roleplay.Scenario `json:"scenarios"`
}

func SetupRoleplay(router *gin.Engine, logger logger.Logger, service *roleplay.Service) {
	group := router.Group("/api/roleplay")
	group.GET("/scenarios", handleListScenarios(service))
	group.POST("/turn", handleTurn(service, logger))
	group.POST("/sessions", handleSaveSession(service, logger))
	group.GET("/sessions", handleListSessions(service, logger))
}

func handleListScenarios(service *roleplay.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		writeResponse(c, http.StatusOK, ScenariosResponse{Scenarios: service.Scenarios()})
	}
}

func handleTurn(service *roleplay.Service, logger logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		request := TurnRequest{}
		if !bindJSON(c, logger, &request) {
			return
		}

		result, err := service.Turn(c.Request.Context(), request.Cenario, request.Messages)
		if err != nil {
			logger.Error("roleplay turn failed", "err", err.Error())
			writeError(c, http.StatusInternalServerError, "could not generate the client's reply")
			return
		}

		writeResponse(c, http.StatusOK, result)
	}
}

func handleSaveSession(service *roleplay.Service, logger logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		request := roleplay.SessionInput{}
		if !bindJSON(c, logger, &request) {
			return
		}

		id, err := service.SaveSession(c.Request.Context(), request)
		if err != nil {
			writeError(c, http.StatusInternalServerError, "could not save the session")
			return
		}

		writeResponse(c, http.StatusOK, SessionResponse{Success: true, ID: id})
	}
}

// handleListSessions answers 200 even when the store fails, with an empty list and
// the error text.
func handleListSessions(service *roleplay.Service, logger logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessions, err := service.ListSessions(c.Request.Context(), queryLimit(c))
		if err != nil {
			logger.Warn("returning empty session list", "err", err.Error())
			writeResponse(c, http.StatusOK, SessionsResponse{Sessions: []map[string]any{}, Error: "could not load sessions"})
			return
		}

		writeResponse(c, http.StatusOK, SessionsResponse{Sessions: sessions})
	}
}
