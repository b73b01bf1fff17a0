package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/bioagents/logger"
)

type errorResponse struct {
	Error string `json:"error"`
}

type successResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	ID      string `json:"id,omitempty"`
}

type itemsResponse struct {
	Items []map[string]any `json:"items"`
}

func writeResponse(c *gin.Context, statusCode int, body any) {
	c.JSON(statusCode, body)
}

func writeError(c *gin.Context, statusCode int, message string) {
	c.Abort()
	c.JSON(statusCode, errorResponse{Error: message})
}

// bindJSON writes a 400 and returns false when the body is not the expected JSON.
func bindJSON(c *gin.Context, logger logger.Logger, request any) bool {
	if err := c.ShouldBindJSON(request); err != nil {
		logger.Warn("could not extract expected params from request body", "path", c.FullPath(), "err", err.Error())
		writeError(c, http.StatusBadRequest, "failed to extract request body parameters")
		return false
	}
	return true
}

// queryLimit reads ?limit=, returning 0 when it is absent or not a positive number.
func queryLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}

// NotFound answers unknown routes with the JSON error shape.
func NotFound() gin.HandlerFunc {
	return func(c *gin.Context) {
		writeError(c, http.StatusNotFound, "not found")
	}
}

func MethodNotAllowed() gin.HandlerFunc {
	return func(c *gin.Context) {
		writeError(c, http.StatusMethodNotAllowed, "method not allowed")
	}
}
