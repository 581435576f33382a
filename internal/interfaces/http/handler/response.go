package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AudicoSA/audico-sync/internal/domain/shared"
)

// Response is the envelope every API endpoint answers with.
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
}

// ErrorInfo carries a machine-readable code alongside the message.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Success sends a 200 with the data wrapped in the envelope.
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

// Accepted sends a 202 for work started in the background.
func Accepted(c *gin.Context, data any) {
	c.JSON(http.StatusAccepted, Response{Success: true, Data: data})
}

// Error sends an error envelope with the given status.
func Error(c *gin.Context, status int, code, message string) {
	c.JSON(status, Response{Success: false, Error: &ErrorInfo{Code: code, Message: message}})
}

// DomainError maps a domain error onto an HTTP status.
func DomainError(c *gin.Context, err error) {
	if derr, ok := err.(*shared.DomainError); ok {
		Error(c, statusForCode(derr.Code), derr.Code, derr.Message)
		return
	}
	Error(c, http.StatusInternalServerError, "INTERNAL", err.Error())
}

func statusForCode(code string) int {
	switch code {
	case "NOT_FOUND", "UNKNOWN_SUPPLIER":
		return http.StatusNotFound
	case "SYNC_IN_PROGRESS":
		return http.StatusConflict
	case "INVALID_OPTIONS", "VALIDATION_FAILED":
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
