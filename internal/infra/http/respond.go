package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"labtrust/internal/domain"
	"labtrust/internal/infra/auth/rbac"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeErrorCode(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": errorBody{Code: code, Message: message}})
}

// writeDomainError maps domain errors onto distinct HTTP statuses. Anything
// unrecognized becomes a 500 with no internal detail leaked.
func writeDomainError(c *gin.Context, err error) {
	if authzErr, ok := rbac.IsAuthzError(err); ok {
		status := http.StatusForbidden
		if authzErr.Code == rbac.CodeUnauthenticated {
			status = http.StatusUnauthorized
		}
		writeErrorCode(c, status, authzErr.Code, authzErr.Message)
		return
	}
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "unauthenticated")
	case errors.Is(err, domain.ErrForbidden):
		writeErrorCode(c, http.StatusForbidden, "FORBIDDEN", "access denied")
	case errors.Is(err, domain.ErrNotFound):
		writeErrorCode(c, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, domain.ErrConflict):
		writeErrorCode(c, http.StatusConflict, "CONFLICT", err.Error())
	case errors.Is(err, domain.ErrInvalidTransition):
		writeErrorCode(c, http.StatusUnprocessableEntity, "INVALID_TRANSITION", err.Error())
	case errors.Is(err, domain.ErrInvalidArgument):
		writeErrorCode(c, http.StatusBadRequest, "INVALID_ARGUMENT", err.Error())
	case errors.Is(err, domain.ErrRateLimited):
		writeErrorCode(c, http.StatusTooManyRequests, "RATE_LIMITED", "too many attempts")
	default:
		writeErrorCode(c, http.StatusInternalServerError, "INTERNAL", "internal error")
	}
}
