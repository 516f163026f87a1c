package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ExileLine/exile-ai-test-platform-server/pkg/repo"
	"github.com/ExileLine/exile-ai-test-platform-server/pkg/services"
)

// mapServiceError writes the error envelope matching a service-layer error,
// following the sentinel-error + ValidationError convention.
func mapServiceError(c *gin.Context, err error) {
	var validErr *services.ValidationError
	if errors.As(err, &validErr) {
		c.JSON(http.StatusBadRequest, errEnvelope(codeBadRequestShape, validErr.Error()))
		return
	}
	if errors.Is(err, services.ErrBadRequest) {
		c.JSON(http.StatusBadRequest, errEnvelope(codeBadRequestShape, err.Error()))
		return
	}
	if errors.Is(err, repo.ErrNotFound) || errors.Is(err, services.ErrNotFound) {
		c.JSON(http.StatusOK, errEnvelope(codeNotFound, "resource not found"))
		return
	}
	if errors.Is(err, services.ErrInvalidState) {
		c.JSON(http.StatusOK, errEnvelope(codeInvalidState, err.Error()))
		return
	}

	slog.Error("unexpected service error", "error", err)
	c.JSON(http.StatusInternalServerError, errEnvelope(codeDispatchFailed, "internal server error"))
}
