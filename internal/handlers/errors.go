package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	internalerrors "github.com/shard-legends/clan-service/internal/errors"
	"github.com/shard-legends/clan-service/internal/models"
)

const (
	msgInvalidPagination = "Invalid pagination parameters"
	msgInvalidClanID     = "Invalid clanId"
	msgInvalidPayload    = "Invalid payload"
	msgInvalidGameMode   = "Invalid game mode"
	msgInvalidMetric     = "Invalid metric"
	msgInvalidStatus     = "Invalid join request status"
	msgNoFiles           = "No files were uploaded"
	msgFileTooLarge      = "File is too large"
	msgUnauthorized      = "Unauthorized"
	msgInternal          = "Internal server error"
)

// statusOf maps a business error kind to its HTTP status
func statusOf(kind internalerrors.Kind) int {
	switch kind {
	case internalerrors.KindValidation:
		return http.StatusBadRequest
	case internalerrors.KindConflict:
		return http.StatusConflict
	case internalerrors.KindAuthorization:
		return http.StatusForbidden
	case internalerrors.KindNotFound:
		return http.StatusNotFound
	case internalerrors.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error:   internalerrors.KindValidation.String(),
		Message: message,
	})
}

// respondError writes the business reason verbatim; anything else is logged
// and hidden behind a generic 500
func (h *ClanHandler) respondError(c *gin.Context, operation string, err error) {
	if clanErr, ok := internalerrors.GetClanError(err); ok {
		c.JSON(statusOf(clanErr.Kind), models.ErrorResponse{
			Error:   clanErr.Kind.String(),
			Message: clanErr.Message,
		})
		return
	}

	h.logger.Error("Request failed",
		zap.String("operation", operation),
		zap.String("path", c.FullPath()),
		zap.Error(err))
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Error:   internalerrors.KindUnknown.String(),
		Message: msgInternal,
	})
}
