package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/railconcession/concession_backend/internal/apperrors"
)

// StatusFor maps an error kind to its HTTP status. Duplicates are reported as 400.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrValidation), errors.Is(err, apperrors.ErrConflict):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, apperrors.ErrForbidden):
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

// HandleAPIError writes {"error": message} for err. Unclassified errors are
// logged and answered with a generic 500.
func HandleAPIError(c *gin.Context, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Msg("unhandled error")
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	msg := apperrors.Message(err)
	if msg == "" {
		msg = err.Error()
	}
	c.JSON(status, gin.H{"error": msg})
}
