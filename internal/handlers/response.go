package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/staylane/reservation-backend/internal/models"
	"github.com/staylane/reservation-backend/internal/services"
)

// respondError writes a classified service error. Unclassified errors are 500s
// and their text is not returned to the client.
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	var svcErr *services.Error
	if !errors.As(err, &svcErr) {
		logger.WithError(err).WithField("path", c.FullPath()).Error("Unhandled error")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   string(services.KindInternal),
			Details: "Internal server error",
		})
		return
	}

	status := svcErr.Kind.HTTPStatus()
	entry := logger.WithFields(logrus.Fields{
		"path":   c.FullPath(),
		"kind":   svcErr.Kind,
		"status": status,
	})
	if status >= http.StatusInternalServerError {
		entry.WithError(err).Error("Request failed")
	} else {
		entry.Info(svcErr.Message)
	}

	c.JSON(status, models.ErrorResponse{
		Error:   string(svcErr.Kind),
		Details: svcErr.Message,
	})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error:   "ValidationError",
		Details: err.Error(),
	})
}
