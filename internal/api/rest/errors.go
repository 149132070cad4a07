package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/feral-file/ff-drug-registry/internal/api/shared/errors"
	"github.com/feral-file/ff-drug-registry/internal/logger"
)

func respond(c *gin.Context, apiErr *errors.APIError) {
	c.JSON(apiErr.Status(), errors.ErrorResponse{Error: apiErr})
}

// respondBadRequest responds with a bad request error
func respondBadRequest(c *gin.Context, message string, details ...string) {
	respond(c, errors.NewBadRequestError(message, details...))
}

// respondUnauthorized responds with an unauthorized error
func respondUnauthorized(c *gin.Context, message string) {
	respond(c, errors.NewUnauthorizedError(message))
}

// respondRegistryError maps a registry error to its response, logging unexpected ones
func respondRegistryError(c *gin.Context, err error, fields ...zap.Field) {
	status, apiErr := errors.FromDomain(err)
	if status >= http.StatusInternalServerError {
		logger.ErrorCtx(c.Request.Context(), err, append(fields, zap.String("path", c.Request.URL.Path))...)
	}
	respond(c, apiErr)
}
