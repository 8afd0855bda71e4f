package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rullmann/portfolio-now-sub006/internal/models"
	"github.com/rullmann/portfolio-now-sub006/internal/numeric"
	"github.com/rullmann/portfolio-now-sub006/internal/repository"
	"github.com/rullmann/portfolio-now-sub006/internal/services"
)

// writeError maps service errors onto HTTP status codes. Validation problems
// are the caller's fault; preview drift and oversells are conflicts the
// caller can resolve by re-reading state.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrValidation), errors.Is(err, numeric.ErrInvalidRatio):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "bad_request",
			Message: err.Error(),
		})
	case errors.Is(err, repository.ErrSecurityNotFound),
		errors.Is(err, repository.ErrPortfolioNotFound),
		errors.Is(err, repository.ErrAccountNotFound):
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:   "not_found",
			Message: err.Error(),
		})
	case errors.Is(err, services.ErrConcurrentModification):
		c.JSON(http.StatusConflict, models.ErrorResponse{
			Error:   "conflict",
			Message: err.Error(),
		})
	case errors.Is(err, services.ErrInsufficientLots):
		c.JSON(http.StatusConflict, models.ErrorResponse{
			Error:   "insufficient_lots",
			Message: err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "internal_error",
			Message: err.Error(),
		})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error:   "bad_request",
		Message: msg,
	})
}
