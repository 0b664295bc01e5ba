package controllers

import (
	"errors"
	"net/http"

	"civicgrid-be/apperrors"

	"github.com/gin-gonic/gin"
)

// respondError maps the typed error kinds onto HTTP statuses. Every branch
// surfaces the precise reason to the caller.
func respondError(c *gin.Context, err error) {
	var (
		validation *apperrors.ValidationError
		notFound   *apperrors.NotFoundError
		unauth     *apperrors.UnauthorizedError
		transition *apperrors.InvalidTransitionError
		geofence   *apperrors.GeofenceViolationError
	)

	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Error()})
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": notFound.Error()})
	case errors.As(err, &unauth):
		c.JSON(http.StatusForbidden, gin.H{"error": unauth.Error()})
	case errors.As(err, &transition):
		c.JSON(http.StatusConflict, gin.H{"error": transition.Error()})
	case errors.As(err, &geofence):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":    geofence.Error(),
			"distance": geofence.DistanceMeters,
		})
	case apperrors.IsConflict(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
	}
}
