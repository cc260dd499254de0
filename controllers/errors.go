package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hikarusato/tablelink/services"
	"github.com/hikarusato/tablelink/utils"
)

type CustomError struct {
	Message string
}

func (e *CustomError) Error() string {
	return e.Message
}

var ErrNoPermission = &CustomError{"You do not have permission"}

// respondServiceError maps a domain error onto the right HTTP status.
// Validation errors are actionable and final; IllegalTransition and
// SessionAlreadyClosed read as "action no longer valid, please refresh".
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidToken):
		utils.RespondError(c, http.StatusUnauthorized, err)
	case errors.Is(err, services.ErrSessionNotFound),
		errors.Is(err, services.ErrOrderNotFound),
		errors.Is(err, services.ErrTableNotFound):
		utils.RespondError(c, http.StatusNotFound, err)
	case errors.Is(err, services.ErrSessionAlreadyClosed),
		errors.Is(err, services.ErrSessionClosedForOrders),
		errors.Is(err, services.ErrIllegalTransition):
		utils.RespondError(c, http.StatusConflict, err)
	case errors.Is(err, services.ErrEmptyOrder),
		errors.Is(err, services.ErrInvalidOrderLine),
		errors.Is(err, services.ErrMissingStaffIdentity),
		errors.Is(err, services.ErrLocationUnavailable):
		utils.RespondError(c, http.StatusBadRequest, err)
	default:
		utils.RespondError(c, http.StatusInternalServerError, err)
	}
}
