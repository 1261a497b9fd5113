package handler

import (
	"errors"
	"net/http"

	"painai/internal/middleware"
	"painai/internal/service"
	"painai/pkg/response"
	"painai/pkg/worktime"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// statusFor maps service errors to HTTP status codes. Unknown errors are 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidID),
		errors.Is(err, service.ErrInvalidDate),
		errors.Is(err, service.ErrInvalidDateRange),
		errors.Is(err, worktime.ErrInvalidTime),
		errors.Is(err, service.ErrHoursOutOfRange),
		errors.Is(err, service.ErrInvalidHours),
		errors.Is(err, service.ErrIncompleteTimeRange),
		errors.Is(err, service.ErrInvalidWorkType),
		errors.Is(err, service.ErrRejectionReasonRequired),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrInvalidProjectStatus),
		errors.Is(err, service.ErrProjectInactive),
		errors.Is(err, service.ErrInvalidHolidayFile),
		errors.Is(err, service.ErrInvalidRole),
		errors.Is(err, service.ErrUnknownPermission),
		errors.Is(err, service.ErrWrongPassword):
		return http.StatusBadRequest

	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidRefreshToken):
		return http.StatusUnauthorized

	case errors.Is(err, service.ErrForbidden),
		errors.Is(err, service.ErrNotOwner),
		errors.Is(err, service.ErrSelfApproval),
		errors.Is(err, service.ErrUserInactive),
		errors.Is(err, service.ErrRoleProtected):
		return http.StatusForbidden

	case errors.Is(err, service.ErrTimesheetNotFound),
		errors.Is(err, service.ErrProjectNotFound),
		errors.Is(err, service.ErrHolidayNotFound),
		errors.Is(err, service.ErrWorkTypeNotFound),
		errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrRoleNotFound):
		return http.StatusNotFound

	case errors.Is(err, service.ErrDuplicateTimesheet),
		errors.Is(err, service.ErrInvalidStatusTransition),
		errors.Is(err, service.ErrConcurrentUpdate),
		errors.Is(err, service.ErrProjectCodeExists),
		errors.Is(err, service.ErrProjectInUse),
		errors.Is(err, service.ErrHolidayExists),
		errors.Is(err, service.ErrWorkTypeExists),
		errors.Is(err, service.ErrUsernameExists),
		errors.Is(err, service.ErrEmailExists),
		errors.Is(err, service.ErrRoleExists),
		errors.Is(err, service.ErrRoleInUse):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// respondError writes the error envelope. Internal errors are logged and hidden from the client.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	status := statusFor(err)
	if status == http.StatusInternalServerError {
		zap.L().Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.String("request_id", c.GetString(middleware.ContextRequestID)),
			zap.Error(err))
		c.JSON(status, response.Error(status, "Internal server error"))
		return
	}
	c.JSON(status, response.Error(status, err.Error()))
}

// respondBindError writes a 400 for a request that failed binding or validation.
func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+FormatBindingError(err)))
}

// currentActor returns the authenticated caller or writes a 401.
func currentActor(c *gin.Context) (service.Actor, bool) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "User ID not found in context"))
	}
	return actor, ok
}
