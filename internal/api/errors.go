package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/resumehub/internal/core"
	"github.com/example/resumehub/internal/export"
	"github.com/example/resumehub/internal/middleware"
	"github.com/example/resumehub/internal/session"
)

// mapErrorToStatus maps errors from the core and export packages to HTTP status
// codes and writes the JSON error response.
// Validation problems are 400 (with per-field details when available), oversized
// embedded images 413, missing resumes, training entries and users 404, ownership
// and account-state violations 403, and export failures 500 carrying the
// user-facing notice. Anything else is logged and reported as a generic 500.
func mapErrorToStatus(c *gin.Context, logger *zap.Logger, err error) {
	var (
		authErr   *core.AuthError
		fieldErrs core.ValidationErrors
		exportErr *export.Error
	)

	switch {
	case errors.As(err, &authErr):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: authErr.Code})
	case errors.As(err, &fieldErrs):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: core.ErrValidation.Error(), Fields: fieldErrs})
	case errors.Is(err, core.ErrValidation), errors.Is(err, export.ErrUnknownTheme):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Details: err.Error()})
	case errors.Is(err, core.ErrImageTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: core.ErrImageTooLarge.Error(), Details: err.Error()})
	case errors.Is(err, core.ErrResumeNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: core.ErrResumeNotFound.Error()})
	case errors.Is(err, core.ErrTrainingNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: core.ErrTrainingNotFound.Error()})
	case errors.Is(err, core.ErrUserNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "User not found"})
	case errors.Is(err, core.ErrForbiddenAccess):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: core.ErrForbiddenAccess.Error()})
	case errors.Is(err, core.ErrAccountDisabled),
		errors.Is(err, core.ErrCannotModifySelf),
		errors.Is(err, core.ErrCannotDeleteAdmin):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: err.Error()})
	case errors.As(err, &exportErr):
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: exportErr.Notice})
	default:
		logger.Error("Internal Server Error", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "An unexpected internal server error occurred."})
	}
}

// currentPrincipal returns the authenticated caller or writes a 401.
func currentPrincipal(c *gin.Context) (session.Principal, bool) {
	p, ok := middleware.PrincipalFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "User not authenticated"})
	}
	return p, ok
}
