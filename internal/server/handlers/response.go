package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/mamadbah2/hotelerp/internal/domain/models"
	"github.com/mamadbah2/hotelerp/internal/service/auth"
	"github.com/mamadbah2/hotelerp/internal/service/procurement"
	"github.com/mamadbah2/hotelerp/internal/service/reporting"
)

const claimsKey = "auth.claims"

// SetClaims stores the authenticated caller on the request context.
func SetClaims(c *gin.Context, claims *auth.Claims) {
	c.Set(claimsKey, claims)
}

// CurrentClaims returns the authenticated caller, or nil on public routes.
func CurrentClaims(c *gin.Context) *auth.Claims {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*auth.Claims)
	return claims
}

// respondError maps service errors to status codes. Unknown errors are logged and hidden.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	var validationErr *models.ValidationError
	var transitionErr *models.TransitionError

	switch {
	case errors.As(err, &validationErr):
		body := gin.H{"error": validationErr.Error()}
		if validationErr.Field != "" {
			body["field"] = validationErr.Field
		}
		c.JSON(http.StatusBadRequest, body)
	case errors.As(err, &transitionErr):
		c.JSON(http.StatusConflict, gin.H{
			"error":  transitionErr.Error(),
			"status": transitionErr.From,
		})
	case errors.Is(err, models.ErrInvalidTransition), errors.Is(err, models.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, models.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
	case errors.Is(err, procurement.ErrBillStorageDisabled), errors.Is(err, reporting.ErrSheetsDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// bindJSON decodes the body into dst and answers 400 on failure.
func bindJSON(c *gin.Context, logger *zap.Logger, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		logger.Debug("invalid request body", zap.String("path", c.FullPath()), zap.Error(err))

		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":  "invalid request body",
				"fields": validationFields(fieldErrs),
			})
			return false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return false
	}
	return true
}

func validationFields(errs validator.ValidationErrors) map[string]string {
	fields := make(map[string]string, len(errs))
	for _, fe := range errs {
		fields[fe.Field()] = fe.Tag()
	}
	return fields
}
