package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/aliasvault/internal/api"
	"github.com/dmitrijs2005/aliasvault/internal/common"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// ApiError is the JSON body of every failed request.
type ApiError = api.Error

func ApiErrorf(c *gin.Context, code int, format string, args ...interface{}) ApiError {
	ar := ApiError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
	c.AbortWithStatusJSON(code, ar)
	return ar
}

func ValidatorErrorToUser(err validator.ValidationErrors) string {
	var errorMessages []string
	for _, err := range err {
		switch err.Tag() {
		case "required":
			errorMessages = append(errorMessages, fmt.Sprintf("%s is required", err.Field()))
		case "hexadecimal":
			errorMessages = append(errorMessages, fmt.Sprintf("%s must be hex encoded", err.Field()))
		case "min", "max":
			errorMessages = append(errorMessages, fmt.Sprintf("%s has invalid length", err.Field()))
		default:
			errorMessages = append(errorMessages, fmt.Sprintf("validation failed on field %s", err.Field()))
		}
	}
	return strings.Join(errorMessages, ". ")
}

// serviceError writes the response for an error returned by a service.
func serviceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, common.ErrSessionExpired):
		ApiErrorf(c, http.StatusUnauthorized, "login session expired, please start over")
	case errors.Is(err, common.ErrAuthenticationFailed):
		ApiErrorf(c, http.StatusUnauthorized, "invalid username or password")
	case errors.Is(err, common.ErrTwoFactorInvalid):
		ApiErrorf(c, http.StatusUnauthorized, "invalid authentication code")
	case errors.Is(err, common.ErrRefreshTokenExpired):
		ApiErrorf(c, http.StatusUnauthorized, "refresh token expired")
	case errors.Is(err, common.ErrTokenExpired):
		ApiErrorf(c, http.StatusUnauthorized, "token expired")
	case errors.Is(err, common.ErrInvalidToken):
		ApiErrorf(c, http.StatusUnauthorized, "invalid token")
	case errors.Is(err, common.ErrAccountLocked):
		ApiErrorf(c, http.StatusLocked, "account temporarily locked due to too many failed attempts")
	case errors.Is(err, common.ErrAccountBlocked):
		ApiErrorf(c, http.StatusForbidden, "account blocked")
	case errors.Is(err, common.ErrRegistrationDisabled):
		ApiErrorf(c, http.StatusForbidden, "public registration is disabled")
	case errors.Is(err, common.ErrVaultConflict):
		ar := ApiError{Code: http.StatusConflict, Message: "vault was changed on another device, merge required"}
		var conflict *common.ConflictError
		if errors.As(err, &conflict) {
			ar.LatestRevision = conflict.LatestRevision
		}
		c.AbortWithStatusJSON(ar.Code, ar)
	case errors.Is(err, common.ErrUsernameTaken):
		ApiErrorf(c, http.StatusConflict, "username is already in use")
	case errors.Is(err, common.ErrVaultOutdated),
		errors.Is(err, common.ErrUsernameInvalid),
		errors.Is(err, common.ErrInvalidRequest),
		errors.Is(err, common.ErrTwoFactorNotEnabled),
		errors.Is(err, common.ErrCrypto):
		ApiErrorf(c, http.StatusBadRequest, "%s", err.Error())
	case errors.Is(err, common.ErrorNotFound):
		ApiErrorf(c, http.StatusNotFound, "not found")
	default:
		ApiErrorf(c, http.StatusInternalServerError, "internal error")
	}
}

// bindJSON decodes and validates the request body. It writes a 400 and
// returns false on failure.
func bindJSON(c *gin.Context, v *validator.Validate, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		ApiErrorf(c, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := v.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			ApiErrorf(c, http.StatusBadRequest, "%s", ValidatorErrorToUser(verrs))
		} else {
			ApiErrorf(c, http.StatusBadRequest, "invalid request body")
		}
		return false
	}
	return true
}
