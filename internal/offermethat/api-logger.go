// API error handling utilities for the offermethat package.
// Provides functions for returning errors with appropriate HTTP status codes and logging.
//
// Key features:
//   - Standardized error response formatting.
//   - Logging of API errors with context (method, URL, user).
//   - Support for custom error types with status codes.
package offermethat

import (
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"runtime"

	"github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat/apierrors"
	"github.com/OfferMeThat/OfferMeThat-sub002/internal/offermethat/dao"
	"github.com/labstack/echo/v4"
)

// Return a 400 error with a generic message.
func EError(c echo.Context, err error) error {
	if customErr, ok := err.(apierrors.DefinedError); ok {
		return EErrorDefined(c, customErr)
	}
	var user *dao.User
	if ctx, ok := c.(AuthContext); ok {
		user = ctx.User
	}
	if err == nil {
		slog.Error("Unknown API error",
			"method", c.Request().Method,
			"url", c.Request().URL,
			"user", user,
			getCallerFile(),
		)
	} else {
		slog.Error("API error",
			"err", err,
			"method", c.Request().Method,
			"url", c.Request().URL,
			"user", user,
			getCallerFile(),
		)
	}
	return EErrorDefined(c, apierrors.ErrGeneric)
}

// Return a <status> error with the error message (403 with an empty error is not logged).
func EErrorMsgStatus(c echo.Context, err error, status int) error {
	var user *dao.User
	if ctx, ok := c.(AuthContext); ok {
		user = ctx.User
	}
	if status == http.StatusRequestEntityTooLarge {
		return EErrorDefined(c, apierrors.ErrEntityToLarge)
	}

	if err == nil {
		if status != http.StatusForbidden {
			slog.Error("Unknown API error",
				"method", c.Request().Method,
				slog.Int("status", status),
				"url", c.Request().URL,
				"user", user,
				getCallerFile(),
			)
		}
		er := apierrors.ErrGeneric
		er.StatusCode = status
		return EErrorDefined(c, er)
	} else {
		// Ignore log 404 error
		if status != http.StatusNotFound {
			slog.Error("API error",
				"err", err,
				"method", c.Request().Method,
				slog.Int("status", status),
				"url", c.Request().URL,
				"user", user,
				getCallerFile(),
			)
		}
		er := apierrors.ErrGeneric
		er.StatusCode = status
		er.Err = err.Error()
		return EErrorDefined(c, er)
	}
}

// Return a 400 error with the error message.
func EErrorMsg(c echo.Context, err error) error {
	var user *dao.User
	if ctx, ok := c.(AuthContext); ok {
		user = ctx.User
	}
	if err == nil {
		slog.Error("Unknown API error",
			"method", c.Request().Method,
			"url", c.Request().URL,
			"user", user,
			getCallerFile(),
		)
		return EErrorDefined(c, apierrors.ErrGeneric)
	} else {
		slog.Error("API error",
			"err", err,
			"method", c.Request().Method,
			"url", c.Request().URL,
			"user", user,
			getCallerFile(),
		)
		er := apierrors.ErrGeneric
		er.Err = err.Error()
		return EErrorDefined(c, er)
	}
}

// EErrorDefined responds with the error's status code and JSON body. Unknown
// status codes fall back to 400 Bad Request.
func EErrorDefined(c echo.Context, err apierrors.DefinedError) error {
	// If unknown code use 400 Bad Request
	if http.StatusText(err.StatusCode) == "" {
		err.StatusCode = http.StatusBadRequest
	}
	return c.JSON(err.StatusCode, err)
}

func getCallerFile() slog.Attr {
	_, path, no, ok := runtime.Caller(2)
	if !ok {
		return slog.Attr{}
	}
	_, file := filepath.Split(path)
	return slog.String("caller", fmt.Sprintf("%s:%d", file, no))
}
