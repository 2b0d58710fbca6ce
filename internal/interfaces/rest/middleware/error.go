package middleware

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// ErrorHandlingOption options for error handling
type ErrorHandlingOption struct {
	// Handler renders errors that are neither *echo.HTTPError nor already written
	Handler func(c echo.Context, err error)
	// HTTPErrorHandler renders *echo.HTTPError, defaults to a plain text body
	HTTPErrorHandler func(c echo.Context, err *echo.HTTPError)
}

// ErrorHandling handle errors and panics returned from controller
// **DO NOT return error anymore**
func ErrorHandling(options ...*ErrorHandlingOption) echo.MiddlewareFunc {
	custom := &ErrorHandlingOption{
		Handler: func(c echo.Context, err error) {
			c.String(http.StatusInternalServerError, err.Error())
		},
		HTTPErrorHandler: func(c echo.Context, err *echo.HTTPError) {
			c.String(err.Code, fmt.Sprint(err.Message))
		},
	}
	if len(options) > 0 {
		option := options[0]
		if option.Handler != nil {
			custom.Handler = option.Handler
		}
		if option.HTTPErrorHandler != nil {
			custom.HTTPErrorHandler = option.HTTPErrorHandler
		}
	}
	handler := custom.Handler
	httpHandler := custom.HTTPErrorHandler
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			defer func() {
				if any := recover(); any != nil {
					err, ok := any.(error)
					if !ok {
						err = fmt.Errorf("%v", any)
					}
					handler(c, err)
				}
			}()
			err := next(c)
			if err == nil || c.Response().Committed {
				return nil
			}
			if v, ok := err.(*echo.HTTPError); ok {
				httpHandler(c, v)
			} else {
				handler(c, err)
			}
			return nil
		}
	}
}
