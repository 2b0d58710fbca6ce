package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pot-code/coursesync/internal/infrastructure/validate"
)

// RESTStandardError response error
type RESTStandardError struct {
	Type    string `json:"type,omitempty"`
	Code    int    `json:"code"`
	Title   string `json:"title"`
	Detail  string `json:"detail,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

func NewRESTStandardError(code int, detail string) *RESTStandardError {
	return &RESTStandardError{
		Code:   code,
		Title:  http.StatusText(code),
		Detail: detail,
	}
}

func (re RESTStandardError) Error() string {
	return re.Detail
}

func (re RESTStandardError) SetTraceID(traceID string) RESTStandardError {
	re.TraceID = traceID
	return re
}

// RESTValidationError standard validation error
type RESTValidationError struct {
	RESTStandardError
	InvalidParams []*validate.FieldError `json:"invalid_params"`
}

func NewRESTValidationError(code int, detail string, internal []*validate.FieldError) *RESTValidationError {
	return &RESTValidationError{
		RESTStandardError: RESTStandardError{
			Code:   code,
			Title:  http.StatusText(code),
			Detail: detail,
		},
		InvalidParams: internal,
	}
}

func (rve RESTValidationError) Error() string {
	return rve.Detail
}

func (rve RESTValidationError) SetTraceID(traceID string) RESTValidationError {
	rve.RESTStandardError.TraceID = traceID
	return rve
}

// respondError write a RESTStandardError tagged with the request trace id
func respondError(c echo.Context, code int, detail string) error {
	traceID := c.Response().Header().Get(echo.HeaderXRequestID)
	return c.JSON(code, NewRESTStandardError(code, detail).SetTraceID(traceID))
}

// respondInvalid write a RESTValidationError tagged with the request trace id
func respondInvalid(c echo.Context, detail string, params []*validate.FieldError) error {
	traceID := c.Response().Header().Get(echo.HeaderXRequestID)
	return c.JSON(http.StatusBadRequest, NewRESTValidationError(http.StatusBadRequest, detail, params).SetTraceID(traceID))
}

// bindError turn a failed echo bind into a 422 response
func bindError(c echo.Context, what string, err error) error {
	detail := err.Error()
	if he, ok := err.(*echo.HTTPError); ok && he.Internal != nil {
		detail = he.Internal.Error()
	}
	return respondError(c, http.StatusUnprocessableEntity, "Failed to bind "+what+": "+detail)
}
