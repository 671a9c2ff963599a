package errors

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ErrorResponse is the JSON body returned for failed requests.
type ErrorResponse struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ToHTTPStatus converts an error code to an HTTP status.
func ToHTTPStatus(code string) int {
	httpStatus, _ := GetCodeMapping(code)
	return httpStatus
}

// ToHTTPError converts err to an echo HTTP error. Server-side failures only
// expose a generic message; the cause stays in the logs.
func ToHTTPError(err error) *echo.HTTPError {
	if err == nil {
		return nil
	}

	if echoErr, ok := err.(*echo.HTTPError); ok {
		return echoErr
	}

	var appErr *AppError
	if As(err, &appErr) {
		httpStatus := ToHTTPStatus(appErr.Code())
		body := ErrorResponse{Code: appErr.Code(), Message: appErr.Message(), Details: appErr.Details()}
		if httpStatus >= http.StatusInternalServerError {
			body = ErrorResponse{Code: appErr.Code(), Message: genericMessage(httpStatus)}
		}
		return echo.NewHTTPError(httpStatus, body).SetInternal(err)
	}

	return echo.NewHTTPError(http.StatusInternalServerError, ErrorResponse{
		Code:    ErrInternal,
		Message: genericMessage(http.StatusInternalServerError),
	}).SetInternal(err)
}

func genericMessage(status int) string {
	if status == http.StatusBadGateway || status == http.StatusGatewayTimeout {
		return "upstream processing failed, please retry"
	}
	return "internal error"
}

// FromHTTPError converts an echo HTTP error into an AppError.
func FromHTTPError(err error) error {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if As(err, &appErr) {
		return err
	}

	if echoErr, ok := err.(*echo.HTTPError); ok {
		code := httpStatusToCode(echoErr.Code)
		var msg string
		if m, ok := echoErr.Message.(string); ok {
			msg = m
		} else {
			msg = "HTTP error"
		}
		return NewAppError(code, msg, nil)
	}

	return NewAppError(ErrInternal, err.Error(), err)
}

func httpStatusToCode(status int) string {
	switch status {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusBadRequest:
		return ErrInvalidArgument
	case http.StatusUnauthorized:
		return ErrUnauthenticated
	case http.StatusForbidden:
		return ErrUnauthorized
	case http.StatusConflict:
		return ErrConflict
	case http.StatusGatewayTimeout:
		return ErrTimeout
	case http.StatusNotImplemented:
		return ErrNotImplemented
	default:
		return ErrInternal
	}
}
