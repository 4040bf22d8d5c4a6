package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/samcharles93/namask/internal/ndarray"
)

var ErrInvalidRequest = errors.New("invalid_request")

type invalidRequestError struct {
	msg string
}

func (e invalidRequestError) Error() string { return e.msg }

func (e invalidRequestError) Unwrap() error { return ErrInvalidRequest }

func newInvalidRequest(msg string) error {
	return invalidRequestError{msg: msg}
}

func writeError(c *echo.Context, status int, errType, msg, code string) error {
	return c.JSON(status, map[string]any{
		"error": ErrorBody{Message: msg, Type: errType, Code: code},
	})
}

func writeBadRequest(c *echo.Context, msg string) error {
	return writeError(c, http.StatusBadRequest, "invalid_request_error", msg, "")
}

func writeNotFound(c *echo.Context, msg string) error {
	return writeError(c, http.StatusNotFound, "not_found_error", msg, "")
}

// writeMaskError maps array and mask failures to HTTP statuses.
func writeMaskError(c *echo.Context, err error) error {
	switch {
	case errors.Is(err, ndarray.ErrUnsupportedElementType):
		return writeError(c, http.StatusUnprocessableEntity, "mask_error", err.Error(), "unsupported_element_type")
	case errors.Is(err, ndarray.ErrOutOfMemory):
		return writeError(c, http.StatusInsufficientStorage, "mask_error", err.Error(), "out_of_memory")
	case errors.Is(err, ndarray.ErrConversionFailed):
		return writeError(c, http.StatusUnprocessableEntity, "mask_error", err.Error(), "conversion_failed")
	default:
		return writeBadRequest(c, err.Error())
	}
}
