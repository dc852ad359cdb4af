package service

import (
	"errors"
	"net/http"

	"github.com/wb-go/wbf/ginext"

	"campusconnect/internal/dto"
)

// Error kinds. Handlers wrap them with a user-facing message and writeError
// maps them to a status code.
var (
	ErrValidation = errors.New("validation error")
	ErrAuth       = errors.New("authentication error")
	ErrForbidden  = errors.New("forbidden")
	ErrNotFound   = errors.New("not found")
	ErrStore      = errors.New("store error")
)

type appError struct {
	kind error
	msg  string
	err  error
}

func (e *appError) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

func (e *appError) Is(target error) bool { return target == e.kind }

func (e *appError) Unwrap() error { return e.err }

func validationError(msg string) error { return &appError{kind: ErrValidation, msg: msg} }
func authError(msg string) error       { return &appError{kind: ErrAuth, msg: msg} }
func notFoundError(msg string) error   { return &appError{kind: ErrNotFound, msg: msg} }

func storeError(err error) error {
	return &appError{kind: ErrStore, msg: dto.MsgServerError, err: err}
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrAuth):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *service) writeError(c *ginext.Context, err error) {
	status := statusOf(err)
	var ae *appError
	if status == http.StatusInternalServerError || !errors.As(err, &ae) {
		s.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		dto.InternalServerError(c)
		return
	}
	dto.ErrorResponse(c, status, ae.msg)
}
