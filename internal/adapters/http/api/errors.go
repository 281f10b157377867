package api

import (
	"errors"
	"net/http"

	"github.com/okian/poseparty/internal/adapters/catalog"
	"github.com/okian/poseparty/internal/adapters/mq/queue"
	"github.com/okian/poseparty/internal/adapters/repository"
	"github.com/okian/poseparty/internal/domain/pose"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrBackpressure = errors.New("backpressure")
)

// Error tags an underlying error with the operation and a sentinel kind.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op + ": " + e.Kind.Error()
	}
	return e.Op + ": " + e.Kind.Error() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewKind returns an error of the given kind.
func NewKind(op string, kind error) error {
	return &Error{Op: op, Kind: kind}
}

// WrapKind attaches a kind to err.
func WrapKind(op string, kind, err error) error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// statusFor maps upstream errors onto HTTP status and error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "session_not_found"
	case errors.Is(err, catalog.ErrNotFound):
		return http.StatusNotFound, "reference_not_found"
	case errors.Is(err, queue.ErrFull), errors.Is(err, ErrBackpressure):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, ErrBadRequest), errors.Is(err, pose.ErrInvalidPose):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, pose.ErrInsufficientKeypoints):
		return http.StatusUnprocessableEntity, "invalid_reference"
	case errors.Is(err, queue.ErrClosed):
		return http.StatusServiceUnavailable, "shutting_down"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
