// internal/circles/errors.go

package circles

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrNotMember        = errors.New("not an active member of this circle")
	ErrCapacityExceeded = errors.New("circle is at capacity")
)

var (
	ErrCircleNotFound     = fmt.Errorf("%w: circle not found", ErrInvalidArgument)
	ErrGoalNotFound       = fmt.Errorf("%w: goal not found", ErrInvalidArgument)
	ErrMessageNotFound    = fmt.Errorf("%w: message not found", ErrInvalidArgument)
	ErrEmptyContent       = fmt.Errorf("%w: message content is empty", ErrInvalidArgument)
	ErrMembershipNotFound = errors.New("membership not found")
	ErrPromptNotFound     = errors.New("prompt not found")
)

// HTTPStatus maps engine errors onto response codes
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotMember):
		return http.StatusForbidden
	case errors.Is(err, ErrCapacityExceeded):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
