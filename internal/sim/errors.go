package sim

import (
	"errors"
	"fmt"

	"lifeworld/server/internal/grid"
)

// Validation failures reported for rejected cell updates. The messages are
// the codes sent back to clients.
var (
	ErrInvalidData       = errors.New("INVALID_DATA")
	ErrInvalidCellsArray = errors.New("INVALID_CELLS_ARRAY")
	ErrInvalidCell       = errors.New("INVALID_CELL")
	ErrInvalidX          = errors.New("INVALID_X_VALUE")
	ErrInvalidY          = errors.New("INVALID_Y_VALUE")
	ErrInvalidState      = errors.New("INVALID_STATE_VALUE")
	ErrInvalidColor      = errors.New("INVALID_COLOR_VALUE")
)

// ValidationError ties a validation failure to the offending cell. Index is
// -1 when the request as a whole was rejected.
type ValidationError struct {
	Err   error
	Index int
}

func (e *ValidationError) Error() string {
	if e.Index < 0 {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s (cell %d)", e.Err.Error(), e.Index)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Code returns the bare failure code, e.g. INVALID_X_VALUE.
func (e *ValidationError) Code() string {
	if errors.Is(e.Err, grid.ErrOutOfBounds) {
		return grid.ErrOutOfBounds.Error()
	}
	return e.Err.Error()
}

func requestError(err error) error {
	return &ValidationError{Err: err, Index: -1}
}

func cellError(err error, index int) error {
	return &ValidationError{Err: err, Index: index}
}

// ErrorCode extracts the client-facing code from err. Errors that are not
// validation failures map to INVALID_DATA.
func ErrorCode(err error) string {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Code()
	}
	return ErrInvalidData.Error()
}
