package forecast

import (
	"errors"
	"fmt"
)

// Error kinds. Callers match them with errors.Is.
var (
	ErrData             = errors.New("invalid price data")
	ErrInsufficientData = errors.New("insufficient price data")
	ErrVolatility       = errors.New("volatility estimation failed")
	ErrModelSelection   = errors.New("no model order could be fitted")
	ErrNotTrained       = errors.New("predictor is not trained")
	ErrMetrics          = errors.New("model metrics unavailable")
	ErrPredictorUsed    = errors.New("predictor already trained")
)

// Error describes a failed forecasting step.
type Error struct {
	Op    string // step that failed, e.g. "normalize"
	Kind  error  // one of the Err* kinds
	Cause string // human readable detail
	Err   error  // underlying error, may be nil
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Op, e.Kind)
	if e.Cause != "" {
		msg += ": " + e.Cause
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(op string, kind error, cause string, err error) *Error {
	return &Error{Op: op, Kind: kind, Cause: cause, Err: err}
}
