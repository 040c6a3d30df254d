package pulse

import (
	"errors"
	"fmt"
)

// ErrInvalidParameter — параметры серии вне допустимой области.
var ErrInvalidParameter = errors.New("invalid pulse parameter")

// ParamError уточняет, какое поле нарушило ограничение.
type ParamError struct {
	Field  string
	Value  interface{}
	Reason string
}

func (e *ParamError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("%v: %s: %s", ErrInvalidParameter, e.Field, e.Reason)
	}
	return fmt.Sprintf("%v: %s=%v: %s", ErrInvalidParameter, e.Field, e.Value, e.Reason)
}

// Unwrap позволяет errors.Is(err, ErrInvalidParameter).
func (e *ParamError) Unwrap() error {
	return ErrInvalidParameter
}
