package booking

import (
	"errors"
	"fmt"
)

// Machine-readable transition error codes. Retryability is a property of the
// code, not of an exception type.
const (
	CodeInvalidTransition      = "invalidTransition"
	CodeAmountMismatch         = "amountMismatch"
	CodeAlreadyTerminal        = "alreadyTerminal"
	CodeInProgress             = "inProgress"
	CodeConcurrentModification = "concurrentModification"
	CodeNotFound               = "notFound"
)

type TransitionError struct {
	Code    string
	Message string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewTransitionError(code, msg string) error {
	return &TransitionError{Code: code, Message: msg}
}

// ErrCode extracts the transition error code, or "" for other errors.
func ErrCode(err error) string {
	var te *TransitionError
	if errors.As(err, &te) {
		return te.Code
	}
	return ""
}

// IsConcurrentModification reports whether the conditional update lost a race
// and the caller should refetch to decide whether the event is now redundant.
func IsConcurrentModification(err error) bool {
	return ErrCode(err) == CodeConcurrentModification
}
