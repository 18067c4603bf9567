package service

import "fmt"

// ValidationError reports a user-correctable input problem. The session phase
// is never changed by a validation failure.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// NewValidationError creates a ValidationError with a formatted reason
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// CapacityError reports an attachment count or size cap violation
type CapacityError struct {
	Reason string
}

func (e *CapacityError) Error() string {
	return e.Reason
}

// NewCapacityError creates a CapacityError with a formatted reason
func NewCapacityError(format string, args ...any) *CapacityError {
	return &CapacityError{Reason: fmt.Sprintf(format, args...)}
}

// GatewayError reports a failed analysis request. The session reverts to the
// symptoms phase so the user can resubmit.
type GatewayError struct {
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("analysis gateway failed: %v", e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}
