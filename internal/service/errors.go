package service

import "fmt"

// ScheduleValidationError rejects a schedule before any persistence or job
// creation happens.
type ScheduleValidationError struct {
	Message string
}

func (e *ScheduleValidationError) Error() string {
	return e.Message
}

func NewScheduleValidationError(format string, args ...any) *ScheduleValidationError {
	return &ScheduleValidationError{Message: fmt.Sprintf(format, args...)}
}

type ErrScheduleNotFound struct {
	ScheduleID int64
}

func (e *ErrScheduleNotFound) Error() string {
	return fmt.Sprintf("schedule %d does not exist", e.ScheduleID)
}
