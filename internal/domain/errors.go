package domain

import (
	"fmt"
)

type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Err        error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches by code, so copies produced by WithError still compare equal to
// their sentinel under errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    e.Message,
		StatusCode: e.StatusCode,
		Err:        err,
	}
}

// Pre-defined errors
var (
	ErrInternal = &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "An unexpected error occurred",
		StatusCode: 500,
	}

	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "Invalid request",
		StatusCode: 400,
	}

	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "Resource not found",
		StatusCode: 404,
	}

	ErrValidationFailed = &AppError{
		Code:       "VALIDATION_FAILED",
		Message:    "Request validation failed",
		StatusCode: 422,
	}

	ErrLotNotFound = &AppError{
		Code:       "LOT_NOT_FOUND",
		Message:    "Parking lot not found",
		StatusCode: 404,
	}

	ErrUnknownLot = &AppError{
		Code:       "UNKNOWN_LOT",
		Message:    "Vendor lot identifier is not mapped to a parking lot",
		StatusCode: 422,
	}

	ErrInvalidAdjustment = &AppError{
		Code:       "INVALID_ADJUSTMENT",
		Message:    "Occupancy adjustment would leave the lot outside its capacity bounds",
		StatusCode: 409,
	}

	ErrSessionNotFound = &AppError{
		Code:       "SESSION_NOT_FOUND",
		Message:    "Parking session not found",
		StatusCode: 404,
	}

	ErrDuplicateActiveSession = &AppError{
		Code:       "DUPLICATE_ACTIVE_SESSION",
		Message:    "An active session already exists for this plate at this lot",
		StatusCode: 409,
	}

	ErrNoActiveSession = &AppError{
		Code:       "NO_ACTIVE_SESSION",
		Message:    "No active session found for this plate at this lot",
		StatusCode: 404,
	}

	ErrSessionNotSettleable = &AppError{
		Code:       "SESSION_NOT_SETTLEABLE",
		Message:    "Payment can only be recorded for active or violation sessions",
		StatusCode: 409,
	}

	ErrPermitNotFound = &AppError{
		Code:       "PERMIT_NOT_FOUND",
		Message:    "Permit not found",
		StatusCode: 404,
	}

	ErrDuplicateActivePermit = &AppError{
		Code:       "DUPLICATE_ACTIVE_PERMIT",
		Message:    "An active permit of this type already exists for this plate",
		StatusCode: 409,
	}

	ErrViolationNotFound = &AppError{
		Code:       "VIOLATION_NOT_FOUND",
		Message:    "Violation not found",
		StatusCode: 404,
	}

	ErrAlreadySettled = &AppError{
		Code:       "ALREADY_SETTLED",
		Message:    "Violation has already been paid or dismissed",
		StatusCode: 409,
	}

	ErrDuplicateEvent = &AppError{
		Code:       "DUPLICATE_EVENT",
		Message:    "An identical vendor event has already been recorded",
		StatusCode: 409,
	}

	ErrInvalidSignature = &AppError{
		Code:       "INVALID_SIGNATURE",
		Message:    "Webhook signature verification failed",
		StatusCode: 401,
	}

	ErrInvalidImage = &AppError{
		Code:       "INVALID_IMAGE",
		Message:    "Invalid image format or corrupted file",
		StatusCode: 422,
	}

	ErrNoPlateDetected = &AppError{
		Code:       "NO_PLATE_DETECTED",
		Message:    "No license plate detected in the image",
		StatusCode: 422,
	}
)
