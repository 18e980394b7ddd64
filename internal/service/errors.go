package service

import "fmt"

// ServiceError represents a business logic error with a code
type ServiceError struct {
	Err     error
	Message string
	Code    string
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Common error codes
const (
	ErrCodeAuthenticationRequired = "authentication_required"
	ErrCodeAccessDenied           = "access_denied"
	ErrCodeValidationFailed       = "validation_failed"
	ErrCodeNotFound               = "not_found"
	ErrCodeRateLimitExceeded      = "rate_limit_exceeded"
	ErrCodeTokenInactive          = "token_inactive"
	ErrCodeTokenExpired           = "token_expired"
	ErrCodeCryptoFailure          = "crypto_failure"
	ErrCodeStorageFailure         = "storage_failure"
	ErrCodeInternalError          = "internal_error"
)

func authenticationError(message string) *ServiceError {
	return &ServiceError{Code: ErrCodeAuthenticationRequired, Message: message}
}

func authorizationError(message string) *ServiceError {
	return &ServiceError{Code: ErrCodeAccessDenied, Message: message}
}

func validationError(message string) *ServiceError {
	return &ServiceError{Code: ErrCodeValidationFailed, Message: message}
}

func notFoundError(message string) *ServiceError {
	return &ServiceError{Code: ErrCodeNotFound, Message: message}
}

func storageError(message string, err error) *ServiceError {
	return &ServiceError{Code: ErrCodeStorageFailure, Message: message, Err: err}
}

func cryptoError(message string, err error) *ServiceError {
	return &ServiceError{Code: ErrCodeCryptoFailure, Message: message, Err: err}
}
