package utils

import (
	"fmt"

	"github.com/dl-alexandre/medialib/internal/types"
)

// Exit codes
const (
	ExitSuccess = 0
	// Collection errors (20-29)
	ExitCollectionNotFound = 20
	ExitPermissionDenied   = 21
	ExitRootUnavailable    = 22
	// Storage errors (30-39)
	ExitStorageError    = 30
	ExitStorageConflict = 31
	// Validation errors (40-49)
	ExitInvalidArgument = 40
	ExitInvalidPath     = 41
	ExitInvalidURL      = 42
	ExitInvalidConfig   = 43
	// Cancellation
	ExitCancelled = 130
	// Unknown
	ExitUnknown = 99
)

// Error codes (tool-owned, stable)
const (
	ErrCodeCollectionNotFound = "COLLECTION_NOT_FOUND"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodePermissionDenied   = "PERMISSION_DENIED"
	ErrCodeRootUnavailable    = "ROOT_UNAVAILABLE"
	ErrCodeStorageError       = "STORAGE_ERROR"
	ErrCodeStorageConflict    = "STORAGE_CONFLICT"
	ErrCodeInvalidArgument    = "INVALID_ARGUMENT"
	ErrCodeInvalidPath        = "INVALID_PATH"
	ErrCodeInvalidURL         = "INVALID_URL"
	ErrCodeInvalidConfig      = "INVALID_CONFIG"
	ErrCodeCancelled          = "CANCELLED"
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeUnknown            = "UNKNOWN"
)

// CLIErrorBuilder helps construct CLIError instances
type CLIErrorBuilder struct {
	err types.CLIError
}

// NewCLIError creates a new error builder
func NewCLIError(code, message string) *CLIErrorBuilder {
	return &CLIErrorBuilder{
		err: types.CLIError{
			Code:    code,
			Message: message,
		},
	}
}

func (b *CLIErrorBuilder) WithRetryable(retryable bool) *CLIErrorBuilder {
	b.err.Retryable = retryable
	return b
}

func (b *CLIErrorBuilder) WithContext(key string, value interface{}) *CLIErrorBuilder {
	if b.err.Context == nil {
		b.err.Context = make(map[string]interface{})
	}
	b.err.Context[key] = value
	return b
}

func (b *CLIErrorBuilder) Build() types.CLIError {
	return b.err
}

// GetExitCode returns the exit code for an error code
func GetExitCode(errorCode string) int {
	mapping := map[string]int{
		ErrCodeCollectionNotFound: ExitCollectionNotFound,
		ErrCodeNotFound:           ExitCollectionNotFound,
		ErrCodePermissionDenied:   ExitPermissionDenied,
		ErrCodeRootUnavailable:    ExitRootUnavailable,
		ErrCodeStorageError:       ExitStorageError,
		ErrCodeStorageConflict:    ExitStorageConflict,
		ErrCodeInvalidArgument:    ExitInvalidArgument,
		ErrCodeInvalidPath:        ExitInvalidPath,
		ErrCodeInvalidURL:         ExitInvalidURL,
		ErrCodeInvalidConfig:      ExitInvalidConfig,
		ErrCodeCancelled:          ExitCancelled,
	}
	if code, ok := mapping[errorCode]; ok {
		return code
	}
	return ExitUnknown
}

// AppError is a custom error type that carries CLI error info
type AppError struct {
	CLIError types.CLIError
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.CLIError.Code, e.CLIError.Message)
}

// NewAppError creates an AppError from a CLIError
func NewAppError(cliErr types.CLIError) *AppError {
	return &AppError{CLIError: cliErr}
}
