package errors

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/lib/pq"

	"github.com/dl-alexandre/medialib/internal/tracker/status"
	"github.com/dl-alexandre/medialib/internal/utils"
)

func TestClassifyTrackerError(t *testing.T) {
	_, statErr := os.Stat("/definitely/not/here")
	tests := []struct {
		name      string
		err       error
		code      string
		retryable bool
	}{
		{"cancelled", fmt.Errorf("sweep: %w", context.Canceled), utils.ErrCodeCancelled, false},
		{"not found", fmt.Errorf("collection x: %w", status.ErrNotFound), utils.ErrCodeNotFound, false},
		{"invalid path", fmt.Errorf("%w: ../x", status.ErrInvalidPath), utils.ErrCodeInvalidPath, false},
		{"invalid url", status.ErrInvalidURL, utils.ErrCodeInvalidURL, false},
		{"conflict", fmt.Errorf("update: %w", status.ErrStorageConflict), utils.ErrCodeStorageConflict, true},
		{"missing root", fmt.Errorf("collection root: %w", statErr), utils.ErrCodeRootUnavailable, false},
		{"postgres serialization", &pq.Error{Code: "40001", Message: "could not serialize access"}, utils.ErrCodeStorageError, true},
		{"postgres syntax", &pq.Error{Code: "42601", Message: "syntax error"}, utils.ErrCodeStorageError, false},
		{"other", fmt.Errorf("boom"), utils.ErrCodeInternalError, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyTrackerError("sweep", tt.err, nil)
			if got.CLIError.Code != tt.code {
				t.Errorf("code = %s, want %s", got.CLIError.Code, tt.code)
			}
			if got.CLIError.Retryable != tt.retryable {
				t.Errorf("retryable = %v, want %v", got.CLIError.Retryable, tt.retryable)
			}
		})
	}
}

func TestClassifyPassesAppErrorThrough(t *testing.T) {
	original := CollectionNotFound("abc")
	got := ClassifyTrackerError("status", fmt.Errorf("wrapped: %w", original), nil)
	if got != original {
		t.Fatalf("expected the original AppError, got %+v", got)
	}
	if got.CLIError.Code != utils.ErrCodeCollectionNotFound {
		t.Errorf("code = %s", got.CLIError.Code)
	}
}
