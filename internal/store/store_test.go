package store

import (
	"errors"
	"fmt"
	"testing"
)

func TestValidationErrorMatchesSentinel(t *testing.T) {
	err := fmt.Errorf("adjust balance: %w", NewValidationError("currency_code", "is required"))

	if !errors.Is(err, ErrValidation) {
		t.Fatalf("Expected errors.Is(err, ErrValidation), got false for %v", err)
	}

	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("Expected errors.As to find *ValidationError")
	}
	if ve.Field != "currency_code" {
		t.Errorf("Expected field currency_code, got %s", ve.Field)
	}
	if errors.Is(err, ErrStorageFailure) {
		t.Errorf("Validation error must not match ErrStorageFailure")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"conflict", fmt.Errorf("update: %w", ErrConcurrentModification), true},
		{"storage", fmt.Errorf("%w: disk I/O error", ErrStorageFailure), true},
		{"insufficient funds", ErrInsufficientFunds, false},
		{"validation", NewValidationError("delta", "must be non-zero"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
