package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
)

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		constraint string
		want       bool
	}{
		{
			name: "unique_violation_matching_constraint",
			err: &pq.Error{
				Code:       "23505",
				Constraint: "users_username_key",
			},
			constraint: "users_username_key",
			want:       true,
		},
		{
			name: "unique_violation_any_constraint",
			err: &pq.Error{
				Code:       "23505",
				Constraint: "sessions_token_key",
			},
			constraint: "",
			want:       true,
		},
		{
			name: "unique_violation_different_constraint",
			err: &pq.Error{
				Code:       "23505",
				Constraint: "sessions_token_key",
			},
			constraint: "users_username_key",
			want:       false,
		},
		{
			name: "foreign_key_violation",
			err: &pq.Error{
				Code:       "23503",
				Constraint: "users_username_key",
			},
			constraint: "users_username_key",
			want:       false,
		},
		{
			name:       "not_pq_error",
			err:        errors.New("some other error"),
			constraint: "users_username_key",
			want:       false,
		},
		{
			name:       "nil_error",
			err:        nil,
			constraint: "users_username_key",
			want:       false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsUniqueViolation(tt.err, tt.constraint)
			if got != tt.want {
				t.Errorf("IsUniqueViolation() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsUniqueViolation_WrappedError(t *testing.T) {
	baseErr := &pq.Error{
		Code:       "23505",
		Constraint: "users_username_key",
	}

	wrapped := fmt.Errorf("failed to insert: %w", baseErr)
	if !IsUniqueViolation(wrapped, "users_username_key") {
		t.Error("expected true for %w-wrapped pq.Error")
	}

	concatenated := errors.New("failed to insert: " + baseErr.Error())
	if IsUniqueViolation(concatenated, "users_username_key") {
		t.Error("expected false for string-concatenated error")
	}
}
