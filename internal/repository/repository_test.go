package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestLikePattern(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"fönster", "%fönster%"},
		{"50%", `%50\%%`},
		{"a_b", `%a\_b%`},
		{`c:\x`, `%c:\\x%`},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := likePattern(tt.in); got != tt.want {
				t.Errorf("likePattern(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestMapWriteError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"unique", &pgconn.PgError{Code: pgUniqueViolation}, ErrDuplicate},
		{"foreign key", fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: pgForeignKeyViolation}), ErrInvalidReference},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mapWriteError(tt.err, "op"); !errors.Is(got, tt.want) {
				t.Errorf("mapWriteError() = %v, want %v", got, tt.want)
			}
		})
	}

	plain := errors.New("connection reset")
	if got := mapWriteError(plain, "op"); !errors.Is(got, plain) {
		t.Errorf("mapWriteError should wrap unknown errors, got %v", got)
	}
}
