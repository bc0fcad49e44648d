package resilience

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "plain error", err: errors.New("boom"), want: false},
		{name: "explicit transient", err: NewTransientError(errors.New("boom")), want: true},
		{name: "wrapped transient", err: fmt.Errorf("write: %w", NewTransientError(errors.New("boom"))), want: true},
		{name: "sqlite busy", err: errors.New("step: database is locked"), want: true},
		{name: "pg startup", err: errors.New("FATAL: the database system is starting up"), want: true},
		{name: "io timeout", err: errors.New("read tcp: i/o timeout"), want: true},
		{name: "constraint violation", err: errors.New("UNIQUE constraint failed"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestTransientErrorUnwrap(t *testing.T) {
	inner := errors.New("inner")
	te := NewTransientError(inner)
	assert.ErrorIs(t, te, inner)
	assert.Equal(t, "inner", te.Error())
}
