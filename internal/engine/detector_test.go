package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiffMembership(t *testing.T) {
	tests := []struct {
		name        string
		previous    []string
		current     []string
		wantEntered []string
		wantExited  []string
	}{
		{
			name: "both empty",
		},
		{
			name:        "first entry",
			current:     []string{"a"},
			wantEntered: []string{"a"},
		},
		{
			name:       "full exit",
			previous:   []string{"a"},
			wantExited: []string{"a"},
		},
		{
			name:     "no change",
			previous: []string{"a", "b"},
			current:  []string{"a", "b"},
		},
		{
			name:     "no change different order",
			previous: []string{"a", "b"},
			current:  []string{"b", "a"},
		},
		{
			name:        "swap one",
			previous:    []string{"a", "b"},
			current:     []string{"b", "c"},
			wantEntered: []string{"c"},
			wantExited:  []string{"a"},
		},
		{
			name:        "disjoint",
			previous:    []string{"a", "b"},
			current:     []string{"c", "d"},
			wantEntered: []string{"c", "d"},
			wantExited:  []string{"a", "b"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entered, exited := diffMembership(tt.previous, tt.current)
			assert.Equal(t, tt.wantEntered, entered)
			assert.Equal(t, tt.wantExited, exited)
		})
	}
}
