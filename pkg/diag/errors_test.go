package diag

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInClass(t *testing.T) {
	t.Run("fills malformed context through wrapping", func(t *testing.T) {
		base := Malformed("[[", "unbalanced array prefix")
		err := InClass(fmt.Errorf("decoding: %w", base), "app/Main", "run")

		var mal *MalformedInputError
		require.True(t, errors.As(err, &mal))
		assert.Equal(t, "app/Main", mal.Class)
		assert.Equal(t, "run", mal.Member)
		assert.Contains(t, err.Error(), "in app/Main.run")
	})

	t.Run("keeps existing context", func(t *testing.T) {
		err := InClass(&UnresolvedReferenceError{Class: "a/B", Member: "value", Reference: "a/Missing"}, "x/Y", "z")

		var unres *UnresolvedReferenceError
		require.True(t, errors.As(err, &unres))
		assert.Equal(t, "a/B", unres.Class)
		assert.Equal(t, "value", unres.Member)
	})

	t.Run("region violation names method end", func(t *testing.T) {
		err := InClass(&RegionInvariantViolation{Depth: 1, Base: 0}, "a/B", "f")
		assert.Equal(t, "unbalanced exception regions in a/B.f: depth 1 at method end, base 0", err.Error())
	})
}

func TestIsWarning(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"missing body", &MissingBodyWarning{File: "a/B.java", Method: "f"}, true},
		{"wrapped missing body", fmt.Errorf("glue: %w", &MissingBodyWarning{Method: "f"}), true},
		{"malformed", Malformed("Q", "unknown primitive"), false},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsWarning(tt.err))
		})
	}
}
