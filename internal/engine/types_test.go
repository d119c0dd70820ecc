package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentifierSet(t *testing.T) {
	s := NewIdentifierSet("u2", "u1", "u2", "u3")

	assert.Equal(t, 3, s.Len())
	assert.True(t, s.Contains("u1"))
	assert.False(t, s.Contains("u4"))
	assert.Equal(t, []Identifier{"u1", "u2", "u3"}, s.Sorted())
}

func TestIdentifierSet_SortedEmpty(t *testing.T) {
	var s IdentifierSet

	got := s.Sorted()

	require.NotNil(t, got)
	assert.Empty(t, got)
	assert.False(t, s.Contains("u1"))
	assert.Zero(t, s.Len())
}

func TestOutcomeConstructors(t *testing.T) {
	tests := []struct {
		name    string
		outcome Outcome
		kind    OutcomeKind
		score   float64
		status  int
	}{
		{"found", Found(42), OutcomeFound, 42, 0},
		{"found zero", Found(0), OutcomeFound, 0, 0},
		{"not found", NotFound(), OutcomeNotFound, 0, 0},
		{"unexpected", UnexpectedStatus(99), OutcomeUnexpectedStatus, 0, 99},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, tt.outcome.Kind)
			assert.InDelta(t, tt.score, tt.outcome.Score, 0)
			assert.Equal(t, tt.status, tt.outcome.Status)
		})
	}
}

func TestOutcomeKind_String(t *testing.T) {
	assert.Equal(t, "found", OutcomeFound.String())
	assert.Equal(t, "not_found", OutcomeNotFound.String())
	assert.Equal(t, "unexpected_status", OutcomeUnexpectedStatus.String())
	assert.Equal(t, "OutcomeKind(7)", OutcomeKind(7).String())
}

func TestLookupFunc(t *testing.T) {
	var seen Identifier
	l := LookupFunc(func(_ context.Context, id Identifier) (Outcome, error) {
		seen = id
		return Found(0.5), nil
	})

	got, err := l.Score(context.Background(), "u9")

	require.NoError(t, err)
	assert.Equal(t, Found(0.5), got)
	assert.Equal(t, "u9", seen)
}

func TestUnexpectedStatusError(t *testing.T) {
	err := fmt.Errorf("item 0 failed: %w", &UnexpectedStatusError{Identifier: "u1", Code: 99})

	require.ErrorIs(t, err, ErrUnexpectedStatus)

	var statusErr *UnexpectedStatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, 99, statusErr.Code)
	assert.Equal(t, "u1", statusErr.Identifier)
	assert.Contains(t, err.Error(), `unexpected lookup status 99 for identifier "u1"`)
}
