package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// Identifier is an opaque token naming the unit of lookup (a user ID).
type Identifier = string

// NoScore is the score recorded when the service has no score for an identifier.
const NoScore = -1.0

// IdentifierSet is a deduplicated, unordered set of identifiers.
type IdentifierSet map[Identifier]struct{}

// NewIdentifierSet returns a set holding ids.
func NewIdentifierSet(ids ...Identifier) IdentifierSet {
	s := make(IdentifierSet, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts id; duplicates collapse.
func (s IdentifierSet) Add(id Identifier) {
	s[id] = struct{}{}
}

// Contains reports whether id is in the set.
func (s IdentifierSet) Contains(id Identifier) bool {
	_, ok := s[id]
	return ok
}

// Len returns the number of identifiers in the set.
func (s IdentifierSet) Len() int {
	return len(s)
}

// Sorted returns the identifiers in lexical order.
func (s IdentifierSet) Sorted() []Identifier {
	out := make([]Identifier, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// OutcomeKind tags the result of a single lookup.
type OutcomeKind int

const (
	// OutcomeFound means the service returned a score.
	OutcomeFound OutcomeKind = iota
	// OutcomeNotFound means the service has no score for the identifier.
	OutcomeNotFound
	// OutcomeUnexpectedStatus means the service answered with an unrecognized status.
	OutcomeUnexpectedStatus
)

// String implements fmt.Stringer.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeFound:
		return "found"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeUnexpectedStatus:
		return "unexpected_status"
	default:
		return fmt.Sprintf("OutcomeKind(%d)", int(k))
	}
}

// Outcome is the tagged result of a lookup. Score is meaningful only for
// OutcomeFound and Status only for OutcomeUnexpectedStatus.
type Outcome struct {
	Kind   OutcomeKind
	Score  float64
	Status int
}

// Found builds a found outcome.
func Found(score float64) Outcome {
	return Outcome{Kind: OutcomeFound, Score: score}
}

// NotFound builds a not-found outcome.
func NotFound() Outcome {
	return Outcome{Kind: OutcomeNotFound}
}

// UnexpectedStatus builds an unexpected-status outcome.
func UnexpectedStatus(code int) Outcome {
	return Outcome{Kind: OutcomeUnexpectedStatus, Status: code}
}

// Lookup fetches the score of one identifier from the scoring service.
// A returned error means the call itself failed (network, decoding); service
// level statuses are reported through the Outcome.
type Lookup interface {
	Score(ctx context.Context, id Identifier) (Outcome, error)
}

// LookupFunc adapts a function to Lookup.
type LookupFunc func(ctx context.Context, id Identifier) (Outcome, error)

// Score implements Lookup.
func (f LookupFunc) Score(ctx context.Context, id Identifier) (Outcome, error) {
	return f(ctx, id)
}

// RecordAppender durably appends score records.
type RecordAppender interface {
	Append(id Identifier, score float64) error
	Close() error
}

// RecordStore is the durable output: it reports progress and opens appenders.
type RecordStore interface {
	LoadProgress(ctx context.Context) (IdentifierSet, error)
	OpenAppender(ctx context.Context) (RecordAppender, error)
}

// ErrUnexpectedStatus is matched by every UnexpectedStatusError.
var ErrUnexpectedStatus = errors.New("unexpected lookup status")

// UnexpectedStatusError aborts a run when the service answers with a status
// that is neither success nor not-found.
type UnexpectedStatusError struct {
	Identifier Identifier
	Code       int
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("unexpected lookup status %d for identifier %q", e.Code, e.Identifier)
}

// Is lets errors.Is match ErrUnexpectedStatus.
func (e *UnexpectedStatusError) Is(target error) bool {
	return target == ErrUnexpectedStatus
}
