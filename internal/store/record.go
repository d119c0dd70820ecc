package store

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rshade/scorelookup/internal/engine"
)

// recordFields is the number of fields in a score record: identifier, score.
const recordFields = 2

// NoScore is the score written when the service has no score for an identifier.
const NoScore = engine.NoScore

// ErrMalformedRecord marks an output line that is not a valid score record.
var ErrMalformedRecord = errors.New("malformed score record")

// ScoreRecord is one line of the durable output.
type ScoreRecord struct {
	Identifier engine.Identifier
	Score      float64
}

// HasScore reports whether the service returned a score for the identifier.
func (r ScoreRecord) HasScore() bool {
	return r.Score != NoScore
}

// Fields returns the CSV fields for the record.
func (r ScoreRecord) Fields() []string {
	return []string{r.Identifier, FormatScore(r.Score)}
}

// FormatScore renders a score with the shortest exact decimal form, so 42
// is written as "42" and the sentinel as "-1".
func FormatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64)
}

// ParseRecord converts CSV fields into a ScoreRecord.
func ParseRecord(fields []string) (ScoreRecord, error) {
	if len(fields) != recordFields {
		return ScoreRecord{}, fmt.Errorf("%w: want %d fields, got %d", ErrMalformedRecord, recordFields, len(fields))
	}

	id := fields[0]
	if strings.TrimSpace(id) == "" {
		return ScoreRecord{}, fmt.Errorf("%w: empty identifier", ErrMalformedRecord)
	}

	score, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
	if err != nil {
		return ScoreRecord{}, fmt.Errorf("%w: score %q: %w", ErrMalformedRecord, fields[1], err)
	}
	if score < 0 && score != NoScore {
		return ScoreRecord{}, fmt.Errorf("%w: negative score %s", ErrMalformedRecord, fields[1])
	}

	return ScoreRecord{Identifier: id, Score: score}, nil
}
