// Package ingest loads the identifiers a run should look up.
package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rshade/scorelookup/internal/engine"
	"github.com/rshade/scorelookup/internal/logging"
)

// ErrSourceUnavailable indicates the input could not be opened or read.
// A missing input file is a configuration error, never an empty input.
var ErrSourceUnavailable = errors.New("input source unavailable")

// LoadInput reads the identifier set from a CSV file with no header row.
// The first field of every record is an identifier; duplicates collapse and
// records with a blank first field are ignored.
func LoadInput(path string) (engine.IdentifierSet, error) {
	return LoadInputWithContext(context.Background(), path)
}

// LoadInputWithContext reads the identifier set with logging context.
func LoadInputWithContext(ctx context.Context, path string) (engine.IdentifierSet, error) {
	log := logging.FromContext(ctx)
	log.Debug().
		Str("component", "ingest").
		Str("operation", "load_input").
		Str("input_path", path).
		Msg("loading input identifiers")

	//nolint:gosec // Input path comes from operator configuration.
	f, err := os.Open(path)
	if err != nil {
		log.Error().
			Str("component", "ingest").
			Err(err).
			Str("input_path", path).
			Msg("failed to open input")
		return nil, fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, path, err)
	}
	defer f.Close()

	ids, skipped, err := ReadIdentifiers(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, path, err)
	}

	log.Debug().
		Str("component", "ingest").
		Int("identifier_count", ids.Len()).
		Int("skipped_records", skipped).
		Msg("input loaded")

	return ids, nil
}

// ReadIdentifiers collects first-field identifiers from CSV data. Records
// the CSV parser rejects are skipped and counted; read failures abort.
func ReadIdentifiers(ctx context.Context, r io.Reader) (engine.IdentifierSet, int, error) {
	log := logging.FromContext(ctx)

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	ids := make(engine.IdentifierSet)
	skipped := 0
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) && len(record) == 0 {
			break
		}

		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			skipped++
			log.Warn().
				Str("component", "ingest").
				Int("line", parseErr.StartLine).
				Err(err).
				Msg("skipping unparseable input record")
			continue
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, skipped, fmt.Errorf("reading input: %w", err)
		}

		if id := record[0]; strings.TrimSpace(id) != "" {
			ids.Add(id)
		} else {
			skipped++
		}

		if err != nil {
			break
		}
	}

	return ids, skipped, nil
}
