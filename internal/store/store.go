package store

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rshade/scorelookup/internal/engine"
	"github.com/rshade/scorelookup/internal/logging"
)

// outputFileMode is the permission used when the output file is created.
const outputFileMode = 0o644

// tailChunkSize is how much of the file is read at a time when looking for
// the end of the last complete line.
const tailChunkSize = 4096

// ErrEmptyPath is returned when the store is created without a path.
var ErrEmptyPath = errors.New("output path cannot be empty")

// FileStore is the append-only CSV file holding score records. It is both
// the result of a run and the progress marker for the next one.
//
// At most one process may write a given file at a time; this is not enforced.
type FileStore struct {
	path string
}

var _ engine.RecordStore = (*FileStore)(nil)

// NewFileStore creates a store backed by path. The file is not touched until
// it is read or opened for appending.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	return &FileStore{path: path}, nil
}

// Path returns the output file path.
func (s *FileStore) Path() string {
	return s.path
}

// ReadResult holds what was read from the output.
type ReadResult struct {
	// Records are the complete records with a valid score.
	Records []ScoreRecord

	// Unscored are identifiers of complete records whose score field does
	// not parse. They still count as recorded.
	Unscored []engine.Identifier

	// Skipped counts lines that yield no identifier: a torn trailing record,
	// a blank identifier or a line the CSV reader rejects.
	Skipped int
}

// Identifiers returns every identifier recorded in the output.
func (r *ReadResult) Identifiers() engine.IdentifierSet {
	ids := make(engine.IdentifierSet, len(r.Records)+len(r.Unscored))
	for _, rec := range r.Records {
		ids.Add(rec.Identifier)
	}
	for _, id := range r.Unscored {
		ids.Add(id)
	}
	return ids
}

// ReadRecords reads every record from the output. A missing file yields an
// empty result. A final record torn by an interrupted write (no trailing
// newline) is skipped. A complete record whose score does not parse keeps its
// identifier in Unscored, so it is never looked up again.
func (s *FileStore) ReadRecords(ctx context.Context) (*ReadResult, error) {
	log := logging.FromContext(ctx)
	result := &ReadResult{}

	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Debug().
				Str("component", "store").
				Str("output_path", s.path).
				Msg("output does not exist yet, no progress recorded")
			return result, nil
		}
		return nil, fmt.Errorf("opening output %s: %w", s.path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat output %s: %w", s.path, err)
	}
	size := info.Size()

	terminated, err := endsWithNewline(f, size)
	if err != nil {
		return nil, fmt.Errorf("inspecting output %s: %w", s.path, err)
	}

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	for {
		fields, readErr := r.Read()
		atEOF := errors.Is(readErr, io.EOF)
		if atEOF && len(fields) == 0 {
			break
		}

		var parseErr *csv.ParseError
		if errors.As(readErr, &parseErr) {
			result.Skipped++
			log.Warn().
				Str("component", "store").
				Str("output_path", s.path).
				Int("line", parseErr.StartLine).
				Err(readErr).
				Msg("skipping unparseable output record")
			continue
		}
		if readErr != nil && !atEOF {
			return nil, fmt.Errorf("reading output %s: %w", s.path, readErr)
		}
		offset := r.InputOffset()

		switch rec, recErr := ParseRecord(fields); {
		case !terminated && offset >= size:
			result.Skipped++
			log.Warn().
				Str("component", "store").
				Str("output_path", s.path).
				Int64("offset", offset).
				Msg("skipping torn trailing record left by an interrupted run")
		case recErr == nil:
			result.Records = append(result.Records, rec)
		case strings.TrimSpace(fields[0]) != "":
			result.Unscored = append(result.Unscored, fields[0])
			log.Warn().
				Str("component", "store").
				Str("output_path", s.path).
				Int64("offset", offset).
				Str("identifier", fields[0]).
				Err(recErr).
				Msg("output record has no valid score, keeping identifier as recorded")
		default:
			result.Skipped++
			log.Warn().
				Str("component", "store").
				Str("output_path", s.path).
				Int64("offset", offset).
				Msg("skipping output record without identifier")
		}

		if atEOF {
			break
		}
	}

	return result, nil
}

// LoadProgress returns the identifiers already recorded in the output.
func (s *FileStore) LoadProgress(ctx context.Context) (engine.IdentifierSet, error) {
	res, err := s.ReadRecords(ctx)
	if err != nil {
		return nil, err
	}

	progress := res.Identifiers()

	logging.FromContext(ctx).Debug().
		Str("component", "store").
		Str("output_path", s.path).
		Int("recorded", progress.Len()).
		Int("unscored", len(res.Unscored)).
		Int("skipped", res.Skipped).
		Msg("progress loaded")

	return progress, nil
}

// OpenAppender opens the output for appending, creating it if needed. A torn
// final line left by an interrupted write is cut off first, so the next
// record starts on a fresh line and the torn identifier is recorded once.
func (s *FileStore) OpenAppender(ctx context.Context) (engine.RecordAppender, error) {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("creating output directory: %w", err)
		}
	}

	//nolint:gosec // Output path comes from operator configuration.
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_RDWR, outputFileMode)
	if err != nil {
		return nil, fmt.Errorf("opening output %s for append: %w", s.path, err)
	}

	if repairErr := repairTornTail(ctx, f, s.path); repairErr != nil {
		_ = f.Close()
		return nil, repairErr
	}

	return &Appender{file: f, w: csv.NewWriter(f)}, nil
}

// repairTornTail truncates the file back to its last newline when the final
// line is unterminated.
func repairTornTail(ctx context.Context, f *os.File, path string) error {
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat output %s: %w", path, err)
	}
	size := info.Size()

	terminated, err := endsWithNewline(f, size)
	if err != nil {
		return fmt.Errorf("inspecting output %s: %w", path, err)
	}
	if terminated {
		return nil
	}

	keep, err := lastLineEnd(f, size)
	if err != nil {
		return fmt.Errorf("inspecting output %s: %w", path, err)
	}

	logging.FromContext(ctx).Warn().
		Str("component", "store").
		Str("output_path", path).
		Int64("torn_bytes", size-keep).
		Msg("removing torn trailing record before appending")

	if err = f.Truncate(keep); err != nil {
		return fmt.Errorf("repairing output %s: %w", path, err)
	}
	return f.Sync()
}

// endsWithNewline reports whether the file is empty or its last byte is '\n'.
func endsWithNewline(f io.ReaderAt, size int64) (bool, error) {
	if size == 0 {
		return true, nil
	}
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, size-1); err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	return last[0] == '\n', nil
}

// lastLineEnd returns the offset just past the last '\n' in the first size
// bytes of f, or 0 when there is none.
func lastLineEnd(f io.ReaderAt, size int64) (int64, error) {
	buf := make([]byte, tailChunkSize)
	for end := size; end > 0; {
		start := max(end-tailChunkSize, 0)
		chunk := buf[:end-start]
		if _, err := f.ReadAt(chunk, start); err != nil && !errors.Is(err, io.EOF) {
			return 0, err
		}
		if i := bytes.LastIndexByte(chunk, '\n'); i >= 0 {
			return start + int64(i) + 1, nil
		}
		end = start
	}
	return 0, nil
}

// Appender writes score records to the output one at a time. Each record is
// flushed and synced before Append returns.
type Appender struct {
	file *os.File
	w    *csv.Writer
}

// Append writes one record and makes it durable.
func (a *Appender) Append(id engine.Identifier, score float64) error {
	if a.file == nil {
		return os.ErrClosed
	}

	if err := a.w.Write(ScoreRecord{Identifier: id, Score: score}.Fields()); err != nil {
		return fmt.Errorf("writing record for %q: %w", id, err)
	}
	a.w.Flush()
	if err := a.w.Error(); err != nil {
		return fmt.Errorf("flushing record for %q: %w", id, err)
	}
	if err := a.file.Sync(); err != nil {
		return fmt.Errorf("syncing record for %q: %w", id, err)
	}
	return nil
}

// Close flushes and closes the output. Calling Close twice is a no-op.
func (a *Appender) Close() error {
	if a.file == nil {
		return nil
	}

	a.w.Flush()
	flushErr := a.w.Error()
	syncErr := a.file.Sync()
	closeErr := a.file.Close()
	a.file = nil

	return errors.Join(flushErr, syncErr, closeErr)
}
