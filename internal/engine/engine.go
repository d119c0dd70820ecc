package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rshade/scorelookup/internal/engine/batch"
	"github.com/rshade/scorelookup/internal/logging"
)

// ErrNilLookup and ErrNilStore reject an Engine without collaborators.
var (
	ErrNilLookup = errors.New("lookup cannot be nil")
	ErrNilStore  = errors.New("record store cannot be nil")
)

// ErrInvalidScore is returned when a lookup reports a score that cannot be
// recorded: negative, NaN or infinite.
var ErrInvalidScore = errors.New("invalid score")

// InputLoader loads the identifiers requested for lookup.
type InputLoader func(ctx context.Context) (IdentifierSet, error)

// Options configures an Engine.
type Options struct {
	// MaxBatch caps the number of lookups in one run.
	MaxBatch int

	// Delay is the pause between consecutive lookups.
	Delay time.Duration

	// Sleep replaces the pause implementation; nil uses a real timer.
	Sleep batch.SleepFunc
}

// Engine drives one resumable batch of score lookups.
type Engine struct {
	lookup Lookup
	store  RecordStore
	opts   Options
}

// New creates an Engine.
func New(lookup Lookup, store RecordStore, opts Options) (*Engine, error) {
	if lookup == nil {
		return nil, ErrNilLookup
	}
	if store == nil {
		return nil, ErrNilStore
	}
	if err := batch.Validate(opts.MaxBatch, opts.Delay); err != nil {
		return nil, err
	}
	return &Engine{lookup: lookup, store: store, opts: opts}, nil
}

// Result summarises a run.
type Result struct {
	// InputCount is the size of the input set.
	InputCount int
	// RecordedCount is the number of identifiers recorded before the run.
	RecordedCount int
	// OutstandingCount is the size of input minus progress before truncation.
	OutstandingCount int
	// Pending is the queue this run worked on, in processing order.
	Pending []Identifier
	// Attempted counts lookups that produced a record.
	Attempted int
	// Found and NotFound split Attempted by outcome.
	Found    int
	NotFound int
	// Duration is the wall time spent in the lookup loop.
	Duration time.Duration
}

// NothingToDo reports whether the run found no pending identifiers.
func (r *Result) NothingToDo() bool {
	return len(r.Pending) == 0
}

// Remaining is how many identifiers are still outstanding after the run.
func (r *Result) Remaining() int {
	return r.OutstandingCount - r.Attempted
}

// Pending returns (input - progress) in lexical order, truncated to maxBatch
// entries. maxBatch <= 0 means no truncation.
func Pending(input, progress IdentifierSet, maxBatch int) []Identifier {
	out := make([]Identifier, 0, len(input))
	for _, id := range input.Sorted() {
		if progress.Contains(id) {
			continue
		}
		out = append(out, id)
	}
	if maxBatch > 0 && len(out) > maxBatch {
		out = out[:maxBatch]
	}
	return out
}

// Load reads the input and the recorded progress concurrently.
func (e *Engine) Load(ctx context.Context, loadInput InputLoader) (IdentifierSet, IdentifierSet, error) {
	var input, progress IdentifierSet

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		input, err = loadInput(gCtx)
		return err
	})
	g.Go(func() error {
		var err error
		progress, err = e.store.LoadProgress(gCtx)
		if err != nil {
			return fmt.Errorf("loading progress: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return input, progress, nil
}

// Plan computes what a run over input and progress would do, without
// performing any lookup.
func (e *Engine) Plan(input, progress IdentifierSet) *Result {
	outstanding := Pending(input, progress, 0)
	pending := outstanding
	if len(pending) > e.opts.MaxBatch {
		pending = pending[:e.opts.MaxBatch]
	}
	return &Result{
		InputCount:       input.Len(),
		RecordedCount:    progress.Len(),
		OutstandingCount: len(outstanding),
		Pending:          pending,
	}
}

// Run loads input and progress, then processes the pending queue.
func (e *Engine) Run(ctx context.Context, loadInput InputLoader) (*Result, error) {
	input, progress, err := e.Load(ctx, loadInput)
	if err != nil {
		return nil, err
	}
	return e.Process(ctx, input, progress)
}

// Process looks up every pending identifier in order and appends one record
// per lookup. An unexpected status or a failed lookup aborts the run; the
// records appended before the failure stay on disk. The output is not opened
// until there is a record to append.
func (e *Engine) Process(ctx context.Context, input, progress IdentifierSet) (*Result, error) {
	log := logging.FromContext(ctx)

	result := e.Plan(input, progress)

	if result.NothingToDo() {
		log.Info().
			Ctx(ctx).
			Str("component", "engine").
			Int("input_count", result.InputCount).
			Int("recorded_count", result.RecordedCount).
			Msg("no more identifiers to look up")
		return result, nil
	}

	proc, err := batch.NewProcessor[Identifier](e.opts.MaxBatch, e.opts.Delay)
	if err != nil {
		return nil, err
	}
	proc.WithSleep(e.opts.Sleep)

	log.Info().
		Ctx(ctx).
		Str("component", "engine").
		Int("pending", len(result.Pending)).
		Int("outstanding", result.OutstandingCount).
		Int("max_batch", proc.GetMaxItems()).
		Dur("delay", proc.GetDelay()).
		Msg("starting lookups")

	// The output is opened on the first record so a run that fails before
	// recording anything leaves it untouched.
	var appender RecordAppender

	proc.WithProgressCallback(func(p *batch.Progress) {
		snap := p.Snapshot()
		log.Debug().
			Ctx(ctx).
			Str("component", "engine").
			Int("processed", snap.ProcessedItems).
			Int("total", snap.TotalItems).
			Float64("percent", snap.PercentComplete).
			Float64("items_per_second", snap.ItemsPerSecond).
			Dur("elapsed", snap.ElapsedTime).
			Dur("estimated_remaining", p.EstimatedTimeRemaining()).
			Msg("progress")
	})

	start := time.Now()
	_, procErr := proc.Process(ctx, result.Pending, func(ctx context.Context, id Identifier, _ int) error {
		kind, score, lookupErr := e.lookupOne(ctx, id)
		if lookupErr != nil {
			return lookupErr
		}
		if appender == nil {
			opened, openErr := e.store.OpenAppender(ctx)
			if openErr != nil {
				return fmt.Errorf("opening output: %w", openErr)
			}
			appender = opened
		}
		if appendErr := appender.Append(id, score); appendErr != nil {
			return fmt.Errorf("recording %q: %w", id, appendErr)
		}
		result.Attempted++
		if kind == OutcomeNotFound {
			result.NotFound++
		} else {
			result.Found++
		}
		return nil
	})
	result.Duration = time.Since(start)

	var closeErr error
	if appender != nil {
		closeErr = appender.Close()
	}
	if procErr != nil {
		log.Error().
			Ctx(ctx).
			Str("component", "engine").
			Err(procErr).
			Int("recorded_this_run", result.Attempted).
			Msg("run aborted, recorded lookups are kept")
		return result, errors.Join(procErr, closeErr)
	}
	if closeErr != nil {
		return result, fmt.Errorf("closing output: %w", closeErr)
	}

	log.Info().
		Ctx(ctx).
		Str("component", "engine").
		Int("attempted", result.Attempted).
		Int("found", result.Found).
		Int("not_found", result.NotFound).
		Int("remaining", result.Remaining()).
		Dur("duration", result.Duration).
		Msg("run complete")

	return result, nil
}

// lookupOne performs one lookup and maps its outcome to the recorded score.
func (e *Engine) lookupOne(ctx context.Context, id Identifier) (OutcomeKind, float64, error) {
	logging.FromContext(ctx).Info().
		Ctx(ctx).
		Str("component", "engine").
		Str("identifier", id).
		Msg("looking up identifier")

	outcome, err := e.lookup.Score(ctx, id)
	if err != nil {
		return outcome.Kind, 0, fmt.Errorf("looking up %q: %w", id, err)
	}

	switch outcome.Kind {
	case OutcomeFound:
		if !validScore(outcome.Score) {
			return outcome.Kind, 0, fmt.Errorf("looking up %q: %w %v", id, ErrInvalidScore, outcome.Score)
		}
		return outcome.Kind, outcome.Score, nil
	case OutcomeNotFound:
		return outcome.Kind, NoScore, nil
	case OutcomeUnexpectedStatus:
		return outcome.Kind, 0, &UnexpectedStatusError{Identifier: id, Code: outcome.Status}
	default:
		return outcome.Kind, 0, fmt.Errorf("looking up %q: unknown outcome %s", id, outcome.Kind)
	}
}

// validScore reports whether a found score is finite and non-negative.
func validScore(score float64) bool {
	return score >= 0 && !math.IsInf(score, 1)
}
