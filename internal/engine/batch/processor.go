package batch

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Default batch processing configuration.
const (
	// DefaultMaxItems is the default number of items processed per run.
	DefaultMaxItems = 10000

	// MinMaxItems is the smallest allowed per-run cap.
	MinMaxItems = 1
)

// Common batch processing errors.
var (
	ErrInvalidMaxItems = errors.New("max items must be at least 1")
	ErrNegativeDelay   = errors.New("delay cannot be negative")
	ErrNilCallback     = errors.New("item callback cannot be nil")
	ErrEmptyItems      = errors.New("items slice cannot be empty")
)

// ItemCallback processes a single item. index is the 0-based position of the
// item within the (already truncated) run.
type ItemCallback[T any] func(ctx context.Context, item T, index int) error

// ProgressCallback is an optional callback invoked after each item is processed.
type ProgressCallback func(progress *Progress)

// SleepFunc pauses between items. It must return early with ctx.Err() when
// ctx is cancelled.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Processor runs a callback over items one at a time, capping how many items
// a single run may touch and pausing for a fixed delay between items.
type Processor[T any] struct {
	// maxItems caps the number of items one call to Process handles.
	maxItems int

	// delay is the pause between consecutive items.
	delay time.Duration

	// sleep implements the pause; replaced in tests.
	sleep SleepFunc

	// onProgress is an optional callback for progress updates.
	onProgress ProgressCallback
}

// Validate checks a per-run cap and delay.
func Validate(maxItems int, delay time.Duration) error {
	if maxItems < MinMaxItems {
		return fmt.Errorf("%w: got %d", ErrInvalidMaxItems, maxItems)
	}
	if delay < 0 {
		return fmt.Errorf("%w: got %s", ErrNegativeDelay, delay)
	}
	return nil
}

// NewProcessor creates a processor that handles at most maxItems per run and
// waits delay between items.
func NewProcessor[T any](maxItems int, delay time.Duration) (*Processor[T], error) {
	if err := Validate(maxItems, delay); err != nil {
		return nil, err
	}

	return &Processor[T]{
		maxItems: maxItems,
		delay:    delay,
		sleep:    Sleep,
	}, nil
}

// WithProgressCallback sets a progress callback for the processor.
func (p *Processor[T]) WithProgressCallback(callback ProgressCallback) *Processor[T] {
	p.onProgress = callback
	return p
}

// WithSleep replaces the function used to pause between items.
func (p *Processor[T]) WithSleep(sleep SleepFunc) *Processor[T] {
	if sleep != nil {
		p.sleep = sleep
	}
	return p
}

// Take returns the prefix of items that a single run processes.
func (p *Processor[T]) Take(items []T) []T {
	if len(items) > p.maxItems {
		return items[:p.maxItems]
	}
	return items
}

// Process runs callback over the first maxItems items in order. It stops at
// the first error and returns how many items completed successfully.
func (p *Processor[T]) Process(ctx context.Context, items []T, callback ItemCallback[T]) (int, error) {
	if len(items) == 0 {
		return 0, ErrEmptyItems
	}

	if callback == nil {
		return 0, ErrNilCallback
	}

	items = p.Take(items)
	progress := NewProgress(len(items))

	for index, item := range items {
		select {
		case <-ctx.Done():
			return index, ctx.Err()
		default:
		}

		if err := callback(ctx, item, index); err != nil {
			return index, fmt.Errorf("item %d failed: %w", index, err)
		}

		progress.AddProcessed(1)
		if p.onProgress != nil {
			p.onProgress(progress)
		}

		if index < len(items)-1 && p.delay > 0 {
			if err := p.sleep(ctx, p.delay); err != nil {
				return index + 1, err
			}
		}
	}

	return len(items), nil
}

// GetMaxItems returns the configured per-run cap.
func (p *Processor[T]) GetMaxItems() int {
	return p.maxItems
}

// GetDelay returns the configured pause between items.
func (p *Processor[T]) GetDelay() time.Duration {
	return p.delay
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
