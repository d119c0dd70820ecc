package cli

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/rshade/scorelookup/internal/config"
	"github.com/rshade/scorelookup/internal/engine"
	"github.com/rshade/scorelookup/internal/ingest"
	"github.com/rshade/scorelookup/internal/sift"
	"github.com/rshade/scorelookup/internal/store"
	"github.com/rshade/scorelookup/pkg/version"
)

// errDryRun is returned by the lookup used for --dry-run; it is never reached
// because a dry run only plans.
var errDryRun = errors.New("lookups are disabled in a dry run")

// runFlags holds the per-invocation overrides of the run command.
type runFlags struct {
	input    string
	output   string
	maxBatch int
	delay    string
	dryRun   bool
}

// newRunCmd creates the run command, which looks up the next batch of
// pending identifiers.
func newRunCmd(s *session) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Look up the next batch of pending identifiers",
		Long: `Looks up every identifier in the input that is not yet recorded in the
output, up to --max-batch identifiers, in sorted order. Each result is
appended to the output as soon as it arrives, so the command can be
interrupted and rerun at any time.

An unexpected status from the score API stops the run with exit code 3.
Records appended before the failure are kept.`,
		Example: `  # Process the next batch with defaults
  scorelookup run

  # Custom files, small batch, 50ms between requests
  scorelookup run --input users.csv --output scores.csv --max-batch 100 --delay 50ms

  # Preview the next batch without calling the API
  scorelookup run --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := applyRunFlags(cmd, s.cfg, flags); err != nil {
				return classify(err)
			}
			return classify(executeRun(cmd, s, flags.dryRun))
		},
	}

	cmd.Flags().StringVarP(&flags.input, "input", "i", "", "input CSV of identifiers (default from config)")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "output CSV of identifier,score records (default from config)")
	cmd.Flags().IntVar(&flags.maxBatch, "max-batch", 0, "maximum lookups in this run (default from config)")
	cmd.Flags().StringVar(&flags.delay, "delay", "", "pause between lookups, e.g. 50ms or 0.05 (seconds)")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "show what would be looked up without calling the API")

	return cmd
}

// applyRunFlags applies explicitly set flags on top of cfg.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config, flags runFlags) error {
	if cmd.Flags().Changed("input") {
		cfg.Input = flags.input
	}
	if cmd.Flags().Changed("output") {
		cfg.Output = flags.output
	}
	if cmd.Flags().Changed("max-batch") {
		cfg.Lookup.MaxBatch = flags.maxBatch
	}
	if cmd.Flags().Changed("delay") {
		d, err := config.ParseDelay(flags.delay)
		if err != nil {
			return errors.Join(config.ErrInvalid, err)
		}
		cfg.Lookup.RequestDelay = d
	}

	if flags.dryRun {
		return cfg.Validate()
	}
	return cfg.ValidateForLookup()
}

// executeRun wires the store, the client and the engine and performs the run.
func executeRun(cmd *cobra.Command, s *session, dryRun bool) error {
	ctx := cmd.Context()
	cfg := s.cfg

	fileStore, err := store.NewFileStore(cfg.Output)
	if err != nil {
		return errors.Join(config.ErrInvalid, err)
	}

	var lookup engine.Lookup = engine.LookupFunc(
		func(context.Context, engine.Identifier) (engine.Outcome, error) {
			return engine.Outcome{}, errDryRun
		},
	)
	if !dryRun {
		client, clientErr := sift.NewClient(cfg.SiftConfig(version.UserAgent()))
		if clientErr != nil {
			return errors.Join(config.ErrInvalid, clientErr)
		}
		lookup = client
	}

	eng, err := engine.New(lookup, fileStore, engine.Options{
		MaxBatch: cfg.Lookup.MaxBatch,
		Delay:    cfg.Lookup.RequestDelay,
	})
	if err != nil {
		return errors.Join(config.ErrInvalid, err)
	}

	loadInput := func(ctx context.Context) (engine.IdentifierSet, error) {
		return ingest.LoadInputWithContext(ctx, cfg.Input)
	}

	s.logger.Debug().
		Ctx(ctx).
		Str("input", cfg.Input).
		Str("output", cfg.Output).
		Int("max_batch", cfg.Lookup.MaxBatch).
		Dur("delay", cfg.Lookup.RequestDelay).
		Bool("dry_run", dryRun).
		Msg("run configured")

	if dryRun {
		input, progress, loadErr := eng.Load(ctx, loadInput)
		if loadErr != nil {
			return loadErr
		}
		renderDryRun(cmd.OutOrStdout(), eng.Plan(input, progress))
		return nil
	}

	result, err := eng.Run(ctx, loadInput)
	if result != nil {
		renderRunResult(cmd.OutOrStdout(), result)
	}
	return err
}

// renderDryRun prints the plan of a dry run.
func renderDryRun(w io.Writer, plan *engine.Result) {
	if plan.NothingToDo() {
		printer.Fprintln(w, nothingToDoMessage)
		return
	}
	printer.Fprintf(w, "Would look up %d of %d outstanding identifiers\n",
		len(plan.Pending), plan.OutstandingCount)
	printer.Fprintf(w, "First: %s\n", plan.Pending[0])
	printer.Fprintf(w, "Last:  %s\n", plan.Pending[len(plan.Pending)-1])
}

// renderRunResult prints the summary of a run, including a partial one.
func renderRunResult(w io.Writer, result *engine.Result) {
	if result.NothingToDo() {
		printer.Fprintln(w, nothingToDoMessage)
		return
	}
	printer.Fprintf(w, "Looked up %d identifiers (%d with score, %d without) in %s\n",
		result.Attempted, result.Found, result.NotFound, result.Duration.Round(time.Millisecond))
	printer.Fprintf(w, "%d identifiers remaining\n", result.Remaining())
}
