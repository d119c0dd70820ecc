package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rshade/scorelookup/internal/config"
	"github.com/rshade/scorelookup/internal/engine"
	"github.com/rshade/scorelookup/internal/ingest"
	"github.com/rshade/scorelookup/internal/store"
)

// Status colors.
const (
	colorHeader = lipgloss.Color("39")
	colorLabel  = lipgloss.Color("245")
	colorValue  = lipgloss.Color("255")
	colorMuted  = lipgloss.Color("241")
	colorWarn   = lipgloss.Color("214")
	colorDone   = lipgloss.Color("42")
)

// lookupStatus summarises the input and the recorded output.
type lookupStatus struct {
	InputPath    string
	OutputPath   string
	Input        int
	Recorded     int
	WithScore    int
	WithoutScore int
	Unscored     int
	Unreadable   int
	Outstanding  int
	NextBatch    int
	MaxBatch     int
}

// newStatusCmd creates the status command, a read-only view of the work left.
func newStatusCmd(s *session) *cobra.Command {
	var input, output string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show how many identifiers are recorded and how many remain",
		Long: `Reads the input and the output and reports how many identifiers are
recorded, how many of those have a score, and how many are still outstanding.
No API key is needed and the API is never called.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("input") {
				s.cfg.Input = input
			}
			if cmd.Flags().Changed("output") {
				s.cfg.Output = output
			}
			if err := s.cfg.Validate(); err != nil {
				return classify(err)
			}

			st, err := collectStatus(cmd, s.cfg)
			if err != nil {
				return classify(err)
			}
			renderStatus(cmd.OutOrStdout(), st)
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "input CSV of identifiers (default from config)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output CSV of identifier,score records (default from config)")

	return cmd
}

// collectStatus reads the input and the output concurrently.
func collectStatus(cmd *cobra.Command, cfg *config.Config) (*lookupStatus, error) {
	fileStore, err := store.NewFileStore(cfg.Output)
	if err != nil {
		return nil, err
	}

	var (
		input   engine.IdentifierSet
		records *store.ReadResult
	)
	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error {
		var loadErr error
		input, loadErr = ingest.LoadInputWithContext(ctx, cfg.Input)
		return loadErr
	})
	g.Go(func() error {
		var readErr error
		records, readErr = fileStore.ReadRecords(ctx)
		return readErr
	})
	if err = g.Wait(); err != nil {
		return nil, err
	}

	progress := records.Identifiers()
	st := &lookupStatus{
		InputPath:  cfg.Input,
		OutputPath: cfg.Output,
		Input:      input.Len(),
		Recorded:   progress.Len(),
		Unscored:   len(records.Unscored),
		Unreadable: records.Skipped,
		MaxBatch:   cfg.Lookup.MaxBatch,
	}
	for _, rec := range records.Records {
		if rec.HasScore() {
			st.WithScore++
		} else {
			st.WithoutScore++
		}
	}
	st.Outstanding = len(engine.Pending(input, progress, 0))
	st.NextBatch = min(st.Outstanding, cfg.Lookup.MaxBatch)

	return st, nil
}

// renderStatus writes the status report.
func renderStatus(w io.Writer, st *lookupStatus) {
	var sb strings.Builder

	headerStyle := lipgloss.NewStyle().Foreground(colorHeader).Bold(true)
	labelStyle := lipgloss.NewStyle().Foreground(colorLabel).Width(14)
	valueStyle := lipgloss.NewStyle().Foreground(colorValue).Bold(true)
	mutedStyle := lipgloss.NewStyle().Foreground(colorMuted)

	row := func(label, value, note string) {
		sb.WriteString(labelStyle.Render(label))
		sb.WriteString(valueStyle.Render(value))
		if note != "" {
			sb.WriteString(" ")
			sb.WriteString(mutedStyle.Render(note))
		}
		sb.WriteString("\n")
	}

	sb.WriteString(headerStyle.Render("Lookup status"))
	sb.WriteString("\n")
	row("Input", formatCount(st.Input), "("+st.InputPath+")")
	row("Recorded", formatCount(st.Recorded),
		printer.Sprintf("(%d with score, %d without) in %s", st.WithScore, st.WithoutScore, st.OutputPath))
	warnStyle := lipgloss.NewStyle().Foreground(colorWarn)
	warn := func(label, text string) {
		sb.WriteString(labelStyle.Render(label))
		sb.WriteString(warnStyle.Render(text))
		sb.WriteString("\n")
	}
	if st.Unscored > 0 {
		warn("Unscored", fmt.Sprintf("%s record(s) without a valid score, not looked up again", formatCount(st.Unscored)))
	}
	if st.Unreadable > 0 {
		warn("Unreadable", fmt.Sprintf("%s line(s) skipped, torn or without an identifier", formatCount(st.Unreadable)))
	}
	row("Outstanding", formatCount(st.Outstanding), "")

	if st.Outstanding == 0 {
		sb.WriteString(lipgloss.NewStyle().Foreground(colorDone).Render(nothingToDoMessage))
		sb.WriteString("\n")
	} else {
		row("Next run", formatCount(st.NextBatch), printer.Sprintf("(max batch %d)", st.MaxBatch))
	}

	_, _ = io.WriteString(w, sb.String())
}
