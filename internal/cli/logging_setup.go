package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rshade/scorelookup/internal/logging"
	"github.com/rshade/scorelookup/pkg/version"
)

// setupLogging configures logging from the loaded config and CLI flags and
// attaches the logger and a fresh trace ID to the command context.
func setupLogging(cmd *cobra.Command, s *session) logging.LogPathResult {
	loggingCfg := s.cfg.Logging

	debug, _ := cmd.Flags().GetBool("debug")
	if debug {
		loggingCfg.Level = "debug"
		loggingCfg.Format = logging.FormatConsole
		loggingCfg.File = ""
	}

	lc := loggingCfg.ToLoggingConfig()
	if lc.Output != logging.OutputFile {
		lc.Writer = cmd.ErrOrStderr()
	}
	result := logging.NewLoggerWithPath(lc)
	s.logger = logging.ComponentLogger(result.Logger, "cli")

	if result.UsingFile {
		logging.PrintLogPathMessage(cmd.ErrOrStderr(), result.FilePath)
	} else if result.FallbackUsed {
		logging.PrintFallbackWarning(cmd.ErrOrStderr(), result.FallbackReason)
	}

	ctx := cmd.Context()
	traceID := logging.GetOrGenerateTraceID(ctx)
	ctx = logging.ContextWithTraceID(ctx, traceID)
	ctx = result.Logger.WithContext(ctx)
	cmd.SetContext(ctx)

	s.logger.Debug().
		Ctx(ctx).
		Str("command", cmd.CommandPath()).
		Str("version", version.GetVersion()).
		Str("commit", version.GetCommit()).
		Bool("release", version.IsRelease()).
		Msg("command started")

	return result
}

// cleanupLogging closes the log file handle, if any.
func cleanupLogging(_ *cobra.Command, logResult *logging.LogPathResult) error {
	if logResult == nil {
		return nil
	}
	if err := logResult.Close(); err != nil {
		return fmt.Errorf("closing log file: %w", err)
	}
	return nil
}
