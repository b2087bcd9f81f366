package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/snexsync/internal/engine"
	"github.com/roach88/snexsync/internal/metrics"
	"github.com/roach88/snexsync/internal/runlock"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions

	// Clock and IDs override the engine defaults (for testing).
	Clock engine.Clock
	IDs   engine.RunIDGenerator
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}
	return newRunCommand(opts)
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Drain the change log once",
		Long: `Make one full pass over the legacy change log and apply every pending
entry to the application store.

Entries that fail for any reason other than a lost connection are left
pending and listed in the report; the exit code is then 3. A lost connection
aborts the run with exit code 1. If another run holds the lock file the
command exits with code 4 without touching either store.

Example:
  snexsync run --config /etc/snexsync.yaml
  snexsync run --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(opts, cmd)
		},
	}
}

func runSync(opts *RunOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return f.failSetup(err)
	}
	logger := newLogger(cfg, opts.Verbose, cmd.ErrOrStderr())
	slog.SetDefault(logger)

	lock, err := runlock.Acquire(cfg.LockFile)
	if err != nil {
		if errors.Is(err, runlock.ErrLocked) {
			return f.fail(ExitLocked, ErrCodeLocked, "another run is in progress", err)
		}
		return f.fail(ExitFailure, ErrCodeLocked, "failed to take run lock", err)
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Error("error releasing run lock", "error", err)
		}
	}()

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, stopping after current entry", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	m, err := loadManifest(cfg)
	if err != nil {
		return f.failSetup(err)
	}
	st, err := openStores(ctx, cfg, m, logger)
	if err != nil {
		return f.failSetup(err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("error closing stores", "error", err)
		}
	}()
	sidecars, err := newSidecars(ctx, cfg)
	if err != nil {
		return f.failSetup(err)
	}

	rec := metrics.New()
	eng, err := engine.New(engine.Config{
		Legacy:    st.Legacy,
		App:       st.App,
		Sidecars:  sidecars,
		Clock:     opts.Clock,
		IDs:       opts.IDs,
		Logger:    logger,
		Recorder:  rec,
		Transform: cfg.TransformOptions(),
	})
	if err != nil {
		return f.fail(ExitFailure, ErrCodeConfig, "failed to build engine", err)
	}

	report, runErr := eng.Run(ctx)
	if report != nil {
		rec.ObserveRun(report.Duration(), len(report.Deferred), report.Finished, runErr != nil)
	}
	if url := cfg.Metrics.PushgatewayURL; url != "" {
		// The run's context may be canceled by now.
		if err := rec.Push(context.WithoutCancel(ctx), url, cfg.Metrics.Job); err != nil {
			logger.Warn("metrics push failed", "error", err)
		}
	}

	if runErr != nil {
		return f.fail(ExitFailure, ErrCodeAborted, "run aborted", runErr)
	}
	if err := f.Success(reportView{report}); err != nil {
		return err
	}
	if n := len(report.Deferred); n > 0 {
		return WrapExitError(ExitDeferred, fmt.Sprintf("run completed with %d deferred entries", n), report.DeferredErr())
	}
	return nil
}

// reportView prints a run report as a table in text mode.
type reportView struct {
	*engine.Report
}

func (v reportView) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s finished in %s\n", v.RunID, v.Duration())

	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprint(tw, "ENTITY\tACTION")
	for _, o := range engine.Outcomes {
		fmt.Fprintf(tw, "\t%s", strings.ToUpper(string(o)))
	}
	fmt.Fprintln(tw)
	for _, p := range v.Passes {
		fmt.Fprintf(tw, "%s\t%s", p.Entity, p.Action)
		for _, o := range engine.Outcomes {
			fmt.Fprintf(tw, "\t%d", p.Outcomes[o])
		}
		fmt.Fprintln(tw)
	}
	tw.Flush()

	if len(v.Deferred) > 0 {
		fmt.Fprintf(&b, "\n%d deferred:\n", len(v.Deferred))
		for _, d := range v.Deferred {
			fmt.Fprintf(&b, "  entry %d (%s %s row %d) %s: %s\n", d.EntryID, d.Table, d.Action, d.RowID, d.Class, d.Error)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
