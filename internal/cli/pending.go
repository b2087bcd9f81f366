package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/snexsync/internal/legacy"
)

// NewPendingCommand creates the pending command.
func NewPendingCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "Show the change-log backlog",
		Long: `Print the number of unretired change-log entries per table and action,
with the id of the oldest one. Only the legacy store is contacted.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPending(rootOpts, cmd)
		},
	}
}

func runPending(opts *RootOptions, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)
	ctx := cmd.Context()

	cfg, err := loadConfig(opts)
	if err != nil {
		return f.failSetup(err)
	}
	logger := newLogger(cfg, opts.Verbose, cmd.ErrOrStderr())

	m, err := loadManifest(cfg)
	if err != nil {
		return f.failSetup(err)
	}
	st, err := openLegacy(ctx, cfg, m, logger)
	if err != nil {
		return f.failSetup(err)
	}
	defer st.Close()

	backlog, err := st.Legacy.Backlog(ctx)
	if err != nil {
		return f.fail(ExitFailure, ErrCodeConnect, "failed to read change log", err)
	}
	return f.Success(backlogView(backlog))
}

// backlogView prints change-log counts as a table in text mode.
type backlogView []legacy.BacklogCount

func (v backlogView) String() string {
	if len(v) == 0 {
		return "change log is empty"
	}
	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TABLE\tACTION\tPENDING\tOLDEST")
	var total int64
	for _, c := range v {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", c.Table, c.Action, c.Count, c.OldestID)
		total += c.Count
	}
	tw.Flush()
	fmt.Fprintf(&b, "%d pending", total)
	return b.String()
}
