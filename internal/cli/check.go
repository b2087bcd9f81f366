package cli

import (
	"github.com/spf13/cobra"
)

// CheckResult is the outcome of the check command.
type CheckResult struct {
	Legacy  string `json:"legacy"`
	App     string `json:"app"`
	Spectra string `json:"spectra"`
}

func (r CheckResult) String() string {
	return "legacy store: " + r.Legacy + "\napp store: " + r.App + "\nspectra: " + r.Spectra
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check configuration and store schemas",
		Long: `Load the configuration, connect to both stores and probe every table and
column the replication reads or writes. Every mismatch is reported, not
just the first one.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, cmd)
		},
	}
}

func runCheck(opts *RootOptions, cmd *cobra.Command) error {
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
	st, err := openStores(ctx, cfg, m, logger)
	if err != nil {
		return f.failSetup(err)
	}
	defer st.Close()

	if _, err := newSidecars(ctx, cfg); err != nil {
		return f.failSetup(err)
	}
	f.VerboseLog("spectra source %s ready", cfg.Spectra.Source)

	return f.Success(CheckResult{
		Legacy:  "ok (" + cfg.Legacy.Driver + ")",
		App:     "ok (" + cfg.App.Driver + ")",
		Spectra: cfg.Spectra.Source,
	})
}
