// Package cli provides the command-line interface for FinSim
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dyike/FinSim/config"
	"github.com/dyike/FinSim/internal/agents/analyst"
	"github.com/dyike/FinSim/internal/dataflows"
	"github.com/dyike/FinSim/internal/llm"
)

const version = "v1.0.0"

// options carries global flags and the collaborators tests replace.
type options struct {
	configPath string
	user       string
	password   string
	debug      bool

	logOut     io.Writer
	env        func(string) string
	gen        llm.Generator
	source     dataflows.QuoteSource
	research   analyst.Research
	bcryptCost int

	mgr *config.Manager
	app *app
}

// Run starts the CLI application
func Run() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	o := &options{}
	rootCmd := newRootCmd(o)

	err := rootCmd.ExecuteContext(ctx)
	if o.app != nil {
		_ = o.app.Close()
	}
	if err != nil {
		stop()
		os.Exit(1)
	}
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	return newRootCmd(&options{})
}

func newRootCmd(o *options) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "finsim",
		Short: "FinSim - AI-assisted paper trading simulator",
		Long: `FinSim turns your investment preferences into scored trade recommendations
and lets you execute them against a virtual balance.`,
		SilenceUsage: true,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if o.app == nil {
				return nil
			}
			err := o.app.Close()
			o.app = nil
			return err
		},
	}

	rootCmd.PersistentFlags().StringVar(&o.configPath, "config", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVarP(&o.user, "user", "u", "", "Username (or FINSIM_USER)")
	rootCmd.PersistentFlags().StringVarP(&o.password, "password", "p", "", "Password (or FINSIM_PASSWORD)")
	rootCmd.PersistentFlags().BoolVar(&o.debug, "debug", false, "Enable debug mode")

	rootCmd.AddCommand(newSignupCmd(o))
	rootCmd.AddCommand(newPreferencesCmd(o))
	rootCmd.AddCommand(newRecommendCmd(o))
	rootCmd.AddCommand(newValidateCmd(o))
	rootCmd.AddCommand(newTradeCmd(o))
	rootCmd.AddCommand(newPortfolioCmd(o))
	rootCmd.AddCommand(newLeaderboardCmd(o))
	rootCmd.AddCommand(newMarketCmd(o))
	rootCmd.AddCommand(newConfigCmd(o))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// manager opens the config file named by --config, or the per-user default.
func (o *options) manager() (*config.Manager, error) {
	if o.mgr != nil {
		return o.mgr, nil
	}
	mgr, err := config.NewManager(config.WithConfigPath(o.configPath))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	o.mgr = mgr
	return mgr, nil
}

// config returns the file configuration with environment overrides.
func (o *options) config() (*config.Config, error) {
	mgr, err := o.manager()
	if err != nil {
		return nil, err
	}
	cfg := mgr.Get().WithEnv()
	if o.debug {
		cfg.Debug = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// open wires the application once per invocation; PersistentPostRunE
// closes it.
func (o *options) open(ctx context.Context) (*app, error) {
	if o.app != nil {
		return o.app, nil
	}
	cfg, err := o.config()
	if err != nil {
		return nil, err
	}
	a, err := newApp(ctx, cfg, o)
	if err != nil {
		return nil, err
	}
	o.app = a
	return a, nil
}

// newVersionCmd creates the version command
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "FinSim %s\n", version)
			fmt.Fprintln(cmd.OutOrStdout(), "AI-assisted paper trading simulator")
		},
	}
}
