package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dyike/FinSim/config"
	"github.com/dyike/FinSim/consts"
	"github.com/dyike/FinSim/internal/display"
	"github.com/dyike/FinSim/internal/pricing"
	"github.com/dyike/FinSim/internal/scheduler"
	"github.com/dyike/FinSim/pkg/logger"
)

// newConfigCmd creates the config command
func newConfigCmd(o *options) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "Manage FinSim configuration settings",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.config()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), display.Title("Configuration"))
			fmt.Fprintln(cmd.OutOrStdout(), display.Muted(o.mgr.Path()))
			return showConfig(cmd.OutOrStdout(), cfg)
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Change one setting in the config file",
		Long: `Change one setting by its JSON key.
Example: finsim config set strategist_mode repair`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := o.manager()
			if err != nil {
				return err
			}
			if err := mgr.Set(args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s updated\n", args[0])
			return nil
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration and dependencies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.config()
			if err != nil {
				return err
			}
			warnings, err := validateConfig(cfg)
			if err != nil {
				return err
			}
			for _, w := range warnings {
				fmt.Fprintln(cmd.OutOrStdout(), display.Warning("warning: "+w))
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Configuration is valid")
			return nil
		},
	})

	return configCmd
}

// secretKeys are masked by config show.
var secretKeys = []string{"_api_key", "_secret", "_token"}

func showConfig(w io.Writer, cfg *config.Config) error {
	lines, err := configLines(cfg)
	if err != nil {
		return err
	}
	for _, l := range lines {
		fmt.Fprintln(w, l)
	}
	return nil
}

// configLines renders cfg as sorted "key: value" lines with secrets masked.
func configLines(cfg *config.Config) ([]string, error) {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		v := fmt.Sprint(fields[k])
		switch {
		case isSecret(k):
			v = mask(v)
		case strings.HasSuffix(k, "_ttl") || strings.HasSuffix(k, "_delay"):
			if f, ok := fields[k].(float64); ok {
				v = time.Duration(f).String()
			}
		}
		lines = append(lines, fmt.Sprintf("%s: %s", k, v))
	}
	return lines, nil
}

func isSecret(key string) bool {
	for _, s := range secretKeys {
		if strings.HasSuffix(key, s) {
			return true
		}
	}
	return false
}

func mask(v string) string {
	switch {
	case v == "":
		return "(not set)"
	case len(v) <= 4:
		return "****"
	default:
		return "****" + v[len(v)-4:]
	}
}

// validateConfig checks what Validate cannot: directories, credentials and
// the refresh schedule. Missing credentials are warnings.
func validateConfig(cfg *config.Config) ([]string, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	sched := scheduler.New(logger.Nop())
	if err := sched.AddJob(cfg.PortfolioRefresh, scheduler.Func("validate", func() error { return nil })); err != nil {
		return nil, fmt.Errorf("invalid portfolio_refresh %q: %w", cfg.PortfolioRefresh, err)
	}

	var warnings []string
	if cfg.APIKey() == "" {
		warnings = append(warnings, fmt.Sprintf("no API key for llm provider %s", cfg.LLMProvider))
	}
	if cfg.FinnhubAPIKey == "" {
		warnings = append(warnings, "FINNHUB_API_KEY not set, market analysis will lack research data")
	}
	if cfg.QuoteProvider == config.QuoteLongport &&
		(cfg.LongportAppKey == "" || cfg.LongportAppSecret == "" || cfg.LongportAccessToken == "") {
		warnings = append(warnings, "longport quote provider selected without credentials")
	}
	return warnings, nil
}

func newMarketCmd(o *options) *cobra.Command {
	marketCmd := &cobra.Command{
		Use:   "market",
		Short: "Show an overview of current market conditions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := o.open(ctx)
			if err != nil {
				return err
			}
			agent, err := a.reasoning(ctx)
			if err != nil {
				return err
			}
			display.Mapping(cmd.OutOrStdout(), agent.MarketConditions(ctx))
			return nil
		},
	}

	marketCmd.AddCommand(&cobra.Command{
		Use:   "quote [SYMBOL...]",
		Short: "Show current prices, the market scan list by default",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := o.open(ctx)
			if err != nil {
				return err
			}
			symbols := consts.ScanSymbols
			if len(args) > 0 {
				symbols = make([]string, len(args))
				for i, s := range args {
					symbols[i] = strings.ToUpper(strings.TrimSpace(s))
				}
			}
			prices := pricing.Prices(ctx, a.prices, symbols)
			for _, s := range symbols {
				price := "unavailable"
				if p, ok := prices[s]; ok {
					price = fmt.Sprintf("$%.2f", p)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-6s %s\n", s, price)
			}
			return nil
		},
	})
	return marketCmd
}
