package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dyike/FinSim/config"
	"github.com/dyike/FinSim/consts"
	"github.com/dyike/FinSim/internal/display"
	"github.com/dyike/FinSim/internal/portfolio"
	"github.com/dyike/FinSim/internal/scheduler"
	"github.com/dyike/FinSim/models"
	"github.com/dyike/FinSim/pkg/numeric"
)

func newTradeCmd(o *options) *cobra.Command {
	tradeCmd := &cobra.Command{
		Use:   "trade",
		Short: "Execute simulated trades",
	}

	manualCmd := &cobra.Command{
		Use:   "manual SYMBOL AMOUNT",
		Short: "Buy or sell a dollar amount of an allowed symbol",
		Long: `Execute a trade for AMOUNT dollars at the current price.
Example: finsim trade manual AAPL 1000 --type buy`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			kind, _ := cmd.Flags().GetString("type")
			yes, _ := cmd.Flags().GetBool("yes")
			kind = strings.ToLower(strings.TrimSpace(kind))

			symbol, err := normalizeSymbol(args[0])
			if err != nil {
				return err
			}
			amount, ok := numeric.Parse(args[1])
			if !ok || amount <= 0 {
				return fmt.Errorf("invalid amount %q", args[1])
			}

			a, err := o.open(ctx)
			if err != nil {
				return err
			}
			s, err := a.signIn(ctx, o)
			if err != nil {
				return err
			}
			if !yes {
				confirmed, err := PromptForConfirmation(fmt.Sprintf("%s $%.2f of %s?", actionName(kind), amount, symbol))
				if err != nil {
					return err
				}
				if !confirmed {
					fmt.Fprintln(cmd.OutOrStdout(), display.Muted("Trade cancelled."))
					return nil
				}
			}

			desk, err := a.desk(ctx, false)
			if err != nil {
				return err
			}
			t, err := desk.Manual(ctx, s, symbol, amount, kind)
			if err != nil {
				return err
			}
			display.Trade(cmd.OutOrStdout(), t, s.Balance)
			return nil
		},
	}
	manualCmd.Flags().String("type", models.TradeBuy, "buy or sell")
	manualCmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
	tradeCmd.AddCommand(manualCmd)

	tradeCmd.AddCommand(&cobra.Command{
		Use:   "agent",
		Short: "Let the market scan pick and execute the top recommendation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			a, err := o.open(ctx)
			if err != nil {
				return err
			}
			s, err := a.signIn(ctx, o)
			if err != nil {
				return err
			}
			profile, _, err := a.profile(ctx, s)
			if err != nil {
				return err
			}
			desk, err := a.desk(ctx, true)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, display.Muted("Analyzing the market, this can take a few minutes..."))
			res, err := desk.Agent(ctx, s, profile)
			if res.Candidate.Symbol != "" {
				display.Recommendations(out, models.OkRecommendations([]models.TradeCandidate{res.Candidate}))
			}
			if err != nil {
				return err
			}
			display.Trade(out, res.Trade, s.Balance)
			return nil
		},
	})

	return tradeCmd
}

func newPortfolioCmd(o *options) *cobra.Command {
	portfolioCmd := &cobra.Command{
		Use:   "portfolio",
		Short: "Show holdings, cash and profit and loss",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			watch, _ := cmd.Flags().GetBool("watch")
			a, err := o.open(ctx)
			if err != nil {
				return err
			}
			s, err := a.signIn(ctx, o)
			if err != nil {
				return err
			}
			if !watch {
				return renderPortfolio(ctx, a, s, cmd.OutOrStdout(), false)
			}
			return watchPortfolio(ctx, a, o.mgr, s, cmd.OutOrStdout())
		},
	}
	portfolioCmd.Flags().BoolP("watch", "w", false, "Refresh prices on the configured schedule until interrupted")

	portfolioCmd.AddCommand(&cobra.Command{
		Use:   "history [SYMBOL]",
		Short: "List your trades, optionally for one symbol",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := o.open(ctx)
			if err != nil {
				return err
			}
			s, err := a.signIn(ctx, o)
			if err != nil {
				return err
			}
			trades, err := a.store.Trades(ctx, s.UserID, "")
			if err != nil {
				return err
			}
			if len(args) == 1 {
				trades = portfolio.History(trades, strings.ToUpper(strings.TrimSpace(args[0])))
			}
			if len(trades) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), display.Muted("No trades yet."))
				return nil
			}
			display.Trades(cmd.OutOrStdout(), trades)
			return nil
		},
	})
	return portfolioCmd
}

// renderPortfolio values the ledger at current prices. With refresh set,
// live quotes are fetched for every held symbol first.
func renderPortfolio(ctx context.Context, a *app, s *models.Session, out io.Writer, refresh bool) error {
	trades, err := a.store.Trades(ctx, s.UserID, "")
	if err != nil {
		return err
	}
	holdings := portfolio.Aggregate(trades, a.log)
	if refresh {
		for _, h := range holdings {
			if _, err := a.prices.Refresh(ctx, h.Symbol); err != nil {
				a.log.Warn().Err(err).Str("symbol", h.Symbol).Msg("price refresh failed")
			}
		}
	}
	balance, err := a.store.Balance(ctx, s.UserID)
	if err != nil {
		return err
	}
	s.Balance = balance
	s.LastPortfolioRefresh = time.Now()

	display.Portfolio(out, portfolio.Value(ctx, holdings, a.prices, balance))
	fmt.Fprintln(out, display.Muted("Updated "+s.LastPortfolioRefresh.Format("15:04:05")))
	return nil
}

// watchPortfolio re-renders on the configured schedule until ctx ends. A
// portfolio_refresh edit made while watching, for example by
// `finsim config set` in another terminal, replaces the schedule.
func watchPortfolio(ctx context.Context, a *app, mgr *config.Manager, s *models.Session, out io.Writer) error {
	refresh := scheduler.Func("portfolio-refresh", func() error {
		return renderPortfolio(ctx, a, s, out, true)
	})

	spec := a.cfg.PortfolioRefresh
	sched, err := refreshScheduler(a, spec, refresh)
	if err != nil {
		return err
	}
	if err := sched.RunNow(refresh); err != nil {
		return err
	}
	sched.Start()
	defer func() { sched.Stop() }()

	changes := make(chan config.Config, 1)
	if mgr != nil {
		err := mgr.Watch(ctx, a.log, func(cfg config.Config) {
			// Keep only the latest edit.
			select {
			case <-changes:
			default:
			}
			changes <- cfg
		})
		if err != nil {
			a.log.Warn().Err(err).Msg("config edits will not be picked up")
		}
	}

	fmt.Fprintln(out, display.Muted("Watching portfolio ("+spec+"), press Ctrl+C to stop."))
	for {
		select {
		case <-ctx.Done():
			return nil
		case cfg := <-changes:
			next := cfg.WithEnv().PortfolioRefresh
			if next == spec {
				continue
			}
			replacement, err := refreshScheduler(a, next, refresh)
			if err != nil {
				a.log.Warn().Err(err).Str("schedule", next).Msg("ignoring invalid portfolio_refresh")
				continue
			}
			sched.Stop()
			sched, spec = replacement, next
			sched.Start()
			a.log.Info().Str("schedule", spec).Msg("portfolio refresh rescheduled")
			fmt.Fprintln(out, display.Muted("Refresh schedule changed to "+spec))
		}
	}
}

func refreshScheduler(a *app, spec string, job scheduler.Job) (*scheduler.Scheduler, error) {
	sched := scheduler.New(a.log)
	if err := sched.AddJob(spec, job); err != nil {
		return nil, fmt.Errorf("invalid portfolio_refresh %q: %w", spec, err)
	}
	return sched, nil
}

func newLeaderboardCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "leaderboard",
		Short: "Show the top balances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := o.open(ctx)
			if err != nil {
				return err
			}
			entries, err := a.store.Leaderboard(ctx, consts.LeaderboardLimit)
			if err != nil {
				return err
			}
			display.Leaderboard(cmd.OutOrStdout(), entries)
			return nil
		},
	}
}
