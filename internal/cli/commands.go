package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dyike/FinSim/internal/agents/preference"
	"github.com/dyike/FinSim/internal/display"
	"github.com/dyike/FinSim/models"
	"github.com/dyike/FinSim/pkg/numeric"
	"github.com/dyike/FinSim/pkg/utils"
)

const (
	sourceText  = "text"
	sourceForm  = "form"
	sourceToken = "token"
)

func newSignupCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "signup",
		Short: "Create an account with a virtual balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := o.open(ctx)
			if err != nil {
				return err
			}
			username, password := o.identity()
			if username == "" {
				if username, err = promptUsername(); err != nil {
					return err
				}
			}
			if password == "" {
				if password, err = promptPassword(); err != nil {
					return err
				}
			}
			u, err := a.auth.SignUp(ctx, username, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Welcome %s! Starting balance $%.2f\n", u.Username, u.Balance)
			return nil
		},
	}
}

func newPreferencesCmd(o *options) *cobra.Command {
	prefCmd := &cobra.Command{
		Use:     "preferences",
		Aliases: []string{"prefs"},
		Short:   "Manage your investment preferences",
	}

	prefCmd.AddCommand(&cobra.Command{
		Use:   "set [TEXT...]",
		Short: "Describe your preferences in your own words",
		Long: `Describe your investor profile in free text. The text is normalized into
risk appetite, goal, horizon, amount and style. Missing details fall back to defaults.`,
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
			text := strings.TrimSpace(strings.Join(args, " "))
			if text == "" {
				if text, err = PromptForPreferenceText(); err != nil {
					return err
				}
			}
			n, err := a.normalizer(ctx)
			if err != nil {
				return err
			}
			p := n.Normalize(ctx, text)
			if _, err := a.store.SavePreferences(ctx, s.UserID, p, sourceText); err != nil {
				return err
			}
			display.Profile(cmd.OutOrStdout(), p)
			return nil
		},
	})

	prefCmd.AddCommand(&cobra.Command{
		Use:   "form",
		Short: "Fill in the preference form",
		Args:  cobra.NoArgs,
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
			current, _, err := a.profile(ctx, s)
			if err != nil {
				return err
			}
			form, err := PromptForPreferenceForm(current)
			if err != nil {
				return err
			}
			p := preference.FromForm(form)
			if _, err := a.store.SavePreferences(ctx, s.UserID, p, sourceForm); err != nil {
				return err
			}
			display.Profile(cmd.OutOrStdout(), p)
			return nil
		},
	})

	prefCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show your current preferences",
		Args:  cobra.NoArgs,
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
			p, saved, err := a.profile(ctx, s)
			if err != nil {
				return err
			}
			display.Profile(cmd.OutOrStdout(), p)
			if !saved {
				fmt.Fprintln(cmd.OutOrStdout(), display.Muted("No saved preferences yet; showing defaults."))
			}
			return nil
		},
	})

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List previously saved preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			limit, _ := cmd.Flags().GetInt("limit")
			a, err := o.open(ctx)
			if err != nil {
				return err
			}
			s, err := a.signIn(ctx, o)
			if err != nil {
				return err
			}
			history, err := a.store.PreferenceHistory(ctx, s.UserID, limit)
			if err != nil {
				return err
			}
			display.PreferenceHistory(cmd.OutOrStdout(), history)
			return nil
		},
	}
	historyCmd.Flags().Int("limit", 20, "Maximum entries to show")
	prefCmd.AddCommand(historyCmd)

	prefCmd.AddCommand(&cobra.Command{
		Use:   "encode",
		Short: "Print a shareable token for your preferences",
		Args:  cobra.NoArgs,
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
			p, _, err := a.profile(ctx, s)
			if err != nil {
				return err
			}
			token, err := models.EncodePreferences(p)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	})

	decodeCmd := &cobra.Command{
		Use:   "decode TOKEN",
		Short: "Show the preferences in a token, optionally saving them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			save, _ := cmd.Flags().GetBool("save")
			p, err := models.DecodePreferences(strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			if !p.Valid() {
				return fmt.Errorf("token holds an invalid profile")
			}
			display.Profile(cmd.OutOrStdout(), p)
			if !save {
				return nil
			}
			a, err := o.open(ctx)
			if err != nil {
				return err
			}
			s, err := a.signIn(ctx, o)
			if err != nil {
				return err
			}
			_, err = a.store.SavePreferences(ctx, s.UserID, p, sourceToken)
			return err
		},
	}
	decodeCmd.Flags().Bool("save", false, "Save the decoded preferences as your current ones")
	prefCmd.AddCommand(decodeCmd)

	return prefCmd
}

func newRecommendCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Get up to three trade recommendations for your profile",
		Long: `Generate scored trade recommendations for your saved preferences.
With --scan the recommendations come from a live analysis of the market scan list.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			scan, _ := cmd.Flags().GetBool("scan")
			showTrace, _ := cmd.Flags().GetBool("trace")
			reportDir, _ := cmd.Flags().GetString("report")
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

			if scan {
				progress := make(chan string, 32)
				done := make(chan struct{})
				go func() {
					defer close(done)
					for msg := range progress {
						fmt.Fprintln(out, display.Muted(msg))
					}
				}()
				wf, err := a.workflow(ctx, progress)
				if err != nil {
					close(progress)
					<-done
					return err
				}
				result := wf.Run(ctx, profile, s.UserID)
				close(progress)
				<-done
				display.Recommendations(out, scanResult(result))
				return nil
			}

			agent, err := a.reasoning(ctx)
			if err != nil {
				return err
			}
			recs, insights, trace := agent.Recommend(ctx, profile)
			display.Recommendations(out, recs)
			if insights != "" {
				fmt.Fprintln(out, display.Title("Insights"))
				fmt.Fprintln(out, insights)
			}
			if showTrace {
				display.Trace(out, trace)
			}
			if reportDir != "" {
				name := fmt.Sprintf("recommendations_%s_%s.md", s.Username, time.Now().Format("20060102_150405"))
				path, err := utils.WriteMarkdown(reportDir, name, display.MarkdownReport(profile, recs, insights, trace))
				if err != nil {
					return err
				}
				fmt.Fprintln(out, display.Muted("Report written to "+path))
			}
			return nil
		},
	}
	cmd.Flags().Bool("scan", false, "Analyze the market scan list before recommending")
	cmd.Flags().Bool("trace", false, "Show the reasoning steps")
	cmd.Flags().String("report", "", "Also write a markdown report into this directory")
	return cmd
}

func scanResult(r models.WorkflowResult) models.Recommendations {
	if len(r.Recommendations) == 0 {
		return models.EmptyRecommendations("the market scan produced no usable candidate")
	}
	return models.OkRecommendations(r.Recommendations)
}

func newValidateCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate SYMBOL",
		Short: "Check a proposed trade against your profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			quantity, _ := cmd.Flags().GetFloat64("quantity")
			action, _ := cmd.Flags().GetString("action")
			showTrace, _ := cmd.Flags().GetBool("trace")

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
			agent, err := a.reasoning(ctx)
			if err != nil {
				return err
			}

			c := models.TradeCandidate{
				Symbol:   strings.ToUpper(strings.TrimSpace(args[0])),
				Action:   actionName(action),
				Quantity: quantity,
			}
			if price, ok := a.prices.Price(ctx, c.Symbol); ok {
				c.CurrentPrice = price
				c.TotalCost = numeric.SafeOp(quantity, price, numeric.Multiply)
			}
			v := agent.ValidateTrade(ctx, c, profile)
			display.Verdict(cmd.OutOrStdout(), v)
			if showTrace {
				display.Trace(cmd.OutOrStdout(), v.Trace)
			}
			return nil
		},
	}
	cmd.Flags().Float64("quantity", 1, "Number of shares")
	cmd.Flags().String("action", "buy", "buy or sell")
	cmd.Flags().Bool("trace", false, "Show the reasoning steps")
	return cmd
}

// actionName maps buy/sell in any case to the candidate action names.
func actionName(action string) string {
	switch strings.ToLower(strings.TrimSpace(action)) {
	case "buy":
		return models.ActionBuy
	case "sell":
		return models.ActionSell
	case "hold":
		return models.ActionHold
	}
	return action
}
