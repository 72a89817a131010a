// Package graph wires the two-stage recommendation workflow:
// market_analysis scans the default universe, strategist picks candidates.
package graph

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog"

	"github.com/dyike/FinSim/consts"
	"github.com/dyike/FinSim/internal/agents/analyst"
	"github.com/dyike/FinSim/models"
	"github.com/dyike/FinSim/pkg/retry"
)

// MarketAnalyzer produces one record per symbol.
type MarketAnalyzer interface {
	Analyze(ctx context.Context, symbol string) (models.MarketRecord, error)
}

// Recommender picks candidates from a snapshot.
type Recommender interface {
	Recommend(ctx context.Context, profile models.InvestmentProfile, snapshot models.MarketSnapshot) models.Recommendations
}

const rateLimitPause = 5 * time.Second

type Workflow struct {
	analyst    MarketAnalyzer
	strategist Recommender
	symbols    []string
	sleep      func(ctx context.Context, d time.Duration) error
	progress   chan<- string
	log        zerolog.Logger

	runnable compose.Runnable[*models.WorkflowInput, *models.WorkflowResult]
}

type Option func(*Workflow)

// WithSymbols overrides the scanned universe.
func WithSymbols(symbols []string) Option { return func(w *Workflow) { w.symbols = symbols } }

func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(w *Workflow) { w.sleep = sleep }
}

// WithProgress receives one line per node start and failure.
func WithProgress(out chan<- string) Option { return func(w *Workflow) { w.progress = out } }

func WithLogger(l zerolog.Logger) Option {
	return func(w *Workflow) { w.log = l.With().Str("component", "workflow").Logger() }
}

func NewWorkflow(ctx context.Context, a MarketAnalyzer, s Recommender, opts ...Option) (*Workflow, error) {
	w := &Workflow{
		analyst:    a,
		strategist: s,
		symbols:    consts.ScanSymbols,
		sleep:      retry.Sleep,
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}

	g := compose.NewGraph[*models.WorkflowInput, *models.WorkflowResult](
		compose.WithGenLocalState(func(ctx context.Context) *models.WorkflowState {
			return models.NewWorkflowState(nil)
		}),
	)
	_ = g.AddLambdaNode(consts.MarketAnalysis, compose.InvokableLambda(w.marketAnalysisNode), compose.WithNodeName(consts.MarketAnalysis))
	_ = g.AddLambdaNode(consts.Strategist, compose.InvokableLambda(w.strategistNode), compose.WithNodeName(consts.Strategist))
	_ = g.AddEdge(compose.START, consts.MarketAnalysis)
	_ = g.AddEdge(consts.MarketAnalysis, consts.Strategist)
	_ = g.AddEdge(consts.Strategist, compose.END)

	r, err := g.Compile(ctx, compose.WithGraphName(consts.GraphName))
	if err != nil {
		return nil, fmt.Errorf("compile workflow: %w", err)
	}
	w.runnable = r
	return w, nil
}

// Run never fails. Any error or panic leaves an empty recommendation list.
func (w *Workflow) Run(ctx context.Context, profile models.InvestmentProfile, userID string) (result models.WorkflowResult) {
	result.Recommendations = []models.TradeCandidate{}
	defer func() {
		if r := recover(); r != nil {
			w.log.Error().Interface("panic", r).Msg("workflow panicked")
			result.Recommendations = []models.TradeCandidate{}
		}
	}()

	out, err := w.runnable.Invoke(ctx, &models.WorkflowInput{Profile: profile, UserID: userID},
		compose.WithCallbacks(&LoggerCallback{Log: w.log, Out: w.progress}))
	if err != nil {
		w.log.Error().Err(err).Msg("workflow failed")
		return result
	}
	if out != nil && out.Recommendations != nil {
		result.Recommendations = out.Recommendations
	}
	return result
}

func (w *Workflow) marketAnalysisNode(ctx context.Context, in *models.WorkflowInput) (*models.WorkflowInput, error) {
	snapshot := w.collect(ctx)
	err := compose.ProcessState[*models.WorkflowState](ctx, func(_ context.Context, state *models.WorkflowState) error {
		if in != nil {
			state.Profile = in.Profile
			state.UserID = in.UserID
		}
		state.MarketData = snapshot
		state.Trace.Addf("Collected market data for %d symbols", len(snapshot))
		return nil
	})
	return in, err
}

// collect analyses each symbol in turn. A rate-limited symbol is retried
// once after a pause. Failures become error records; a panic empties the
// snapshot.
func (w *Workflow) collect(ctx context.Context) (snapshot models.MarketSnapshot) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error().Interface("panic", r).Msg("market analysis panicked")
			snapshot = models.MarketSnapshot{}
		}
	}()

	snapshot = make(models.MarketSnapshot, 0, len(w.symbols))
	for _, symbol := range w.symbols {
		rec, err := w.analyst.Analyze(ctx, symbol)
		if err != nil && analyst.IsRateLimited(err) {
			w.log.Warn().Str("symbol", symbol).Msg("rate limited, retrying once")
			if serr := w.sleep(ctx, rateLimitPause); serr != nil {
				err = serr
			} else {
				rec, err = w.analyst.Analyze(ctx, symbol)
			}
		}
		if err != nil {
			w.log.Warn().Err(err).Str("symbol", symbol).Msg("market analysis failed")
			snapshot = append(snapshot, models.MarketRecord{Symbol: symbol, Err: err.Error()})
			continue
		}
		if strings.HasPrefix(rec.Analysis, "Error") {
			w.log.Warn().Str("symbol", symbol).Msg("skipping failed analysis")
			continue
		}
		snapshot = append(snapshot, rec)
	}
	return snapshot
}

func (w *Workflow) strategistNode(ctx context.Context, _ *models.WorkflowInput) (*models.WorkflowResult, error) {
	var (
		profile  models.InvestmentProfile
		snapshot models.MarketSnapshot
	)
	_ = compose.ProcessState[*models.WorkflowState](ctx, func(_ context.Context, state *models.WorkflowState) error {
		profile = state.Profile
		snapshot = state.MarketData
		return nil
	})

	picked := w.recommend(ctx, profile, snapshot)
	_ = compose.ProcessState[*models.WorkflowState](ctx, func(_ context.Context, state *models.WorkflowState) error {
		state.Recommendations = picked
		state.Trace.Addf("Strategist selected %d candidates", len(picked))
		return nil
	})
	return &models.WorkflowResult{Recommendations: picked}, nil
}

func (w *Workflow) recommend(ctx context.Context, profile models.InvestmentProfile, snapshot models.MarketSnapshot) (picked []models.TradeCandidate) {
	picked = []models.TradeCandidate{}
	defer func() {
		if r := recover(); r != nil {
			w.log.Error().Interface("panic", r).Msg("strategist panicked")
			picked = []models.TradeCandidate{}
		}
	}()
	if rec := w.strategist.Recommend(ctx, profile, snapshot); rec.Tradeable() {
		picked = rec.Candidates
	}
	return picked
}
