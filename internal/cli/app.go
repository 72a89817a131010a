package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dyike/FinSim/config"
	"github.com/dyike/FinSim/consts"
	"github.com/dyike/FinSim/internal/agents/analyst"
	"github.com/dyike/FinSim/internal/agents/preference"
	"github.com/dyike/FinSim/internal/agents/reasoning"
	"github.com/dyike/FinSim/internal/agents/strategist"
	"github.com/dyike/FinSim/internal/auth"
	"github.com/dyike/FinSim/internal/dataflows"
	"github.com/dyike/FinSim/internal/debug"
	"github.com/dyike/FinSim/internal/graph"
	"github.com/dyike/FinSim/internal/llm"
	"github.com/dyike/FinSim/internal/pricing"
	"github.com/dyike/FinSim/internal/storage"
	"github.com/dyike/FinSim/internal/trading"
	"github.com/dyike/FinSim/models"
	"github.com/dyike/FinSim/pkg/logger"
	"github.com/dyike/FinSim/pkg/metrics"
)

// app holds the wired services for one command invocation. The generator
// and the workflow are built on first use so that commands which never talk
// to a model work without an API key.
type app struct {
	cfg     *config.Config
	log     zerolog.Logger
	metrics *metrics.Collector
	store   *storage.Store
	prices  *pricing.Service
	auth    *auth.Service
	server  *http.Server

	gen      llm.Generator
	research analyst.Research
}

func newApp(ctx context.Context, cfg *config.Config, o *options) (*app, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}

	level := cfg.LogLevel
	if cfg.Debug {
		level = "debug"
	}
	log := logger.New(logger.Config{Level: level, Pretty: cfg.LogPretty, Out: o.logOut})
	logger.SetGlobalLogger(log)

	a := &app{cfg: cfg, log: log, gen: o.gen}

	if cfg.MetricsEnabled {
		m, err := metrics.New()
		if err != nil {
			return nil, fmt.Errorf("init metrics: %w", err)
		}
		a.metrics = m
		a.serveMetrics()
	}

	store, err := storage.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	a.store = store
	a.auth = auth.New(store, o.bcryptCost)

	source := o.source
	if source == nil {
		source, err = dataflows.NewQuoteSource(cfg)
		if err != nil {
			log.Warn().Err(err).Str("provider", cfg.QuoteProvider).Msg("quote provider unavailable, using stored prices only")
		}
	}
	opts := []pricing.Option{
		pricing.WithStore(store),
		pricing.WithMetrics(a.metrics),
		pricing.WithLogger(log),
	}
	if source != nil {
		opts = append(opts, pricing.WithSource(source))
	}
	a.prices = pricing.NewService(pricing.NewCache(cfg.PriceCacheTTL, cfg.PriceCacheSize), opts...)

	a.research = o.research
	if a.research == nil {
		a.research = dataflows.NewFinnhubClient(cfg.FinnhubAPIKey, "")
	}
	return a, nil
}

func (a *app) serveMetrics() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	a.server = &http.Server{Addr: a.cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error().Err(err).Str("addr", a.cfg.MetricsAddr).Msg("metrics server stopped")
		}
	}()
	a.log.Info().Str("addr", a.cfg.MetricsAddr).Msg("serving metrics")
}

func (a *app) Close() error {
	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = a.server.Shutdown(ctx)
	}
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}

func (a *app) generator(ctx context.Context) (llm.Generator, error) {
	if a.gen != nil {
		return a.gen, nil
	}
	if a.cfg.APIKey() == "" {
		return nil, fmt.Errorf("no API key configured for llm provider %q", a.cfg.LLMProvider)
	}
	gen, err := llm.New(ctx, a.cfg, llm.WithMetrics(a.metrics), llm.WithLogger(a.log))
	if err != nil {
		return nil, fmt.Errorf("init llm: %w", err)
	}
	a.gen = gen
	return gen, nil
}

func (a *app) reasoning(ctx context.Context) (*reasoning.Agent, error) {
	gen, err := a.generator(ctx)
	if err != nil {
		return nil, err
	}
	return reasoning.New(gen, a.prices, reasoning.WithMetrics(a.metrics), reasoning.WithLogger(a.log)), nil
}

func (a *app) normalizer(ctx context.Context) (*preference.Normalizer, error) {
	gen, err := a.generator(ctx)
	if err != nil {
		return nil, err
	}
	return preference.NewNormalizer(gen, a.log), nil
}

func (a *app) workflow(ctx context.Context, progress chan<- string) (*graph.Workflow, error) {
	gen, err := a.generator(ctx)
	if err != nil {
		return nil, err
	}

	dbg := debug.NewEinoDebugger(a.cfg, a.log)
	if err := dbg.Initialize(ctx); err != nil {
		a.log.Warn().Err(err).Msg("eino debug server not started")
	}

	an := analyst.New(a.research, a.prices, gen, analyst.WithLogger(a.log))
	st := strategist.New(gen,
		strategist.WithMode(a.cfg.StrategistMode),
		strategist.WithMetrics(a.metrics),
		strategist.WithLogger(a.log),
	)
	opts := []graph.Option{graph.WithLogger(a.log)}
	if progress != nil {
		opts = append(opts, graph.WithProgress(progress))
	}
	return graph.NewWorkflow(ctx, an, st, opts...)
}

func (a *app) desk(ctx context.Context, withAgent bool) (*trading.Desk, error) {
	opts := []trading.Option{trading.WithMetrics(a.metrics), trading.WithLogger(a.log)}
	if withAgent {
		wf, err := a.workflow(ctx, nil)
		if err != nil {
			return nil, err
		}
		opts = append(opts, trading.WithRecommender(wf))
	}
	return trading.NewDesk(a.store, a.prices, opts...), nil
}

// signIn authenticates the identity from flags or FINSIM_USER and
// FINSIM_PASSWORD, prompting for whatever is still missing.
func (a *app) signIn(ctx context.Context, o *options) (*models.Session, error) {
	username, password := o.identity()
	var err error
	if username == "" {
		if username, err = promptUsername(); err != nil {
			return nil, err
		}
	}
	if password == "" {
		if password, err = promptPassword(); err != nil {
			return nil, err
		}
	}
	session := models.NewSession()
	if _, err := a.auth.SignIn(ctx, session, username, password); err != nil {
		return nil, err
	}
	a.log.Debug().Str("user", session.Username).Msg("signed in")
	return session, nil
}

// profile returns the user's saved preferences or the default profile.
func (a *app) profile(ctx context.Context, s *models.Session) (models.InvestmentProfile, bool, error) {
	p, err := a.store.Preferences(ctx, s.UserID)
	if errors.Is(err, storage.ErrNoPreferences) {
		return models.DefaultProfile(), false, nil
	}
	if err != nil {
		return models.InvestmentProfile{}, false, err
	}
	return p, true, nil
}

func (o *options) identity() (string, string) {
	user := strings.TrimSpace(o.user)
	if user == "" {
		user = strings.TrimSpace(o.getenv("FINSIM_USER"))
	}
	password := o.password
	if password == "" {
		password = o.getenv("FINSIM_PASSWORD")
	}
	return user, password
}

func (o *options) getenv(key string) string {
	if o.env != nil {
		return o.env(key)
	}
	return os.Getenv(key)
}

func normalizeSymbol(symbol string) (string, error) {
	symbol = dataflows.NormalizeSymbol(symbol)
	if !consts.IsAllowed(symbol) {
		return "", fmt.Errorf("%w: %s", trading.ErrSymbolNotAllowed, symbol)
	}
	return symbol, nil
}
