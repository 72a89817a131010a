package debug

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cloudwego/eino-ext/devops"
	"github.com/rs/zerolog"

	"github.com/dyike/FinSim/config"
	"github.com/dyike/FinSim/models"
)

// EinoDebugger starts the eino visual debug server so the workflow graph
// can be inspected and replayed.
type EinoDebugger struct {
	config *config.Config
	log    zerolog.Logger
}

func NewEinoDebugger(cfg *config.Config, log zerolog.Logger) *EinoDebugger {
	return &EinoDebugger{
		config: cfg,
		log:    log.With().Str("component", "eino_debug").Logger(),
	}
}

// Initialize is a no-op unless EinoDebugEnabled is set.
func (d *EinoDebugger) Initialize(ctx context.Context) error {
	if !d.IsEnabled() {
		return nil
	}
	d.log.Info().Int("port", d.config.EinoDebugPort).Msg("initializing eino debug plugin")

	err := devops.Init(ctx,
		devops.WithDevServerPort(strconv.Itoa(d.config.EinoDebugPort)),
		devops.AppendType(&models.WorkflowInput{}),
	)
	if err != nil {
		return fmt.Errorf("failed to initialize Eino debug plugin: %w", err)
	}
	d.log.Info().Str("url", d.GetDebugURL()).Msg("eino debug server ready")
	return nil
}

func (d *EinoDebugger) IsEnabled() bool {
	return d.config != nil && d.config.EinoDebugEnabled
}

func (d *EinoDebugger) GetDebugURL() string {
	if !d.IsEnabled() {
		return ""
	}
	return fmt.Sprintf("http://localhost:%d", d.config.EinoDebugPort)
}
