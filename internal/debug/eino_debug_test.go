package debug

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/dyike/FinSim/config"
)

func TestDisabledDebuggerIsNoop(t *testing.T) {
	cfg := config.DefaultConfigWithRoot(t.TempDir())
	d := NewEinoDebugger(cfg, zerolog.Nop())

	assert.False(t, d.IsEnabled())
	assert.Empty(t, d.GetDebugURL())
	assert.NoError(t, d.Initialize(context.Background()))
}

func TestDebugURL(t *testing.T) {
	cfg := config.DefaultConfigWithRoot(t.TempDir())
	cfg.EinoDebugEnabled = true
	cfg.EinoDebugPort = 6000
	assert.Equal(t, "http://localhost:6000", NewEinoDebugger(cfg, zerolog.Nop()).GetDebugURL())
}
