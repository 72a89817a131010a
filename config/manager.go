package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const reloadDelay = 300 * time.Millisecond

// Manager owns the JSON config file. Writes go through Set or Update;
// edits made by other processes, such as a concurrent `finsim config set`,
// reach Watch subscribers.
type Manager struct {
	path string

	mu       sync.RWMutex
	cfg      Config
	onChange func(Config)
	watching bool

	log zerolog.Logger
}

type managerOptions struct {
	configPath string
}

type ManagerOption func(*managerOptions)

// WithConfigPath selects the config file. Empty keeps the per-user default.
func WithConfigPath(path string) ManagerOption {
	return func(o *managerOptions) {
		if path != "" {
			o.configPath = path
		}
	}
}

// WithConfigDir selects config.json inside dir.
func WithConfigDir(dir string) ManagerOption {
	return func(o *managerOptions) {
		if dir != "" {
			o.configPath = filepath.Join(dir, "config.json")
		}
	}
}

// NewManager loads the config file, creating it from defaults rooted next
// to it when it does not exist yet.
func NewManager(opts ...ManagerOption) (*Manager, error) {
	var o managerOptions
	for _, opt := range opts {
		opt(&o)
	}
	path := o.configPath
	if path == "" {
		var err error
		if path, err = defaultConfigPath(); err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}

	cfg, err := readConfig(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		cfg = *DefaultConfigWithRoot(filepath.Dir(path))
		if err := writeConfigFile(path, cfg); err != nil {
			return nil, fmt.Errorf("write initial config: %w", err)
		}
	case err != nil:
		return nil, err
	}

	return &Manager{path: path, cfg: cfg, log: zerolog.Nop()}, nil
}

// readConfig loads path over the defaults and validates the result.
func readConfig(path string) (Config, error) {
	cfg := *DefaultConfigWithRoot(filepath.Dir(path))
	if err := loadConfigFromFile(path, &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

func (m *Manager) Path() string {
	return m.path
}

// Set updates one setting by its JSON key and persists the result.
func (m *Manager) Set(key, value string) error {
	raw, err := json.Marshal(m.Get())
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	prev, ok := fields[key]
	if !ok {
		return fmt.Errorf("unknown config key %q", key)
	}
	encoded, err := encodeSetting(prev, value)
	if err != nil {
		return fmt.Errorf("config key %s: %w", key, err)
	}
	fields[key] = encoded
	merged, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return m.UpdateFromJSON(string(merged))
}

// encodeSetting renders value with the JSON kind of the previous setting.
func encodeSetting(prev json.RawMessage, value string) (json.RawMessage, error) {
	if len(prev) > 0 && prev[0] == '"' {
		return json.Marshal(value)
	}
	if d, err := time.ParseDuration(value); err == nil {
		return json.Marshal(int64(d))
	}
	var v any
	if err := json.Unmarshal([]byte(value), &v); err != nil {
		return nil, fmt.Errorf("invalid value %q", value)
	}
	return json.RawMessage(value), nil
}

func (m *Manager) UpdateFromJSON(jsonStr string) error {
	var cfg Config
	if err := json.Unmarshal([]byte(jsonStr), &cfg); err != nil {
		return fmt.Errorf("parse config json: %w", err)
	}
	return m.Update(cfg)
}

// Update validates cfg, writes it and applies it. The watcher sees the
// write but finds nothing new, so subscribers hear only of outside edits.
func (m *Manager) Update(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if reflect.DeepEqual(m.Get(), cfg) {
		return nil
	}

	if err := writeConfigFile(m.path, cfg); err != nil {
		return err
	}

	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()
	return nil
}

// Watch reloads the file when another process changes it and passes each
// valid new config to onChange. Invalid edits are logged and ignored. The
// watch ends with ctx.
func (m *Manager) Watch(ctx context.Context, log zerolog.Logger, onChange func(Config)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.watching {
		return errors.New("config is already watched")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config watcher: %w", err)
	}
	// Editors and writeConfigFile replace the file, so watch its directory.
	if err := watcher.Add(filepath.Dir(m.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch config dir: %w", err)
	}
	m.watching = true
	m.onChange = onChange
	m.log = log.With().Str("component", "config").Logger()

	go m.watch(ctx, watcher)
	return nil
}

func (m *Manager) watch(ctx context.Context, watcher *fsnotify.Watcher) {
	defer watcher.Close()
	target := filepath.Clean(m.path)

	reload := time.NewTimer(reloadDelay)
	reload.Stop()
	defer reload.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(evt.Name) != target || evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			reload.Reset(reloadDelay)
		case <-reload.C:
			m.reload()
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			m.log.Warn().Err(err).Msg("config watcher error")
		}
	}
}

func (m *Manager) reload() {
	cfg, err := readConfig(m.path)
	if err != nil {
		m.log.Error().Err(err).Str("path", m.path).Msg("config reload failed, keeping current settings")
		return
	}

	m.mu.Lock()
	if reflect.DeepEqual(m.cfg, cfg) {
		m.mu.Unlock()
		return
	}
	m.cfg = cfg
	cb := m.onChange
	m.mu.Unlock()

	m.log.Info().Str("path", m.path).Msg("config reloaded")
	if cb != nil {
		cb(cfg)
	}
}

func defaultConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		if dir, err = os.Getwd(); err != nil {
			return "", err
		}
	}
	return filepath.Join(dir, "FinSim", "config.json"), nil
}

// writeConfigFile replaces path atomically through a temp file.
func writeConfigFile(path string, cfg Config) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "cfg-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp config: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err = enc.Encode(&cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("flush config: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp config: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}
