package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	boterrors "github.com/ducminhle1904/futures-executor/internal/errors"
	"github.com/ducminhle1904/futures-executor/internal/risk"
)

// RiskProvider hands out an immutable risk snapshot per execution
type RiskProvider interface {
	Snapshot() (*risk.Config, error)
}

// Static serves a fixed risk config
type Static struct {
	cfg *risk.Config
}

// NewStatic applies defaults and validates cfg once
func NewStatic(cfg risk.Config) (*Static, error) {
	c := cfg.Clone()
	c.SetDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &Static{cfg: c}, nil
}

func (s *Static) Snapshot() (*risk.Config, error) {
	return s.cfg.Clone(), nil
}

// RiskStore reads the risk file with viper and swaps snapshots atomically on change
type RiskStore struct {
	v       *viper.Viper
	log     zerolog.Logger
	current atomic.Pointer[risk.Config]

	mu        sync.Mutex
	listeners []func(*risk.Config)
}

// ResolveRiskPath looks in configs/ for bare names and defaults to YAML
func ResolveRiskPath(path string) string {
	if !strings.ContainsAny(path, "/\\") {
		path = filepath.Join("configs", path)
	}
	if filepath.Ext(path) == "" {
		path += ".yaml"
	}
	return path
}

// LoadRiskFile reads and validates the risk file. RISK_* environment
// variables override file values.
func LoadRiskFile(path string, log zerolog.Logger) (*RiskStore, error) {
	v := viper.New()
	v.SetConfigFile(ResolveRiskPath(path))
	v.SetEnvPrefix("RISK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	s := &RiskStore{v: v, log: log.With().Str("component", "risk_store").Logger()}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads the file. An invalid file leaves the previous snapshot in place.
func (s *RiskStore) Reload() error {
	if err := s.v.ReadInConfig(); err != nil {
		return boterrors.WrapError(err, boterrors.ErrorCategoryConfiguration, "risk_store", "read").
			WithMessage(fmt.Sprintf("failed to read %s", s.v.ConfigFileUsed()))
	}

	var cfg risk.Config
	if err := s.v.Unmarshal(&cfg); err != nil {
		return boterrors.WrapError(err, boterrors.ErrorCategoryConfiguration, "risk_store", "decode")
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}

	snapshot := cfg.Clone()
	s.current.Store(snapshot)

	s.mu.Lock()
	listeners := make([]func(*risk.Config), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(snapshot.Clone())
	}
	return nil
}

// Snapshot returns a private copy of the current config
func (s *RiskStore) Snapshot() (*risk.Config, error) {
	cur := s.current.Load()
	if cur == nil {
		return nil, boterrors.NewConfigError("risk_store", "snapshot", "no valid risk config loaded")
	}
	return cur.Clone(), nil
}

// OnChange registers fn to run after every successful reload
func (s *RiskStore) OnChange(fn func(*risk.Config)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Watch hot-reloads the file on change. In-flight executions keep their snapshot.
func (s *RiskStore) Watch() {
	s.v.OnConfigChange(func(e fsnotify.Event) {
		if err := s.Reload(); err != nil {
			s.log.Error().Err(err).Str("file", e.Name).Msg("risk config reload rejected, keeping previous")
			return
		}
		s.log.Info().Str("file", e.Name).Str("op", e.Op.String()).Msg("risk config reloaded")
	})
	s.v.WatchConfig()
}

// Path returns the file backing the store
func (s *RiskStore) Path() string {
	return s.v.ConfigFileUsed()
}
