package params

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/dnldd/impulse/shared"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// StoreConfig represents the configuration for the parameter store.
type StoreConfig struct {
	// Path is the parameter file path.
	Path string
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Store represents the persisted parameters. Updates are written back to the parameter file.
type Store struct {
	cfg    *StoreConfig
	params Params
	mtx    sync.RWMutex
}

// NewStore initializes the parameter store from the configured file. A missing file yields
// the default parameters, which are written out.
func NewStore(cfg *StoreConfig) (*Store, error) {
	s := &Store{
		cfg:    cfg,
		params: Default(),
	}

	err := s.load()
	switch {
	case errors.Is(err, fs.ErrNotExist):
		cfg.Logger.Info().Msgf("no parameter file at %s, writing defaults", cfg.Path)
		err = s.save(s.params)
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	}

	return s, nil
}

// load reads the parameters from the parameter file. Missing fields keep their defaults.
func (s *Store) load() error {
	b, err := os.ReadFile(s.cfg.Path)
	if err != nil {
		return err
	}

	p := Default()
	err = yaml.Unmarshal(b, &p)
	if err != nil {
		return fmt.Errorf("decoding parameter file %s: %w", s.cfg.Path, err)
	}

	err = p.Validate()
	if err != nil {
		return fmt.Errorf("validating parameter file %s: %w", s.cfg.Path, err)
	}

	s.params = p
	return nil
}

// save writes the provided parameters to the parameter file.
func (s *Store) save(p Params) error {
	b, err := yaml.Marshal(&p)
	if err != nil {
		return fmt.Errorf("encoding parameters: %w", err)
	}

	err = os.WriteFile(s.cfg.Path, b, 0o644)
	if err != nil {
		return fmt.Errorf("writing parameter file %s: %w", s.cfg.Path, err)
	}

	return nil
}

// Params returns a copy of the current parameters.
func (s *Store) Params() Params {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	return s.params
}

// Set updates and persists the window parameter of the provided key.
func (s *Store) Set(key string, value int) (Params, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	p := s.params
	err := p.Set(key, value)
	if err != nil {
		return s.params, err
	}

	err = s.save(p)
	if err != nil {
		return s.params, err
	}

	s.params = p
	s.cfg.Logger.Info().Msgf("updated %s to %d", key, value)

	return p, nil
}

// SetMode updates and persists the chart theme.
func (s *Store) SetMode(theme shared.Theme) (Params, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	p := s.params
	p.Mode = theme
	err := p.Validate()
	if err != nil {
		return s.params, err
	}

	err = s.save(p)
	if err != nil {
		return s.params, err
	}

	s.params = p
	s.cfg.Logger.Info().Msgf("updated mode to %s", theme)

	return p, nil
}
