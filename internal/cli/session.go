package cli

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/tgienger/taskhours/internal/config"
	"github.com/tgienger/taskhours/internal/logging"
	"github.com/tgienger/taskhours/internal/store"
)

// session is what a command needs to talk to the backend
type session struct {
	cfg   *config.Config
	store *store.Store
	log   logrus.FieldLogger
}

func (o *options) configPath() string {
	if o.configFile != "" {
		return o.configFile
	}
	return config.Path()
}

func (o *options) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFiles(o.configPath(), o.envFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// open loads the config, sets up logging and connects the store.
// source names the command in log lines.
func (o *options) open(source string) (*session, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}

	if err := logging.Init(logging.Options{
		File:   cfg.Log.File,
		Level:  cfg.Log.Level,
		Source: source,
	}); err != nil {
		return nil, err
	}
	log := logging.Logger.WithField("backend", cfg.Backend)

	b, err := cfg.OpenBackend(log)
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", cfg.Backend, err)
	}
	log.Debug("backend opened")

	return &session{
		cfg:   cfg,
		store: store.New(b, store.WithLogger(log)),
		log:   log,
	}, nil
}

func (s *session) Close() error {
	return s.store.Close()
}
