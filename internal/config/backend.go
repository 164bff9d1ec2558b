package config

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/tgienger/taskhours/internal/backend"
	"github.com/tgienger/taskhours/internal/db"
	"github.com/tgienger/taskhours/internal/rest"
)

// OpenBackend connects to the configured backend
func (c *Config) OpenBackend(log logrus.FieldLogger) (backend.Backend, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	switch c.Backend {
	case BackendPostgres:
		database, err := db.OpenPostgres(c.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return database, nil

	case BackendREST:
		return rest.New(rest.Options{
			URL:     c.REST.URL,
			Key:     c.REST.Key,
			Timeout: c.REST.Timeout,
			Logger:  log.WithField("backend", BackendREST),
		}), nil

	default:
		database, err := db.OpenSQLite(c.Database.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", c.Database.Path, err)
		}
		return database, nil
	}
}
