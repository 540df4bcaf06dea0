package cmd

import (
	"fmt"

	"github.com/brimoraa/plpchat/internal/config"
	"github.com/brimoraa/plpchat/internal/logging"
	"github.com/brimoraa/plpchat/internal/session"
	"github.com/brimoraa/plpchat/internal/store"
)

type environment struct {
	cfg     *config.Config
	store   store.Store
	session *session.Session
}

// setup loads configuration, logging and the local store. The interface logs
// to the configured file since it owns the terminal; subcommands log warnings
// to stderr.
func setup(tui bool) (*environment, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}

	logCfg := cfg.Log
	if !tui {
		logCfg.File = ""
		logCfg.Pretty = true
		logCfg.Level = "warn"
	}
	if verbose {
		logCfg.Level = "debug"
	}
	if err := logging.Init(logCfg); err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.Storage.Backend, cfg.Storage.Dir)
	if err != nil {
		logging.Close()
		return nil, fmt.Errorf("failed to open local state: %w", err)
	}

	return &environment{
		cfg:     cfg,
		store:   st,
		session: session.New(st),
	}, nil
}

func (e *environment) close() {
	if err := e.store.Close(); err != nil {
		log := logging.L()
		log.Warn().Err(err).Msg("failed to close local state")
	}
	logging.Close()
}
