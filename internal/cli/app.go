package cli

import (
	"path/filepath"

	"github.com/rileyhilliard/rmon/internal/config"
	"github.com/rileyhilliard/rmon/internal/errors"
	"github.com/rileyhilliard/rmon/internal/logger"
	"github.com/rileyhilliard/rmon/internal/monitor"
	"github.com/rileyhilliard/rmon/internal/registry"
)

// app is the wired set of components a polling command needs.
type app struct {
	cfg       *config.Config
	reg       *registry.Registry
	exec      *monitor.SSHExecutor
	collector *monitor.Collector
	log       logger.Logger
}

// configPath returns --config or the default location.
func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultPath()
}

// openRegistry loads and validates the config and builds a registry that
// writes changes back to the same file.
func openRegistry(log logger.Logger) (*registry.Registry, *config.Config, error) {
	path := configPath()
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, nil, err
	}

	missingIDs := false
	for _, h := range cfg.Hosts {
		if h.ID == "" {
			missingIDs = true
			break
		}
	}

	reg := registry.New(cfg, config.NewFileStore(path), log)
	if missingIDs {
		// hand-written entries get their generated IDs written back
		if err := reg.Save(); err != nil {
			log.Warn("couldn't save host ids: %s", errors.OneLine(err))
		}
	}
	return reg, cfg, nil
}

// newApp wires config, registry, executor and collector together. Each
// override runs on the loaded config before anything is built from it.
func newApp(log logger.Logger, overrides ...func(*config.Config)) (*app, error) {
	reg, cfg, err := openRegistry(log)
	if err != nil {
		return nil, err
	}
	for _, override := range overrides {
		override(cfg)
	}

	// a broken cache still returns a usable empty one
	known, err := monitor.LoadKnownInterfaces(filepath.Join(cfg.StateDir, config.InterfacesFileName), log)
	if err != nil {
		log.Warn("%s", errors.OneLine(err))
	}

	exec := monitor.NewSSHExecutor(cfg.Monitor, log)
	collector := monitor.NewCollector(exec, reg, cfg.Monitor,
		monitor.WithLogger(log),
		monitor.WithKnownInterfaces(known),
	)
	reg.SetEvictor(collector)

	return &app{
		cfg:       cfg,
		reg:       reg,
		exec:      exec,
		collector: collector,
		log:       log,
	}, nil
}

// Close stops polling and closes every pooled SSH connection.
func (a *app) Close() error {
	a.collector.Stop()
	return a.exec.Close()
}
