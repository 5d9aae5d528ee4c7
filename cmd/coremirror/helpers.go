package main

import (
	"fmt"

	"coremirror/internal/cache"
	"coremirror/internal/catalog"
	"coremirror/internal/config"
	"coremirror/internal/coredb"
	"coremirror/internal/logging"
	"coremirror/internal/mirror"
)

// loadConfig resolves the effective configuration: file (if given), then
// root flag overrides, then logging setup.
func loadConfig() (config.Config, error) {
	cfg := config.Default()
	if rootFlags.configPath != "" {
		c, err := config.LoadFromPath(rootFlags.configPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = c
	}
	if rootFlags.root != "" {
		cfg.Root = rootFlags.root
	}
	if rootFlags.logLevel != "" {
		cfg.LogLevel = rootFlags.logLevel
	}
	if rootFlags.logFormat != "" {
		cfg.LogFormat = rootFlags.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return config.Config{}, err
	}
	logging.Init(level, cfg.LogFormat)
	return cfg, nil
}

// openIndex rebuilds the cache index from the mirror tree.
func openIndex(root string) (*cache.Index, error) {
	ix := cache.New(root)
	if err := ix.Rebuild(); err != nil {
		return nil, fmt.Errorf("rebuild cache index: %w", err)
	}
	return ix, nil
}

// newManager wires the syncer, archive, and index into a mirror manager.
func newManager(cfg config.Config, verbose bool) (*mirror.Manager, error) {
	ix, err := openIndex(cfg.Root)
	if err != nil {
		return nil, err
	}
	return mirror.New(mirror.Config{
		Syncer:  coredb.NewGitSyncer(cfg.Root, coredb.WithLogger(logging.New("coredb"))),
		Archive: coredb.NewLocalArchive(cfg.Root),
		Index:   ix,
		Sync: coredb.SyncOptions{
			Protocol: cfg.Protocol,
			LFS:      cfg.LFS,
			Verbose:  verbose,
		},
		Workers: cfg.Workers,
		Logger:  logging.New("mirror"),
	}), nil
}

// loadCatalog builds the metadata snapshot over every synchronized
// simulation under the mirror root.
func loadCatalog(cfg config.Config) (*catalog.Table, error) {
	archive := coredb.NewLocalArchive(cfg.Root)
	keys, err := archive.Keys()
	if err != nil {
		return nil, err
	}
	return catalog.Build(archive, keys)
}
