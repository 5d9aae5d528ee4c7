// Package mirror orchestrates materialization: for each requested
// simulation it synchronizes raw data, selects the lowest-eccentricity run
// and the highest-radius channel, writes the compact strain artifact next
// to the run's metadata, records it in the cache index, and purges the raw
// data unless asked to keep it.
package mirror

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"coremirror/internal/cache"
	"coremirror/internal/coredb"
	"coremirror/internal/logging"
	"coremirror/internal/selection"
	"coremirror/internal/strain"
)

// eccentricityAttr is the run-level attribute driving run selection.
const eccentricityAttr = "id_eccentricity"

// Options control a single materialization.
type Options struct {
	// Overwrite re-materializes even when the simulation is already cached.
	Overwrite bool
	// KeepRaw skips the raw-data purge after extraction.
	KeepRaw bool
}

// Result is the per-key outcome of a materialization. Err is set when the
// key failed; Skipped when the cache already held the simulation and no
// side effects were performed.
type Result struct {
	Key     string
	Run     string
	Record  cache.Record
	Skipped bool
	Err     error
}

// Config assembles a Manager.
type Config struct {
	Syncer  coredb.Syncer
	Archive coredb.Archive
	Index   *cache.Index
	Sync    coredb.SyncOptions
	// Workers bounds concurrent materializations in MaterializeMany.
	// Zero or one preserves the strictly sequential behavior.
	Workers int
	Logger  *slog.Logger
}

// Manager composes the selection algorithms, the cache index, and the
// database collaborators.
type Manager struct {
	syncer  coredb.Syncer
	archive coredb.Archive
	index   *cache.Index
	syncOpt coredb.SyncOptions
	workers int
	logger  *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a Manager from cfg.
func New(cfg Config) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.New("mirror")
	}
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	return &Manager{
		syncer:  cfg.Syncer,
		archive: cfg.Archive,
		index:   cfg.Index,
		syncOpt: cfg.Sync,
		workers: workers,
		logger:  logger,
		locks:   make(map[string]*sync.Mutex),
	}
}

// Index exposes the cache index, e.g. for status listings.
func (m *Manager) Index() *cache.Index { return m.index }

// lockFor returns the per-simulation mutex, creating it on first use.
// Materialization of one key never blocks another key.
func (m *Manager) lockFor(key string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[key]
	if !ok {
		l = &sync.Mutex{}
		m.locks[key] = l
	}
	return l
}

// Materialize fetches, selects, and caches one simulation. When the
// simulation is already cached and opts.Overwrite is false, the existing
// record is returned with Skipped set and no side effects. Collaborator
// failures are not retried; they abort this key only. The cache check plus
// sync are safe to repeat, so a failed key can simply be requested again.
func (m *Manager) Materialize(ctx context.Context, key string, opts Options) (Result, error) {
	if !opts.Overwrite {
		if runs, ok := m.index.Lookup(key); ok {
			for run, rec := range runs {
				m.logger.Info("already materialized, skipping", "sim", key, "run", run)
				return Result{Key: key, Run: run, Record: rec, Skipped: true}, nil
			}
		}
	}

	lock := m.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	fail := func(err error) (Result, error) {
		return Result{Key: key, Err: err}, err
	}

	if err := m.syncer.Sync(ctx, []string{key}, m.syncOpt); err != nil {
		return fail(err)
	}

	runKeys, err := m.archive.Runs(key)
	if err != nil {
		return fail(err)
	}
	if len(runKeys) == 0 {
		return fail(fmt.Errorf("mirror: %s: no available runs", key))
	}
	eccs := make(map[string]string, len(runKeys))
	for _, run := range runKeys {
		v, err := m.archive.RunAttr(key, run, eccentricityAttr)
		if err != nil {
			return fail(err)
		}
		eccs[run] = v
	}

	run, ecc, err := selection.BestRun(eccs)
	if err != nil {
		return fail(err)
	}

	channels, err := m.archive.ChannelSet(key, run)
	if err != nil {
		return fail(err)
	}
	names := make([]string, 0, len(channels))
	for name := range channels {
		names = append(names, name)
	}
	channel, radius, err := selection.HighestExtraction(names)
	if err != nil {
		return fail(err)
	}

	path := filepath.Join(m.archive.RunDir(key, run), strain.FileName(radius))
	if err := strain.Write(path, channels[channel]); err != nil {
		return fail(err)
	}

	rec := cache.Record{File: path, Eccentricity: ecc, Radius: radius}
	m.index.Insert(key, run, rec)

	if !opts.KeepRaw {
		if err := m.archive.PurgeRaw(key); err != nil {
			return fail(err)
		}
	}

	m.logger.Info("materialized",
		"sim", key, "run", run, "channel", channel,
		"radius", radius, "eccentricity", ecc)
	return Result{Key: key, Run: run, Record: rec}, nil
}

// MaterializeMany processes keys independently: one key's failure never
// aborts the rest, and every key reports its own skip/success/failure in
// the returned results (ordered like keys). With Workers > 1 the keys are
// materialized concurrently under the per-simulation locks.
func (m *Manager) MaterializeMany(ctx context.Context, keys []string, opts Options) []Result {
	results := make([]Result, len(keys))

	var g errgroup.Group
	g.SetLimit(m.workers)
	for i, key := range keys {
		g.Go(func() error {
			res, err := m.Materialize(ctx, key, opts)
			if err != nil {
				m.logger.Error("materialize failed", "sim", key, "error", err)
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Load reads back the cached strain series of a simulation.
func (m *Manager) Load(key string) (strain.Series, error) {
	runs, ok := m.index.Lookup(key)
	if !ok {
		return nil, fmt.Errorf("mirror: %s is not materialized", key)
	}
	for _, rec := range runs {
		return strain.Read(rec.File)
	}
	return nil, fmt.Errorf("mirror: %s has no cached run", key)
}
