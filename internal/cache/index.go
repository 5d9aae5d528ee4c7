// Package cache maintains the index of strain artifacts already extracted
// into the local mirror. The directory tree itself is the persisted state:
// the in-memory index is rebuilt by scanning for artifact files and is
// updated in place on every successful materialization.
package cache

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"coremirror/internal/strain"
)

// artifactGlob matches extracted strain artifacts under the mirror root.
const artifactGlob = "Rh*.txt"

// metadataFile is the per-run metadata file sitting next to each artifact.
const metadataFile = "metadata.txt"

// Record points at one materialized artifact and the selection values that
// produced it. Records are never mutated, only replaced.
type Record struct {
	File         string
	Eccentricity float64
	Radius       int
}

// Index is the two-level {simulation -> {run -> Record}} map over the
// mirror tree. Mutations and rescans are mutex-guarded so a concurrent
// insert is linearized with a rebuild.
type Index struct {
	root string

	mu   sync.RWMutex
	sims map[string]map[string]Record
}

// New returns an empty index over root. Call Rebuild to populate it from
// the directory tree.
func New(root string) *Index {
	return &Index{root: root, sims: make(map[string]map[string]Record)}
}

// Root returns the mirror root the index scans.
func (ix *Index) Root() string { return ix.root }

// Rebuild discards the in-memory state and rescans the tree for artifact
// files. Layout contract: root/<sim-key-with-underscores>/<run>/<artifact>,
// with the simulation key recovering its ":" separators. When two artifacts
// exist for the same (sim, run), the larger radius wins and the loser stays
// on disk untouched. A run directory whose metadata file lacks an
// eccentricity line is a corrupted cache entry and fails the rebuild.
func (ix *Index) Rebuild() error {
	sims := make(map[string]map[string]Record)

	err := filepath.WalkDir(ix.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == ix.root {
				return filepath.SkipAll
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		if ok, _ := filepath.Match(artifactGlob, d.Name()); !ok {
			return nil
		}

		runDir := filepath.Dir(path)
		simDir := filepath.Dir(runDir)
		run := filepath.Base(runDir)
		sim := strings.ReplaceAll(filepath.Base(simDir), "_", ":")

		radius, err := strain.RadiusFromName(d.Name())
		if err != nil {
			return fmt.Errorf("cache: scan %s: %w", path, err)
		}

		if prior, ok := sims[sim][run]; ok && radius < prior.Radius {
			return nil
		}

		ecc, err := strain.ReadEccentricity(filepath.Join(runDir, metadataFile))
		if err != nil {
			return fmt.Errorf("cache: scan %s: %w", path, err)
		}

		if sims[sim] == nil {
			sims[sim] = make(map[string]Record)
		}
		sims[sim][run] = Record{File: path, Eccentricity: ecc, Radius: radius}
		return nil
	})
	if err != nil {
		return err
	}

	ix.mu.Lock()
	ix.sims = sims
	ix.mu.Unlock()
	return nil
}

// Contains reports whether any run of the simulation is cached.
func (ix *Index) Contains(sim string) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.sims[sim]) > 0
}

// Lookup returns a copy of the cached run records for a simulation.
func (ix *Index) Lookup(sim string) (map[string]Record, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	runs, ok := ix.sims[sim]
	if !ok {
		return nil, false
	}
	out := make(map[string]Record, len(runs))
	for k, v := range runs {
		out[k] = v
	}
	return out, true
}

// Get returns the record for a specific (simulation, run) pair.
func (ix *Index) Get(sim, run string) (Record, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	rec, ok := ix.sims[sim][run]
	return rec, ok
}

// Insert records a fresh materialization. The per-simulation map is
// replaced outright: only the most recent run per simulation stays
// visible (single-cached-run limitation; older artifact files remain on
// disk and reappear on a rescan only if they outrank the new one).
func (ix *Index) Insert(sim, run string, rec Record) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.sims[sim] = map[string]Record{run: rec}
}

// Len returns the number of simulations with at least one cached run.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.sims)
}

// Sims lists the cached simulation keys in sorted order.
func (ix *Index) Sims() []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	keys := make([]string, 0, len(ix.sims))
	for k := range ix.sims {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
