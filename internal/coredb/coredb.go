// Package coredb talks to the CoRe numerical-relativity database: it
// synchronizes per-simulation git repositories into the local mirror and
// reads the raw metadata and channel dumps they contain.
//
// The mirror layout mirrors the remote naming: the simulation key
// "BAM:0001" lives under root/BAM_0001, each run in its own subdirectory
// (R01, R02, ...) with a metadata.txt and the raw channel dumps.
package coredb

import (
	"context"

	"coremirror/internal/strain"
)

// SyncOptions control how raw simulation data is fetched.
type SyncOptions struct {
	// Protocol selects the git transport: "https" (default) or "ssh".
	Protocol string
	// LFS additionally pulls large-file-storage objects after sync.
	LFS bool
	// Verbose passes the fetch progress through to the user.
	Verbose bool
}

// Syncer fetches or refreshes the raw data of simulations by key.
// Failure modes are opaque network/storage errors and are not classified
// further here.
type Syncer interface {
	Sync(ctx context.Context, keys []string, opts SyncOptions) error
}

// Archive gives read access to synchronized raw simulation data and its
// metadata, plus the purge operation that frees raw space after the
// selected channel has been extracted.
type Archive interface {
	// SimAttrs returns the simulation-level attributes (metadata_main.txt).
	SimAttrs(sim string) (map[string]string, error)
	// Runs lists the run identifiers of a simulation, from the
	// comma-space-delimited available_runs attribute. A missing attribute
	// yields an empty list.
	Runs(sim string) ([]string, error)
	// RunAttr returns one run-level attribute, or "" when absent.
	RunAttr(sim, run, name string) (string, error)
	// ChannelSet returns the named raw measurement channels of a run.
	ChannelSet(sim, run string) (map[string]strain.Series, error)
	// RunDir returns the local directory of a run.
	RunDir(sim, run string) string
	// PurgeRaw removes the raw channel dumps and the git metadata
	// directory of a simulation, keeping extracted artifacts.
	PurgeRaw(sim string) error
}

// DirName maps a simulation key to its on-disk directory name
// ("BAM:0001" -> "BAM_0001").
func DirName(key string) string {
	out := make([]byte, len(key))
	for i := 0; i < len(key); i++ {
		if key[i] == ':' {
			out[i] = '_'
		} else {
			out[i] = key[i]
		}
	}
	return string(out)
}

// KeyName is the inverse of DirName ("BAM_0001" -> "BAM:0001").
func KeyName(dir string) string {
	out := make([]byte, len(dir))
	for i := 0; i < len(dir); i++ {
		if dir[i] == '_' {
			out[i] = ':'
		} else {
			out[i] = dir[i]
		}
	}
	return string(out)
}
