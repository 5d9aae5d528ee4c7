package coredb

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"coremirror/internal/strain"
)

// simMetadataFile and runMetadataFile are the CoRe metadata files at the
// simulation and run level.
const (
	simMetadataFile = "metadata_main.txt"
	runMetadataFile = "metadata.txt"
)

// rawExt is the extension of raw channel dumps inside a run directory.
// Raw dumps deliberately do not match the Rh*.txt artifact pattern, so a
// cache rescan never mistakes raw data for extracted artifacts.
const rawExt = ".dat"

// LocalArchive reads synchronized simulation repositories from the mirror
// root.
type LocalArchive struct {
	Root string
}

// NewLocalArchive returns an archive over the mirror root.
func NewLocalArchive(root string) *LocalArchive {
	return &LocalArchive{Root: root}
}

// SimDir returns the local directory of a simulation.
func (a *LocalArchive) SimDir(sim string) string {
	return filepath.Join(a.Root, DirName(sim))
}

// RunDir returns the local directory of a run.
func (a *LocalArchive) RunDir(sim, run string) string {
	return filepath.Join(a.SimDir(sim), run)
}

// Keys lists the simulation keys already synchronized under the root, in
// sorted order. A directory counts only when it carries the simulation
// metadata file. A missing root yields an empty list.
func (a *LocalArchive) Keys() ([]string, error) {
	entries, err := os.ReadDir(a.Root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("coredb: list %s: %w", a.Root, err)
	}

	var keys []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(a.Root, e.Name(), simMetadataFile)); err != nil {
			continue
		}
		keys = append(keys, KeyName(e.Name()))
	}
	sort.Strings(keys)
	return keys, nil
}

// SimAttrs parses the simulation-level metadata file into a key/value map.
func (a *LocalArchive) SimAttrs(sim string) (map[string]string, error) {
	attrs, err := parseMetadata(filepath.Join(a.SimDir(sim), simMetadataFile))
	if err != nil {
		return nil, fmt.Errorf("coredb: %s: %w", sim, err)
	}
	return attrs, nil
}

// Runs lists the run identifiers from the available_runs attribute.
func (a *LocalArchive) Runs(sim string) ([]string, error) {
	attrs, err := a.SimAttrs(sim)
	if err != nil {
		return nil, err
	}
	raw := attrs["available_runs"]
	if raw == "" {
		return nil, nil
	}
	runs := strings.Split(raw, ", ")
	sort.Strings(runs)
	return runs, nil
}

// RunAttr returns one attribute of a run, or "" when the attribute is
// absent from the run's metadata file.
func (a *LocalArchive) RunAttr(sim, run, name string) (string, error) {
	attrs, err := parseMetadata(filepath.Join(a.RunDir(sim, run), runMetadataFile))
	if err != nil {
		return "", fmt.Errorf("coredb: %s/%s: %w", sim, run, err)
	}
	return attrs[name], nil
}

// ChannelSet reads the raw channel dumps of a run. Channel names are the
// dump file names; each dump holds one whitespace-delimited time series.
func (a *LocalArchive) ChannelSet(sim, run string) (map[string]strain.Series, error) {
	dir := a.RunDir(sim, run)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("coredb: channel set %s/%s: %w", sim, run, err)
	}

	channels := make(map[string]strain.Series)
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != rawExt {
			continue
		}
		s, err := strain.Read(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("coredb: channel %s/%s/%s: %w", sim, run, e.Name(), err)
		}
		channels[e.Name()] = s
	}
	if len(channels) == 0 {
		return nil, fmt.Errorf("coredb: channel set %s/%s: no raw channel dumps", sim, run)
	}
	return channels, nil
}

// PurgeRaw deletes the raw channel dumps of every run plus the repository's
// git metadata directory, keeping extracted artifacts and metadata files.
func (a *LocalArchive) PurgeRaw(sim string) error {
	root := a.SimDir(sim)

	dumps, err := filepath.Glob(filepath.Join(root, "*", "*"+rawExt))
	if err != nil {
		return fmt.Errorf("coredb: purge %s: %w", sim, err)
	}
	for _, f := range dumps {
		if err := os.Remove(f); err != nil {
			return fmt.Errorf("coredb: purge %s: %w", sim, err)
		}
	}

	if err := os.RemoveAll(filepath.Join(root, ".git")); err != nil {
		return fmt.Errorf("coredb: purge %s: %w", sim, err)
	}
	return nil
}

// parseMetadata reads a CoRe "name = value" metadata file. Lines without
// a separator and comment lines are skipped.
func parseMetadata(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	attrs := make(map[string]string)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		name, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		attrs[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return attrs, nil
}

// Verify compile-time interface compliance.
var _ Archive = (*LocalArchive)(nil)
