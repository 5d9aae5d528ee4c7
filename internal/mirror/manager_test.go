package mirror

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"coremirror/internal/cache"
	"coremirror/internal/coredb"
	"coremirror/internal/strain"
)

// fakeDB implements coredb.Syncer and coredb.Archive over an in-memory
// simulation fixture, materializing run directories under root on Sync.
type fakeDB struct {
	root     string
	runs     map[string]map[string]string             // sim -> run -> eccentricity attr
	channels map[string]map[string]strain.Series      // sim -> channel name -> series
	syncErr  error

	syncCalls  int
	purgeCalls int
}

func (f *fakeDB) Sync(_ context.Context, keys []string, _ coredb.SyncOptions) error {
	f.syncCalls++
	if f.syncErr != nil {
		return f.syncErr
	}
	for _, key := range keys {
		for run := range f.runs[key] {
			if err := os.MkdirAll(f.RunDir(key, run), 0o755); err != nil {
				return err
			}
		}
	}
	return nil
}

func (f *fakeDB) SimAttrs(string) (map[string]string, error) { return nil, nil }

func (f *fakeDB) Runs(sim string) ([]string, error) {
	var out []string
	for run := range f.runs[sim] {
		out = append(out, run)
	}
	return out, nil
}

func (f *fakeDB) RunAttr(sim, run, name string) (string, error) {
	if name != "id_eccentricity" {
		return "", nil
	}
	return f.runs[sim][run], nil
}

func (f *fakeDB) ChannelSet(sim, _ string) (map[string]strain.Series, error) {
	ch, ok := f.channels[sim]
	if !ok {
		return nil, errors.New("no raw data")
	}
	return ch, nil
}

func (f *fakeDB) RunDir(sim, run string) string {
	return filepath.Join(f.root, coredb.DirName(sim), run)
}

func (f *fakeDB) PurgeRaw(string) error {
	f.purgeCalls++
	return nil
}

func newFixture(t *testing.T) (*fakeDB, *Manager) {
	t.Helper()
	root := t.TempDir()
	db := &fakeDB{
		root: root,
		runs: map[string]map[string]string{
			"BAM:0001": {"R01": "0.05", "R02": "0.01"},
		},
		channels: map[string]map[string]strain.Series{
			"BAM:0001": {
				"Rh_l2_m2_r00100.dat": {{1, 2, 3, 4, 5, 6, 7, 8, 9}},
				"Rh_l2_m2_r00250.dat": {{9, 8, 7, 6, 5, 4, 3, 2, 1}},
			},
		},
	}
	m := New(Config{
		Syncer:  db,
		Archive: db,
		Index:   cache.New(root),
	})
	return db, m
}

func TestMaterialize_SelectsAndWrites(t *testing.T) {
	db, m := newFixture(t)

	res, err := m.Materialize(context.Background(), "BAM:0001", Options{})
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if res.Skipped {
		t.Error("first materialization must not be skipped")
	}
	if res.Run != "R02" {
		t.Errorf("run = %s, want R02 (lowest eccentricity)", res.Run)
	}
	if res.Record.Radius != 250 {
		t.Errorf("radius = %d, want 250 (highest extraction)", res.Record.Radius)
	}
	if res.Record.Eccentricity != 0.01 {
		t.Errorf("eccentricity = %v, want 0.01", res.Record.Eccentricity)
	}

	wantFile := filepath.Join(db.RunDir("BAM:0001", "R02"), "Rh_l2_m2_r00250.txt")
	if res.Record.File != wantFile {
		t.Errorf("file = %s, want %s", res.Record.File, wantFile)
	}
	if _, err := os.Stat(wantFile); err != nil {
		t.Errorf("artifact not written: %v", err)
	}
	if db.purgeCalls != 1 {
		t.Errorf("purgeCalls = %d, want 1", db.purgeCalls)
	}
	if !m.Index().Contains("BAM:0001") {
		t.Error("index should contain the simulation after materialization")
	}
}

func TestMaterialize_IdempotentWithoutOverwrite(t *testing.T) {
	db, m := newFixture(t)
	ctx := context.Background()

	first, err := m.Materialize(ctx, "BAM:0001", Options{})
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	second, err := m.Materialize(ctx, "BAM:0001", Options{})
	if err != nil {
		t.Fatalf("second Materialize: %v", err)
	}

	if !second.Skipped {
		t.Error("second materialization should be skipped")
	}
	if second.Record != first.Record {
		t.Errorf("skipped call must return the identical record: %+v vs %+v", second.Record, first.Record)
	}
	if db.syncCalls != 1 {
		t.Errorf("syncCalls = %d, want 1 (no side effects on skip)", db.syncCalls)
	}
}

func TestMaterialize_OverwriteRefetches(t *testing.T) {
	db, m := newFixture(t)
	ctx := context.Background()

	if _, err := m.Materialize(ctx, "BAM:0001", Options{}); err != nil {
		t.Fatal(err)
	}
	res, err := m.Materialize(ctx, "BAM:0001", Options{Overwrite: true})
	if err != nil {
		t.Fatalf("Materialize overwrite: %v", err)
	}
	if res.Skipped {
		t.Error("overwrite must not skip")
	}
	if db.syncCalls != 2 {
		t.Errorf("syncCalls = %d, want 2", db.syncCalls)
	}
}

func TestMaterialize_KeepRawSkipsPurge(t *testing.T) {
	db, m := newFixture(t)

	if _, err := m.Materialize(context.Background(), "BAM:0001", Options{KeepRaw: true}); err != nil {
		t.Fatal(err)
	}
	if db.purgeCalls != 0 {
		t.Errorf("purgeCalls = %d, want 0 with KeepRaw", db.purgeCalls)
	}
}

func TestMaterialize_SyncFailurePropagates(t *testing.T) {
	db, m := newFixture(t)
	db.syncErr = errors.New("connection refused")

	res, err := m.Materialize(context.Background(), "BAM:0001", Options{})
	if err == nil {
		t.Fatal("sync failure must propagate")
	}
	if res.Err == nil {
		t.Error("result should carry the per-key error")
	}
	if m.Index().Contains("BAM:0001") {
		t.Error("failed key must not be cached")
	}
}

func TestMaterialize_NaNFallbackRun(t *testing.T) {
	db, m := newFixture(t)
	db.runs["BAM:0001"] = map[string]string{"R01": "NAN", "R02": "0.0"}

	res, err := m.Materialize(context.Background(), "BAM:0001", Options{})
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if res.Run != "R01" || !math.IsNaN(res.Record.Eccentricity) {
		t.Errorf("got (%s, %v), want (R01, NaN): NaN reference is an accepted fallback",
			res.Run, res.Record.Eccentricity)
	}
}

func TestMaterializeMany_IsolatesFailures(t *testing.T) {
	db, m := newFixture(t)
	db.runs["THC:0042"] = map[string]string{"R01": "0.02"}
	// THC:0042 has runs but no raw channels, so its materialization fails.

	results := m.MaterializeMany(context.Background(), []string{"THC:0042", "BAM:0001"}, Options{})
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	if results[0].Err == nil {
		t.Error("THC:0042 should fail (no raw channels)")
	}
	if results[1].Err != nil {
		t.Errorf("BAM:0001 should succeed despite the earlier failure: %v", results[1].Err)
	}
	if !m.Index().Contains("BAM:0001") {
		t.Error("successful key should be cached")
	}
}

func TestMaterializeMany_ReportsSkips(t *testing.T) {
	_, m := newFixture(t)
	ctx := context.Background()

	if _, err := m.Materialize(ctx, "BAM:0001", Options{}); err != nil {
		t.Fatal(err)
	}
	results := m.MaterializeMany(ctx, []string{"BAM:0001"}, Options{})
	if !results[0].Skipped {
		t.Error("already-cached key should report Skipped")
	}
}

func TestLoad_RoundTrip(t *testing.T) {
	_, m := newFixture(t)

	if _, err := m.Materialize(context.Background(), "BAM:0001", Options{}); err != nil {
		t.Fatal(err)
	}
	s, err := m.Load("BAM:0001")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(s) != 1 || len(s[0]) != 9 {
		t.Errorf("series shape = %dx%d, want 1x9", len(s), len(s[0]))
	}
	if s[0][0] != 9 {
		t.Errorf("first value = %v, want 9 (the r00250 channel)", s[0][0])
	}
}

func TestLoad_NotMaterialized(t *testing.T) {
	_, m := newFixture(t)
	if _, err := m.Load("BAM:0001"); err == nil {
		t.Error("Load should fail for an unmaterialized simulation")
	}
}
