package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// writeRun lays out root/<simDir>/<run>/ with a metadata file and the
// given artifact file names.
func writeRun(t *testing.T, root, simDir, run, metadata string, artifacts ...string) string {
	t.Helper()
	dir := filepath.Join(root, simDir, run)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if metadata != "" {
		if err := os.WriteFile(filepath.Join(dir, "metadata.txt"), []byte(metadata), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	for _, name := range artifacts {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("# header\n0 0 0 0 0 0 0 0 0\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestRebuild_ScansTree(t *testing.T) {
	root := t.TempDir()
	dir := writeRun(t, root, "BAM_0001", "R01",
		"id_eccentricity = 0.0078\n", "Rh_l2_m2_r00400.txt")

	ix := New(root)
	if err := ix.Rebuild(); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	rec, ok := ix.Get("BAM:0001", "R01")
	if !ok {
		t.Fatalf("BAM:0001/R01 not indexed; sims = %v", ix.Sims())
	}
	want := Record{
		File:         filepath.Join(dir, "Rh_l2_m2_r00400.txt"),
		Eccentricity: 0.0078,
		Radius:       400,
	}
	if diff := cmp.Diff(want, rec); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}
}

func TestRebuild_DuplicateKeepsLargerRadius(t *testing.T) {
	root := t.TempDir()
	writeRun(t, root, "THC_0042", "R02",
		"id_eccentricity = 0.01\n",
		"Rh_l2_m2_r00100.txt", "Rh_l2_m2_r00250.txt")

	ix := New(root)
	if err := ix.Rebuild(); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	runs, ok := ix.Lookup("THC:0042")
	if !ok || len(runs) != 1 {
		t.Fatalf("want exactly one cached run, got %v", runs)
	}
	rec := runs["R02"]
	if rec.Radius != 250 {
		t.Errorf("radius = %d, want 250 (larger radius wins)", rec.Radius)
	}
	if filepath.Base(rec.File) != "Rh_l2_m2_r00250.txt" {
		t.Errorf("file = %s, want the r00250 artifact", rec.File)
	}
	// The losing artifact is shadowed, never deleted.
	if _, err := os.Stat(filepath.Join(root, "THC_0042", "R02", "Rh_l2_m2_r00100.txt")); err != nil {
		t.Errorf("loser artifact should stay on disk: %v", err)
	}
}

func TestRebuild_MissingEccentricityIsFatal(t *testing.T) {
	root := t.TempDir()
	writeRun(t, root, "BAM_0002", "R01",
		"id_mass = 2.7\n", "Rh_l2_m2_r00100.txt")

	ix := New(root)
	if err := ix.Rebuild(); err == nil {
		t.Fatal("Rebuild should fail when the metadata file lacks an eccentricity line")
	}
}

func TestRebuild_MissingRootIsEmpty(t *testing.T) {
	ix := New(filepath.Join(t.TempDir(), "never-created"))
	if err := ix.Rebuild(); err != nil {
		t.Fatalf("Rebuild over a missing root should yield an empty index: %v", err)
	}
	if ix.Len() != 0 {
		t.Errorf("Len = %d, want 0", ix.Len())
	}
}

func TestInsert_ReplacesSimulationEntry(t *testing.T) {
	ix := New(t.TempDir())
	ix.Insert("BAM:0001", "R01", Record{File: "a", Radius: 100})
	ix.Insert("BAM:0001", "R03", Record{File: "b", Radius: 250})

	runs, _ := ix.Lookup("BAM:0001")
	if len(runs) != 1 {
		t.Fatalf("want a single visible run per simulation, got %v", runs)
	}
	if _, ok := runs["R03"]; !ok {
		t.Errorf("latest inserted run should win, got %v", runs)
	}
}

func TestContains(t *testing.T) {
	ix := New(t.TempDir())
	if ix.Contains("BAM:0001") {
		t.Error("empty index should not contain anything")
	}
	ix.Insert("BAM:0001", "R01", Record{})
	if !ix.Contains("BAM:0001") {
		t.Error("Contains should see inserted simulation")
	}
}

func TestRebuild_ReconstructsAfterInsert(t *testing.T) {
	root := t.TempDir()
	writeRun(t, root, "BAM_0003", "R01",
		"id_eccentricity = 0.002\n", "Rh_l2_m2_r00150.txt")

	ix := New(root)
	if err := ix.Rebuild(); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	ix.Insert("GHOST:0001", "R01", Record{File: "in-memory-only", Radius: 1})

	// A rescan drops state that is not backed by the tree.
	if err := ix.Rebuild(); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if ix.Contains("GHOST:0001") {
		t.Error("rescan should only reflect on-disk artifacts")
	}
	if !ix.Contains("BAM:0003") {
		t.Error("rescan lost an on-disk artifact")
	}
}
