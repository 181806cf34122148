package archive

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// buildZip writes a zip holding the given entry names with dummy content.
func buildZip(t *testing.T, dir string, names []string) string {
	t.Helper()
	zipPath := filepath.Join(dir, "upload.zip")
	f, err := os.Create(zipPath)
	if err != nil {
		t.Fatalf("create zip: %v", err)
	}
	defer f.Close()

	w := zip.NewWriter(f)
	for _, name := range names {
		entry, err := w.Create(name)
		if err != nil {
			t.Fatalf("create zip entry %s: %v", name, err)
		}
		if _, err := entry.Write([]byte("tif")); err != nil {
			t.Fatalf("write zip entry %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return zipPath
}

func TestExtractAndGroupByROI(t *testing.T) {
	dir := t.TempDir()
	zipPath := buildZip(t, dir, []string{
		"sentinel2_101_2025-07-05_B04.tif",
		"sentinel2_101_2025-07-05_B08.tif",
		"sentinel2_101_2025-07-15_B04.tif",
		"nested/sentinel2_102_2025-07-05_B8A.tif",
		"notes.txt",
	})

	workDir := filepath.Join(dir, "extracted")
	if err := Extract(zipPath, workDir); err != nil {
		t.Fatalf("extract: %v", err)
	}

	groups, err := GroupByROI(workDir)
	if err != nil {
		t.Fatalf("group by roi: %v", err)
	}

	if len(groups) != 2 {
		t.Fatalf("roi count: got %d, want 2", len(groups))
	}
	if len(groups[101]) != 2 {
		t.Errorf("roi 101 dates: got %d, want 2", len(groups[101]))
	}
	if len(groups[101]["2025-07-05"]) != 2 {
		t.Errorf("roi 101 2025-07-05 bands: got %d, want 2", len(groups[101]["2025-07-05"]))
	}

	// Nested entries are grouped like flat ones, and paths point at real files.
	path, ok := groups[102]["2025-07-05"]["B8A"]
	if !ok {
		t.Fatal("roi 102 B8A missing from groups")
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("grouped path does not exist: %v", err)
	}
}

func TestGroupByROIIgnoresMalformedNames(t *testing.T) {
	dir := t.TempDir()
	zipPath := buildZip(t, dir, []string{
		"sentinel2_abc_2025-07-05_B04.tif", // roi id not numeric
		"sentinel2_101_20250705_B04.tif",   // date not ISO
		"landsat_101_2025-07-05_B04.tif",   // wrong prefix
		"sentinel2_101_2025-07-05_B04.tiff",
	})

	workDir := filepath.Join(dir, "extracted")
	if err := Extract(zipPath, workDir); err != nil {
		t.Fatalf("extract: %v", err)
	}

	_, err := GroupByROI(workDir)
	if !errors.Is(err, ErrNoRasterFiles) {
		t.Fatalf("got %v, want ErrNoRasterFiles", err)
	}
}

func TestGroupByDate(t *testing.T) {
	dir := t.TempDir()
	zipPath := buildZip(t, dir, []string{
		"scene_2025-07-05_B04.tif",
		"scene_2025-07-05_B08.tif",
		"scene_2025-08-01_B04.tif",
		"readme.md",
	})

	workDir := filepath.Join(dir, "extracted")
	if err := Extract(zipPath, workDir); err != nil {
		t.Fatalf("extract: %v", err)
	}

	groups, err := GroupByDate(workDir)
	if err != nil {
		t.Fatalf("group by date: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("date count: got %d, want 2", len(groups))
	}
	if len(groups["2025-07-05"]) != 2 {
		t.Errorf("2025-07-05 bands: got %d, want 2", len(groups["2025-07-05"]))
	}
	if _, ok := groups["2025-08-01"]["B04"]; !ok {
		t.Error("2025-08-01 B04 missing")
	}
}

func TestGroupByDateEmptyTree(t *testing.T) {
	_, err := GroupByDate(t.TempDir())
	if !errors.Is(err, ErrNoRasterFiles) {
		t.Fatalf("got %v, want ErrNoRasterFiles", err)
	}
}

func TestExtractRejectsEscapingEntries(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "evil.zip")
	f, err := os.Create(zipPath)
	if err != nil {
		t.Fatalf("create zip: %v", err)
	}
	w := zip.NewWriter(f)
	entry, err := w.Create("../escape.tif")
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}
	if _, err := entry.Write([]byte("x")); err != nil {
		t.Fatalf("write entry: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	f.Close()

	err = Extract(zipPath, filepath.Join(dir, "out"))
	if err == nil {
		t.Fatal("expected error for escaping entry, got nil")
	}
}
