package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// ErrNoRasterFiles means the extracted tree holds zero files matching the
// naming convention, so nothing can be analyzed.
var ErrNoRasterFiles = errors.New("no raster file matching the naming convention was found in the archive")

// Naming convention for archive contents. Batch archives carry the ROI id in
// the filename; single-ROI archives only need the date and band segments.
//
//	batch:  sentinel2_{roi_id}_{YYYY-MM-DD}_{band}.tif
//	single: *_{YYYY-MM-DD}_{band}.tif
var (
	batchPattern  = regexp.MustCompile(`^sentinel2_(\d+)_(\d{4}-\d{2}-\d{2})_(B\d{1,2}A?)\.tif$`)
	singlePattern = regexp.MustCompile(`_(\d{4}-\d{2}-\d{2})_(B\d{1,2}A?)\.tif$`)
)

// BandFiles maps band code -> file path for one (ROI, date) image.
type BandFiles map[string]string

// DateGroups maps acquisition date -> band files for one ROI.
type DateGroups map[string]BandFiles

// ROIGroups maps ROI id -> date groups, the full batch structure.
type ROIGroups map[int64]DateGroups

// Extract unpacks a zip archive into destDir, creating it if needed. Entries
// escaping destDir are rejected.
func Extract(zipPath, destDir string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("open archive %s: %w", zipPath, err)
	}
	defer r.Close()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("create extraction dir: %w", err)
	}

	for _, f := range r.File {
		target := filepath.Join(destDir, f.Name)
		if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
			return fmt.Errorf("archive entry %q escapes extraction dir", f.Name)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create dir %s: %w", target, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("create dir for %s: %w", target, err)
		}
		if err := extractFile(f, target); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(f *zip.File, target string) error {
	src, err := f.Open()
	if err != nil {
		return fmt.Errorf("open archive entry %s: %w", f.Name, err)
	}
	defer src.Close()

	dst, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("create %s: %w", target, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("extract %s: %w", f.Name, err)
	}
	return nil
}

// GroupByROI scans root recursively for batch-convention rasters and builds
// the roi -> date -> band -> path structure. Zero matches anywhere in the
// tree is a hard stop for the whole batch job.
func GroupByROI(root string) (ROIGroups, error) {
	groups := ROIGroups{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		m := batchPattern.FindStringSubmatch(d.Name())
		if m == nil {
			return nil
		}
		roiID, convErr := strconv.ParseInt(m[1], 10, 64)
		if convErr != nil {
			return nil
		}
		date, band := m[2], m[3]
		if groups[roiID] == nil {
			groups[roiID] = DateGroups{}
		}
		if groups[roiID][date] == nil {
			groups[roiID][date] = BandFiles{}
		}
		groups[roiID][date][band] = path
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan extracted archive: %w", err)
	}
	if len(groups) == 0 {
		return nil, ErrNoRasterFiles
	}
	return groups, nil
}

// GroupByDate is the single-ROI variant: the ROI is known up front, so only
// the date and band segments are parsed.
func GroupByDate(root string) (DateGroups, error) {
	groups := DateGroups{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		m := singlePattern.FindStringSubmatch(d.Name())
		if m == nil {
			return nil
		}
		date, band := m[1], m[2]
		if groups[date] == nil {
			groups[date] = BandFiles{}
		}
		groups[date][band] = path
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan extracted archive: %w", err)
	}
	if len(groups) == 0 {
		return nil, ErrNoRasterFiles
	}
	return groups, nil
}
