// Package ingest finds the scanned report files feeding a batch run.
package ingest

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/polifund/fundscan/constants"
	"github.com/polifund/fundscan/internal/common"
)

// DirStats summarizes one folder enumeration.
type DirStats struct {
	Scanned uint32
	Matched uint32
}

// ListFiles walks root and returns the candidate scan files in
// lexicographic order. Hidden entries are skipped, as are extensions
// outside constants.AllowedExtensions.
func ListFiles(root string) ([]string, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, common.NewAppError("INPUT_ERROR", "input folder is required", common.ErrInvalidInput)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, DirStats{}, common.NewAppError("INPUT_ERROR", fmt.Sprintf("input folder not found: %s", root), common.ErrInvalidInput)
	}
	if !info.IsDir() {
		return nil, DirStats{}, common.NewAppError("INPUT_ERROR", fmt.Sprintf("not a directory: %s", root), common.ErrInvalidInput)
	}

	var files []string
	var stats DirStats
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		stats.Scanned++
		if !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++
		files = append(files, path)
		return nil
	})
	if walkErr != nil {
		return nil, stats, common.WrapError(walkErr, "walk input folder")
	}

	sort.Strings(files)
	return files, stats, nil
}

// AllowedExt reports whether ext names a supported scan format.
func AllowedExt(ext string) bool {
	_, ok := constants.AllowedExtensions[constants.NormalizeExt(ext)]
	return ok
}

// IsHidden reports whether the path's base name starts with a dot.
func IsHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
