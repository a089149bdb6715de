package files

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"retailcast/internal/dataprocessing"
)

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path    string
	Name    string
	Format  string
	Size    int64
	ModTime time.Time
}

// Discovery finds line-item exports on disk
type Discovery struct {
	logger *slog.Logger
}

// NewDiscovery creates a new file discovery instance
func NewDiscovery(logger *slog.Logger) *Discovery {
	if logger == nil {
		logger = slog.Default()
	}
	return &Discovery{logger: logger.With(slog.String("component", "file_discovery"))}
}

// FindLineItemFiles lists the CSV and XLSX files directly under dir, sorted
// by name. Office lock files (~$name.xlsx) and hidden files are skipped.
func (d *Discovery) FindLineItemFiles(dir string) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var files []FileInfo
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, "~$") || strings.HasPrefix(name, ".") {
			continue
		}
		format, err := dataprocessing.FormatFromName(name)
		if err != nil {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			d.logger.Warn("skipping unreadable entry",
				slog.String("file", name),
				slog.String("error", err.Error()))
			continue
		}
		files = append(files, FileInfo{
			Path:    filepath.Join(dir, name),
			Name:    name,
			Format:  format,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Name < files[j].Name
	})

	d.logger.Debug("line-item files discovered",
		slog.String("directory", dir),
		slog.Int("count", len(files)))
	return files, nil
}

// ResolveInputs expands path into the line-item files to read: a file is
// returned as is, a directory yields every line-item file it holds
func (d *Discovery) ResolveInputs(path string) ([]FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("input %s: %w", path, err)
	}

	if !info.IsDir() {
		format, err := dataprocessing.FormatFromName(path)
		if err != nil {
			return nil, err
		}
		return []FileInfo{{
			Path:    path,
			Name:    filepath.Base(path),
			Format:  format,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		}}, nil
	}

	files, err := d.FindLineItemFiles(path)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no CSV or XLSX files in %s", path)
	}
	return files, nil
}

// GetLatestFile returns the most recently modified file from a list
func GetLatestFile(files []FileInfo) (FileInfo, bool) {
	if len(files) == 0 {
		return FileInfo{}, false
	}

	latest := files[0]
	for _, file := range files[1:] {
		if file.ModTime.After(latest.ModTime) {
			latest = file
		}
	}
	return latest, true
}
