package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ExportFile describes one recognized export found on disk.
type ExportFile struct {
	Path    string    `json:"-"`
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modified"`
	Type    FileType  `json:"type"`
}

// Discovery lists recognized export files under a base directory.
type Discovery struct {
	baseDir string
}

// NewDiscovery creates a discovery rooted at the export directory.
func NewDiscovery(baseDir string) *Discovery {
	return &Discovery{baseDir: baseDir}
}

// Find returns every .txt and .csv file in the export directory whose name
// matches a recognized mapping pattern, oldest first.
func (d *Discovery) Find() ([]ExportFile, error) {
	entries, err := os.ReadDir(d.baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read export directory %s: %w", d.baseDir, err)
	}

	var files []ExportFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".txt" && ext != ".csv" {
			continue
		}
		mapping, err := DetectMapping(name)
		if err != nil {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, ExportFile{
			Path:    filepath.Join(d.baseDir, name),
			Name:    name,
			Size:    info.Size(),
			ModTime: info.ModTime(),
			Type:    mapping.Type,
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].ModTime.Before(files[j].ModTime)
	})
	return files, nil
}
