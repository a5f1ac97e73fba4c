package models

import (
	"context"
	"fmt"
	"log"
	"os"
)

// Manager keeps local copies of the registry models.
type Manager struct {
	dir      string
	progress func(modelID string, percent float64)
}

// NewManager creates a manager storing models under dir.
func NewManager(dir string) *Manager {
	return &Manager{dir: dir}
}

// SetProgressCallback registers a download progress callback.
func (m *Manager) SetProgressCallback(fn func(modelID string, percent float64)) {
	m.progress = fn
}

// Dir returns the local model directory.
func (m *Manager) Dir() string {
	return m.dir
}

// IsDownloaded reports whether every file of the model is present.
func (m *Manager) IsDownloaded(modelID string) bool {
	info, ok := Lookup(modelID)
	if !ok {
		return false
	}
	for _, f := range info.Files {
		if _, err := os.Stat(FilePath(m.dir, modelID, f.Name)); err != nil {
			return false
		}
	}
	return true
}

// EnsureModel downloads any missing files of the model.
func (m *Manager) EnsureModel(ctx context.Context, modelID string) error {
	info, ok := Lookup(modelID)
	if !ok {
		return fmt.Errorf("unknown model: %s", modelID)
	}

	for i, f := range info.Files {
		dest := FilePath(m.dir, modelID, f.Name)
		if _, err := os.Stat(dest); err == nil {
			continue
		}

		log.Printf("[Models] Downloading %s [%d/%d]: %s", modelID, i+1, len(info.Files), f.Name)
		fileIndex := i
		err := DownloadFile(ctx, f.URL, dest, func(p float64) {
			if m.progress != nil {
				total := (float64(fileIndex) + p/100) / float64(len(info.Files)) * 100
				m.progress(modelID, total)
			}
		})
		if err != nil {
			return fmt.Errorf("failed to download %s: %w", f.Name, err)
		}
	}

	if m.progress != nil {
		m.progress(modelID, 100)
	}
	return nil
}
