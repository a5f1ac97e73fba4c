package models

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// ProgressFunc reports download progress in percent.
type ProgressFunc func(progress float64)

// DownloadFile fetches url into destPath, writing through a temp file so
// a partial download never shadows a good copy.
func DownloadFile(ctx context.Context, url, destPath string, onProgress ProgressFunc) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmpPath := destPath + ".tmp"
	out, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer out.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to create request: %w", err)
	}

	// No timeout: model files are large.
	client := &http.Client{Timeout: 0}
	resp, err := client.Do(req)
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		os.Remove(tmpPath)
		return fmt.Errorf("bad status: %s", resp.Status)
	}

	reader := &progressReader{
		reader:     resp.Body,
		totalSize:  resp.ContentLength,
		onProgress: onProgress,
	}
	if _, err := io.Copy(out, reader); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write file: %w", err)
	}

	out.Close()
	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename file: %w", err)
	}
	return nil
}

type progressReader struct {
	reader     io.Reader
	totalSize  int64
	downloaded int64
	onProgress ProgressFunc
	lastReport time.Time
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	if n > 0 {
		pr.downloaded += int64(n)
		now := time.Now()
		if pr.onProgress != nil && pr.totalSize > 0 &&
			(now.Sub(pr.lastReport) >= 500*time.Millisecond || err == io.EOF) {
			pr.lastReport = now
			pr.onProgress(float64(pr.downloaded) / float64(pr.totalSize) * 100)
		}
	}
	return n, err
}
