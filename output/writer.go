// Package output persists scrape results as pretty-printed JSON files.
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/use-agent/vgascout/models"
)

// DefaultPath is where results land when no path is configured.
const DefaultPath = "resultado_placas.json"

// Write wraps records in a ScrapeResult stamped with now and writes it to
// path, replacing any existing file. An empty path means DefaultPath.
func Write(records []models.ProductRecord, path string, now time.Time) (*models.ScrapeResult, error) {
	if path == "" {
		path = DefaultPath
	}

	result := models.NewScrapeResult(records, now)
	data, err := Encode(result)
	if err != nil {
		slog.Error("failed to encode result", "path", path, "error", err)
		return nil, models.NewScrapeError(models.ErrCodeWriteFailed, "failed to encode result", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		slog.Error("failed to write result file", "path", path, "error", err)
		return nil, models.NewScrapeError(models.ErrCodeWriteFailed, fmt.Sprintf("failed to write %s", path), err)
	}

	slog.Info("result written", "path", path, "total_count", result.TotalCount, "bytes", len(data))
	return result, nil
}

// Encode renders result as UTF-8 JSON with 2-space indentation and a
// trailing newline. HTML characters in product names are kept as-is.
func Encode(result *models.ScrapeResult) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(result); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Read loads a result file written by Write.
func Read(path string) (*models.ScrapeResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read result file: %w", err)
	}
	var result models.ScrapeResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("parse result file: %w", err)
	}
	return &result, nil
}
