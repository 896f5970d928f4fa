// Package exportfile writes rendered invoice tables to local CSV
// files, laid out so the delivery step can infer the partner folder
// from the path.
package exportfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/dropship/invoicer/internal/application/export"
)

const (
	dateLayout = "01022006"
	timeLayout = "150405"
)

// ErrNoData indicates a write was requested for a table with no rows.
var ErrNoData = errors.New("exportfile: no rows to write")

// Writer persists invoice tables under {base}/{folder}/{date_time}/.
// All files of one run share a timestamp, so a partner's directory
// lists one subdirectory per run.
type Writer struct {
	baseDir  string
	runStamp time.Time
	logger   *zap.Logger
}

// NewWriter creates a writer rooted at baseDir, stamping this run's
// directories with the given time.
func NewWriter(baseDir string, runStamp time.Time, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{baseDir: baseDir, runStamp: runStamp, logger: logger}
}

// Write saves the table as Invoice_{MMDDYYYY}.csv in the folder's run
// directory and returns the file path.
func (w *Writer) Write(table *export.Table, folder string) (string, error) {
	if table == nil || len(table.Rows) == 0 {
		return "", ErrNoData
	}

	dir := filepath.Join(w.baseDir, folder, w.runStamp.Format(dateLayout+"_"+timeLayout))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("exportfile: failed to create %s: %w", dir, err)
	}

	path := filepath.Join(dir, "Invoice_"+w.runStamp.Format(dateLayout)+".csv")
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("exportfile: failed to create %s: %w", path, err)
	}
	defer file.Close()

	cw := csv.NewWriter(file)
	if err := cw.Write(table.Columns); err != nil {
		return "", fmt.Errorf("exportfile: failed to write header: %w", err)
	}
	if err := cw.WriteAll(table.Rows); err != nil {
		return "", fmt.Errorf("exportfile: failed to write rows: %w", err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return "", fmt.Errorf("exportfile: failed to flush %s: %w", path, err)
	}

	w.logger.Info("Invoice file written",
		zap.String("path", path),
		zap.Int("rows", len(table.Rows)))
	return path, nil
}
