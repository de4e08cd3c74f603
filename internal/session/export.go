package session

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrSessionNotFound is returned when a scan id is unknown or expired.
var ErrSessionNotFound = errors.New("scan session not found")

var csvHeader = []string{"site", "name", "price", "url", "sizes", "availability", "description"}

// exportCSV appends any not-yet-exported results of the session to its CSV
// file under dir, writing the header on first creation, and advances the
// session's export bookkeeping. The caller holds whatever lock protects the
// session.
func exportCSV(entry *Session, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export dir: %w", err)
	}
	if entry.ExportPath == "" {
		entry.ExportPath = filepath.Join(dir, fmt.Sprintf("scan_%s.csv", entry.ID))
	}

	_, statErr := os.Stat(entry.ExportPath)
	writeHeader := os.IsNotExist(statErr)

	newRows := entry.Results[min(entry.ExportedCount, len(entry.Results)):]
	if len(newRows) == 0 && !writeHeader {
		return entry.ExportPath, nil
	}

	handle, err := os.OpenFile(entry.ExportPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to open export file: %w", err)
	}
	defer handle.Close()

	writer := csv.NewWriter(handle)
	if writeHeader {
		if err := writer.Write(csvHeader); err != nil {
			return "", fmt.Errorf("failed to write header: %w", err)
		}
	}
	for _, row := range newRows {
		record := []string{
			row.Site,
			row.Name,
			row.Price,
			row.URL,
			strings.Join(row.Sizes, ", "),
			row.Availability,
			row.Description,
		}
		if err := writer.Write(record); err != nil {
			return "", fmt.Errorf("failed to write row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", fmt.Errorf("failed to flush export: %w", err)
	}

	entry.ExportedCount = len(entry.Results)
	return entry.ExportPath, nil
}
