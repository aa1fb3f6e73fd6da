// Package csvfile implements the data source contract over a local CSV
// file. It serves as the offline/mock backend: one file, one page named
// after the file.
package csvfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	apperrors "postergen/internal/common/errors"
	"postergen/internal/common/logger"
	"postergen/internal/datasource"
)

const HandlerName = "csvfile"

func init() {
	datasource.Register(HandlerName, New)
}

type Handler struct {
	path       string
	headerRow  int
	keyColumn  int
	fieldCount int
	logger     logger.Logger
}

func New(opts datasource.Options, log logger.Logger) (datasource.Handler, error) {
	path := opts.Source.CSV.Path
	if path == "" {
		return nil, apperrors.NewConfigInvalidError("csv.path is required for the csvfile handler")
	}
	return &Handler{
		path:       path,
		headerRow:  opts.HeaderRow,
		keyColumn:  opts.KeyColumn,
		fieldCount: opts.FieldCount,
		logger:     log.WithFields(map[string]interface{}{"handler": HandlerName, "path": path}),
	}, nil
}

func (h *Handler) FetchRecord(ctx context.Context, caseID string) ([]string, error) {
	rows, err := h.readAll()
	if err != nil {
		return nil, err
	}
	for i, row := range rows {
		if i < h.headerRow {
			continue
		}
		if h.keyColumn <= len(row) && row[h.keyColumn-1] == caseID {
			if len(row) != h.fieldCount {
				return nil, apperrors.NewSchemaMismatchError(h.fieldCount, len(row))
			}
			return row, nil
		}
	}
	return nil, apperrors.NewCaseNotFoundError(caseID)
}

// ListPages returns the single page this backend exposes, named after the
// file without its extension.
func (h *Handler) ListPages(ctx context.Context) ([]string, error) {
	base := filepath.Base(h.path)
	return []string{strings.TrimSuffix(base, filepath.Ext(base))}, nil
}

func (h *Handler) ListColumnNames(ctx context.Context, page string, headerRow int) ([]string, error) {
	rows, err := h.readAll()
	if err != nil {
		return nil, err
	}
	if headerRow < 1 || headerRow > len(rows) {
		return nil, apperrors.NewConfigInvalidError(
			fmt.Sprintf("header row %d is outside the file (rows: %d)", headerRow, len(rows)))
	}
	return rows[headerRow-1], nil
}

func (h *Handler) ListColumnValues(ctx context.Context, page string, columnIndex int) ([]string, error) {
	if columnIndex < 1 {
		return nil, apperrors.NewConfigInvalidError("column index must be 1 or larger")
	}
	rows, err := h.readAll()
	if err != nil {
		return nil, err
	}
	var values []string
	for i, row := range rows {
		if i < h.headerRow {
			continue
		}
		if columnIndex <= len(row) {
			values = append(values, row[columnIndex-1])
		} else {
			values = append(values, "")
		}
	}
	return values, nil
}

func (h *Handler) readAll() ([][]string, error) {
	f, err := os.Open(h.path)
	if err != nil {
		return nil, apperrors.NewConnectionFailedError(err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	// Rows may legitimately differ in width; the schema check happens per
	// fetched record against the configured field list.
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, apperrors.NewConnectionFailedError(err)
	}
	return rows, nil
}
