// Package sheets implements the data source contract over a Google Sheet
// accessed with a service-account keys file.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	apperrors "postergen/internal/common/errors"
	"postergen/internal/common/logger"
	"postergen/internal/datasource"
)

const HandlerName = "sheets"

func init() {
	datasource.Register(HandlerName, New)
}

type Handler struct {
	svc        *sheetsapi.Service
	sheetID    string
	page       string
	headerRow  int
	keyColumn  int
	fieldCount int
	logger     logger.Logger
}

// New builds a read-only Sheets client from the account keys file named in
// the data source configuration.
func New(opts datasource.Options, log logger.Logger) (datasource.Handler, error) {
	src := opts.Source
	if src.Sheet.ID == "" {
		return nil, apperrors.NewConfigInvalidError("sheet.id is required for the sheets handler")
	}
	if src.Account.KeysFile == "" {
		return nil, apperrors.NewConfigInvalidError("account.keys_file is required for the sheets handler")
	}
	if _, err := os.Stat(src.Account.KeysFile); err != nil {
		return nil, apperrors.NewConfigInvalidError(
			fmt.Sprintf("account.keys_file does not point at an existing file: %s", src.Account.KeysFile))
	}

	svc, err := sheetsapi.NewService(context.Background(),
		option.WithCredentialsFile(src.Account.KeysFile),
		option.WithScopes(sheetsapi.SpreadsheetsReadonlyScope),
	)
	if err != nil {
		return nil, apperrors.NewAuthenticationFailedError(err)
	}

	return &Handler{
		svc:        svc,
		sheetID:    src.Sheet.ID,
		page:       opts.Page,
		headerRow:  opts.HeaderRow,
		keyColumn:  opts.KeyColumn,
		fieldCount: opts.FieldCount,
		logger:     log.WithFields(map[string]interface{}{"handler": HandlerName, "sheetId": src.Sheet.ID}),
	}, nil
}

func (h *Handler) FetchRecord(ctx context.Context, caseID string) ([]string, error) {
	rowIndex, err := h.findRowIndex(ctx, caseID)
	if err != nil {
		return nil, err
	}

	rng := fmt.Sprintf("'%s'!%d:%d", h.page, rowIndex, rowIndex)
	vr, err := h.svc.Spreadsheets.Values.Get(h.sheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, classify(err)
	}
	if len(vr.Values) == 0 {
		return nil, apperrors.NewCaseNotFoundError(caseID)
	}

	row := toStrings(vr.Values[0])
	// The Values API trims trailing empty cells; pad back to the field
	// list width. Rows wider than the field list are a real mismatch.
	if len(row) > h.fieldCount {
		return nil, apperrors.NewSchemaMismatchError(h.fieldCount, len(row))
	}
	for len(row) < h.fieldCount {
		row = append(row, "")
	}

	h.logger.Debug("fetched record", map[string]interface{}{
		"caseId": caseID,
		"row":    rowIndex,
	})
	return row, nil
}

func (h *Handler) ListPages(ctx context.Context) ([]string, error) {
	resp, err := h.svc.Spreadsheets.Get(h.sheetID).
		Fields("sheets.properties.title").
		Context(ctx).Do()
	if err != nil {
		return nil, classify(err)
	}
	pages := make([]string, 0, len(resp.Sheets))
	for _, s := range resp.Sheets {
		if s.Properties != nil {
			pages = append(pages, s.Properties.Title)
		}
	}
	return pages, nil
}

func (h *Handler) ListColumnNames(ctx context.Context, page string, headerRow int) ([]string, error) {
	rng := fmt.Sprintf("'%s'!%d:%d", page, headerRow, headerRow)
	vr, err := h.svc.Spreadsheets.Values.Get(h.sheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, classify(err)
	}
	if len(vr.Values) == 0 {
		return nil, nil
	}
	return toStrings(vr.Values[0]), nil
}

func (h *Handler) ListColumnValues(ctx context.Context, page string, columnIndex int) ([]string, error) {
	if columnIndex < 1 {
		return nil, apperrors.NewConfigInvalidError("column index must be 1 or larger")
	}
	col := columnLetter(columnIndex)
	rng := fmt.Sprintf("'%s'!%s:%s", page, col, col)
	vr, err := h.svc.Spreadsheets.Values.Get(h.sheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, classify(err)
	}
	var values []string
	for i, row := range vr.Values {
		if i < h.headerRow {
			continue
		}
		if len(row) > 0 {
			values = append(values, fmt.Sprint(row[0]))
		} else {
			values = append(values, "")
		}
	}
	return values, nil
}

// findRowIndex scans the key column for the case identifier and returns the
// matching 1-based row index.
func (h *Handler) findRowIndex(ctx context.Context, caseID string) (int, error) {
	col := columnLetter(h.keyColumn)
	rng := fmt.Sprintf("'%s'!%s:%s", h.page, col, col)
	vr, err := h.svc.Spreadsheets.Values.Get(h.sheetID, rng).Context(ctx).Do()
	if err != nil {
		return 0, classify(err)
	}
	for i, row := range vr.Values {
		if i < h.headerRow {
			continue
		}
		if len(row) > 0 && fmt.Sprint(row[0]) == caseID {
			return i + 1, nil
		}
	}
	return 0, apperrors.NewCaseNotFoundError(caseID)
}

// classify maps transport errors onto the data-source taxonomy.
func classify(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return apperrors.NewAuthenticationFailedError(err)
		}
	}
	return apperrors.NewConnectionFailedError(err)
}

func toStrings(cells []interface{}) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = fmt.Sprint(c)
	}
	return out
}

// columnLetter converts a 1-based column index to its A1-notation letters.
func columnLetter(index int) string {
	var letters []byte
	for index > 0 {
		index--
		letters = append([]byte{byte('A' + index%26)}, letters...)
		index /= 26
	}
	return string(letters)
}
