// Package postgres implements the data source contract over a SQL table.
// Pages are tables; columns are ordered by ordinal position so the field
// list lines up with the schema. The header-row setting has no meaning for a
// relational backend and is ignored.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	apperrors "postergen/internal/common/errors"
	"postergen/internal/common/logger"
	"postergen/internal/datasource"
)

const HandlerName = "postgres"

func init() {
	datasource.Register(HandlerName, New)
}

type Handler struct {
	db         *sql.DB
	table      string
	keyColumn  int
	fieldCount int
	logger     logger.Logger
}

func New(opts datasource.Options, log logger.Logger) (datasource.Handler, error) {
	src := opts.Source
	if src.Postgres.DSN == "" {
		return nil, apperrors.NewConfigInvalidError("postgres.dsn is required for the postgres handler")
	}
	db, err := sql.Open("postgres", src.Postgres.DSN)
	if err != nil {
		return nil, apperrors.NewConnectionFailedError(err)
	}
	return NewWithDB(db, opts, log)
}

// NewWithDB builds a handler over an existing connection. Tests inject a
// sqlmock database here.
func NewWithDB(db *sql.DB, opts datasource.Options, log logger.Logger) (*Handler, error) {
	table := opts.Source.Postgres.Table
	if table == "" {
		table = opts.Page
	}
	if table == "" {
		return nil, apperrors.NewConfigInvalidError("postgres.table is required for the postgres handler")
	}
	return &Handler{
		db:         db,
		table:      table,
		keyColumn:  opts.KeyColumn,
		fieldCount: opts.FieldCount,
		logger:     log.WithFields(map[string]interface{}{"handler": HandlerName, "table": table}),
	}, nil
}

func (h *Handler) FetchRecord(ctx context.Context, caseID string) ([]string, error) {
	keyName, err := h.columnName(ctx, h.table, h.keyColumn)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT * FROM %s WHERE %s = $1",
		pq.QuoteIdentifier(h.table), pq.QuoteIdentifier(keyName))
	rows, err := h.db.QueryContext(ctx, query, caseID)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, classify(err)
		}
		return nil, apperrors.NewCaseNotFoundError(caseID)
	}

	cols, err := rows.Columns()
	if err != nil {
		return nil, classify(err)
	}
	if len(cols) != h.fieldCount {
		return nil, apperrors.NewSchemaMismatchError(h.fieldCount, len(cols))
	}

	values := make([]sql.NullString, len(cols))
	ptrs := make([]interface{}, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, classify(err)
	}

	row := make([]string, len(values))
	for i, v := range values {
		if v.Valid {
			row[i] = v.String
		}
	}
	return row, nil
}

func (h *Handler) ListPages(ctx context.Context) ([]string, error) {
	const query = `SELECT table_name FROM information_schema.tables
		WHERE table_schema = 'public' ORDER BY table_name`
	rows, err := h.db.QueryContext(ctx, query)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var pages []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, classify(err)
		}
		pages = append(pages, name)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return pages, nil
}

func (h *Handler) ListColumnNames(ctx context.Context, page string, headerRow int) ([]string, error) {
	const query = `SELECT column_name FROM information_schema.columns
		WHERE table_name = $1 ORDER BY ordinal_position`
	rows, err := h.db.QueryContext(ctx, query, h.pageOrTable(page))
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, classify(err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return names, nil
}

func (h *Handler) ListColumnValues(ctx context.Context, page string, columnIndex int) ([]string, error) {
	if columnIndex < 1 {
		return nil, apperrors.NewConfigInvalidError("column index must be 1 or larger")
	}
	table := h.pageOrTable(page)
	name, err := h.columnName(ctx, table, columnIndex)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM %s",
		pq.QuoteIdentifier(name), pq.QuoteIdentifier(table))
	rows, err := h.db.QueryContext(ctx, query)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v sql.NullString
		if err := rows.Scan(&v); err != nil {
			return nil, classify(err)
		}
		values = append(values, v.String)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return values, nil
}

// Close releases the underlying connection pool.
func (h *Handler) Close() error {
	return h.db.Close()
}

// pageOrTable resolves the effective table: the configured table when no
// page is given. A sheets-style page name is meaningless here unless it
// names another table explicitly.
func (h *Handler) pageOrTable(page string) string {
	if page == "" {
		return h.table
	}
	return page
}

// columnName resolves a 1-based ordinal position to the column name.
func (h *Handler) columnName(ctx context.Context, table string, position int) (string, error) {
	const query = `SELECT column_name FROM information_schema.columns
		WHERE table_name = $1 AND ordinal_position = $2`
	var name string
	err := h.db.QueryRowContext(ctx, query, table, position).Scan(&name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", apperrors.NewSchemaMismatchError(position, 0)
		}
		return "", classify(err)
	}
	return name, nil
}

func classify(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// Class 28 covers invalid authorization.
		if pqErr.Code.Class() == "28" {
			return apperrors.NewAuthenticationFailedError(err)
		}
	}
	return apperrors.NewConnectionFailedError(err)
}
