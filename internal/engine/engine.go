// Package engine loads staged tables into an embedded SQLite database and runs
// analytical queries over them.
package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/go-logr/logr"
	_ "github.com/mattn/go-sqlite3"

	"go-lake-pipeline/internal/model"
	"go-lake-pipeline/internal/staging"
)

var (
	// ErrLoad is returned when staged data cannot be loaded into a table.
	ErrLoad = errors.New("load failed")

	// ErrQuery is returned when a query cannot be executed.
	ErrQuery = errors.New("query failed")
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Engine is a single-connection in-memory SQLite database.
type Engine struct {
	db  *sql.DB
	log logr.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(log logr.Logger) Option {
	return func(e *Engine) {
		e.log = log
	}
}

// Open creates an empty in-memory database.
func Open(ctx context.Context, opts ...Option) (*Engine, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	e := &Engine{db: db, log: logr.Discard()}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Load decodes the staged CSV from r and materializes it as table name.
func (e *Engine) Load(ctx context.Context, name string, r io.Reader) error {
	if !ValidIdentifier(name) {
		return fmt.Errorf("%w: invalid table name %q", ErrLoad, name)
	}

	t, err := staging.DecodeReader(r)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLoad, err)
	}
	if err := e.LoadTable(ctx, name, t); err != nil {
		return err
	}
	e.log.V(1).Info("table loaded", "table", name, "columns", len(t.Columns), "rows", len(t.Rows))
	return nil
}

// LoadTable creates table name with t's schema and inserts every row in one transaction.
func (e *Engine) LoadTable(ctx context.Context, name string, t *model.Table) error {
	if !ValidIdentifier(name) {
		return fmt.Errorf("%w: invalid table name %q", ErrLoad, name)
	}
	if len(t.Columns) == 0 {
		return fmt.Errorf("%w: table %s has no columns", ErrLoad, name)
	}

	defs := make([]string, len(t.Columns))
	marks := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		defs[i] = quoteIdent(c.Name) + " " + sqlType(c.Type)
		marks[i] = "?"
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", ErrLoad, err)
	}
	defer func() { _ = tx.Rollback() }()

	create := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(name), strings.Join(defs, ", "))
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("%w: create table %s: %v", ErrLoad, name, err)
	}

	insert := fmt.Sprintf("INSERT INTO %s VALUES (%s)", quoteIdent(name), strings.Join(marks, ", "))
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("%w: prepare insert: %v", ErrLoad, err)
	}
	defer func() { _ = stmt.Close() }()

	for i, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return fmt.Errorf("%w: row %d has %d values, want %d", ErrLoad, i, len(row), len(t.Columns))
		}
		if _, err := stmt.ExecContext(ctx, []any(row)...); err != nil {
			return fmt.Errorf("%w: insert row %d: %v", ErrLoad, i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrLoad, err)
	}
	return nil
}

// Query runs a statement and returns the complete result set.
// Column types are derived from the returned values, falling back to the
// declared column type when a column holds only NULLs.
func (e *Engine) Query(ctx context.Context, query string) (*model.Table, error) {
	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQuery, err)
	}
	defer func() { _ = rows.Close() }()

	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("%w: column types: %v", ErrQuery, err)
	}

	result := &model.Table{Columns: make([]model.Column, len(colTypes)), Rows: []model.Row{}}
	for i, ct := range colTypes {
		result.Columns[i] = model.Column{Name: ct.Name(), Type: declaredType(ct.DatabaseTypeName())}
	}

	seen := make([]bool, len(colTypes))
	for rows.Next() {
		values := make([]any, len(colTypes))
		ptrs := make([]any, len(colTypes))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", ErrQuery, err)
		}

		row := make(model.Row, len(values))
		for i, v := range values {
			row[i] = normalize(v)
			if row[i] == nil {
				continue
			}
			typ := valueType(row[i])
			if !seen[i] {
				result.Columns[i].Type = typ
				seen[i] = true
			} else if typ > result.Columns[i].Type {
				result.Columns[i].Type = typ
			}
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQuery, err)
	}

	coerce(result)
	return result, nil
}

// Close releases the database.
func (e *Engine) Close() error {
	return e.db.Close()
}

// ValidIdentifier reports whether name can be used unquoted as a table name.
func ValidIdentifier(name string) bool {
	return identPattern.MatchString(name)
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func sqlType(t model.ColumnType) string {
	switch t {
	case model.TypeInteger:
		return "INTEGER"
	case model.TypeFloat:
		return "REAL"
	default:
		return "TEXT"
	}
}

func declaredType(name string) model.ColumnType {
	switch strings.ToUpper(name) {
	case "INTEGER", "INT", "BIGINT":
		return model.TypeInteger
	case "REAL", "FLOAT", "DOUBLE":
		return model.TypeFloat
	default:
		return model.TypeString
	}
}

func normalize(v any) any {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case bool:
		if val {
			return int64(1)
		}
		return int64(0)
	default:
		return v
	}
}

func valueType(v any) model.ColumnType {
	switch v.(type) {
	case int64:
		return model.TypeInteger
	case float64:
		return model.TypeFloat
	default:
		return model.TypeString
	}
}

// coerce makes every value match its column's widened type.
func coerce(t *model.Table) {
	for j, c := range t.Columns {
		for _, row := range t.Rows {
			switch v := row[j].(type) {
			case int64:
				switch c.Type {
				case model.TypeFloat:
					row[j] = float64(v)
				case model.TypeString:
					row[j] = fmt.Sprint(v)
				}
			case float64:
				if c.Type == model.TypeString {
					row[j] = fmt.Sprint(v)
				}
			}
		}
	}
}
