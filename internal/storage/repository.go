package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gastos/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository is the single durable store behind the service: schema
// metadata, field definitions, expense documents and aliases. Nothing is
// cached; every call goes to the database.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ---- schema version ----

func (r *SQLiteRepository) GetSchemaVersion(ctx context.Context, name string) (core.SchemaVersion, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT name, version, updated_at FROM schema_meta WHERE name = ?`, name)
	var v core.SchemaVersion
	if err := row.Scan(&v.Name, &v.Version, &v.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.SchemaVersion{}, core.ErrNotFound
		}
		return core.SchemaVersion{}, fmt.Errorf("get schema version: %w", err)
	}
	return v, nil
}

func (r *SQLiteRepository) SetSchemaVersion(ctx context.Context, v core.SchemaVersion) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO schema_meta(name, version, updated_at)
		VALUES(?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET version=excluded.version, updated_at=excluded.updated_at
	`, v.Name, v.Version, v.UpdatedAt)
	if err != nil {
		return fmt.Errorf("set schema version: %w", err)
	}
	return nil
}

// ---- field definitions ----

func (r *SQLiteRepository) ListFields(ctx context.Context) ([]core.FieldDefinition, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT key, label, type, required, enabled, description, enum_values
		FROM schema_fields ORDER BY position, rowid
	`)
	if err != nil {
		return nil, fmt.Errorf("list fields: %w", err)
	}
	defer rows.Close()

	var fields []core.FieldDefinition
	for rows.Next() {
		f, err := scanField(rows)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list fields: %w", err)
	}
	return fields, nil
}

func (r *SQLiteRepository) GetField(ctx context.Context, key string) (core.FieldDefinition, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT key, label, type, required, enabled, description, enum_values
		FROM schema_fields WHERE key = ?
	`, key)
	f, err := scanField(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.FieldDefinition{}, core.ErrNotFound
		}
		return core.FieldDefinition{}, err
	}
	return f, nil
}

// CreateField inserts a new definition. Uniqueness is a read-then-insert
// pre-check, case-sensitive and regardless of enabled state.
func (r *SQLiteRepository) CreateField(ctx context.Context, f core.FieldDefinition) error {
	var existing string
	err := r.db.QueryRowContext(ctx,
		`SELECT key FROM schema_fields WHERE key = ?`, f.Key).Scan(&existing)
	if err == nil {
		return fmt.Errorf("field %s: %w", f.Key, core.ErrConflict)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("check field key: %w", err)
	}

	enumValues, err := marshalEnumValues(f.EnumValues)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO schema_fields(key, label, type, required, enabled, description, enum_values, position)
		VALUES(?, ?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM schema_fields))
	`, f.Key, f.Label, string(f.Type), boolToInt(f.Required), boolToInt(f.Enabled),
		nullIfEmpty(f.Description), enumValues)
	if err != nil {
		return fmt.Errorf("insert field: %w", err)
	}
	return nil
}

// UpdateField overwrites every mutable attribute of an existing definition.
func (r *SQLiteRepository) UpdateField(ctx context.Context, f core.FieldDefinition) error {
	enumValues, err := marshalEnumValues(f.EnumValues)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE schema_fields
		SET label = ?, type = ?, required = ?, enabled = ?, description = ?, enum_values = ?
		WHERE key = ?
	`, f.Label, string(f.Type), boolToInt(f.Required), boolToInt(f.Enabled),
		nullIfEmpty(f.Description), enumValues, f.Key)
	if err != nil {
		return fmt.Errorf("update field: %w", err)
	}
	return requireRow(res, f.Key)
}

// DeleteField removes a definition. A soft delete only flips enabled off;
// the row keeps its key reserved.
func (r *SQLiteRepository) DeleteField(ctx context.Context, key string, hard bool) error {
	var res sql.Result
	var err error
	if hard {
		res, err = r.db.ExecContext(ctx, `DELETE FROM schema_fields WHERE key = ?`, key)
	} else {
		res, err = r.db.ExecContext(ctx, `UPDATE schema_fields SET enabled = 0 WHERE key = ?`, key)
	}
	if err != nil {
		return fmt.Errorf("delete field: %w", err)
	}
	return requireRow(res, key)
}

// ---- expenses ----

func (r *SQLiteRepository) InsertExpense(ctx context.Context, e core.Expense) error {
	data, err := json.Marshal(e.Data)
	if err != nil {
		return fmt.Errorf("marshal expense data: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO expenses(id, created_at, updated_at, schema_version, data)
		VALUES(?, ?, ?, ?, ?)
	`, e.ID, e.CreatedAt, e.UpdatedAt, e.SchemaVersion, string(data))
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, id string) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, created_at, updated_at, schema_version, data FROM expenses WHERE id = ?
	`, id)
	e, err := scanExpense(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Expense{}, core.ErrNotFound
		}
		return core.Expense{}, err
	}
	return e, nil
}

// ListExpenses returns up to limit records, newest first. Filtering happens
// above this layer, against the decoded documents.
func (r *SQLiteRepository) ListExpenses(ctx context.Context, limit int) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, created_at, updated_at, schema_version, data
		FROM expenses ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return expenses, nil
}

func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.Expense) error {
	data, err := json.Marshal(e.Data)
	if err != nil {
		return fmt.Errorf("marshal expense data: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE expenses SET updated_at = ?, schema_version = ?, data = ? WHERE id = ?
	`, e.UpdatedAt, e.SchemaVersion, string(data), e.ID)
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	return requireRow(res, e.ID)
}

// ---- aliases ----

func (r *SQLiteRepository) AliasExists(ctx context.Context, kind core.AliasKind, alias string) (bool, error) {
	var id string
	err := r.db.QueryRowContext(ctx,
		`SELECT id FROM aliases WHERE kind = ? AND alias = ?`, string(kind), alias).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check alias: %w", err)
	}
	return true, nil
}

func (r *SQLiteRepository) InsertAlias(ctx context.Context, a core.Alias) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO aliases(id, kind, alias, value, created_at) VALUES(?, ?, ?, ?, ?)
	`, a.ID, string(a.Kind), a.Alias, a.Value, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert alias: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListAliases(ctx context.Context, limit int) ([]core.Alias, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, kind, alias, value, created_at
		FROM aliases ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list aliases: %w", err)
	}
	defer rows.Close()

	var aliases []core.Alias
	for rows.Next() {
		var a core.Alias
		var kind string
		if err := rows.Scan(&a.ID, &kind, &a.Alias, &a.Value, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan alias: %w", err)
		}
		a.Kind = core.AliasKind(kind)
		aliases = append(aliases, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list aliases: %w", err)
	}
	return aliases, nil
}

func (r *SQLiteRepository) DeleteAlias(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM aliases WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete alias: %w", err)
	}
	return requireRow(res, id)
}

// ---- scanning helpers ----

type rowScanner interface {
	Scan(dest ...any) error
}

func scanField(row rowScanner) (core.FieldDefinition, error) {
	var f core.FieldDefinition
	var fieldType string
	var required, enabled int
	var description, enumValues sql.NullString
	if err := row.Scan(&f.Key, &f.Label, &fieldType, &required, &enabled, &description, &enumValues); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.FieldDefinition{}, err
		}
		return core.FieldDefinition{}, fmt.Errorf("scan field: %w", err)
	}
	f.Type = core.FieldType(fieldType)
	f.Required = required != 0
	f.Enabled = enabled != 0
	f.Description = description.String
	if enumValues.Valid && enumValues.String != "" {
		if err := json.Unmarshal([]byte(enumValues.String), &f.EnumValues); err != nil {
			return core.FieldDefinition{}, fmt.Errorf("decode enum values for %s: %w", f.Key, err)
		}
	}
	return f, nil
}

func scanExpense(row rowScanner) (core.Expense, error) {
	var e core.Expense
	var data string
	if err := row.Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt, &e.SchemaVersion, &data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Expense{}, err
		}
		return core.Expense{}, fmt.Errorf("scan expense: %w", err)
	}
	if err := json.Unmarshal([]byte(data), &e.Data); err != nil {
		return core.Expense{}, fmt.Errorf("decode expense data for %s: %w", e.ID, err)
	}
	return e, nil
}

func marshalEnumValues(values []string) (any, error) {
	if values == nil {
		return nil, nil
	}
	b, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("marshal enum values: %w", err)
	}
	return string(b), nil
}

func requireRow(res sql.Result, ref string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", ref, core.ErrNotFound)
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
