package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gastos/internal/core"
	"gastos/internal/storage"
)

// Schema is the full public schema document: current version plus the
// enabled field definitions in insertion order.
type Schema struct {
	Name      string                 `json:"name"`
	Version   string                 `json:"version"`
	UpdatedAt time.Time              `json:"updated_at"`
	Fields    []core.FieldDefinition `json:"fields"`
}

// SchemaService owns the field definitions and the version stamp. Every
// structural mutation (create, update, disable, hard delete) bumps the
// version; a no-op update does not.
type SchemaService struct {
	storage *storage.SQLiteRepository
}

func NewSchemaService(storage *storage.SQLiteRepository) *SchemaService {
	return &SchemaService{storage: storage}
}

// Schema returns the current schema document. Disabled fields are excluded
// from the listing; their keys stay reserved in storage.
func (s *SchemaService) Schema(ctx context.Context) (Schema, error) {
	version, err := s.CurrentVersion(ctx)
	if err != nil {
		return Schema{}, err
	}

	fields, err := s.storage.ListFields(ctx)
	if err != nil {
		return Schema{}, err
	}
	enabled := make([]core.FieldDefinition, 0, len(fields))
	for _, f := range fields {
		if f.Enabled {
			enabled = append(enabled, f)
		}
	}

	return Schema{
		Name:      core.SchemaName,
		Version:   version.Version,
		UpdatedAt: version.UpdatedAt,
		Fields:    enabled,
	}, nil
}

// EnabledFields returns the definitions handed to the validator, which
// skips disabled entries itself.
func (s *SchemaService) EnabledFields(ctx context.Context) ([]core.FieldDefinition, error) {
	return s.storage.ListFields(ctx)
}

// CurrentVersion returns the stored version stamp, performing the first
// bump as bootstrap when none exists yet.
func (s *SchemaService) CurrentVersion(ctx context.Context) (core.SchemaVersion, error) {
	v, err := s.storage.GetSchemaVersion(ctx, core.SchemaName)
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return core.SchemaVersion{}, err
	}
	return s.Bump(ctx)
}

// Bump derives and persists the next version stamp.
func (s *SchemaService) Bump(ctx context.Context) (core.SchemaVersion, error) {
	prev := ""
	if stored, err := s.storage.GetSchemaVersion(ctx, core.SchemaName); err == nil {
		prev = stored.Version
	} else if !errors.Is(err, core.ErrNotFound) {
		return core.SchemaVersion{}, err
	}

	now := time.Now().UTC()
	next := core.SchemaVersion{
		Name:      core.SchemaName,
		Version:   core.NextVersion(prev, now),
		UpdatedAt: now,
	}
	if err := s.storage.SetSchemaVersion(ctx, next); err != nil {
		return core.SchemaVersion{}, err
	}

	slog.InfoContext(ctx, "Schema version bumped", "previous", prev, "version", next.Version)
	return next, nil
}

// CreateField adds a definition and bumps the version. Fails with a
// conflict when the key exists, enabled or not.
func (s *SchemaService) CreateField(ctx context.Context, f core.FieldDefinition) (Schema, error) {
	if err := f.Validate(); err != nil {
		return Schema{}, err
	}
	if err := s.storage.CreateField(ctx, f); err != nil {
		return Schema{}, err
	}
	if _, err := s.Bump(ctx); err != nil {
		return Schema{}, err
	}
	return s.Schema(ctx)
}

// UpdateField overlays a partial change set onto an existing definition.
// An empty change set succeeds without a version bump.
func (s *SchemaService) UpdateField(ctx context.Context, key string, patch core.FieldPatch) (Schema, error) {
	existing, err := s.storage.GetField(ctx, key)
	if err != nil {
		return Schema{}, err
	}

	if patch.IsEmpty() {
		return s.Schema(ctx)
	}

	updated := patch.Apply(existing)
	if err := updated.Validate(); err != nil {
		return Schema{}, err
	}
	if err := s.storage.UpdateField(ctx, updated); err != nil {
		return Schema{}, err
	}
	if _, err := s.Bump(ctx); err != nil {
		return Schema{}, err
	}
	return s.Schema(ctx)
}

// DeleteField disables a definition, or physically removes it when hard is
// set. Disabling is the default delete: the key stays reserved.
func (s *SchemaService) DeleteField(ctx context.Context, key string, hard bool) (Schema, error) {
	if err := s.storage.DeleteField(ctx, key, hard); err != nil {
		return Schema{}, err
	}
	if _, err := s.Bump(ctx); err != nil {
		return Schema{}, err
	}
	return s.Schema(ctx)
}

// Seed installs the default expense schema on an empty store.
func (s *SchemaService) Seed(ctx context.Context) error {
	fields, err := s.storage.ListFields(ctx)
	if err != nil {
		return fmt.Errorf("seed schema: %w", err)
	}
	if len(fields) > 0 {
		return nil
	}

	for _, f := range defaultFields() {
		if err := s.storage.CreateField(ctx, f); err != nil {
			return fmt.Errorf("seed field %s: %w", f.Key, err)
		}
	}
	if _, err := s.Bump(ctx); err != nil {
		return fmt.Errorf("seed schema: %w", err)
	}

	slog.InfoContext(ctx, "Seeded default expense schema", "fields", len(defaultFields()))
	return nil
}

func defaultFields() []core.FieldDefinition {
	return []core.FieldDefinition{
		{Key: "date", Label: "Fecha", Type: core.FieldDate, Required: true, Enabled: true, Description: "Fecha del gasto"},
		{Key: "amount", Label: "Monto", Type: core.FieldNumber, Required: true, Enabled: true, Description: "Monto total"},
		{Key: "currency", Label: "Moneda", Type: core.FieldEnum, Required: true, Enabled: true, Description: "Código moneda", EnumValues: []string{"ARS", "USD"}},
		{Key: "vendor", Label: "Proveedor", Type: core.FieldString, Enabled: true, Description: "Proveedor / comercio"},
		{Key: "category", Label: "Categoría", Type: core.FieldString, Enabled: true, Description: "Eje principal"},
		{Key: "payment_method", Label: "Medio de pago", Type: core.FieldString, Enabled: true, Description: "Efectivo / tarjeta / etc."},
		{Key: "client", Label: "Cliente", Type: core.FieldString, Enabled: true, Description: "Cliente (si aplica)"},
		{Key: "concept", Label: "Concepto", Type: core.FieldString, Enabled: true, Description: "Descripción breve"},
		{Key: "notes", Label: "Notas", Type: core.FieldString, Enabled: true, Description: "Observaciones"},
		{Key: "status", Label: "Estado", Type: core.FieldEnum, Enabled: true, Description: "pending_confirmation/confirmed/rejected", EnumValues: []string{"pending_confirmation", "confirmed", "rejected"}},
	}
}
