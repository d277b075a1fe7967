package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	FieldString   FieldType = "string"
	FieldNumber   FieldType = "number"
	FieldInteger  FieldType = "integer"
	FieldBoolean  FieldType = "boolean"
	FieldDate     FieldType = "date"
	FieldDatetime FieldType = "datetime"
	FieldEnum     FieldType = "enum"
)

const (
	KindVendor        AliasKind = "vendor"
	KindClient        AliasKind = "client"
	KindCategory      AliasKind = "category"
	KindSubcategory   AliasKind = "subcategory"
	KindPaymentMethod AliasKind = "payment_method"
	KindConcept       AliasKind = "concept"
	KindProject       AliasKind = "project"
	KindCostCenter    AliasKind = "cost_center"
)

// SchemaName is the only schema this service manages.
const SchemaName = "expense"

type (
	FieldType string

	AliasKind string

	// Document is the open body of an expense record: whatever keys the
	// caller submits are stored verbatim, schema or not.
	Document map[string]any

	// FieldDefinition describes one attribute an expense document may carry.
	// Disabled definitions keep their row (and reserve their key) but are
	// excluded from validation and schema listings.
	FieldDefinition struct {
		Key         string    `json:"key"`
		Label       string    `json:"label"`
		Type        FieldType `json:"type"`
		Required    bool      `json:"required"`
		Enabled     bool      `json:"enabled"`
		Description string    `json:"description,omitempty"`
		EnumValues  []string  `json:"enum_values,omitempty"`
	}

	// FieldPatch carries a partial field update; nil members are left untouched.
	FieldPatch struct {
		Label       *string    `json:"label"`
		Type        *FieldType `json:"type"`
		Required    *bool      `json:"required"`
		Enabled     *bool      `json:"enabled"`
		Description *string    `json:"description"`
		EnumValues  []string   `json:"enum_values"`
	}

	// SchemaVersion is the single current-version stamp for a schema name.
	SchemaVersion struct {
		Name      string    `json:"name"`
		Version   string    `json:"version"`
		UpdatedAt time.Time `json:"updated_at"`
	}

	// Expense is the stored envelope around an open document.
	Expense struct {
		ID            string    `json:"id"`
		CreatedAt     time.Time `json:"created_at"`
		UpdatedAt     time.Time `json:"updated_at"`
		SchemaVersion string    `json:"schema_version"`
		Data          Document  `json:"data"`
	}

	Alias struct {
		ID        string    `json:"id"`
		Kind      AliasKind `json:"kind"`
		Alias     string    `json:"alias"`
		Value     string    `json:"value"`
		CreatedAt time.Time `json:"created_at"`
	}
)

var (
	ErrEmptyKey   = errors.New("empty field key")
	ErrEmptyLabel = errors.New("empty field label")
)

func (t FieldType) IsValid() bool {
	switch t {
	case FieldString, FieldNumber, FieldInteger, FieldBoolean, FieldDate, FieldDatetime, FieldEnum:
		return true
	}
	return false
}

func (k AliasKind) IsValid() bool {
	switch k {
	case KindVendor, KindClient, KindCategory, KindSubcategory,
		KindPaymentMethod, KindConcept, KindProject, KindCostCenter:
		return true
	}
	return false
}

func (f FieldDefinition) Validate() error {
	if strings.TrimSpace(f.Key) == "" {
		return ErrEmptyKey
	}
	if strings.TrimSpace(f.Label) == "" {
		return ErrEmptyLabel
	}
	if !f.Type.IsValid() {
		return fmt.Errorf("invalid field type: %s", f.Type)
	}
	return nil
}

// IsEmpty reports whether the patch changes nothing. An empty patch is a
// no-op update: it must succeed without bumping the schema version.
func (p FieldPatch) IsEmpty() bool {
	return p.Label == nil && p.Type == nil && p.Required == nil &&
		p.Enabled == nil && p.Description == nil && p.EnumValues == nil
}

// Apply overlays the patch onto a definition, touching only the attributes
// the patch carries.
func (p FieldPatch) Apply(f FieldDefinition) FieldDefinition {
	if p.Label != nil {
		f.Label = *p.Label
	}
	if p.Type != nil {
		f.Type = *p.Type
	}
	if p.Required != nil {
		f.Required = *p.Required
	}
	if p.Enabled != nil {
		f.Enabled = *p.Enabled
	}
	if p.Description != nil {
		f.Description = *p.Description
	}
	if p.EnumValues != nil {
		f.EnumValues = p.EnumValues
	}
	return f
}

// MergePatch overlays patch onto base, ignoring patch keys whose value is
// null. There is no unset operation: a null never clears an existing value.
// The returned document is a fresh map; neither input is mutated.
func MergePatch(base, patch Document) Document {
	merged := make(Document, len(base)+len(patch))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range patch {
		if v != nil {
			merged[k] = v
		}
	}
	return merged
}
