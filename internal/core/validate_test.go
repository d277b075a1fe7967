package core

import (
	"errors"
	"testing"
)

func testFields() []FieldDefinition {
	return []FieldDefinition{
		{Key: "date", Label: "Fecha", Type: FieldDate, Required: true, Enabled: true},
		{Key: "amount", Label: "Monto", Type: FieldNumber, Required: true, Enabled: true},
		{Key: "currency", Label: "Moneda", Type: FieldEnum, Required: true, Enabled: true, EnumValues: []string{"ARS", "USD"}},
		{Key: "vendor", Label: "Proveedor", Type: FieldString, Enabled: true},
		{Key: "legacy", Label: "Legacy", Type: FieldEnum, Required: true, Enabled: false, EnumValues: []string{"a"}},
	}
}

func validDoc() Document {
	return Document{"date": "2025-03-14", "amount": 120.5, "currency": "ARS"}
}

func TestValidateDocumentOK(t *testing.T) {
	if err := ValidateDocument(validDoc(), testFields()); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
}

func TestValidateDocumentMissingRequired(t *testing.T) {
	doc := validDoc()
	delete(doc, "amount")
	err := ValidateDocument(doc, testFields())
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if ve.Key != "amount" {
		t.Fatalf("expected amount, got %s", ve.Key)
	}
}

func TestValidateDocumentNullCountsAsMissing(t *testing.T) {
	doc := validDoc()
	doc["date"] = nil
	if err := ValidateDocument(doc, testFields()); err == nil {
		t.Fatalf("expected error for null required value")
	}
}

func TestValidateDocumentDisabledRequiredSkipped(t *testing.T) {
	// legacy is required but disabled: its absence must not reject.
	if err := ValidateDocument(validDoc(), testFields()); err != nil {
		t.Fatalf("disabled required field should not be enforced: %v", err)
	}
}

func TestValidateDocumentEnum(t *testing.T) {
	cases := []struct {
		name  string
		value any
		ok    bool
	}{
		{"member", "USD", true},
		{"non-member", "EUR", false},
		{"case sensitive", "usd", false},
		{"non-string value", 42.0, false},
		{"null skips enum check on non-required key", nil, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fields := testFields()
			doc := validDoc()
			doc["vendor_tier"] = tc.value
			fields = append(fields, FieldDefinition{
				Key: "vendor_tier", Label: "Tier", Type: FieldEnum, Enabled: true,
				EnumValues: []string{"ARS", "USD", "42"},
			})
			err := ValidateDocument(doc, fields)
			if tc.ok && err != nil {
				t.Fatalf("expected ok, got %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatalf("expected error for %v", tc.value)
			}
		})
	}
}

func TestValidateDocumentEnumErrorDetails(t *testing.T) {
	doc := validDoc()
	doc["currency"] = "EUR"
	err := ValidateDocument(doc, testFields())
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if ve.Key != "currency" {
		t.Fatalf("expected currency, got %s", ve.Key)
	}
	if len(ve.Allowed) != 2 || ve.Allowed[0] != "ARS" || ve.Allowed[1] != "USD" {
		t.Fatalf("expected allowed [ARS USD], got %v", ve.Allowed)
	}
}

func TestValidateDocumentOpenWorld(t *testing.T) {
	doc := validDoc()
	doc["unmodeled"] = "anything"
	doc["legacy"] = "not-in-enum" // disabled field: no enum check
	if err := ValidateDocument(doc, testFields()); err != nil {
		t.Fatalf("unknown and disabled keys must pass through: %v", err)
	}
}

func TestValidateDocumentEmptyEnumListUnconstrained(t *testing.T) {
	fields := []FieldDefinition{
		{Key: "tag", Label: "Tag", Type: FieldEnum, Enabled: true},
	}
	if err := ValidateDocument(Document{"tag": "whatever"}, fields); err != nil {
		t.Fatalf("empty enum list must not constrain: %v", err)
	}
}
