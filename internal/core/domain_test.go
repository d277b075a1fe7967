package core

import "testing"

func TestMergePatch(t *testing.T) {
	base := Document{"vendor": "Acme", "amount": 10.0, "status": "confirmed"}

	merged := MergePatch(base, Document{
		"vendor": nil,        // null never clears
		"amount": 25.0,       // overwrite
		"notes":  "expensed", // new key
	})

	if merged["vendor"] != "Acme" {
		t.Fatalf("null patch value must not clear vendor, got %v", merged["vendor"])
	}
	if merged["amount"] != 25.0 {
		t.Fatalf("expected amount 25, got %v", merged["amount"])
	}
	if merged["notes"] != "expensed" {
		t.Fatalf("expected new key to be set, got %v", merged["notes"])
	}
	if base["amount"] != 10.0 {
		t.Fatalf("base document must not be mutated, got %v", base["amount"])
	}
}

func TestMergePatchNilPatch(t *testing.T) {
	base := Document{"vendor": "Acme"}
	merged := MergePatch(base, nil)
	if merged["vendor"] != "Acme" {
		t.Fatalf("expected copy of base, got %v", merged)
	}
	merged["vendor"] = "Other"
	if base["vendor"] != "Acme" {
		t.Fatalf("merged must be a fresh map")
	}
}

func TestFieldPatchApply(t *testing.T) {
	f := FieldDefinition{
		Key: "currency", Label: "Moneda", Type: FieldEnum,
		Required: true, Enabled: true, EnumValues: []string{"ARS", "USD"},
	}

	label := "Currency"
	enabled := false
	patched := FieldPatch{Label: &label, Enabled: &enabled}.Apply(f)

	if patched.Label != "Currency" || patched.Enabled {
		t.Fatalf("patch not applied: %+v", patched)
	}
	if !patched.Required || patched.Type != FieldEnum || len(patched.EnumValues) != 2 {
		t.Fatalf("untouched attributes must survive: %+v", patched)
	}
}

func TestFieldPatchIsEmpty(t *testing.T) {
	if !(FieldPatch{}).IsEmpty() {
		t.Fatalf("zero patch should be empty")
	}
	v := true
	if (FieldPatch{Required: &v}).IsEmpty() {
		t.Fatalf("patch with a member should not be empty")
	}
	if (FieldPatch{EnumValues: []string{}}).IsEmpty() {
		t.Fatalf("patch with explicit empty enum list should not be empty")
	}
}

func TestFieldDefinitionValidate(t *testing.T) {
	good := FieldDefinition{Key: "vendor", Label: "Proveedor", Type: FieldString}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []FieldDefinition{
		{Key: "", Label: "x", Type: FieldString},
		{Key: "x", Label: "", Type: FieldString},
		{Key: "x", Label: "x", Type: FieldType("blob")},
	}
	for i, f := range bads {
		if err := f.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestAliasKindIsValid(t *testing.T) {
	for _, k := range []AliasKind{
		KindVendor, KindClient, KindCategory, KindSubcategory,
		KindPaymentMethod, KindConcept, KindProject, KindCostCenter,
	} {
		if !k.IsValid() {
			t.Fatalf("%s should be valid", k)
		}
	}
	if AliasKind("supplier").IsValid() {
		t.Fatalf("unknown kind should be invalid")
	}
}
