package core

// ValidateDocument checks a candidate document against the enabled field
// definitions. Required fields must carry a non-null value. Values submitted
// for enabled enum fields must be a case-sensitive member of the field's
// value list; an empty list means no constraint. Keys the schema does not
// know about, and keys of disabled fields, pass through untouched.
func ValidateDocument(doc Document, fields []FieldDefinition) error {
	enabled := make(map[string]FieldDefinition, len(fields))
	for _, f := range fields {
		if f.Enabled {
			enabled[f.Key] = f
		}
	}

	for _, f := range fields {
		if f.Enabled && f.Required {
			if doc[f.Key] == nil {
				return missingRequired(f.Key)
			}
		}
	}

	for k, v := range doc {
		f, ok := enabled[k]
		if !ok || f.Type != FieldEnum || len(f.EnumValues) == 0 || v == nil {
			continue
		}
		s, isString := v.(string)
		if !isString || !contains(f.EnumValues, s) {
			return invalidEnum(k, v, f.EnumValues)
		}
	}

	return nil
}

func contains(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}
