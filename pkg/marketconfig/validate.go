package marketconfig

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// validateEntry checks one configuration entry against the required-fields
// schema. It collects every violation instead of stopping at the first one:
// extraneous fields, missing or empty required fields, missing or empty
// required parameters, and extraneous parameters.
func validateEntry(entry configEntry, required []requiredField) []string {
	var violations []string

	fields := make(map[string]configField, len(entry.Fields))
	for _, raw := range entry.Fields {
		field, err := splitField(raw)
		if err != nil {
			violations = append(violations, fmt.Sprintf("config %q: %v", entry.Name, err))
			continue
		}
		fields[field.Name] = field
	}

	requiredByName := make(map[string][]string, len(required))
	for _, req := range required {
		requiredByName[req.FieldName] = req.FieldParams
	}

	if extras := setDifference(keysOfFields(fields), keysOfRequired(requiredByName)); len(extras) > 0 {
		violations = append(violations, fmt.Sprintf(
			"config %q: invalid fields found: %s", entry.Name, strings.Join(extras, ", ")))
	}

	var missingFields []string
	for _, req := range required {
		field, ok := fields[req.FieldName]
		if !ok {
			missingFields = append(missingFields, req.FieldName)
			continue
		}

		var missingParams []string
		for _, paramName := range req.FieldParams {
			raw, ok := field.Params[paramName]
			if !ok || emptyParam(raw) {
				missingParams = append(missingParams, paramName)
			}
		}
		if len(missingParams) > 0 {
			violations = append(violations, fmt.Sprintf(
				"config %q: missing or empty required parameter(s) for field %q: %s",
				entry.Name, req.FieldName, strings.Join(missingParams, ", ")))
		}

		if extras := setDifference(keysOfParams(field.Params), req.FieldParams); len(extras) > 0 {
			violations = append(violations, fmt.Sprintf(
				"config %q: extra parameter(s) found for field %q: %s",
				entry.Name, req.FieldName, strings.Join(extras, ", ")))
		}
	}
	if len(missingFields) > 0 {
		sort.Strings(missingFields)
		violations = append(violations, fmt.Sprintf(
			"config %q: missing or empty required field(s): %s",
			entry.Name, strings.Join(missingFields, ", ")))
	}

	return violations
}

// emptyParam reports whether a parameter value counts as empty. Strings are
// empty when blank after trimming. Class lists may be empty: an empty
// candidate list is the documented way to match the target tag
// unconditionally.
func emptyParam(raw json.RawMessage) bool {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s) == ""
	}
	return string(raw) == "null"
}

func keysOfFields(m map[string]configField) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func keysOfRequired(m map[string][]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func keysOfParams(m map[string]json.RawMessage) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// setDifference returns the members of a that are not in b, sorted.
func setDifference(a, b []string) []string {
	inB := make(map[string]struct{}, len(b))
	for _, s := range b {
		inB[s] = struct{}{}
	}
	var out []string
	for _, s := range a {
		if _, ok := inB[s]; !ok {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
