// Package reconcile coerces unreliable model output into a caller-defined shape.
//
// A template is an arbitrary decoded JSON value acting as a schema-by-example:
// object keys define the field set and nesting, a singleton array holding one
// object means "one or more records of this shape", and scalar leaves are
// placeholders whose own value only matters as a default. Reconciliation is a
// total function: whatever the candidate looks like, the result always has
// exactly the template's key set and nesting.
package reconcile

import (
	"sort"
	"strings"
)

// Reconcile merges candidate into a deep clone of template. It runs two
// passes: an exact structural pass driven by the template's keys, then a
// fuzzy pass that salvages candidate keys whose names almost match a template
// key (case and underscore/hyphen differences, substring containment) into
// result slots that are still empty.
//
// Inputs must be values produced by encoding/json decoding into any
// (map[string]any, []any, string, float64, bool, nil). Reconcile never
// mutates its arguments and never fails.
func Reconcile(template, candidate any) any {
	tmplObj, ok := template.(map[string]any)
	if !ok {
		// Non-object templates degrade to the leaf rules.
		return reconcileValue(template, candidate, candidate != nil)
	}

	candObj, _ := candidate.(map[string]any)

	result := make(map[string]any, len(tmplObj))
	consumed := make(map[string]bool, len(candObj))

	for _, key := range sortedKeys(tmplObj) {
		tmplVal := tmplObj[key]
		candVal, present := candObj[key]
		if present {
			consumed[key] = true
		}
		result[key] = reconcileValue(tmplVal, candVal, present)
	}

	if candObj != nil {
		fuzzyMerge(tmplObj, candObj, consumed, result)
	}

	return result
}

// reconcileValue applies the per-field rules for one template value.
func reconcileValue(tmplVal, candVal any, present bool) any {
	switch tv := tmplVal.(type) {
	case []any:
		return reconcileArray(tv, candVal)
	case map[string]any:
		if cvObj, ok := candVal.(map[string]any); ok {
			return Reconcile(tv, cvObj)
		}
		// Candidate is not an object: keep the nested template's own defaults.
		return Clone(tv)
	default:
		// Scalar leaf (including null placeholders): take the candidate value
		// only when it is present and non-null.
		if present && candVal != nil {
			return Clone(candVal)
		}
		return tmplVal
	}
}

// reconcileArray handles array-typed template fields. Cardinality follows the
// candidate, never the template.
func reconcileArray(tmplArr []any, candVal any) any {
	recordTmpl, isRecordArray := recordTemplate(tmplArr)
	candArr, candIsArr := candVal.([]any)

	switch {
	case isRecordArray && candIsArr:
		out := make([]any, 0, len(candArr))
		for _, elem := range candArr {
			out = append(out, Reconcile(recordTmpl, elem))
		}
		return out
	case isRecordArray:
		// The model flattened an expected record list. A lone object becomes a
		// singleton list; anything else cannot carry the record shape.
		if cvObj, ok := candVal.(map[string]any); ok {
			return []any{Reconcile(recordTmpl, cvObj)}
		}
		return []any{}
	case candIsArr:
		return Clone(candArr)
	case candVal == nil:
		return []any{}
	default:
		// Scalar where a list was expected: wrap it.
		return []any{Clone(candVal)}
	}
}

// recordTemplate reports whether tmplArr describes repeated records and
// returns the record shape if so.
func recordTemplate(tmplArr []any) (map[string]any, bool) {
	if len(tmplArr) == 0 {
		return nil, false
	}
	obj, ok := tmplArr[0].(map[string]any)
	return obj, ok
}

// fuzzyMerge is the salvage pass. Candidate keys that were not consumed by an
// exact match are normalized and compared against every template key; on a
// match the candidate's value fills the template slot, but only if that slot
// is still empty. The first matching template key (in sorted order) wins.
func fuzzyMerge(tmplObj, candObj map[string]any, consumed map[string]bool, result map[string]any) {
	tmplKeys := sortedKeys(tmplObj)

	for _, candKey := range sortedKeys(candObj) {
		if consumed[candKey] {
			continue
		}
		normCand := normalizeKey(candKey)
		if normCand == "" {
			continue
		}

		for _, tmplKey := range tmplKeys {
			normTmpl := normalizeKey(tmplKey)
			if normTmpl == "" {
				continue
			}
			if normCand != normTmpl &&
				!strings.Contains(normCand, normTmpl) &&
				!strings.Contains(normTmpl, normCand) {
				continue
			}

			tmplVal := tmplObj[tmplKey]
			if !isEmptySlot(tmplVal, result[tmplKey]) {
				continue
			}

			candVal := candObj[candKey]
			switch tv := tmplVal.(type) {
			case []any:
				result[tmplKey] = reconcileArray(tv, candVal)
			case map[string]any:
				// Object-typed fields are never eligible for fuzzy overwrite.
				continue
			default:
				if candVal == nil {
					continue
				}
				result[tmplKey] = Clone(candVal)
			}
			break
		}
	}
}

// isEmptySlot implements the emptiness rule: array-typed slots are empty when
// the current value is not an array or has no elements; object-typed slots
// are never empty; scalar slots are empty when the current value still equals
// the placeholder, or is null or an empty string.
func isEmptySlot(tmplVal, current any) bool {
	switch tmplVal.(type) {
	case []any:
		arr, ok := current.([]any)
		return !ok || len(arr) == 0
	case map[string]any:
		return false
	default:
		if current == nil {
			return true
		}
		if s, ok := current.(string); ok && s == "" {
			return true
		}
		return current == tmplVal
	}
}

// normalizeKey lower-cases a field name and strips underscores and hyphens so
// that e.g. full_name, FullName and full-name all compare equal.
func normalizeKey(key string) string {
	key = strings.ToLower(key)
	key = strings.ReplaceAll(key, "_", "")
	key = strings.ReplaceAll(key, "-", "")
	return key
}

// sortedKeys returns the map's keys in sorted order. JSON objects decoded
// into Go maps lose their original key order, so sorting is what makes the
// fuzzy pass's "first template key wins" rule deterministic.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone deep-copies a decoded JSON value. Scalars are returned as-is.
func Clone(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = Clone(elem)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = Clone(elem)
		}
		return out
	default:
		return v
	}
}
