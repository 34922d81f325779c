package classifier

// Flatten collapses nested objects into a single level keyed by dot-joined paths,
// e.g. {"merchant": {"category": "salary"}} becomes {"merchant.category": "salary"}.
// Arrays and scalars are leaves.
func Flatten(obj map[string]any) map[string]any {
	flat := make(map[string]any, len(obj))
	flattenInto(flat, "", obj)
	return flat
}

func flattenInto(flat map[string]any, prefix string, obj map[string]any) {
	for k, v := range obj {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := v.(map[string]any); ok {
			flattenInto(flat, key, nested)
			continue
		}
		flat[key] = v
	}
}
