// Package jsonutil provides total accessors over loosely-typed JSON
// documents. Every lookup takes an explicit default and never panics on
// a missing key or a wrong type.
package jsonutil

// Get walks path through nested map[string]interface{} values and returns
// the value found, or nil when any segment is missing.
func Get(doc map[string]interface{}, path ...string) interface{} {
	if doc == nil || len(path) == 0 {
		return nil
	}
	var current interface{} = doc
	for _, key := range path {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil
		}
		current, ok = m[key]
		if !ok {
			return nil
		}
	}
	return current
}

// GetMap returns the object at path, or nil.
func GetMap(doc map[string]interface{}, path ...string) map[string]interface{} {
	m, _ := Get(doc, path...).(map[string]interface{})
	return m
}

// GetString returns the string at path, or def.
func GetString(doc map[string]interface{}, def string, path ...string) string {
	if s, ok := Get(doc, path...).(string); ok {
		return s
	}
	return def
}

// GetFloat returns the number at path, or def. JSON numbers always decode
// to float64, so no integer variant is needed.
func GetFloat(doc map[string]interface{}, def float64, path ...string) float64 {
	if f, ok := Get(doc, path...).(float64); ok {
		return f
	}
	return def
}

// GetBool returns the boolean at path, or def.
func GetBool(doc map[string]interface{}, def bool, path ...string) bool {
	if b, ok := Get(doc, path...).(bool); ok {
		return b
	}
	return def
}
