package extract

import "encoding/json"

// DefaultMaxDepth bounds the JSON walk so deeply nested or cyclic-looking
// payloads terminate. Nodes beyond the cap are skipped, not errors.
const DefaultMaxDepth = 6

// Predicate tests whether an object node looks like one listing record.
type Predicate func(node map[string]any) bool

// WalkJSON recursively descends an arbitrary JSON document and collects every
// object node the predicate accepts. Matching nodes are still descended into,
// so wrapper objects that both match and contain further records yield all of
// them. Malformed JSON yields an empty result, never an error.
func WalkJSON(data []byte, pred Predicate, maxDepth int) []map[string]any {
	var root any
	if err := json.Unmarshal(data, &root); err != nil {
		return nil
	}

	var found []map[string]any
	walkNode(root, pred, 0, maxDepth, &found)
	return found
}

func walkNode(node any, pred Predicate, depth, maxDepth int, found *[]map[string]any) {
	if depth > maxDepth {
		return
	}

	switch v := node.(type) {
	case map[string]any:
		if pred(v) {
			*found = append(*found, v)
		}
		for _, child := range v {
			walkNode(child, pred, depth+1, maxDepth, found)
		}
	case []any:
		for _, child := range v {
			walkNode(child, pred, depth+1, maxDepth, found)
		}
	}
}

// Str reads a string field from a walked node, tolerating absence.
func Str(node map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := node[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// Num reads a numeric field from a walked node. JSON numbers arrive as
// float64; strings holding numbers are not coerced here.
func Num(node map[string]any, keys ...string) (float64, bool) {
	for _, key := range keys {
		if v, ok := node[key].(float64); ok {
			return v, true
		}
	}
	return 0, false
}
