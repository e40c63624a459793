package flatten

import (
	"fmt"
	"strconv"
	"strings"
)

// PathError reports a records-path that could not be resolved to an array of
// records. It is fatal to the import session.
type PathError struct {
	Path   string
	Reason string
}

func (e *PathError) Error() string {
	return fmt.Sprintf("records_path '%s' %s", e.Path, e.Reason)
}

// Records extracts the array of record objects from a decoded JSON value.
// An empty path (or "$" / "$.") auto-detects the records array; otherwise the
// dotted, array-indexable path is resolved segment by segment.
func Records(data any, path string) ([]*Object, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" || trimmed == "$" || trimmed == "$." {
		return autoDetect(data), nil
	}

	current := data
	for _, part := range strings.Split(trimmed, ".") {
		if part == "" || part == "$" {
			continue
		}
		switch node := current.(type) {
		case []any:
			index, err := strconv.Atoi(part)
			if err != nil || index < 0 || index >= len(node) {
				return nil, &PathError{Path: path, Reason: "did not resolve to an array"}
			}
			current = node[index]
		case *Object:
			value, ok := node.Get(part)
			if !ok {
				current = nil
			} else {
				current = value
			}
		default:
			return nil, &PathError{Path: path, Reason: fmt.Sprintf("cannot descend into '%s' from a non-container value", part)}
		}
	}

	switch node := current.(type) {
	case []any:
		return ensureObjects(node), nil
	case nil:
		return nil, &PathError{Path: path, Reason: "not found"}
	default:
		return nil, &PathError{Path: path, Reason: fmt.Sprintf("resolved to %s, expected an array", typeName(node))}
	}
}

// autoDetect picks the records array without an explicit path: a root array
// is used directly; for a root object, the top-level array value with the
// most object items wins (first-seen breaks ties); otherwise the whole object
// is a single record.
func autoDetect(data any) []*Object {
	switch node := data.(type) {
	case []any:
		return ensureObjects(node)
	case *Object:
		var best []*Object
		for _, key := range node.Keys() {
			value, _ := node.Get(key)
			list, ok := value.([]any)
			if !ok || len(list) == 0 {
				continue
			}
			var objects []*Object
			for _, item := range list {
				if obj, ok := item.(*Object); ok {
					objects = append(objects, obj)
				}
			}
			if len(objects) > len(best) {
				best = objects
			}
		}
		if best != nil {
			return best
		}
		return []*Object{node}
	default:
		wrapped := NewObject()
		wrapped.Set("value", data)
		return []*Object{wrapped}
	}
}

// ensureObjects wraps non-object array items under a "value" key so every
// record is an object.
func ensureObjects(items []any) []*Object {
	records := make([]*Object, 0, len(items))
	for _, item := range items {
		if obj, ok := item.(*Object); ok {
			records = append(records, obj)
			continue
		}
		wrapped := NewObject()
		wrapped.Set("value", item)
		records = append(records, wrapped)
	}
	return records
}

func typeName(v any) string {
	switch v.(type) {
	case *Object:
		return "object"
	case string:
		return "string"
	case bool:
		return "bool"
	default:
		return "scalar"
	}
}
