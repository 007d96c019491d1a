package common

import (
	"time"

	"github.com/analyzere/analyzere-go/resource"
)

// PlainValue converts a materialized value into JSON-shaped data for output
// and jq. Objects are inlined with their wire keys, references are printed as
// {"href": ...} without resolving, and integers become int.
func PlainValue(value any) any {
	switch typed := value.(type) {
	case *resource.Object:
		if typed == nil {
			return nil
		}
		out := make(map[string]any, len(typed.Keys()))
		for _, key := range typed.Keys() {
			name := key
			if key == resource.AttrType {
				name = "_type"
			}
			out[name] = PlainValue(typed.Value(key))
		}
		return out
	case *resource.Reference:
		if typed == nil {
			return nil
		}
		return map[string]any{"href": typed.Href()}
	case *resource.Collection:
		if typed == nil {
			return nil
		}
		return map[string]any{
			"items": PlainValue(typed.Items),
			"meta":  PlainValue(typed.Meta),
		}
	case []resource.Value:
		out := make([]any, len(typed))
		for idx, item := range typed {
			out[idx] = PlainValue(item)
		}
		return out
	case map[string]resource.Value:
		out := make(map[string]any, len(typed))
		for key, item := range typed {
			out[key] = PlainValue(item)
		}
		return out
	case int64:
		return int(typed)
	case time.Time:
		return typed.UTC().Format(time.RFC3339Nano)
	default:
		return value
	}
}
