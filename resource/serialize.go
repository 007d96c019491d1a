package resource

import (
	"reflect"
	"time"
)

const wireRefID = "ref_id"

// ToWire converts a value to its JSON-ready form. Persisted resources and
// references become {"ref_id": id}; other objects are inlined.
func ToWire(value Value) Value {
	switch typed := value.(type) {
	case *Reference:
		return map[string]Value{wireRefID: typed.ID()}
	case *Object:
		if typed == nil {
			return nil
		}
		if typed.Type().KindOf() == KindResource && typed.HasID() {
			return map[string]Value{wireRefID: typed.Value(AttrID)}
		}
		return typed.ToMap()
	case *Collection:
		return ToWire(typed.Items)
	case []Value:
		out := make([]Value, len(typed))
		for idx, item := range typed {
			out[idx] = ToWire(item)
		}
		return out
	case map[string]Value:
		out := make(map[string]Value, len(typed))
		for key, item := range typed {
			out[key] = ToWire(item)
		}
		return out
	case time.Time:
		return typed.UTC().Format(time.RFC3339Nano)
	default:
		return value
	}
}

// Equal compares two attribute values. References compare by collection and
// id and are never resolved.
func Equal(a Value, b Value) bool {
	switch left := a.(type) {
	case *Object:
		right, ok := b.(*Object)
		return ok && left.Equal(right)
	case *Reference:
		right, ok := b.(*Reference)
		if !ok || left == nil || right == nil {
			return ok && left == right
		}
		return left.collection == right.collection && left.id == right.id
	case *Collection:
		right, ok := b.(*Collection)
		if !ok || left == nil || right == nil {
			return ok && left == right
		}
		return Equal(left.Items, right.Items) && left.Meta.Equal(right.Meta)
	case []Value:
		right, ok := b.([]Value)
		if !ok || len(left) != len(right) {
			return false
		}
		for idx := range left {
			if !Equal(left[idx], right[idx]) {
				return false
			}
		}
		return true
	case map[string]Value:
		right, ok := b.(map[string]Value)
		if !ok || len(left) != len(right) {
			return false
		}
		for key, item := range left {
			other, exists := right[key]
			if !exists || !Equal(item, other) {
				return false
			}
		}
		return true
	case time.Time:
		right, ok := b.(time.Time)
		return ok && left.Equal(right)
	default:
		return reflect.DeepEqual(a, b)
	}
}
