package resource

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"reflect"
	"regexp"
	"sort"
	"time"

	"github.com/analyzere/analyzere-go/faults"
)

// Timestamp layouts the API emits. Other date-like strings stay strings.
const (
	timeLayoutSeconds = "2006-01-02T15:04:05Z"
	timeLayoutMicros  = "2006-01-02T15:04:05.999999Z"
)

var timeLayouts = []string{timeLayoutSeconds, timeLayoutMicros}

// time.Parse accepts any fraction after the seconds field, so the shape is
// checked first: at most six digits after a dot.
var timestampPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d{1,6})?Z$`)

// DecodeJSON decodes a response body. Numbers become int64 when integral and
// float64 otherwise; string attributes in one of the API timestamp layouts
// become UTC time.Time values.
func DecodeJSON(body []byte) (Value, error) {
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()

	var decoded any
	if err := decoder.Decode(&decoded); err != nil {
		return nil, err
	}
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected trailing data after JSON value")
	}

	normalized, err := normalizeValue(decoded, true)
	if err != nil {
		return nil, err
	}
	return normalized, nil
}

// Normalize converts caller-built values to the canonical attribute types:
// all integers to int64, all floats to float64, typed maps and slices to
// map[string]Value and []Value. Objects and references pass through.
func Normalize(value Value) (Value, error) {
	return normalizeValue(value, false)
}

// ParseTime parses value in one of the API timestamp layouts.
func ParseTime(value string) (time.Time, bool) {
	if !timestampPattern.MatchString(value) {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		parsed, err := time.Parse(layout, value)
		if err == nil {
			return parsed.UTC(), true
		}
	}
	return time.Time{}, false
}

func normalizeValue(value any, dates bool) (any, error) {
	switch typed := value.(type) {
	case nil, bool, string, time.Time, *Object, *Reference, *Collection:
		return typed, nil
	case float32:
		return normalizeFloat(float64(typed))
	case float64:
		return normalizeFloat(typed)
	case int:
		return int64(typed), nil
	case int8:
		return int64(typed), nil
	case int16:
		return int64(typed), nil
	case int32:
		return int64(typed), nil
	case int64:
		return typed, nil
	case uint:
		return normalizeUint(uint64(typed))
	case uint8:
		return normalizeUint(uint64(typed))
	case uint16:
		return normalizeUint(uint64(typed))
	case uint32:
		return normalizeUint(uint64(typed))
	case uint64:
		return normalizeUint(typed)
	case json.Number:
		return normalizeJSONNumber(typed)
	case []any:
		return normalizeSlice(typed, dates)
	case map[string]any:
		return normalizeStringMap(typed, dates)
	}

	return normalizeReflectValue(value, dates)
}

func normalizeFloat(value float64) (float64, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, faults.NewTypedError(faults.ValidationError, "payload contains non-finite float", nil)
	}
	return value, nil
}

func normalizeUint(value uint64) (int64, error) {
	if value > math.MaxInt64 {
		return 0, faults.NewTypedError(faults.ValidationError, "payload contains integer out of range", nil)
	}
	return int64(value), nil
}

func normalizeJSONNumber(value json.Number) (any, error) {
	if asInt, err := value.Int64(); err == nil {
		return asInt, nil
	}
	asFloat, err := value.Float64()
	if err != nil {
		return nil, faults.NewTypedError(faults.ValidationError, "payload contains invalid number", err)
	}
	return normalizeFloat(asFloat)
}

func normalizeSlice(values []any, dates bool) ([]any, error) {
	normalized := make([]any, len(values))
	for idx, item := range values {
		itemValue, err := normalizeValue(item, dates)
		if err != nil {
			return nil, err
		}
		normalized[idx] = itemValue
	}
	return normalized, nil
}

func normalizeStringMap(values map[string]any, dates bool) (map[string]any, error) {
	normalized := make(map[string]any, len(values))
	for key, item := range values {
		if text, ok := item.(string); ok && dates {
			if parsed, isTime := ParseTime(text); isTime {
				normalized[key] = parsed
				continue
			}
		}
		itemValue, err := normalizeValue(item, dates)
		if err != nil {
			return nil, err
		}
		normalized[key] = itemValue
	}
	return normalized, nil
}

func normalizeReflectValue(value any, dates bool) (any, error) {
	reflectValue := reflect.ValueOf(value)
	switch reflectValue.Kind() {
	case reflect.Map:
		if reflectValue.Type().Key().Kind() != reflect.String {
			return nil, faults.NewTypedError(faults.ValidationError, "payload map keys must be strings", nil)
		}

		keys := reflectValue.MapKeys()
		sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })

		normalized := make(map[string]any, len(keys))
		for _, key := range keys {
			result, err := normalizeValue(reflectValue.MapIndex(key).Interface(), dates)
			if err != nil {
				return nil, err
			}
			normalized[key.String()] = result
		}
		return normalized, nil
	case reflect.Slice, reflect.Array:
		if reflectValue.Type().Elem().Kind() == reflect.Uint8 {
			return nil, faults.NewTypedError(faults.ValidationError, "payload must not contain raw bytes", nil)
		}
		length := reflectValue.Len()
		normalized := make([]any, length)
		for idx := 0; idx < length; idx++ {
			result, err := normalizeValue(reflectValue.Index(idx).Interface(), dates)
			if err != nil {
				return nil, err
			}
			normalized[idx] = result
		}
		return normalized, nil
	case reflect.String:
		return reflectValue.String(), nil
	default:
		return nil, faults.NewTypedError(
			faults.ValidationError,
			fmt.Sprintf("unsupported payload type %T", value),
			nil,
		)
	}
}
