package common

import (
	"strconv"
	"strings"
)

// ParseParams turns name=value pairs into a query map. Later pairs win.
func ParseParams(values []string) (map[string]string, error) {
	if len(values) == 0 {
		return nil, nil
	}
	params := make(map[string]string, len(values))
	for _, value := range values {
		name, paramValue, ok := strings.Cut(value, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, ValidationError("invalid --param "+strconv.Quote(value)+": expected name=value", nil)
		}
		params[name] = paramValue
	}
	return params, nil
}

func ParseFloats(values []string) ([]float64, error) {
	parsed := make([]float64, 0, len(values))
	for _, value := range values {
		number, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, ValidationError("invalid number "+strconv.Quote(value), err)
		}
		parsed = append(parsed, number)
	}
	return parsed, nil
}
