package common

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/analyzere/analyzere-go/internal/cli/commandmeta"
)

const yamlIndent = 2

const (
	OutputText = "text"
	OutputJSON = "json"
	OutputYAML = "yaml"
)

func ValidateOutputFormat(format string) error {
	switch format {
	case OutputText, OutputJSON, OutputYAML:
		return nil
	default:
		return ValidationError("invalid output format: use json, yaml, or text", nil)
	}
}

func ValidateOutputFormatForCommandPath(commandPath string, format string) error {
	if strings.TrimSpace(format) == OutputText {
		return nil
	}
	if commandmeta.OutputPolicyForPath(commandPath) == commandmeta.OutputPolicyTextOnly {
		return ValidationError("command supports only text output; use --output text", nil)
	}
	return nil
}

func WriteOutput[T any](command *cobra.Command, format string, value T, renderText func(io.Writer, T) error) error {
	if isNilOutputValue(value) {
		return nil
	}

	switch format {
	case OutputText:
		if renderText != nil {
			return renderText(command.OutOrStdout(), value)
		}
		_, err := fmt.Fprintln(command.OutOrStdout(), value)
		return err
	case OutputJSON:
		encoded, err := json.MarshalIndent(value, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(command.OutOrStdout(), string(encoded))
		return err
	case OutputYAML:
		encoded, err := marshalYAML(value, yamlIndent)
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(command.OutOrStdout(), string(encoded))
		return err
	default:
		return ValidationError("invalid output format: use json, yaml, or text", nil)
	}
}

// WriteValue prints an API value after the optional --jq filter. Text output
// of a structure falls back to indented JSON.
func WriteValue(command *cobra.Command, flags *GlobalFlags, value any) error {
	format := OutputJSON
	expression := ""
	if flags != nil {
		format = flags.Output
		expression = flags.JQ
	}

	plain := PlainValue(value)
	filtered, err := ApplyJQ(command.Context(), plain, expression)
	if err != nil {
		return err
	}

	return WriteOutput(command, format, filtered, func(w io.Writer, item any) error {
		switch typed := item.(type) {
		case string:
			_, err := fmt.Fprintln(w, typed)
			return err
		case map[string]any, []any:
			encoded, err := json.MarshalIndent(typed, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(w, string(encoded))
			return err
		default:
			_, err := fmt.Fprintln(w, typed)
			return err
		}
	})
}

func WriteText(command *cobra.Command, format string, text string) error {
	return WriteOutput(command, format, text, func(w io.Writer, value string) error {
		_, err := fmt.Fprintln(w, value)
		return err
	})
}

func marshalYAML(value any, indent int) ([]byte, error) {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(indent)
	if err := encoder.Encode(value); err != nil {
		_ = encoder.Close()
		return nil, err
	}
	if err := encoder.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isNilOutputValue[T any](value T) bool {
	anyValue := any(value)
	if anyValue == nil {
		return true
	}

	reflected := reflect.ValueOf(anyValue)
	switch reflected.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
		return reflected.IsNil()
	default:
		return false
	}
}
