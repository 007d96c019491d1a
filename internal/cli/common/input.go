package common

import (
	"bytes"
	"errors"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/analyzere/analyzere-go/resource"
)

const (
	stdinFileIndicator  = "-"
	MissingInputMessage = "input is required: provide --payload <path|-> or stdin"
	maxInputBytes       = 4 << 20
)

func ReadInput(command *cobra.Command, flags InputFlags) ([]byte, error) {
	return readInput(command, flags, true)
}

func ReadOptionalInput(command *cobra.Command, flags InputFlags) ([]byte, error) {
	return readInput(command, flags, false)
}

// DecodeAttributes reads an object payload and converts it to canonical
// attribute values. JSON timestamps become time.Time as in API responses.
func DecodeAttributes(command *cobra.Command, flags InputFlags) (map[string]resource.Value, error) {
	data, err := ReadInput(command, flags)
	if err != nil {
		return nil, err
	}
	return DecodeAttributesData(data, flags.Format)
}

func DecodeAttributesData(data []byte, format string) (map[string]resource.Value, error) {
	var decoded resource.Value
	switch format {
	case "", OutputJSON:
		value, err := resource.DecodeJSON(data)
		if err != nil {
			return nil, ValidationError("invalid json input", err)
		}
		decoded = value
	case OutputYAML:
		var raw any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, ValidationError("invalid yaml input", err)
		}
		value, err := resource.Normalize(raw)
		if err != nil {
			return nil, ValidationError("invalid yaml input", err)
		}
		decoded = value
	default:
		return nil, ValidationError("invalid input format: use json or yaml", nil)
	}

	attrs, ok := decoded.(map[string]resource.Value)
	if !ok {
		return nil, ValidationError("input must be an object", nil)
	}
	return attrs, nil
}

func readInput(command *cobra.Command, flags InputFlags, required bool) ([]byte, error) {
	if flags.Payload != "" && flags.Payload != stdinFileIndicator {
		file, err := os.Open(flags.Payload)
		if err != nil {
			return nil, err
		}
		defer file.Close()

		data, err := readAllWithLimit(file, maxInputBytes)
		if err != nil {
			return nil, err
		}
		if len(bytes.TrimSpace(data)) == 0 {
			return nil, ValidationError("input is empty", nil)
		}
		return data, nil
	}

	inputReader := command.InOrStdin()
	if stdinFile, ok := inputReader.(*os.File); ok {
		info, err := stdinFile.Stat()
		if err == nil && (info.Mode()&os.ModeCharDevice) != 0 {
			if required {
				return nil, ValidationError(MissingInputMessage, nil)
			}
			return nil, nil
		}
	}

	data, err := readAllWithLimit(inputReader, maxInputBytes)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		if required {
			return nil, ValidationError(MissingInputMessage, nil)
		}
		return nil, nil
	}

	return data, nil
}

func readAllWithLimit(reader io.Reader, maxBytes int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(reader, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, ValidationError("input exceeds maximum supported size", errors.New("input too large"))
	}
	return data, nil
}
