package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/dirsync/james-connector/internal/domain/directory"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

type formatter func(w io.Writer, v any) error

func newFormatter(format string) (formatter, error) {
	switch format {
	case formatJSON:
		return writeJSON, nil
	case formatYAML, "yml":
		return writeYAML, nil
	default:
		return nil, fmt.Errorf("%w: unknown output format %q", directory.ErrConfiguration, format)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func render(w io.Writer, format string, v any) error {
	f, err := newFormatter(format)
	if err != nil {
		return err
	}
	return f(w, v)
}
