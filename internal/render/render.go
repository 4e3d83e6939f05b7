// Package render turns a collected report into text for people or machines.
package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/stone-age-io/hostaudit/internal/collectors"
	"github.com/stone-age-io/hostaudit/internal/config"
	"gopkg.in/yaml.v3"
)

// ErrUnknownFormat is returned for a format name Render does not know
var ErrUnknownFormat = errors.New("unknown output format")

// Render writes report to w in the named format. pretty only affects JSON.
func Render(w io.Writer, report *collectors.Report, format string, pretty bool) error {
	switch format {
	case config.FormatText:
		return Text(w, report)
	case config.FormatJSON:
		return JSON(w, report, pretty)
	case config.FormatYAML:
		return YAML(w, report)
	case config.FormatPrometheus:
		return Prometheus(w, report)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// JSON writes the report as a single JSON document followed by a newline
func JSON(w io.Writer, report *collectors.Report, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("failed to encode report as JSON: %w", err)
	}
	return nil
}

// YAML writes the report as a YAML document
func YAML(w io.Writer, report *collectors.Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("failed to encode report as YAML: %w", err)
	}
	return enc.Close()
}
