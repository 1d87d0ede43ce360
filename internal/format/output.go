package format

import (
	"encoding/json"
	"fmt"
	"io"
)

// Envelope is the shape of every command's output.
type Envelope struct {
	Data any            `json:"data"`
	Meta map[string]any `json:"meta,omitempty"`
}

// Write writes output in the requested format.
//
// Supported formats:
// - json (default)
// - table, for data that implements Tabular; anything else falls back to
// indented JSON
func Write(w io.Writer, env Envelope, format string, pretty bool) error {
	switch format {
	case "", "json":
		return WriteJSON(w, env, pretty)
	case "table":
		if t, ok := env.Data.(Tabular); ok {
			return WriteTable(w, t)
		}
		return WriteJSON(w, env, true)
	default:
		return fmt.Errorf("unknown format: %s (want json or table)", format)
	}
}

// WriteJSON writes strict JSON output for CLI commands.
func WriteJSON(w io.Writer, v any, pretty bool) error {
	var b []byte
	var err error
	if pretty {
		b, err = json.MarshalIndent(v, "", "  ")
	} else {
		b, err = json.Marshal(v)
	}
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, string(b))
	return err
}
