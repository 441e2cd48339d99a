package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// OutputFormat selects how command results are printed.
type OutputFormat string

const (
	OutputAuto OutputFormat = "auto"
	OutputText OutputFormat = "text"
	OutputJSON OutputFormat = "json"
	OutputYAML OutputFormat = "yaml"
)

func parseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(s); f {
	case "", OutputAuto:
		return OutputAuto, nil
	case OutputText, OutputJSON, OutputYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want auto, text, json or yaml)", s)
	}
}

// resolve picks text for terminals and JSON otherwise when the format is auto.
func (f OutputFormat) resolve(w io.Writer) OutputFormat {
	if f != OutputAuto {
		return f
	}
	if file, ok := w.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		return OutputText
	}
	return OutputJSON
}

// render writes v in the requested format. text renders the human-readable form.
func render(w io.Writer, format OutputFormat, v any, text func(io.Writer) error) error {
	switch format.resolve(w) {
	case OutputText:
		return text(w)
	case OutputYAML:
		return writeYAML(w, v)
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
}

// writeYAML goes through JSON so that custom JSON encodings and json tags
// shape the YAML output too.
func writeYAML(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}
