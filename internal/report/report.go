// Package report renders command results as styled text, JSON or YAML.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

type Format string

const (
	Text Format = "text"
	JSON Format = "json"
	YAML Format = "yaml"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", Text:
		return Text, nil
	case JSON, YAML:
		return f, nil
	case "yml":
		return YAML, nil
	default:
		return "", fmt.Errorf("unknown output format '%s' (want text, json or yaml)", s)
	}
}

// Renderer is implemented by every report; the text form is meant for terminals.
type Renderer interface {
	RenderText(w io.Writer) error
}

func Write(w io.Writer, format Format, r Renderer) error {
	switch format {
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	default:
		return r.RenderText(w)
	}
}
