package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ajitpratap0/riskmonitor/internal/monitoring"
)

// outcomes is the document accepted by the learn command
type outcomes struct {
	Trades  []monitoring.Trade      `json:"trades" yaml:"trades"`
	Actions []monitoring.RiskAction `json:"actions" yaml:"actions"`
}

// readInput reads path, or stdin when path is "-"
func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

// decodeDocument decodes JSON or YAML into out. Fields absent from data keep
// the values already in out.
func decodeDocument(data []byte, out interface{}) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return fmt.Errorf("empty document")
	}
	if trimmed[0] == '{' {
		return json.Unmarshal(trimmed, out)
	}
	return yaml.Unmarshal(trimmed, out)
}

// decodeSnapshot decodes a market snapshot over defaults
func decodeSnapshot(data []byte, defaults monitoring.CycleInput) (monitoring.CycleInput, error) {
	in := defaults
	if err := decodeDocument(data, &in); err != nil {
		return monitoring.CycleInput{}, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	return in, nil
}

// decodeOutcomes decodes closed trades and, optionally, the actions to evaluate
func decodeOutcomes(data []byte) (outcomes, error) {
	var o outcomes
	if err := decodeDocument(data, &o); err != nil {
		return outcomes{}, fmt.Errorf("failed to parse outcomes: %w", err)
	}
	return o, nil
}

// writeJSON writes v as indented JSON
func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeJSONLine writes v as one line of compact JSON
func writeJSONLine(w io.Writer, v interface{}) error {
	return json.NewEncoder(w).Encode(v)
}
