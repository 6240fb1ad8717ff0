package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// outputJSON prints v as pretty JSON on stdout.
func outputJSON(v any) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
		os.Exit(1)
	}
}

// outputJSONError prints an error object on stderr; main decides the
// exit code.
func outputJSONError(err error) {
	encoder := json.NewEncoder(os.Stderr)
	encoder.SetIndent("", "  ")
	_ = encoder.Encode(map[string]string{"error": err.Error()})
}

// readDataArg resolves a JSON payload argument: a literal JSON object,
// @file to read a file, or - for stdin.
func readDataArg(arg string) (map[string]any, error) {
	var raw []byte
	switch {
	case arg == "-":
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		raw = b
	case strings.HasPrefix(arg, "@"):
		b, err := os.ReadFile(arg[1:])
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", arg[1:], err)
		}
		raw = b
	default:
		raw = []byte(arg)
	}

	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("%w: payload must be a JSON object: %v", errUsage, err)
	}
	return data, nil
}
