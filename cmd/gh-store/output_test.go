package main

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestReadDataArgLiteral(t *testing.T) {
	data, err := readDataArg(`{"count": 1}`)
	if err != nil {
		t.Fatalf("readDataArg: %v", err)
	}
	if !reflect.DeepEqual(data, map[string]any{"count": 1.0}) {
		t.Errorf("data = %v", data)
	}
}

func TestReadDataArgFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payload.json")
	if err := os.WriteFile(path, []byte(`{"from": "file"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	data, err := readDataArg("@" + path)
	if err != nil {
		t.Fatalf("readDataArg: %v", err)
	}
	if data["from"] != "file" {
		t.Errorf("data = %v", data)
	}
}

func TestReadDataArgRejectsNonObject(t *testing.T) {
	for _, arg := range []string{`[1, 2]`, `"str"`, `not json`} {
		if _, err := readDataArg(arg); !errors.Is(err, errUsage) {
			t.Errorf("readDataArg(%q) = %v, want a usage error", arg, err)
		}
	}
}
