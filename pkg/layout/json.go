package layout

import (
	"encoding/json"
	"fmt"
	"os"
)

// Marshal serializes a Layout to pretty-printed JSON bytes.
func Marshal(l Layout) ([]byte, error) {
	return json.MarshalIndent(l, "", "  ")
}

// Unmarshal deserializes JSON bytes into a Layout.
func Unmarshal(data []byte) (Layout, error) {
	var l Layout
	if err := json.Unmarshal(data, &l); err != nil {
		return Layout{}, fmt.Errorf("unmarshal layout: %w", err)
	}
	if l.Rows == nil {
		l.Rows = []Row{}
	}
	if l.Tiles == nil {
		l.Tiles = []Tile{}
	}
	return l, nil
}

// WriteFile writes a Layout to a JSON file.
func WriteFile(l Layout, path string) error {
	data, err := Marshal(l)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ReadFile reads a Layout from a JSON file.
func ReadFile(path string) (Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Layout{}, fmt.Errorf("read %s: %w", path, err)
	}
	return Unmarshal(data)
}
