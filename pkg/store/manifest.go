package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/tiledgallery/pkg/errors"
	"github.com/matzehuels/tiledgallery/pkg/gallery"
)

// Manifest is a gallery description file.
//
// JSON:
//
//	{"name": "Summer", "images": [{"id": "beach", "width": 1600, "height": 900}]}
//
// TOML:
//
//	name = "Summer"
//
//	[[images]]
//	id = "beach"
//	width = 1600
//	height = 900
type Manifest struct {
	Name   string          `json:"name,omitempty" toml:"name"`
	Images []gallery.Image `json:"images" toml:"images"`
}

// Manifest extensions, in lookup order.
var manifestExts = []string{".json", ".toml"}

// ReadManifest reads a manifest, choosing the format by extension. A JSON
// file may also hold a bare array of images.
func ReadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Manifest{}, errors.Wrap(errors.ErrCodeNotFound, err, "manifest %s", path)
		}
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}
	m, err := ParseManifest(data, filepath.Ext(path))
	if err != nil {
		return Manifest{}, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// ParseManifest decodes manifest data in the format named by ext.
func ParseManifest(data []byte, ext string) (Manifest, error) {
	var m Manifest
	switch strings.ToLower(ext) {
	case ".json":
		trimmed := bytes.TrimSpace(data)
		if len(trimmed) > 0 && trimmed[0] == '[' {
			if err := json.Unmarshal(trimmed, &m.Images); err != nil {
				return Manifest{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse manifest")
			}
			break
		}
		if err := json.Unmarshal(trimmed, &m); err != nil {
			return Manifest{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse manifest")
		}
	case ".toml":
		if _, err := toml.Decode(string(data), &m); err != nil {
			return Manifest{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse manifest")
		}
	default:
		return Manifest{}, errors.New(errors.ErrCodeUnsupported, "unsupported manifest format %q", ext)
	}

	images, err := finish(m.Images)
	if err != nil {
		return Manifest{}, err
	}
	m.Images = images
	return m, nil
}

// WriteManifest writes m as indented JSON.
func WriteManifest(path string, m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
