// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"
)

// ExportYAML writes the session to <dir>/exports/<id>.yaml and returns the
// file path.
func (s *Store) ExportYAML(ctx context.Context, id string) (string, error) {
	sess, err := s.Load(ctx, id)
	if err != nil {
		return "", err
	}
	data, err := yaml.Marshal(sess)
	if err != nil {
		return "", fmt.Errorf("marshaling YAML: %w", err)
	}
	return s.writeExport(id+".yaml", data)
}

// ExportJSON writes the session to <dir>/exports/<id>.json and returns the
// file path.
func (s *Store) ExportJSON(ctx context.Context, id string) (string, error) {
	sess, err := s.Load(ctx, id)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling JSON: %w", err)
	}
	return s.writeExport(id+".json", data)
}

func (s *Store) writeExport(name string, data []byte) (string, error) {
	dir := filepath.Join(s.dir, exportDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating export directory: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}
