package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hylla/gantry/internal/app"
	"gopkg.in/yaml.v3"
)

// snapshot file formats accepted by import and export.
const (
	formatJSON = "json"
	formatYAML = "yaml"
)

// snapshotFormat resolves the explicit format or infers it from the file extension.
func snapshotFormat(explicit, path string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(explicit)) {
	case "":
	case formatJSON:
		return formatJSON, nil
	case formatYAML, "yml":
		return formatYAML, nil
	default:
		return "", fmt.Errorf("unsupported snapshot format %q (want json or yaml)", explicit)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return formatYAML, nil
	default:
		return formatJSON, nil
	}
}

// readSnapshotFile decodes one snapshot file as JSON or YAML.
func readSnapshotFile(path, format string) (app.Snapshot, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return app.Snapshot{}, fmt.Errorf("read import file: %w", err)
	}
	format, err = snapshotFormat(format, path)
	if err != nil {
		return app.Snapshot{}, err
	}
	var snap app.Snapshot
	switch format {
	case formatYAML:
		if err := yaml.Unmarshal(content, &snap); err != nil {
			return app.Snapshot{}, fmt.Errorf("decode snapshot yaml: %w", err)
		}
	default:
		if err := json.Unmarshal(content, &snap); err != nil {
			return app.Snapshot{}, fmt.Errorf("decode snapshot json: %w", err)
		}
	}
	return snap, nil
}

// writeSnapshotOutput writes one snapshot to stdout ("-") or a file path.
func writeSnapshotOutput(stdout io.Writer, outPath, format string, snap app.Snapshot) error {
	format, err := snapshotFormat(format, outPath)
	if err != nil {
		return err
	}
	if format != formatYAML {
		return writeJSONOutput(stdout, outPath, snap)
	}
	encoded, err := yaml.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return writeOutput(stdout, outPath, encoded)
}
