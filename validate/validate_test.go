package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/multierr"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func hasMessage(messages []string, substr string) bool {
	for _, m := range messages {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

func TestValidateConfig_ValidConfig(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		file string
		body string
	}{
		{"json", "classic.json", `{
			"name": "Classic",
			"description": "Five forts",
			"opponents": 5,
			"messages": {"hit": "Hit fort %s!", "victory": "All %d down"}
		}`},
		{"yaml", "siege.yaml", "name: Siege\ndescription: Plus forts\nopponents: 3\nshape: plus\n"},
		{"yml", "lines.yml", "name: Lines\ndescription: Straight forts\nopponents: 3\nshape: line\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, tt.file, tt.body)

			result := validateConfig(path, 10)
			if !result.Valid {
				t.Errorf("Expected valid config, but got errors: %v", result.Errors)
			}
			if result.File != tt.file {
				t.Errorf("Expected file name %s, got %s", tt.file, result.File)
			}
			if !hasMessage(result.Notes, "Placement") {
				t.Errorf("Expected placement note, got %v", result.Notes)
			}
		})
	}
}

func TestValidateConfig_Invalid(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		body    string
		wantErr string
	}{
		{"bad json", "bad.json", `{"name": "test", invalid json}`, "Invalid syntax"},
		{"bad yaml", "bad.yaml", "name: [unterminated\n", "Invalid syntax"},
		{"missing name", "noname.json", `{"description": "x", "opponents": 2}`, "name is required"},
		{"too many opponents", "crowd.json", `{"name": "Crowd", "description": "x", "opponents": 11}`, "opponents must be between"},
		{"unknown shape", "blob.json", `{"name": "Blob", "description": "x", "opponents": 2, "shape": "blob"}`, "unknown shape"},
		{"hit without placeholder", "hit.json", `{"name": "Hit", "description": "x", "opponents": 2, "messages": {"hit": "Hit!"}}`, "messages.hit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := validateConfig(writeFile(t, dir, tt.file, tt.body), 5)
			if result.Valid {
				t.Fatal("Expected invalid config")
			}
			if !hasMessage(result.Errors, tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, result.Errors)
			}
		})
	}
}

func TestValidateConfig_CrowdedBoard(t *testing.T) {
	path := writeFile(t, t.TempDir(), "crowded.json",
		`{"name": "Crowded", "description": "Ten plus forts", "opponents": 10, "shape": "plus"}`)

	result := validateConfig(path, 20)
	if result.Valid {
		t.Fatal("Expected ten plus-shaped forts to exhaust placement")
	}
	if !hasMessage(result.Errors, "Placement exhausted") {
		t.Errorf("Expected placement error, got %v", result.Errors)
	}
}

func TestValidateConfig_MissingFile(t *testing.T) {
	result := validateConfig("/non/existent/file.json", 1)
	if result.Valid {
		t.Error("Expected invalid result for missing file")
	}
	if !hasMessage(result.Errors, "Failed to read file") {
		t.Error("Expected 'Failed to read file' error")
	}
}

func TestPresetFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.yaml", "")
	writeFile(t, dir, "a.json", "")
	writeFile(t, dir, "notes.txt", "")
	os.Mkdir(filepath.Join(dir, "nested.json"), 0o755)

	files, err := presetFiles(dir)
	if err != nil {
		t.Fatalf("presetFiles failed: %v", err)
	}
	if len(files) != 2 || filepath.Base(files[0]) != "a.json" || filepath.Base(files[1]) != "b.yaml" {
		t.Errorf("Expected [a.json b.yaml], got %v", files)
	}

	if _, err := presetFiles("/non/existent"); err == nil {
		t.Error("Expected error for missing directory")
	}
}

func TestDuplicateIDs(t *testing.T) {
	err := duplicateIDs([]string{"configs/classic.json", "configs/classic.yaml", "configs/duel.json"})
	if err == nil {
		t.Fatal("Expected duplicate ID error")
	}
	if len(multierr.Errors(err)) != 1 || !strings.Contains(err.Error(), `"classic"`) {
		t.Errorf("Expected one classic collision, got %v", err)
	}

	if err := duplicateIDs([]string{"a.json", "b.json"}); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
}

func TestValidateDir(t *testing.T) {
	t.Run("all valid", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "duel.json", `{"name": "Duel", "description": "One fort", "opponents": 1}`)

		var out bytes.Buffer
		if err := validateDir(&out, dir, 3); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if !strings.Contains(out.String(), "All presets are valid") {
			t.Errorf("Expected success summary, got:\n%s", out.String())
		}
	})

	t.Run("collects every problem", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "duel.json", `{"name": "Duel", "description": "One fort", "opponents": 1}`)
		writeFile(t, dir, "duel.yaml", "name: Duel\ndescription: Again\nopponents: 1\n")
		writeFile(t, dir, "broken.json", `{"name": ""}`)

		var out bytes.Buffer
		err := validateDir(&out, dir, 1)
		if err == nil {
			t.Fatal("Expected errors")
		}
		if n := len(multierr.Errors(err)); n != 2 {
			t.Errorf("Expected 2 problems, got %d: %v", n, err)
		}
		if !strings.Contains(out.String(), "❌ INVALID") || !strings.Contains(out.String(), "2 problem(s) found") {
			t.Errorf("Expected failure report, got:\n%s", out.String())
		}
	})

	t.Run("empty directory", func(t *testing.T) {
		if err := validateDir(&bytes.Buffer{}, t.TempDir(), 1); err == nil {
			t.Error("Expected error for directory without presets")
		}
	})
}
