package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/yorozuya-cybersecurity/skillguard/internal/schema"
)

// SaveResult writes a verify run into ./reports/<skill>_<timestamp>_<id>/:
// the rendered markdown as report.md and the raw result as results.json.
// Returns the directory path.
func SaveResult(res schema.VerifyResult, markdown, outputDir string) (string, error) {
	id := uuid.NewString()[:8]
	dir := filepath.Join(outputDir, fmt.Sprintf("%s_%s_%s",
		safeName(res.Skill), res.Timestamp.Format("20060102_150405"), id))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "report.md"), []byte(markdown), 0644); err != nil {
		return "", fmt.Errorf("failed to write report.md: %w", err)
	}

	file := filepath.Join(dir, "results.json")
	fh, err := os.Create(file)
	if err != nil {
		return "", fmt.Errorf("failed to create results.json: %w", err)
	}
	defer fh.Close()

	enc := json.NewEncoder(fh)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return "", fmt.Errorf("failed to encode results: %w", err)
	}

	return dir, nil
}

// safeName replaces characters not safe for file paths
func safeName(s string) string {
	invalid := []rune{'/', '\\', ':', '*', '?', '"', '<', '>', '|'}
	rs := []rune(s)
	for i, r := range rs {
		for _, bad := range invalid {
			if r == bad {
				rs[i] = '_'
			}
		}
	}
	return string(rs)
}
