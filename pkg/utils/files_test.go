package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/yorozuya-cybersecurity/skillguard/internal/schema"
)

func TestSaveResult(t *testing.T) {
	out := t.TempDir()
	res := schema.VerifyResult{
		Skill:     "scripts/danger?",
		Timestamp: time.Date(2026, 8, 30, 9, 30, 0, 0, time.UTC),
		Files:     []string{"SKILL.md"},
	}

	dir, err := SaveResult(res, "# report\n", out)
	if err != nil {
		t.Fatalf("SaveResult: %v", err)
	}
	if strings.ContainsAny(filepath.Base(dir), `/\:*?"<>|`) {
		t.Errorf("directory name %q contains unsafe characters", filepath.Base(dir))
	}

	md, err := os.ReadFile(filepath.Join(dir, "report.md"))
	if err != nil {
		t.Fatalf("report.md: %v", err)
	}
	if string(md) != "# report\n" {
		t.Errorf("report.md = %q", md)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "results.json"))
	if err != nil {
		t.Fatalf("results.json: %v", err)
	}
	if !strings.Contains(string(raw), `"skill"`) {
		t.Errorf("results.json missing skill field: %s", raw)
	}
}
