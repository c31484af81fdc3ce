package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/yorozuya-cybersecurity/skillguard/internal/schema"
)

// ---------- Public API ----------

// GenerateMarkdown renders a verify run as a human-readable markdown report:
// scan banner, severity counts, finding table, analyzer list, and the file
// inventory of the fetched bundle.
func GenerateMarkdown(res schema.VerifyResult) string {
	vm := buildViewModel(res)

	var b strings.Builder
	fmt.Fprintf(&b, "# Skill verification: %s\n\n", vm.Skill)
	fmt.Fprintf(&b, "Fetched %d file(s) at %s.\n\n", len(res.Files), vm.Timestamp)

	b.WriteString(vm.Banner)
	b.WriteString("\n\n")

	if vm.Scanned && vm.TotalFindings > 0 {
		b.WriteString("## Findings\n\n")
		fmt.Fprintf(&b, "Total: %d", vm.TotalFindings)
		if parts := countParts(vm.Counts); parts != "" {
			fmt.Fprintf(&b, " (%s)", parts)
		}
		b.WriteString("\n\n")
		b.WriteString("| Severity | Rule | File | Description | Analyzer |\n")
		b.WriteString("|----------|------|------|-------------|----------|\n")
		for _, f := range vm.Findings {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
				f.Severity, f.RuleID, f.FilePath, f.Description, f.Analyzer)
		}
		b.WriteString("\n")
	}

	if vm.Scanned && len(vm.Analyzers) > 0 {
		fmt.Fprintf(&b, "Analyzers executed: %s.\n\n", strings.Join(vm.Analyzers, ", "))
	}
	if vm.Scanned && vm.Duration != "" {
		fmt.Fprintf(&b, "Scan took %s.\n\n", vm.Duration)
	}

	b.WriteString("## Files\n\n")
	for _, f := range res.Files {
		fmt.Fprintf(&b, "- `%s`\n", f)
	}
	return b.String()
}

// ---------- View model & helpers ----------

type viewModel struct {
	Skill         string
	Timestamp     string
	Banner        string
	Scanned       bool
	TotalFindings int
	Counts        map[string]int
	Findings      []findingRow
	Analyzers     []string
	Duration      string
}

type findingRow struct {
	Severity    string
	RuleID      string
	FilePath    string
	Description string
	Analyzer    string
}

var sevOrder = []string{"critical", "high", "medium", "low", "info"}

func buildViewModel(res schema.VerifyResult) viewModel {
	vm := viewModel{
		Skill:     res.Skill,
		Timestamp: res.Timestamp.UTC().Format(time.RFC3339),
		Counts:    map[string]int{},
	}

	scan := res.Scan
	switch {
	case scan == nil:
		vm.Banner = "⏭️ Security scan skipped."
	case !scan.Available:
		vm.Banner = "⚠️ Security scan unavailable: " + scan.Error
	case scan.Status == schema.StatusError:
		vm.Banner = "❌ Security scan failed: " + scan.Error
	case scan.Status == schema.StatusSafe:
		vm.Banner = "✅ No security findings."
		vm.Scanned = true
	default:
		vm.Banner = fmt.Sprintf("🚨 Security findings reported (max severity: %s). Review before installing.",
			emptyFallback(strings.ToUpper(scan.MaxSeverity), "UNKNOWN"))
		vm.Scanned = true
	}
	if !vm.Scanned {
		return vm
	}

	vm.TotalFindings = scan.TotalFindings
	vm.Analyzers = scan.AnalyzersExecuted
	if scan.ScanDuration > 0 {
		vm.Duration = scan.ScanDuration.String()
	}

	for _, f := range scan.Findings {
		sev := strings.ToLower(f.Severity)
		if sev == "" {
			sev = "info"
		}
		vm.Counts[sev]++
		vm.Findings = append(vm.Findings, findingRow{
			Severity:    strings.ToUpper(sev),
			RuleID:      emptyFallback(f.RuleID, "N/A"),
			FilePath:    emptyFallback(f.FilePath, "-"),
			Description: trimTo(f.Description, 200),
			Analyzer:    emptyFallback(f.Analyzer, "-"),
		})
	}

	// Sort findings: severity -> rule id
	sort.SliceStable(vm.Findings, func(i, j int) bool {
		ai := indexOf(sevOrder, strings.ToLower(vm.Findings[i].Severity))
		bi := indexOf(sevOrder, strings.ToLower(vm.Findings[j].Severity))
		if ai != bi {
			return ai < bi
		}
		return vm.Findings[i].RuleID < vm.Findings[j].RuleID
	})

	return vm
}

func countParts(counts map[string]int) string {
	var parts []string
	for _, sev := range sevOrder {
		if c := counts[sev]; c > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", c, sev))
		}
	}
	return strings.Join(parts, ", ")
}

func indexOf(arr []string, s string) int {
	for i, v := range arr {
		if v == s {
			return i
		}
	}
	return len(arr)
}

func trimTo(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}

func emptyFallback(s, fb string) string {
	if strings.TrimSpace(s) == "" {
		return fb
	}
	return s
}
