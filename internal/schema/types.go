package schema

import "time"

// BundleFile is one file inside a fetched skill bundle: a forward-slash
// relative path and its raw content.
type BundleFile struct {
	Path string `json:"path"`
	Data []byte `json:"-"`
}

// FileSet is an ordered set of bundle files. Paths are unique; order is
// whatever the registry returned, so archive layout stays deterministic.
type FileSet []BundleFile

// Add appends a file, replacing an existing entry with the same path.
func (fs FileSet) Add(path string, data []byte) FileSet {
	for i := range fs {
		if fs[i].Path == path {
			fs[i].Data = data
			return fs
		}
	}
	return append(fs, BundleFile{Path: path, Data: data})
}

// ScanStatus is the outcome of a completed (or failed) sidecar scan.
type ScanStatus string

const (
	StatusSafe   ScanStatus = "SAFE"
	StatusUnsafe ScanStatus = "UNSAFE"
	StatusError  ScanStatus = "ERROR"
)

// Finding is one normalized issue reported by the analysis sidecar. Every
// field is optional on the wire, so everything defaults to empty.
type Finding struct {
	RuleID      string `json:"rule_id,omitempty"`
	Severity    string `json:"severity,omitempty"`
	Description string `json:"description,omitempty"`
	FilePath    string `json:"file_path,omitempty"`
	Analyzer    string `json:"analyzer,omitempty"`
}

// ScanResult groups the outcome of one scan call. Available distinguishes
// "no endpoint reachable at all" from "reached but the scan failed".
type ScanResult struct {
	Available         bool          `json:"available"`
	Status            ScanStatus    `json:"status,omitempty"`
	MaxSeverity       string        `json:"max_severity,omitempty"`
	Findings          []Finding     `json:"findings,omitempty"`
	TotalFindings     int           `json:"total_findings"`
	AnalyzersExecuted []string      `json:"analyzers_executed,omitempty"`
	ScanDuration      time.Duration `json:"scan_duration,omitempty"`
	Error             string        `json:"error,omitempty"`
}

// SkillSummary is one marketplace search hit.
type SkillSummary struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`
	Author      string `json:"author,omitempty"`
}

// VerifyResult groups everything one verify run produced: the skill that was
// fetched, its files, and the scan outcome (nil when scanning was skipped).
type VerifyResult struct {
	Skill     string      `json:"skill"`
	Timestamp time.Time   `json:"timestamp"`
	Files     []string    `json:"files"`
	Scan      *ScanResult `json:"scan,omitempty"`
}
