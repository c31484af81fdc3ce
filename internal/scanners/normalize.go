package scanners

import (
	"sort"
	"strings"

	"github.com/yorozuya-cybersecurity/skillguard/internal/schema"
)

// Canonical analyzer identifiers as the wire protocol knows them.
const (
	AnalyzerStatic     = "static"
	AnalyzerBehavioral = "behavioral"
	AnalyzerLLM        = "llm"
)

// analyzerAliases maps short and alternate wire spellings onto the canonical
// identifiers. Matching is case-insensitive; anything unlisted is dropped.
var analyzerAliases = map[string]string{
	"static":          AnalyzerStatic,
	"sast":            AnalyzerStatic,
	"static_analysis": AnalyzerStatic,
	"behavioral":      AnalyzerBehavioral,
	"behavior":        AnalyzerBehavioral,
	"dynamic":         AnalyzerBehavioral,
	"llm":             AnalyzerLLM,
	"ai":              AnalyzerLLM,
	"llm_analyzer":    AnalyzerLLM,
}

func normalizeAnalyzer(name string) (string, bool) {
	canonical, ok := analyzerAliases[strings.ToLower(strings.TrimSpace(name))]
	return canonical, ok
}

// executedAnalyzers unions the analyzers the request asked for, the ones the
// response reported, and the ones attached to individual findings. The union
// matters: the service may omit analyzers that produced zero findings, which
// would otherwise look like they never ran. Requested analyzers are assumed
// executed whenever the scan completed; the protocol has no field confirming
// it either way.
func executedAnalyzers(requested, reported []string, findings []schema.Finding) []string {
	seen := map[string]bool{}
	add := func(name string) {
		if canonical, ok := normalizeAnalyzer(name); ok {
			seen[canonical] = true
		}
	}
	for _, a := range requested {
		add(a)
	}
	for _, a := range reported {
		add(a)
	}
	for _, f := range findings {
		add(f.Analyzer)
	}

	out := make([]string, 0, len(seen))
	for a := range seen {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}
