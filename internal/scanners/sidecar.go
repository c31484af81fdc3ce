// Package scanners submits fetched skill bundles to the analysis sidecar
// and normalizes the wire response into schema.ScanResult. A failed or
// skipped scan is always folded into the result, never raised: the caller
// still has content to deliver.
package scanners

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/yorozuya-cybersecurity/skillguard/internal/archive"
	"github.com/yorozuya-cybersecurity/skillguard/internal/schema"
)

const uploadTimeout = 120 * time.Second

// unavailableHint tells the user how to get a scanner endpoint when none
// could be reached at all.
const unavailableHint = "analysis sidecar unavailable: install uv (https://docs.astral.sh/uv/) so skillguard can start the scanner, or point SKILLGUARD_SCANNER_URL at a running instance"

// EndpointProvider yields a healthy scanner base URL, or "" when none can be
// made available. Satisfied by sidecar.Supervisor.
type EndpointProvider interface {
	EnsureEndpoint(ctx context.Context) string
}

// Options tune a scan. The LLM analyzer is enabled by the presence of its
// credential; model and provider ride along when set.
type Options struct {
	LLMAPIKey   string
	LLMModel    string
	LLMProvider string
}

// SidecarScanner uploads bundles to whatever endpoint its provider returns.
type SidecarScanner struct {
	provider EndpointProvider
	opts     Options
	client   *http.Client
	timeout  time.Duration
	logger   *slog.Logger
}

// New builds a scanner client. A nil logger falls back to slog.Default.
func New(provider EndpointProvider, opts Options, logger *slog.Logger) *SidecarScanner {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.LLMAPIKey != "" && opts.LLMProvider == "" {
		opts.LLMProvider = "anthropic"
	}
	return &SidecarScanner{
		provider: provider,
		opts:     opts,
		client:   &http.Client{},
		timeout:  uploadTimeout,
		logger:   logger,
	}
}

// Scan packs files into an archive, uploads it, and returns a normalized
// result. Never returns an error: unavailability and scan failures are
// reported through the result's Available/Status/Error fields.
func (s *SidecarScanner) Scan(ctx context.Context, files schema.FileSet) *schema.ScanResult {
	endpoint := s.provider.EnsureEndpoint(ctx)
	if endpoint == "" {
		return &schema.ScanResult{Available: false, Error: unavailableHint}
	}

	body, contentType, err := s.buildUpload(files)
	if err != nil {
		return &schema.ScanResult{
			Available: true,
			Status:    schema.StatusError,
			Error:     fmt.Sprintf("build upload request: %v", err),
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.uploadURL(endpoint), body)
	if err != nil {
		return &schema.ScanResult{
			Available: true,
			Status:    schema.StatusError,
			Error:     fmt.Sprintf("build upload request: %v", err),
		}
	}
	req.Header.Set("Content-Type", contentType)

	s.logger.Debug("uploading bundle for analysis", "endpoint", endpoint, "files", len(files))
	resp, err := s.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return &schema.ScanResult{
				Available: true,
				Status:    schema.StatusError,
				Error:     fmt.Sprintf("scan timed out after %s", s.timeout),
			}
		}
		// The endpoint could not be reached at all, as opposed to
		// reached-but-erroring.
		return &schema.ScanResult{Available: false, Error: fmt.Sprintf("scanner unreachable: %v", err)}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &schema.ScanResult{
			Available: true,
			Status:    schema.StatusError,
			Error:     fmt.Sprintf("scanner returned HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(raw)),
		}
	}

	var wire wireResponse
	if err := json.Unmarshal(raw, &wire); err != nil {
		return &schema.ScanResult{
			Available: true,
			Status:    schema.StatusError,
			Error:     fmt.Sprintf("unparsable scanner response: %v", err),
		}
	}
	return s.normalize(wire)
}

// uploadURL mirrors the analyzer flags onto the query string.
func (s *SidecarScanner) uploadURL(endpoint string) string {
	u := endpoint + "/scan-upload?use_behavioral=true"
	if s.opts.LLMAPIKey != "" {
		u += "&use_llm=true"
		if s.opts.LLMProvider != "" {
			u += "&llm_provider=" + url.QueryEscape(s.opts.LLMProvider)
		}
	}
	return u
}

// buildUpload assembles the multipart body: analyzer flag fields first, then
// the archive as a `file` part of type application/zip. The boundary token
// is randomized per request.
func (s *SidecarScanner) buildUpload(files schema.FileSet) (io.Reader, string, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	if err := w.SetBoundary("skillguard-" + uuid.NewString()); err != nil {
		return nil, "", err
	}

	if err := w.WriteField("use_behavioral", "true"); err != nil {
		return nil, "", err
	}
	if s.opts.LLMAPIKey != "" {
		fields := map[string]string{
			"use_llm":     "true",
			"llm_api_key": s.opts.LLMAPIKey,
		}
		if s.opts.LLMProvider != "" {
			fields["llm_provider"] = s.opts.LLMProvider
		}
		if s.opts.LLMModel != "" {
			fields["llm_model"] = s.opts.LLMModel
		}
		for name, value := range fields {
			if err := w.WriteField(name, value); err != nil {
				return nil, "", err
			}
		}
	}

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="bundle.zip"`)
	header.Set("Content-Type", "application/zip")
	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(archive.Build(files)); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return body, w.FormDataContentType(), nil
}

// wireResponse is the sidecar's scan-upload reply. Finding keys come in both
// snake_case and camelCase depending on the scanner version, so both are
// accepted and coalesced during normalization.
type wireResponse struct {
	IsSafe              bool          `json:"is_safe"`
	MaxSeverity         string        `json:"max_severity"`
	FindingsCount       int           `json:"findings_count"`
	Findings            []wireFinding `json:"findings"`
	AnalyzersUsed       []string      `json:"analyzers_used"`
	ScanDurationSeconds float64       `json:"scan_duration_seconds"`
}

type wireFinding struct {
	RuleID        string `json:"rule_id"`
	RuleIDCamel   string `json:"ruleId"`
	Severity      string `json:"severity"`
	Description   string `json:"description"`
	Message       string `json:"message"`
	FilePath      string `json:"file_path"`
	FilePathCamel string `json:"filePath"`
	Analyzer      string `json:"analyzer"`
}

func (s *SidecarScanner) requestedAnalyzers() []string {
	requested := []string{AnalyzerBehavioral}
	if s.opts.LLMAPIKey != "" {
		requested = append(requested, AnalyzerLLM)
	}
	return requested
}

func (s *SidecarScanner) normalize(wire wireResponse) *schema.ScanResult {
	findings := make([]schema.Finding, 0, len(wire.Findings))
	for _, f := range wire.Findings {
		findings = append(findings, schema.Finding{
			RuleID:      coalesce(f.RuleID, f.RuleIDCamel),
			Severity:    f.Severity,
			Description: coalesce(f.Description, f.Message),
			FilePath:    coalesce(f.FilePath, f.FilePathCamel),
			Analyzer:    f.Analyzer,
		})
	}

	total := wire.FindingsCount
	if total == 0 {
		total = len(findings)
	}

	status := schema.StatusUnsafe
	if wire.IsSafe {
		status = schema.StatusSafe
	}

	return &schema.ScanResult{
		Available:         true,
		Status:            status,
		MaxSeverity:       wire.MaxSeverity,
		Findings:          findings,
		TotalFindings:     total,
		AnalyzersExecuted: executedAnalyzers(s.requestedAnalyzers(), wire.AnalyzersUsed, findings),
		ScanDuration:      time.Duration(wire.ScanDurationSeconds * float64(time.Second)),
	}
}

func coalesce(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
