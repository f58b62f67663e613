// CLAUDE:SUMMARY HTTP JSON client for the report-generation service: single report, longitudinal analysis, health.
// Package report talks to the report-generation service. There are no
// retries: every failure is returned to the operator as either an
// *UnreachableError or a *RejectedError.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hazyhaar/sonodraft/internal/bounded"
	"github.com/hazyhaar/sonodraft/study"
)

// Default endpoint paths.
const (
	GeneratePath = "/generate-report"
	HistoryPath  = "/analyze-patient-history-extension"
	HealthPath   = "/health"
)

// Config configures a Client.
type Config struct {
	// BaseURL of the service, e.g. http://localhost:3000.
	BaseURL string

	// HistoryPath overrides the longitudinal endpoint path.
	HistoryPath string

	// Timeout per request. Default: 3m; report generation is slow.
	Timeout time.Duration

	// MaxResponse caps response bodies. Default: bounded.MaxResponseBody.
	MaxResponse int64

	// HTTPClient replaces the default client. Timeout is then ignored.
	HTTPClient *http.Client

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.HistoryPath == "" {
		c.HistoryPath = HistoryPath
	}
	if c.Timeout <= 0 {
		c.Timeout = 3 * time.Minute
	}
	if c.MaxResponse <= 0 {
		c.MaxResponse = bounded.MaxResponseBody
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Client is safe for concurrent use.
type Client struct {
	cfg  Config
	base *url.URL
}

// New validates the base URL and creates a Client.
func New(cfg Config) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("report: base url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("report: base url %q must be an absolute http(s) URL", cfg.BaseURL)
	}
	cfg.defaults()
	return &Client{cfg: cfg, base: u}, nil
}

// BaseURL returns the service base URL.
func (c *Client) BaseURL() string { return c.base.String() }

type generateRequest struct {
	StudyType    study.StudyType   `json:"studyType"`
	PatientInfo  study.PatientInfo `json:"patientInfo"`
	Measurements []string          `json:"measurements"`
	Conclusion   string            `json:"conclusion"`
	ImageData    []study.Image     `json:"imageData"`
}

type generateResponse struct {
	Report string `json:"report"`
}

// Generate asks for a draft report of one study.
func (c *Client) Generate(ctx context.Context, rec study.StudyRecord) (string, error) {
	req := generateRequest{
		StudyType:    rec.StudyType,
		PatientInfo:  rec.PatientInfo,
		Measurements: nonNil(rec.Measurements),
		Conclusion:   rec.Conclusion,
		ImageData:    rec.Images,
	}
	if req.ImageData == nil {
		req.ImageData = []study.Image{}
	}
	var resp generateResponse
	if _, err := c.do(ctx, http.MethodPost, GeneratePath, req, &resp); err != nil {
		return "", err
	}
	return resp.Report, nil
}

// HistoryReport is the service's answer to a longitudinal analysis.
type HistoryReport struct {
	Success         bool               `json:"success"`
	Report          string             `json:"report"`
	StudiesAnalyzed int                `json:"studiesAnalyzed"`
	DateRange       study.DateRange    `json:"dateRange"`
	PatientInfo     *study.PatientInfo `json:"patientInfo,omitempty"`
	Error           string             `json:"error,omitempty"`
}

// AnalyzeHistory submits a patient history. Study dates in the payload are
// the list dates when the study list carried one.
func (c *Client) AnalyzeHistory(ctx context.Context, h study.PatientHistory) (*HistoryReport, error) {
	payload := h
	payload.Studies = make([]study.StudyRecord, len(h.Studies))
	for i, s := range h.Studies {
		s.PatientInfo.StudyDate = s.EffectiveDate()
		s.Measurements = nonNil(s.Measurements)
		if s.Images == nil {
			s.Images = []study.Image{}
		}
		payload.Studies[i] = s
	}

	var resp HistoryReport
	status, err := c.do(ctx, http.MethodPost, c.cfg.HistoryPath, payload, &resp)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		msg := resp.Error
		if msg == "" {
			msg = "analysis failed"
		}
		return nil, &RejectedError{Status: status, Message: msg}
	}
	if resp.DateRange == (study.DateRange{}) {
		resp.DateRange = h.DateRange()
	}
	return &resp, nil
}

// Health checks that the service answers.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, HealthPath, nil, nil)
	return err
}

func (c *Client) endpoint(path string) string {
	return c.base.JoinPath(path).String()
}

// do sends body as JSON and decodes a 2xx answer into out. It returns the
// HTTP status.
func (c *Client) do(ctx context.Context, method, path string, body, out any) (int, error) {
	endpoint := c.endpoint(path)

	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("report: encode request: %w", err)
		}
		rdr = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, rdr)
	if err != nil {
		return 0, fmt.Errorf("report: create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return 0, &UnreachableError{URL: endpoint, Cause: err}
	}
	defer resp.Body.Close()

	data, err := bounded.ReadAll(resp.Body, c.cfg.MaxResponse)
	if err != nil {
		return resp.StatusCode, &UnreachableError{URL: endpoint, Cause: err}
	}
	c.cfg.Logger.Debug("report: response",
		"method", method, "path", path, "status", resp.StatusCode,
		"bytes", len(data), "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, &RejectedError{Status: resp.StatusCode, Message: errorMessage(resp.StatusCode, data)}
	}
	if out == nil {
		return resp.StatusCode, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return resp.StatusCode, &RejectedError{Status: resp.StatusCode, Message: "malformed response: " + err.Error()}
	}
	return resp.StatusCode, nil
}

// errorMessage is the body's "error" field, else the status text.
func errorMessage(status int, body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && strings.TrimSpace(e.Error) != "" {
		return e.Error
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return fmt.Sprintf("status %d", status)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
