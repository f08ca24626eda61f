package runstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultPageSize is the page size used when listing without an explicit limit.
const DefaultPageSize = 1000

// APIError is a non-2xx response from the tracking service.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"error_code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("mlflow: %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("mlflow: %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a RESOURCE_DOES_NOT_EXIST response.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusNotFound || apiErr.Code == "RESOURCE_DOES_NOT_EXIST"
}

// MLflowOptions configures an MLflowClient.
type MLflowOptions struct {
	// TrackingURI is the base URL of the tracking server, e.g. http://localhost:5000.
	TrackingURI string
	// RequestsPerSecond throttles outgoing requests. Zero disables throttling.
	RequestsPerSecond float64
	// Timeout bounds each HTTP request. Zero means no client-side timeout.
	Timeout time.Duration
	// HTTPClient overrides the HTTP client. Timeout is ignored when set.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// MLflowClient talks to an MLflow tracking server over its REST API.
type MLflowClient struct {
	base    *url.URL
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewMLflowClient creates a client for the tracking server at opts.TrackingURI.
func NewMLflowClient(opts MLflowOptions) (*MLflowClient, error) {
	if opts.TrackingURI == "" {
		return nil, errors.New("mlflow: tracking URI is required")
	}
	base, err := url.Parse(strings.TrimRight(opts.TrackingURI, "/"))
	if err != nil {
		return nil, fmt.Errorf("mlflow: parsing tracking URI: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("mlflow: unsupported tracking URI scheme %q", base.Scheme)
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &MLflowClient{base: base, http: hc, limiter: limiter, logger: logger}, nil
}

// Do sends one JSON request to path and decodes the JSON response into out.
// It is exported so that other collaborators on the same server (the prompt
// registry) share the throttle and error handling.
func (c *MLflowClient) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	u := *c.base
	u.Path += path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("mlflow: encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("mlflow: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	c.logger.Debug("mlflow request", "method", method, "path", path, "status", resp.StatusCode, "elapsed", time.Since(start))

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("mlflow: reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if jsonErr := json.Unmarshal(data, apiErr); jsonErr != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return apiErr
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("mlflow: decoding %s response: %w", path, err)
	}
	return nil
}

// SearchExperiments lists all active experiments, following pagination.
func (c *MLflowClient) SearchExperiments(ctx context.Context) ([]Experiment, error) {
	var out []Experiment
	token := ""
	for {
		req := map[string]any{"max_results": DefaultPageSize}
		if token != "" {
			req["page_token"] = token
		}
		var resp struct {
			Experiments   []Experiment `json:"experiments"`
			NextPageToken string       `json:"next_page_token"`
		}
		if err := c.Do(ctx, http.MethodPost, "/api/2.0/mlflow/experiments/search", nil, req, &resp); err != nil {
			return nil, err
		}
		out = append(out, resp.Experiments...)
		if resp.NextPageToken == "" {
			return out, nil
		}
		token = resp.NextPageToken
	}
}

// SearchRuns runs a search in one experiment. With a positive limit only the first
// page is requested.
func (c *MLflowClient) SearchRuns(ctx context.Context, q RunQuery) ([]Run, error) {
	order := "attributes.start_time ASC"
	if q.NewestFirst {
		order = "attributes.start_time DESC"
	}
	pageSize := DefaultPageSize
	if q.Limit > 0 && q.Limit < pageSize {
		pageSize = q.Limit
	}

	var out []Run
	token := ""
	for {
		req := map[string]any{
			"experiment_ids": []string{q.ExperimentID},
			"max_results":    pageSize,
			"order_by":       []string{order},
		}
		if f := statusFilter(q.Statuses); f != "" {
			req["filter"] = f
		}
		if token != "" {
			req["page_token"] = token
		}
		var resp struct {
			Runs          []mlflowRun `json:"runs"`
			NextPageToken string      `json:"next_page_token"`
		}
		if err := c.Do(ctx, http.MethodPost, "/api/2.0/mlflow/runs/search", nil, req, &resp); err != nil {
			return nil, err
		}
		for _, r := range resp.Runs {
			out = append(out, r.toRun())
		}
		if q.Limit > 0 && len(out) >= q.Limit {
			return out[:q.Limit], nil
		}
		if resp.NextPageToken == "" {
			return out, nil
		}
		token = resp.NextPageToken
	}
}

// GetRun fetches one run by id.
func (c *MLflowClient) GetRun(ctx context.Context, runID string) (*Run, error) {
	var resp struct {
		Run mlflowRun `json:"run"`
	}
	err := c.Do(ctx, http.MethodGet, "/api/2.0/mlflow/runs/get", url.Values{"run_id": {runID}}, nil, &resp)
	if err != nil {
		if IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}
	run := resp.Run.toRun()
	return &run, nil
}

// SetTag writes a tag onto a run.
func (c *MLflowClient) SetTag(ctx context.Context, runID, key, value string) error {
	req := map[string]string{"run_id": runID, "key": key, "value": value}
	return c.Do(ctx, http.MethodPost, "/api/2.0/mlflow/runs/set-tag", nil, req, nil)
}

// quoteFilterValue renders s as a single-quoted search filter literal.
func quoteFilterValue(s string) string {
	return "'" + filterEscaper.Replace(s) + "'"
}

var filterEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

// FetchTraces lists every trace whose source run is runID.
func (c *MLflowClient) FetchTraces(ctx context.Context, runID string) ([]Trace, error) {
	run, err := c.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	var out []Trace
	token := ""
	for {
		req := map[string]any{
			"locations": []map[string]any{{
				"type":              "MLFLOW_EXPERIMENT",
				"mlflow_experiment": map[string]string{"experiment_id": run.ExperimentID},
			}},
			"filter":      "metadata.`mlflow.sourceRun` = " + quoteFilterValue(runID),
			"max_results": 500,
			"order_by":    []string{"timestamp_ms ASC"},
		}
		if token != "" {
			req["page_token"] = token
		}
		var resp struct {
			Traces        []mlflowTrace `json:"traces"`
			NextPageToken string        `json:"next_page_token"`
		}
		if err := c.Do(ctx, http.MethodPost, "/api/3.0/mlflow/traces/search", nil, req, &resp); err != nil {
			return nil, err
		}
		for _, t := range resp.Traces {
			out = append(out, t.toTrace())
		}
		if resp.NextPageToken == "" {
			return out, nil
		}
		token = resp.NextPageToken
	}
}

func statusFilter(statuses []RunStatus) string {
	switch len(statuses) {
	case 0:
		return ""
	case 1:
		return fmt.Sprintf("attributes.status = '%s'", statuses[0])
	}
	quoted := make([]string, len(statuses))
	for i, s := range statuses {
		quoted[i] = "'" + string(s) + "'"
	}
	return "attributes.status IN (" + strings.Join(quoted, ", ") + ")"
}

type mlflowKV struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type mlflowMetric struct {
	Key   string    `json:"key"`
	Value flexFloat `json:"value"`
}

type mlflowRun struct {
	Info struct {
		RunID        string    `json:"run_id"`
		ExperimentID string    `json:"experiment_id"`
		Status       RunStatus `json:"status"`
		StartTime    flexInt   `json:"start_time"`
	} `json:"info"`
	Data struct {
		Metrics []mlflowMetric `json:"metrics"`
		Params  []mlflowKV     `json:"params"`
		Tags    []mlflowKV     `json:"tags"`
	} `json:"data"`
}

func (r mlflowRun) toRun() Run {
	run := Run{
		RunID:        r.Info.RunID,
		ExperimentID: r.Info.ExperimentID,
		Status:       r.Info.Status,
		StartTime:    time.UnixMilli(int64(r.Info.StartTime)).UTC(),
		Metrics:      make(map[string]float64, len(r.Data.Metrics)),
		Params:       make(map[string]string, len(r.Data.Params)),
		Tags:         make(map[string]string, len(r.Data.Tags)),
	}
	for _, m := range r.Data.Metrics {
		run.Metrics[m.Key] = float64(m.Value)
	}
	for _, p := range r.Data.Params {
		run.Params[p.Key] = p.Value
	}
	for _, t := range r.Data.Tags {
		run.Tags[t.Key] = t.Value
	}
	return run
}

type mlflowAssessment struct {
	AssessmentName string `json:"assessment_name"`
	Feedback       *struct {
		Value any `json:"value"`
	} `json:"feedback,omitempty"`
	Expectation *struct {
		Value any `json:"value"`
	} `json:"expectation,omitempty"`
	Rationale string `json:"rationale"`
}

type mlflowTrace struct {
	TraceID           string             `json:"trace_id"`
	RequestTime       string             `json:"request_time"`
	ExecutionDuration string             `json:"execution_duration"`
	TraceMetadata     map[string]string  `json:"trace_metadata"`
	Assessments       []mlflowAssessment `json:"assessments"`
	RequestPreview    string             `json:"request_preview"`
	ResponsePreview   string             `json:"response_preview"`
}

func (t mlflowTrace) toTrace() Trace {
	out := Trace{
		TraceID:  t.TraceID,
		Metadata: t.TraceMetadata,
		Request:  t.RequestPreview,
		Response: t.ResponsePreview,
	}
	if ts, err := time.Parse(time.RFC3339Nano, t.RequestTime); err == nil {
		out.RequestTime = ts.UTC()
	}
	if d, err := time.ParseDuration(t.ExecutionDuration); err == nil {
		out.DurationMs = d.Milliseconds()
	}
	for _, a := range t.Assessments {
		as := Assessment{Name: a.AssessmentName, Rationale: a.Rationale}
		switch {
		case a.Feedback != nil:
			as.Value = a.Feedback.Value
		case a.Expectation != nil:
			as.Value = a.Expectation.Value
		}
		out.Assessments = append(out.Assessments, as)
	}
	return out
}

// flexFloat accepts JSON numbers and the string forms MLflow uses for
// non-finite metric values ("NaN", "Infinity").
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	var n float64
	if err := json.Unmarshal(b, &n); err == nil {
		*f = flexFloat(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	switch s {
	case "Infinity":
		*f = flexFloat(math.Inf(1))
		return nil
	case "-Infinity":
		*f = flexFloat(math.Inf(-1))
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*f = flexFloat(math.NaN())
		return nil
	}
	*f = flexFloat(v)
	return nil
}

// flexInt accepts int64 values encoded either as JSON numbers or strings.
type flexInt int64

func (i *flexInt) UnmarshalJSON(b []byte) error {
	var n int64
	if err := json.Unmarshal(b, &n); err == nil {
		*i = flexInt(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return err
	}
	*i = flexInt(v)
	return nil
}

// Ensure MLflowClient satisfies Client.
var _ Client = (*MLflowClient)(nil)
