package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultAPIPath is used when the base URL carries no path.
	DefaultAPIPath = "/api"

	defaultTimeout = 10 * time.Second

	msgListRunsFailed = "获取 Runs 失败"
	msgGetRunFailed   = "获取 Run 失败"
	msgReportNotFound = "Report not found"
)

// Client talks to the runs API.
type Client interface {
	// Health probes the API. It only fails on transport errors; the HTTP
	// status is reported through HealthResult.OK.
	Health(ctx context.Context) (*HealthResult, error)

	// ListRuns fetches one page of runs.
	ListRuns(ctx context.Context, page, pageSize int) (*RunList, error)

	// GetRun fetches a single run.
	GetRun(ctx context.Context, runID string) (*Run, error)

	// DownloadReport streams the daily report for dt into saver and
	// returns the file name it was saved under.
	DownloadReport(ctx context.Context, dt string, saver Saver) (string, error)
}

// Config configures a Client.
type Config struct {
	// BaseURL is the API root, e.g. http://127.0.0.1:8000/api. When it has
	// no path, /api is appended.
	BaseURL string
	Timeout time.Duration
}

// Compile-time interface check.
var _ Client = (*client)(nil)

type client struct {
	log     logrus.FieldLogger
	baseURL *url.URL
	http    *http.Client
}

// NewClient creates a new runs API client.
func NewClient(log logrus.FieldLogger, cfg Config) (Client, error) {
	u, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url must be http(s), got %q", cfg.BaseURL)
	}

	if u.Path == "" {
		u.Path = DefaultAPIPath
	}

	u.RawQuery = ""
	u.Fragment = ""

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &client{
		log:     log.WithField("component", "client"),
		baseURL: u,
		http:    &http.Client{Timeout: timeout},
	}, nil
}

// endpoint joins an already escaped path and query onto the base URL.
func (c *client) endpoint(escapedPath string, query url.Values) string {
	target := strings.TrimRight(c.baseURL.String(), "/") + escapedPath
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	return target
}

// do issues a request. JSON requests carry JSON content negotiation headers.
func (c *client) do(
	ctx context.Context, target string, jsonCall bool,
) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	if jsonCall {
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
	}

	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}

	c.log.WithFields(logrus.Fields{
		"url":      target,
		"status":   resp.StatusCode,
		"duration": time.Since(start),
	}).Debug("API request completed")

	return resp, nil
}

// getJSON fetches target and decodes the payload into v. Failures produce an
// *APIError carrying the server message or fallback.
func (c *client) getJSON(
	ctx context.Context, target, fallback string, v any,
) error {
	resp, err := c.do(ctx, target, true)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	if !isSuccess(resp.StatusCode) {
		return newAPIError(resp.StatusCode, messageFrom(body), fallback)
	}

	env, err := parseEnvelope(body)
	if err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	if env.failed() {
		return newAPIError(resp.StatusCode, env.Message, fallback)
	}

	if err := env.decodePayload(v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	return nil
}

// Health probes GET /health.
func (c *client) Health(ctx context.Context) (*HealthResult, error) {
	resp, err := c.do(ctx, c.endpoint("/health", nil), true)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	result := &HealthResult{
		OK:         isSuccess(resp.StatusCode),
		StatusCode: resp.StatusCode,
	}

	if trimmed := bytes.TrimSpace(body); json.Valid(trimmed) && len(trimmed) > 0 {
		result.Data = json.RawMessage(trimmed)
	}

	return result, nil
}

// ListRuns fetches GET /runs?page=&page_size=.
func (c *client) ListRuns(
	ctx context.Context, page, pageSize int,
) (*RunList, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("page_size", strconv.Itoa(pageSize))

	var list RunList
	if err := c.getJSON(
		ctx, c.endpoint("/runs", q), msgListRunsFailed, &list,
	); err != nil {
		return nil, err
	}

	if list.Items == nil {
		list.Items = []Run{}
	}

	return &list, nil
}

// GetRun fetches GET /runs/{run_id}.
func (c *client) GetRun(ctx context.Context, runID string) (*Run, error) {
	var run Run
	if err := c.getJSON(
		ctx, c.endpoint("/runs/"+url.PathEscape(runID), nil), msgGetRunFailed, &run,
	); err != nil {
		return nil, err
	}

	return &run, nil
}

// DownloadReport fetches GET /reports/daily/download?dt= and hands the body
// to saver.
func (c *client) DownloadReport(
	ctx context.Context, dt string, saver Saver,
) (string, error) {
	q := url.Values{}
	q.Set("dt", dt)

	resp, err := c.do(ctx, c.endpoint("/reports/daily/download", q), false)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if !isSuccess(resp.StatusCode) {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

		return "", newAPIError(resp.StatusCode, messageFrom(body), msgReportNotFound)
	}

	filename := DefaultReportFilename(dt)
	if name, ok := FilenameFromDisposition(
		resp.Header.Get("Content-Disposition"),
	); ok {
		filename = name
	}

	if err := saver.Save(ctx, Download{
		Filename:      filename,
		ContentType:   resp.Header.Get("Content-Type"),
		ContentLength: resp.ContentLength,
		Body:          resp.Body,
	}); err != nil {
		return "", fmt.Errorf("saving %s: %w", filename, err)
	}

	c.log.WithFields(logrus.Fields{
		"dt":       dt,
		"filename": filename,
	}).Debug("Report downloaded")

	return filename, nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
