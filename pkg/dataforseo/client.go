// Package dataforseo is a client for the DataForSEO v3 API endpoints the
// audit pipeline consumes: Lighthouse, backlinks summary, ranked keywords,
// competitor domains, on-page checks and SERP lookups.
package dataforseo

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/audit-cli/internal/resilience"
)

// Default base URL for the DataForSEO v3 API.
const defaultBaseURL = "https://api.dataforseo.com/v3"

// Client defines the DataForSEO operations used by the audit pipeline.
type Client interface {
	Lighthouse(ctx context.Context, task LighthouseTask) (*LighthouseResult, error)
	BacklinksSummary(ctx context.Context, target string) (*BacklinksSummaryResult, error)
	RankedKeywords(ctx context.Context, task RankedKeywordsTask) (*RankedKeywordsResult, error)
	CompetitorsDomain(ctx context.Context, task CompetitorsDomainTask) (*CompetitorsDomainResult, error)
	InstantPages(ctx context.Context, url string) (*InstantPagesResult, error)
	SerpOrganic(ctx context.Context, task SerpOrganicTask) (*SerpOrganicResult, error)
}

// APIError is returned when DataForSEO responds with a non-2xx HTTP status or
// a task-level error code.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("dataforseo: status %d: %s", e.StatusCode, e.Message)
}

// DataForSEO's "rate limit exceeded" task code.
const codeRateLimited = 40202

// httpError classifies an HTTP-level failure. 429 and 5xx are retryable.
func httpError(status int, body string) error {
	err := &APIError{StatusCode: status, Message: body}
	if status == http.StatusTooManyRequests || status >= 500 {
		return resilience.NewTransientError(err, status)
	}
	return err
}

// taskError classifies an envelope or task status code. Rate limiting and
// internal (5xxxx) codes are retryable, everything else is permanent.
func taskError(code int, message string) error {
	err := &APIError{StatusCode: code, Message: message}
	if code == codeRateLimited || code >= 50000 {
		return resilience.NewTransientError(err, code)
	}
	return err
}

// Option configures the httpClient.
type Option func(*httpClient)

// WithBaseURL overrides the default base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	auth    string // precomputed basic auth header value
	baseURL string
	http    *http.Client
}

// NewClient creates a DataForSEO client using basic auth credentials.
func NewClient(login, password string, opts ...Option) Client {
	c := &httpClient{
		auth:    "Basic " + base64.StdEncoding.EncodeToString([]byte(login+":"+password)),
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 45 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// envelope is the standard DataForSEO response wrapper. Every endpoint
// returns a task array; live endpoints carry exactly one task.
type envelope struct {
	StatusCode int    `json:"status_code"`
	StatusMsg  string `json:"status_message"`
	Tasks      []struct {
		StatusCode int               `json:"status_code"`
		StatusMsg  string            `json:"status_message"`
		Result     []json.RawMessage `json:"result"`
	} `json:"tasks"`
}

// postTask posts a single-task array and decodes the first result element.
func (c *httpClient) postTask(ctx context.Context, path string, task any, out any) error {
	body, err := json.Marshal([]any{task})
	if err != nil {
		return eris.Wrap(err, "marshal task")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.auth)

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "execute request")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "read response body")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return httpError(resp.StatusCode, string(data))
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return eris.Wrap(err, "decode envelope")
	}
	// 20000 is DataForSEO's "Ok" code.
	if env.StatusCode != 20000 {
		return taskError(env.StatusCode, env.StatusMsg)
	}
	if len(env.Tasks) == 0 {
		return eris.New("dataforseo: empty task list in response")
	}
	task0 := env.Tasks[0]
	if task0.StatusCode != 20000 {
		return taskError(task0.StatusCode, task0.StatusMsg)
	}
	if len(task0.Result) == 0 {
		return eris.New("dataforseo: task returned no result")
	}

	if err := json.Unmarshal(task0.Result[0], out); err != nil {
		return eris.Wrap(err, "decode result")
	}
	return nil
}

func (c *httpClient) Lighthouse(ctx context.Context, task LighthouseTask) (*LighthouseResult, error) {
	var res LighthouseResult
	if err := c.postTask(ctx, "/on_page/lighthouse/live/json", task.ToPayload(), &res); err != nil {
		return nil, eris.Wrap(err, "dataforseo: lighthouse")
	}
	return &res, nil
}

func (c *httpClient) BacklinksSummary(ctx context.Context, target string) (*BacklinksSummaryResult, error) {
	var res BacklinksSummaryResult
	task := map[string]any{"target": target, "include_subdomains": true}
	if err := c.postTask(ctx, "/backlinks/summary/live", task, &res); err != nil {
		return nil, eris.Wrapf(err, "dataforseo: backlinks summary %s", target)
	}
	return &res, nil
}

func (c *httpClient) RankedKeywords(ctx context.Context, task RankedKeywordsTask) (*RankedKeywordsResult, error) {
	var res RankedKeywordsResult
	if err := c.postTask(ctx, "/dataforseo_labs/google/ranked_keywords/live", task, &res); err != nil {
		return nil, eris.Wrapf(err, "dataforseo: ranked keywords %s", task.Target)
	}
	return &res, nil
}

func (c *httpClient) CompetitorsDomain(ctx context.Context, task CompetitorsDomainTask) (*CompetitorsDomainResult, error) {
	var res CompetitorsDomainResult
	if err := c.postTask(ctx, "/dataforseo_labs/google/competitors_domain/live", task, &res); err != nil {
		return nil, eris.Wrapf(err, "dataforseo: competitors domain %s", task.Target)
	}
	return &res, nil
}

func (c *httpClient) InstantPages(ctx context.Context, url string) (*InstantPagesResult, error) {
	var res InstantPagesResult
	task := map[string]any{"url": url, "enable_javascript": false}
	if err := c.postTask(ctx, "/on_page/instant_pages", task, &res); err != nil {
		return nil, eris.Wrapf(err, "dataforseo: instant pages %s", url)
	}
	return &res, nil
}

func (c *httpClient) SerpOrganic(ctx context.Context, task SerpOrganicTask) (*SerpOrganicResult, error) {
	var res SerpOrganicResult
	if err := c.postTask(ctx, "/serp/google/organic/live/advanced", task, &res); err != nil {
		return nil, eris.Wrap(err, "dataforseo: serp organic")
	}
	return &res, nil
}
