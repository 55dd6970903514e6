package firecrawl

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/audit-cli/internal/resilience"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("test-key", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
}

func TestCrawlSendsAuthAndBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/crawl", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req CrawlRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "https://acme.test", req.URL)
		assert.Equal(t, 25, req.Limit)

		json.NewEncoder(w).Encode(CrawlResponse{Success: true, ID: "crawl-1"}) //nolint:errcheck
	})

	resp, err := c.Crawl(context.Background(), CrawlRequest{URL: "https://acme.test", MaxDepth: 2, Limit: 25})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "crawl-1", resp.ID)
}

func TestGetCrawlStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/crawl/crawl-1", r.URL.Path)
		json.NewEncoder(w).Encode(CrawlStatusResponse{ //nolint:errcheck
			Status: "completed",
			Total:  2,
			Data: []PageData{
				{URL: "https://acme.test/", Title: "Home", StatusCode: 200},
				{URL: "https://acme.test/about", Title: "About", StatusCode: 200},
			},
		})
	})

	status, err := c.GetCrawlStatus(context.Background(), "crawl-1")
	require.NoError(t, err)
	assert.Equal(t, "completed", status.Status)
	require.Len(t, status.Data, 2)
	assert.Equal(t, "https://acme.test/about", status.Data[1].URL)
}

func TestScrape(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/scrape", r.URL.Path)
		json.NewEncoder(w).Encode(ScrapeResponse{ //nolint:errcheck
			Success: true,
			Data:    PageData{URL: "https://acme.test/", Title: "Home", StatusCode: 200},
		})
	})

	resp, err := c.Scrape(context.Background(), ScrapeRequest{URL: "https://acme.test/", Formats: []string{"html"}})
	require.NoError(t, err)
	assert.Equal(t, "Home", resp.Data.Title)
}

func TestAPIErrorSurfaced(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
	})

	_, err := c.Crawl(context.Background(), CrawlRequest{URL: "https://acme.test"})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, eris.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "unauthorized")
	assert.False(t, resilience.IsTransient(err))
}

func TestServerErrorsAreTransient(t *testing.T) {
	for _, status := range []int{http.StatusTooManyRequests, http.StatusBadGateway} {
		c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
		})

		_, err := c.Crawl(context.Background(), CrawlRequest{URL: "https://acme.test"})
		require.Error(t, err)
		assert.True(t, resilience.IsTransient(err))

		var apiErr *APIError
		require.True(t, eris.As(err, &apiErr))
		assert.Equal(t, status, apiErr.StatusCode)
	}
}
