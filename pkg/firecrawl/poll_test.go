package firecrawl

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedClient struct {
	statuses []CrawlStatusResponse
	calls    atomic.Int32
	err      error
}

func (c *scriptedClient) Crawl(context.Context, CrawlRequest) (*CrawlResponse, error) {
	return &CrawlResponse{Success: true, ID: "crawl-1"}, nil
}

func (c *scriptedClient) GetCrawlStatus(context.Context, string) (*CrawlStatusResponse, error) {
	if c.err != nil {
		return nil, c.err
	}
	n := int(c.calls.Add(1)) - 1
	if n >= len(c.statuses) {
		n = len(c.statuses) - 1
	}
	return &c.statuses[n], nil
}

func (c *scriptedClient) Scrape(context.Context, ScrapeRequest) (*ScrapeResponse, error) {
	return &ScrapeResponse{Success: true}, nil
}

func TestPollCrawlCompletesImmediately(t *testing.T) {
	client := &scriptedClient{statuses: []CrawlStatusResponse{
		{Status: "completed", Total: 1, Data: []PageData{{URL: "https://acme.test/"}}},
	}}

	status, err := PollCrawl(context.Background(), client, "crawl-1")
	require.NoError(t, err)
	assert.Equal(t, 1, status.Total)
	assert.Equal(t, int32(1), client.calls.Load())
}

func TestPollCrawlWaitsForCompletion(t *testing.T) {
	client := &scriptedClient{statuses: []CrawlStatusResponse{
		{Status: "scraping"},
		{Status: "scraping"},
		{Status: "completed", Total: 3},
	}}

	status, err := PollCrawl(context.Background(), client, "crawl-1",
		WithPollInterval(time.Millisecond), WithPollCap(2*time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, 3, status.Total)
	assert.Equal(t, int32(3), client.calls.Load())
}

func TestPollCrawlFailedStatus(t *testing.T) {
	client := &scriptedClient{statuses: []CrawlStatusResponse{{Status: "failed"}}}

	_, err := PollCrawl(context.Background(), client, "crawl-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed")
}

func TestPollCrawlPropagatesClientError(t *testing.T) {
	boom := eris.New("503 service unavailable")
	client := &scriptedClient{err: boom}

	_, err := PollCrawl(context.Background(), client, "crawl-1")
	require.Error(t, err)
	assert.True(t, eris.Is(err, boom))
}

func TestPollCrawlTimesOut(t *testing.T) {
	client := &scriptedClient{statuses: []CrawlStatusResponse{{Status: "scraping"}}}

	_, err := PollCrawl(context.Background(), client, "crawl-1",
		WithPollInterval(time.Millisecond), WithPollTimeout(10*time.Millisecond))
	require.Error(t, err)
	assert.True(t, eris.Is(err, context.DeadlineExceeded))
}
