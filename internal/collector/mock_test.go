package collector

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/audit-cli/pkg/dataforseo"
	"github.com/sells-group/audit-cli/pkg/firecrawl"
)

type mockDataForSEO struct {
	mock.Mock
}

func (m *mockDataForSEO) Lighthouse(ctx context.Context, task dataforseo.LighthouseTask) (*dataforseo.LighthouseResult, error) {
	args := m.Called(ctx, task)
	if res := args.Get(0); res != nil {
		return res.(*dataforseo.LighthouseResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDataForSEO) BacklinksSummary(ctx context.Context, target string) (*dataforseo.BacklinksSummaryResult, error) {
	args := m.Called(ctx, target)
	if res := args.Get(0); res != nil {
		return res.(*dataforseo.BacklinksSummaryResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDataForSEO) RankedKeywords(ctx context.Context, task dataforseo.RankedKeywordsTask) (*dataforseo.RankedKeywordsResult, error) {
	args := m.Called(ctx, task)
	if res := args.Get(0); res != nil {
		return res.(*dataforseo.RankedKeywordsResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDataForSEO) CompetitorsDomain(ctx context.Context, task dataforseo.CompetitorsDomainTask) (*dataforseo.CompetitorsDomainResult, error) {
	args := m.Called(ctx, task)
	if res := args.Get(0); res != nil {
		return res.(*dataforseo.CompetitorsDomainResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDataForSEO) InstantPages(ctx context.Context, url string) (*dataforseo.InstantPagesResult, error) {
	args := m.Called(ctx, url)
	if res := args.Get(0); res != nil {
		return res.(*dataforseo.InstantPagesResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDataForSEO) SerpOrganic(ctx context.Context, task dataforseo.SerpOrganicTask) (*dataforseo.SerpOrganicResult, error) {
	args := m.Called(ctx, task)
	if res := args.Get(0); res != nil {
		return res.(*dataforseo.SerpOrganicResult), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockFirecrawl struct {
	mock.Mock
}

func (m *mockFirecrawl) Crawl(ctx context.Context, req firecrawl.CrawlRequest) (*firecrawl.CrawlResponse, error) {
	args := m.Called(ctx, req)
	if res := args.Get(0); res != nil {
		return res.(*firecrawl.CrawlResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockFirecrawl) GetCrawlStatus(ctx context.Context, id string) (*firecrawl.CrawlStatusResponse, error) {
	args := m.Called(ctx, id)
	if res := args.Get(0); res != nil {
		return res.(*firecrawl.CrawlStatusResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockFirecrawl) Scrape(ctx context.Context, req firecrawl.ScrapeRequest) (*firecrawl.ScrapeResponse, error) {
	args := m.Called(ctx, req)
	if res := args.Get(0); res != nil {
		return res.(*firecrawl.ScrapeResponse), args.Error(1)
	}
	return nil, args.Error(1)
}
