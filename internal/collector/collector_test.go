package collector

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/audit-cli/internal/model"
	"github.com/sells-group/audit-cli/pkg/dataforseo"
	"github.com/sells-group/audit-cli/pkg/firecrawl"
)

// testConfig keeps tests fast: no retries, no meaningful rate limiting.
func testConfig() Config {
	return Config{RatePerSecond: 1000, RateBurst: 1000}
}

func TestNilProvidersReturnSynthetic(t *testing.T) {
	c := New(nil, nil, testConfig())
	ctx := context.Background()

	perf := c.CollectPerformance(ctx, "example.com")
	assert.Equal(t, model.SourceSynthetic, perf.Source)
	assert.Greater(t, perf.Desktop.Performance, 0)

	tech := c.CollectTechnicalSEO(ctx, "example.com")
	assert.Equal(t, model.SourceSynthetic, tech.Source)

	backlinks := c.CollectBacklinks(ctx, "example.com")
	assert.Equal(t, model.SourceSynthetic, backlinks.Source)
	assert.Greater(t, backlinks.TotalBacklinks, 0)

	crawl := c.CollectCrawl(ctx, "https://example.com")
	assert.Equal(t, model.SourceSynthetic, crawl.Source)
	assert.NotEmpty(t, crawl.Pages)

	social := c.CollectSocial(ctx, "Example Co", "https://example.com")
	assert.Equal(t, model.SourceSynthetic, social.Source)
	assert.Len(t, social.Platforms, len(model.SocialPlatforms))

	comps := c.CollectCompetitors(ctx, "example.com", []string{"riv.test", "blue.test"})
	assert.Equal(t, model.SourceSynthetic, comps.Source)
	require.Len(t, comps.Competitors, 2)
	assert.Equal(t, "riv.test", comps.Competitors[0].Domain)
	assert.Greater(t, comps.Competitors[0].TotalBacklinks, 0)

	none := c.CollectCompetitors(ctx, "example.com", nil)
	assert.Equal(t, model.SourceSynthetic, none.Source)
	assert.Empty(t, none.Competitors)
}

func TestCollectKeywordsFallbackSchema(t *testing.T) {
	dfs := new(mockDataForSEO)
	dfs.On("RankedKeywords", mock.Anything, mock.Anything).
		Return(nil, eris.New("quota exhausted"))

	c := New(dfs, nil, testConfig())
	data := c.CollectKeywords(context.Background(), "example.com", []string{"plumbing"})

	assert.Equal(t, model.SourceSynthetic, data.Source)
	require.NotNil(t, data.TrackedKeywords)
	assert.NotEmpty(t, data.TrackedKeywords)
	assert.Equal(t, "plumbing", data.TrackedKeywords[0].Keyword)
	total := data.RankingDistribution.Top50
	assert.GreaterOrEqual(t, total, data.RankingDistribution.Top3)
	dfs.AssertExpectations(t)
}

func TestSyntheticDataIsDeterministic(t *testing.T) {
	c := New(nil, nil, testConfig())
	ctx := context.Background()

	first := c.CollectPerformance(ctx, "example.com")
	second := c.CollectPerformance(ctx, "example.com")
	assert.Equal(t, first, second)

	other := c.CollectPerformance(ctx, "different.com")
	assert.NotEqual(t, first, other)
}

func TestCollectBacklinksLive(t *testing.T) {
	dfs := new(mockDataForSEO)
	dfs.On("BacklinksSummary", mock.Anything, "example.com").
		Return(&dataforseo.BacklinksSummaryResult{
			Target:           "example.com",
			Rank:             412,
			Backlinks:        890,
			ReferringDomains: 120,
		}, nil)

	c := New(dfs, nil, testConfig())
	data := c.CollectBacklinks(context.Background(), "example.com")

	assert.Equal(t, model.SourceLive, data.Source)
	assert.Equal(t, 890, data.TotalBacklinks)
	assert.Equal(t, 120, data.ReferringDomains)
	assert.Equal(t, 41, data.DomainAuthority)
}

func TestCollectPerformanceLive(t *testing.T) {
	score := func(perf float64) *dataforseo.LighthouseResult {
		return &dataforseo.LighthouseResult{
			Categories: map[string]dataforseo.LighthouseCategory{
				"performance": {Score: perf},
				"seo":         {Score: 0.9},
			},
			Audits: map[string]dataforseo.LighthouseAudit{
				"largest-contentful-paint": {NumericValue: 2400},
				"cumulative-layout-shift":  {NumericValue: 0.08},
				"max-potential-fid":        {NumericValue: 130},
			},
		}
	}

	dfs := new(mockDataForSEO)
	dfs.On("Lighthouse", mock.Anything, mock.MatchedBy(func(task dataforseo.LighthouseTask) bool {
		return task.FormFactor == "desktop"
	})).Return(score(0.91), nil)
	dfs.On("Lighthouse", mock.Anything, mock.MatchedBy(func(task dataforseo.LighthouseTask) bool {
		return task.FormFactor == "mobile"
	})).Return(score(0.64), nil)

	c := New(dfs, nil, testConfig())
	data := c.CollectPerformance(context.Background(), "example.com")

	assert.Equal(t, model.SourceLive, data.Source)
	assert.Equal(t, 91, data.Desktop.Performance)
	assert.Equal(t, 64, data.Mobile.Performance)
	assert.Equal(t, 90, data.Desktop.SEO)
	assert.InDelta(t, 2.4, data.Desktop.Vitals.LCP, 0.001)
	assert.Equal(t, 130, data.Desktop.Vitals.FID)
}

func TestCollectKeywordsIncludesUnrankedTargets(t *testing.T) {
	item := dataforseo.RankedKeywordItem{}
	item.KeywordData.Keyword = "plumber near me"
	item.KeywordData.KeywordInfo.SearchVolume = 800
	item.KeywordData.KeywordInfo.Competition = 0.5
	item.RankedSerpElement.SerpItem.RankAbsolute = 4

	dfs := new(mockDataForSEO)
	dfs.On("RankedKeywords", mock.Anything, mock.Anything).
		Return(&dataforseo.RankedKeywordsResult{
			Target:     "example.com",
			TotalCount: 1,
			Items:      []dataforseo.RankedKeywordItem{item},
		}, nil)

	c := New(dfs, nil, testConfig())
	data := c.CollectKeywords(context.Background(), "example.com", []string{"emergency plumber"})

	assert.Equal(t, model.SourceLive, data.Source)
	require.Len(t, data.TrackedKeywords, 2)
	assert.Equal(t, "plumber near me", data.TrackedKeywords[0].Keyword)
	assert.Equal(t, 4, data.TrackedKeywords[0].Position)
	assert.Equal(t, 50, data.TrackedKeywords[0].Difficulty)

	// The unranked target shows up at position 0.
	assert.Equal(t, "emergency plumber", data.TrackedKeywords[1].Keyword)
	assert.Equal(t, 0, data.TrackedKeywords[1].Position)

	assert.Equal(t, 1, data.RankingDistribution.Top10)
	assert.NotEmpty(t, data.Opportunities)
}

func TestCollectCompetitorsPartialFailure(t *testing.T) {
	dfs := new(mockDataForSEO)
	dfs.On("BacklinksSummary", mock.Anything, "good.test").
		Return(&dataforseo.BacklinksSummaryResult{Backlinks: 300, ReferringDomains: 40, Rank: 350}, nil)
	dfs.On("RankedKeywords", mock.Anything, mock.MatchedBy(func(task dataforseo.RankedKeywordsTask) bool {
		return task.Target == "good.test"
	})).Return(&dataforseo.RankedKeywordsResult{TotalCount: 75}, nil)
	dfs.On("BacklinksSummary", mock.Anything, "bad.test").
		Return(nil, eris.New("target not found"))

	c := New(dfs, nil, testConfig())
	data := c.CollectCompetitors(context.Background(), "example.com", []string{"good.test", "bad.test"})

	assert.Equal(t, model.SourceLive, data.Source)
	require.Len(t, data.Competitors, 2)

	byDomain := map[string]model.CompetitorMetrics{}
	for _, comp := range data.Competitors {
		byDomain[comp.Domain] = comp
	}
	assert.Equal(t, 300, byDomain["good.test"].TotalBacklinks)
	assert.Equal(t, 75, byDomain["good.test"].OrganicKeywords)
	// The failed competitor still has a schema-valid synthetic row.
	assert.Greater(t, byDomain["bad.test"].TotalBacklinks, 0)
}

func TestCollectCompetitorsDiscovery(t *testing.T) {
	dfs := new(mockDataForSEO)
	dfs.On("CompetitorsDomain", mock.Anything, mock.Anything).
		Return(&dataforseo.CompetitorsDomainResult{
			Items: []dataforseo.CompetitorItem{
				{Domain: "example.com"}, // self, skipped
				{Domain: "rival.test"},
			},
		}, nil)
	dfs.On("BacklinksSummary", mock.Anything, "rival.test").
		Return(&dataforseo.BacklinksSummaryResult{Backlinks: 150, Rank: 200}, nil)
	dfs.On("RankedKeywords", mock.Anything, mock.Anything).
		Return(&dataforseo.RankedKeywordsResult{TotalCount: 30}, nil)

	c := New(dfs, nil, testConfig())
	data := c.CollectCompetitors(context.Background(), "example.com", nil)

	require.Len(t, data.Competitors, 1)
	assert.Equal(t, "rival.test", data.Competitors[0].Domain)
}

func TestCollectSocialFindsProfiles(t *testing.T) {
	dfs := new(mockDataForSEO)
	dfs.On("SerpOrganic", mock.Anything, mock.MatchedBy(func(task dataforseo.SerpOrganicTask) bool {
		return task.Keyword == "Acme Tools site:facebook.com"
	})).Return(&dataforseo.SerpOrganicResult{
		Items: []dataforseo.SerpItem{
			{Type: "organic", Domain: "www.facebook.com", URL: "https://www.facebook.com/acmetools"},
		},
	}, nil)
	dfs.On("SerpOrganic", mock.Anything, mock.Anything).
		Return(&dataforseo.SerpOrganicResult{}, nil)

	c := New(dfs, nil, testConfig())
	data := c.CollectSocial(context.Background(), "Acme Tools", "https://acme.test")

	assert.Equal(t, model.SourceLive, data.Source)
	require.Len(t, data.Platforms, len(model.SocialPlatforms))

	var facebook model.PlatformPresence
	for _, p := range data.Platforms {
		if p.Platform == "facebook" {
			facebook = p
		}
	}
	assert.True(t, facebook.Found)
	assert.Equal(t, "@acmetools", facebook.Handle)
	assert.Greater(t, facebook.Followers, 0)
}

func TestCollectCrawlLive(t *testing.T) {
	fc := new(mockFirecrawl)
	fc.On("Crawl", mock.Anything, mock.Anything).
		Return(&firecrawl.CrawlResponse{Success: true, ID: "crawl-1"}, nil)
	fc.On("GetCrawlStatus", mock.Anything, "crawl-1").
		Return(&firecrawl.CrawlStatusResponse{
			Status: "completed",
			Total:  2,
			Data: []firecrawl.PageData{
				{URL: "https://acme.test", Title: "Acme", StatusCode: 200},
				{URL: "https://acme.test/about", Title: "About", StatusCode: 200},
			},
		}, nil)

	c := New(nil, fc, testConfig())
	data := c.CollectCrawl(context.Background(), "https://acme.test")

	assert.Equal(t, model.SourceLive, data.Source)
	require.Len(t, data.Pages, 2)
	assert.Equal(t, "https://acme.test/about", data.Pages[1].URL)
}
