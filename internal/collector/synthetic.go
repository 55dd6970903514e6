package collector

import (
	"fmt"
	"hash/fnv"
	"math/rand"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/audit-cli/internal/model"
)

// Synthetic sections are deterministic per domain so that repeated audits of
// the same site produce stable placeholder reports. Every generated section
// carries SourceSynthetic so it is never mistaken for live data.

func seededRand(domain, section string) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(strings.ToLower(domain)))
	h.Write([]byte{':'})
	h.Write([]byte(section))
	return rand.New(rand.NewSource(int64(h.Sum64())))
}

func between(r *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + r.Intn(hi-lo+1)
}

func syntheticPerformance(domain string) model.PerformanceData {
	r := seededRand(domain, "performance")
	desktop := model.DeviceScores{
		Performance:   between(r, 65, 95),
		Accessibility: between(r, 70, 98),
		BestPractices: between(r, 70, 95),
		SEO:           between(r, 75, 98),
		Vitals: model.CoreWebVitals{
			LCP: float64(between(r, 12, 38)) / 10,
			CLS: float64(between(r, 1, 25)) / 100,
			FID: between(r, 20, 180),
		},
	}
	// Mobile consistently trails desktop.
	mobile := model.DeviceScores{
		Performance:   max(desktop.Performance-between(r, 5, 25), 20),
		Accessibility: max(desktop.Accessibility-between(r, 0, 10), 20),
		BestPractices: max(desktop.BestPractices-between(r, 0, 10), 20),
		SEO:           max(desktop.SEO-between(r, 0, 8), 20),
		Vitals: model.CoreWebVitals{
			LCP: desktop.Vitals.LCP + float64(between(r, 5, 20))/10,
			CLS: desktop.Vitals.CLS + float64(between(r, 0, 10))/100,
			FID: desktop.Vitals.FID + between(r, 20, 120),
		},
	}
	return model.PerformanceData{Source: model.SourceSynthetic, Desktop: desktop, Mobile: mobile}
}

func syntheticTechnicalSEO(domain string) model.TechnicalSEOData {
	r := seededRand(domain, "technical")
	chance := func(pct int) bool { return r.Intn(100) < pct }

	data := model.TechnicalSEOData{
		Source:           model.SourceSynthetic,
		HTTPSEnabled:     chance(90),
		MobileResponsive: chance(80),
		XMLSitemap:       chance(70),
		RobotsTxt:        chance(75),
		CanonicalTags:    chance(60),
		MetaDescriptions: model.CheckWithCount{Passed: chance(65)},
		HeadingStructure: model.CheckWithCount{Passed: chance(70)},
		ImageAltCoverage: model.CheckWithCount{Passed: chance(50)},
		PageTitle:        titleFor(domain),
	}
	data.TitleLength = len(data.PageTitle)
	if !data.MetaDescriptions.Passed {
		data.MetaDescriptions.Count = between(r, 1, 12)
	}
	if !data.HeadingStructure.Passed {
		data.HeadingStructure.Count = between(r, 1, 6)
	}
	if !data.ImageAltCoverage.Passed {
		data.ImageAltCoverage.Count = between(r, 2, 30)
	}
	if chance(40) {
		data.SchemaTypes = []string{"Organization", "LocalBusiness"}
	}
	return data
}

func titleFor(domain string) string {
	name := domain
	if i := strings.IndexByte(name, '.'); i > 0 {
		name = name[:i]
	}
	return cases.Title(language.English).String(name) + " | Home"
}

func syntheticBacklinks(domain string) model.BacklinkData {
	r := seededRand(domain, "backlinks")
	total := between(r, 40, 4500)
	return model.BacklinkData{
		Source:           model.SourceSynthetic,
		TotalBacklinks:   total,
		ReferringDomains: max(total/between(r, 4, 12), 1),
		DomainAuthority:  between(r, 15, 70),
	}
}

func syntheticKeywords(domain string, targets []string) model.KeywordData {
	r := seededRand(domain, "keywords")

	base := targets
	if len(base) == 0 {
		name := domain
		if i := strings.IndexByte(name, '.'); i > 0 {
			name = name[:i]
		}
		base = []string{name, name + " services", name + " reviews"}
	}

	var tracked []model.TrackedKeyword
	for _, kw := range base {
		tracked = append(tracked, model.TrackedKeyword{
			Keyword:    kw,
			Position:   between(r, 1, 60),
			Volume:     between(r, 50, 4000),
			Difficulty: between(r, 10, 85),
		})
	}

	data := model.KeywordData{
		Source:          model.SourceSynthetic,
		TrackedKeywords: tracked,
		Opportunities:   opportunitiesFor(tracked, r),
	}
	data.Distribute()
	return data
}

// opportunitiesFor derives commercial-intent variants of the strongest
// tracked keywords ("buy X", "X online", "best X").
func opportunitiesFor(tracked []model.TrackedKeyword, r *rand.Rand) []model.KeywordOpportunity {
	templates := []string{"buy %s", "%s online", "best %s"}
	var out []model.KeywordOpportunity
	for i, kw := range tracked {
		if i >= 3 {
			break
		}
		tpl := templates[i%len(templates)]
		vol := kw.Volume / 2
		if vol < 10 {
			vol = between(r, 10, 120)
		}
		diff := min(kw.Difficulty+between(r, 5, 20), 95)
		out = append(out, model.KeywordOpportunity{
			Keyword:    fmt.Sprintf(tpl, kw.Keyword),
			Volume:     vol,
			Difficulty: diff,
			Potential:  potentialFor(vol, diff),
		})
	}
	return out
}

func potentialFor(volume, difficulty int) string {
	switch {
	case volume >= 500 && difficulty < 50:
		return "high"
	case volume >= 100:
		return "medium"
	default:
		return "low"
	}
}

func syntheticCompetitorMetrics(domain string) model.CompetitorMetrics {
	r := seededRand(domain, "competitor")
	total := between(r, 80, 6000)
	return model.CompetitorMetrics{
		Domain:           domain,
		DomainAuthority:  between(r, 20, 75),
		TotalBacklinks:   total,
		ReferringDomains: max(total/between(r, 4, 12), 1),
		OrganicKeywords:  between(r, 50, 3000),
		EstimatedTraffic: between(r, 200, 25000),
	}
}

func syntheticCompetitors(domains []string) model.CompetitorData {
	data := model.CompetitorData{
		Source:      model.SourceSynthetic,
		Competitors: []model.CompetitorMetrics{},
	}
	for _, d := range domains {
		data.Competitors = append(data.Competitors, syntheticCompetitorMetrics(d))
	}
	return data
}

func syntheticSocialPlatform(companyName, platform string) model.PlatformPresence {
	r := seededRand(companyName, "social:"+platform)
	p := model.PlatformPresence{Platform: platform, Found: r.Intn(100) < 60}
	if !p.Found {
		p.Engagement = "None"
		return p
	}
	handle := strings.ToLower(strings.ReplaceAll(companyName, " ", ""))
	p.Handle = "@" + handle
	p.URL = "https://" + platform + ".com/" + handle
	p.Followers = between(r, 50, 25000)
	p.Posts = between(r, 10, 800)
	p.Engagement = engagementFor(p.Followers)
	return p
}

func engagementFor(followers int) string {
	switch {
	case followers >= 10000:
		return "High"
	case followers >= 1000:
		return "Medium"
	default:
		return "Low"
	}
}

func syntheticSocial(companyName string) model.SocialData {
	data := model.SocialData{Source: model.SourceSynthetic}
	for _, platform := range model.SocialPlatforms {
		data.Platforms = append(data.Platforms, syntheticSocialPlatform(companyName, platform))
	}
	return data
}

func syntheticCrawl(website string) model.CrawlData {
	paths := []string{"", "/about", "/services", "/contact", "/blog"}
	data := model.CrawlData{Source: model.SourceSynthetic}
	for _, p := range paths {
		data.Pages = append(data.Pages, model.CrawledPage{
			URL:        strings.TrimRight(website, "/") + p,
			StatusCode: 200,
		})
	}
	return data
}
