// Package collector gathers SEO data for a single domain from external
// providers and normalizes it into the fixed audit section shapes.
//
// Every Collect method honors the same contract: it never returns an error.
// When a provider call fails (timeout, auth, malformed response, missing
// credentials, open circuit) the failure is logged and a schema-valid
// synthetic section is returned instead, marked with SourceSynthetic.
package collector

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/audit-cli/internal/model"
	"github.com/sells-group/audit-cli/internal/resilience"
	"github.com/sells-group/audit-cli/pkg/dataforseo"
	"github.com/sells-group/audit-cli/pkg/firecrawl"
)

// Config controls provider call behavior.
type Config struct {
	ProviderTimeout time.Duration
	RatePerSecond   float64
	RateBurst       int
	MaxRetries      int
	LocationCode    int
	LanguageCode    string
	CrawlMaxPages   int
	CrawlMaxDepth   int
}

func (c Config) withDefaults() Config {
	if c.ProviderTimeout <= 0 {
		c.ProviderTimeout = 20 * time.Second
	}
	if c.RatePerSecond <= 0 {
		c.RatePerSecond = 2
	}
	if c.RateBurst <= 0 {
		c.RateBurst = 4
	}
	if c.LocationCode == 0 {
		c.LocationCode = 2840
	}
	if c.LanguageCode == "" {
		c.LanguageCode = "en"
	}
	if c.CrawlMaxPages <= 0 {
		c.CrawlMaxPages = 25
	}
	if c.CrawlMaxDepth <= 0 {
		c.CrawlMaxDepth = 2
	}
	return c
}

// Collector collects and normalizes audit data. A nil provider client means
// the provider is not configured and its sections fall back to synthetic data.
type Collector struct {
	dfs     dataforseo.Client
	crawler firecrawl.Client
	cfg     Config

	dfsLimiter   *rate.Limiter
	crawlLimiter *rate.Limiter
	dfsBreaker   *resilience.CircuitBreaker
	crawlBreaker *resilience.CircuitBreaker
}

// New creates a Collector. Either client may be nil.
func New(dfs dataforseo.Client, crawler firecrawl.Client, cfg Config) *Collector {
	cfg = cfg.withDefaults()
	return &Collector{
		dfs:          dfs,
		crawler:      crawler,
		cfg:          cfg,
		dfsLimiter:   rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.RateBurst),
		crawlLimiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.RateBurst),
		dfsBreaker:   resilience.NewCircuitBreaker("dataforseo", 5, 30*time.Second),
		crawlBreaker: resilience.NewCircuitBreaker("firecrawl", 5, 30*time.Second),
	}
}

var errNotConfigured = eris.New("collector: provider not configured")

// callProvider runs fn under the provider's rate limiter, circuit breaker,
// bounded timeout and retry policy.
func (c *Collector) callProvider(ctx context.Context, limiter *rate.Limiter, breaker *resilience.CircuitBreaker, provider, op string, fn func(context.Context) error) error {
	if err := limiter.Wait(ctx); err != nil {
		return eris.Wrapf(err, "collector: %s rate limit wait", provider)
	}
	return breaker.Execute(ctx, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, c.cfg.ProviderTimeout)
		defer cancel()

		retryCfg := resilience.RetryAttempts(c.cfg.MaxRetries + 1)
		retryCfg.OnRetry = resilience.RetryLogger(provider, op)
		return resilience.Do(callCtx, retryCfg, fn)
	})
}

func (c *Collector) callDFS(ctx context.Context, op string, fn func(context.Context) error) error {
	if c.dfs == nil {
		return errNotConfigured
	}
	return c.callProvider(ctx, c.dfsLimiter, c.dfsBreaker, "dataforseo", op, fn)
}

func (c *Collector) callCrawler(ctx context.Context, op string, fn func(context.Context) error) error {
	if c.crawler == nil {
		return errNotConfigured
	}
	return c.callProvider(ctx, c.crawlLimiter, c.crawlBreaker, "firecrawl", op, fn)
}

// fallback logs the provider failure that triggered the synthetic path.
func fallback(section, target string, err error) {
	zap.L().Warn("provider call failed, using synthetic data",
		zap.String("section", section),
		zap.String("target", target),
		zap.Error(err),
	)
}

// CollectCrawl discovers a representative page set for the website.
func (c *Collector) CollectCrawl(ctx context.Context, website string) model.CrawlData {
	var status *firecrawl.CrawlStatusResponse
	err := c.callCrawler(ctx, "crawl", func(ctx context.Context) error {
		resp, err := c.crawler.Crawl(ctx, firecrawl.CrawlRequest{
			URL:      website,
			Limit:    c.cfg.CrawlMaxPages,
			MaxDepth: c.cfg.CrawlMaxDepth,
		})
		if err != nil {
			return err
		}
		status, err = firecrawl.PollCrawl(ctx, c.crawler, resp.ID)
		return err
	})
	if err != nil || status == nil || len(status.Data) == 0 {
		fallback("crawl", website, err)
		return syntheticCrawl(website)
	}
	return crawlFrom(status)
}

// CollectPerformance fetches desktop and mobile Lighthouse scores.
func (c *Collector) CollectPerformance(ctx context.Context, domain string) model.PerformanceData {
	url := "https://" + domain
	var desktop, mobile *dataforseo.LighthouseResult

	err := c.callDFS(ctx, "lighthouse_desktop", func(ctx context.Context) error {
		var err error
		desktop, err = c.dfs.Lighthouse(ctx, dataforseo.LighthouseTask{URL: url, FormFactor: "desktop"})
		return err
	})
	if err == nil {
		err = c.callDFS(ctx, "lighthouse_mobile", func(ctx context.Context) error {
			var innerErr error
			mobile, innerErr = c.dfs.Lighthouse(ctx, dataforseo.LighthouseTask{URL: url, FormFactor: "mobile"})
			return innerErr
		})
	}
	if err != nil {
		fallback("performance", domain, err)
		return syntheticPerformance(domain)
	}
	return performanceFrom(desktop, mobile)
}

// CollectTechnicalSEO runs on-page checks against the website root.
func (c *Collector) CollectTechnicalSEO(ctx context.Context, domain string) model.TechnicalSEOData {
	url := "https://" + domain
	var res *dataforseo.InstantPagesResult

	err := c.callDFS(ctx, "instant_pages", func(ctx context.Context) error {
		var err error
		res, err = c.dfs.InstantPages(ctx, url)
		return err
	})
	if err != nil || len(res.Items) == 0 {
		fallback("technical_seo", domain, err)
		return syntheticTechnicalSEO(domain)
	}
	return technicalSEOFrom(res.Items[0], url)
}

// CollectBacklinks fetches the backlink profile summary.
func (c *Collector) CollectBacklinks(ctx context.Context, domain string) model.BacklinkData {
	var res *dataforseo.BacklinksSummaryResult
	err := c.callDFS(ctx, "backlinks_summary", func(ctx context.Context) error {
		var err error
		res, err = c.dfs.BacklinksSummary(ctx, domain)
		return err
	})
	if err != nil {
		fallback("backlinks", domain, err)
		return syntheticBacklinks(domain)
	}
	return backlinksFrom(res)
}

// CollectKeywords fetches keywords the domain ranks for, merged with the
// customer's target keywords.
func (c *Collector) CollectKeywords(ctx context.Context, domain string, targets []string) model.KeywordData {
	var res *dataforseo.RankedKeywordsResult
	err := c.callDFS(ctx, "ranked_keywords", func(ctx context.Context) error {
		var err error
		res, err = c.dfs.RankedKeywords(ctx, dataforseo.RankedKeywordsTask{
			Target:       domain,
			LocationCode: c.cfg.LocationCode,
			LanguageCode: c.cfg.LanguageCode,
			Limit:        100,
		})
		return err
	})
	if err != nil {
		fallback("keywords", domain, err)
		return syntheticKeywords(domain, targets)
	}
	return keywordsFrom(res, targets)
}

// competitorFanOutLimit bounds concurrent per-competitor lookups.
const competitorFanOutLimit = 3

// CollectCompetitors gathers metrics for each competitor domain. When no
// competitors are configured, it discovers organic competitors for the
// customer's own domain. Failures for individual competitors degrade that
// competitor's row to synthetic data without failing the rest.
func (c *Collector) CollectCompetitors(ctx context.Context, domain string, competitorDomains []string) model.CompetitorData {
	if len(competitorDomains) == 0 && c.dfs != nil {
		competitorDomains = c.discoverCompetitors(ctx, domain)
	}
	if c.dfs == nil {
		fallback("competitors", domain, errNotConfigured)
		return syntheticCompetitors(competitorDomains)
	}
	if len(competitorDomains) == 0 {
		return model.CompetitorData{Source: model.SourceSynthetic, Competitors: []model.CompetitorMetrics{}}
	}

	results := make([]model.CompetitorMetrics, len(competitorDomains))
	anyLive := false
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(competitorFanOutLimit)
	for i, comp := range competitorDomains {
		g.Go(func() error {
			metrics, live := c.collectOneCompetitor(gctx, comp)
			mu.Lock()
			results[i] = metrics
			anyLive = anyLive || live
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	source := model.SourceSynthetic
	if anyLive {
		source = model.SourceLive
	}
	return model.CompetitorData{Source: source, Competitors: results}
}

func (c *Collector) collectOneCompetitor(ctx context.Context, domain string) (model.CompetitorMetrics, bool) {
	var backlinks *dataforseo.BacklinksSummaryResult
	var ranked *dataforseo.RankedKeywordsResult

	err := c.callDFS(ctx, "competitor_backlinks", func(ctx context.Context) error {
		var err error
		backlinks, err = c.dfs.BacklinksSummary(ctx, domain)
		return err
	})
	if err == nil {
		err = c.callDFS(ctx, "competitor_keywords", func(ctx context.Context) error {
			var innerErr error
			ranked, innerErr = c.dfs.RankedKeywords(ctx, dataforseo.RankedKeywordsTask{
				Target:       domain,
				LocationCode: c.cfg.LocationCode,
				LanguageCode: c.cfg.LanguageCode,
				Limit:        50,
			})
			return innerErr
		})
	}
	if err != nil {
		fallback("competitors", domain, err)
		return syntheticCompetitorMetrics(domain), false
	}
	return competitorMetricsFrom(domain, backlinks, ranked), true
}

// discoverCompetitors asks DataForSEO labs for the domain's top organic
// competitors. Best-effort: an empty slice on failure.
func (c *Collector) discoverCompetitors(ctx context.Context, domain string) []string {
	var res *dataforseo.CompetitorsDomainResult
	err := c.callDFS(ctx, "competitors_domain", func(ctx context.Context) error {
		var err error
		res, err = c.dfs.CompetitorsDomain(ctx, dataforseo.CompetitorsDomainTask{
			Target:       domain,
			LocationCode: c.cfg.LocationCode,
			LanguageCode: c.cfg.LanguageCode,
			Limit:        5,
		})
		return err
	})
	if err != nil {
		fallback("competitor_discovery", domain, err)
		return nil
	}

	var domains []string
	for _, item := range res.Items {
		if item.Domain == "" || strings.EqualFold(item.Domain, domain) {
			continue
		}
		domains = append(domains, item.Domain)
		if len(domains) == 3 {
			break
		}
	}
	return domains
}

// CollectSocial scans the fixed platform set for a presence belonging to the
// company. A SERP lookup per platform; platforms whose lookup fails fall back
// to a synthetic estimate for that platform.
func (c *Collector) CollectSocial(ctx context.Context, companyName, website string) model.SocialData {
	if c.dfs == nil {
		fallback("social", companyName, errNotConfigured)
		return syntheticSocial(companyName)
	}

	data := model.SocialData{Source: model.SourceLive}
	anyLive := false

	for _, platform := range model.SocialPlatforms {
		var serp *dataforseo.SerpOrganicResult
		err := c.callDFS(ctx, "serp_social_"+platform, func(ctx context.Context) error {
			var err error
			serp, err = c.dfs.SerpOrganic(ctx, dataforseo.SerpOrganicTask{
				Keyword:      companyName + " site:" + platformHost(platform),
				LocationCode: c.cfg.LocationCode,
				LanguageCode: c.cfg.LanguageCode,
				Depth:        10,
			})
			return err
		})
		if err != nil {
			fallback("social", companyName+"/"+platform, err)
			data.Platforms = append(data.Platforms, syntheticSocialPlatform(companyName, platform))
			continue
		}
		anyLive = true
		data.Platforms = append(data.Platforms, socialPlatformFrom(companyName, platform, serp))
	}

	if !anyLive {
		data.Source = model.SourceSynthetic
	}
	return data
}
