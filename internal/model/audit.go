package model

import "time"

// DataSource marks whether a section came from a live provider call or the
// synthetic fallback generator. Never mixed silently: every section carries it.
type DataSource string

const (
	SourceLive      DataSource = "live"
	SourceSynthetic DataSource = "synthetic"
)

// CoreWebVitals holds the lab core web vitals for one device class.
type CoreWebVitals struct {
	LCP float64 `json:"lcp"` // seconds
	CLS float64 `json:"cls"`
	FID int     `json:"fid"` // milliseconds
}

// DeviceScores holds Lighthouse-style category scores for one device class.
type DeviceScores struct {
	Performance   int           `json:"performance"`
	Accessibility int           `json:"accessibility"`
	BestPractices int           `json:"best_practices"`
	SEO           int           `json:"seo"`
	Vitals        CoreWebVitals `json:"vitals"`
}

// PerformanceData is the output of the performance stage.
type PerformanceData struct {
	Source  DataSource   `json:"source"`
	Desktop DeviceScores `json:"desktop"`
	Mobile  DeviceScores `json:"mobile"`
}

// CheckWithCount is a boolean check plus an affected-element count.
type CheckWithCount struct {
	Passed bool `json:"passed"`
	Count  int  `json:"count"`
}

// TechnicalSEOData is the output of the seo stage.
type TechnicalSEOData struct {
	Source           DataSource     `json:"source"`
	HTTPSEnabled     bool           `json:"https_enabled"`
	MobileResponsive bool           `json:"mobile_responsive"`
	XMLSitemap       bool           `json:"xml_sitemap"`
	RobotsTxt        bool           `json:"robots_txt"`
	CanonicalTags    bool           `json:"canonical_tags"`
	MetaDescriptions CheckWithCount `json:"meta_descriptions"` // Count = pages missing one
	HeadingStructure CheckWithCount `json:"heading_structure"` // Count = structural issues
	ImageAltCoverage CheckWithCount `json:"image_alt_coverage"` // Count = images missing alt text
	SchemaTypes      []string       `json:"schema_types"`
	PageTitle        string         `json:"page_title,omitempty"`
	TitleLength      int            `json:"title_length,omitempty"`
}

// SchemaMarkup reports whether any structured data was detected.
func (t TechnicalSEOData) SchemaMarkup() bool {
	return len(t.SchemaTypes) > 0
}

// BacklinkData is the output of the backlink portion of the seo stage.
type BacklinkData struct {
	Source           DataSource `json:"source"`
	TotalBacklinks   int        `json:"total_backlinks"`
	ReferringDomains int        `json:"referring_domains"`
	DomainAuthority  int        `json:"domain_authority"`
}

// TrackedKeyword is one keyword the customer ranks (or wants to rank) for.
type TrackedKeyword struct {
	Keyword    string `json:"keyword"`
	Position   int    `json:"position"` // 0 = not ranking
	Volume     int    `json:"volume"`
	Difficulty int    `json:"difficulty"`
}

// KeywordOpportunity is a suggested keyword with estimated upside.
type KeywordOpportunity struct {
	Keyword    string `json:"keyword"`
	Volume     int    `json:"volume"`
	Difficulty int    `json:"difficulty"`
	Potential  string `json:"potential"` // high | medium | low
}

// RankingDistribution buckets tracked keywords by position.
type RankingDistribution struct {
	Top3  int `json:"top3"`
	Top10 int `json:"top10"`
	Top20 int `json:"top20"`
	Top50 int `json:"top50"`
}

// KeywordData is the output of the keywords stage.
type KeywordData struct {
	Source              DataSource           `json:"source"`
	TrackedKeywords     []TrackedKeyword     `json:"tracked_keywords"`
	Opportunities       []KeywordOpportunity `json:"opportunities"`
	RankingDistribution RankingDistribution  `json:"ranking_distribution"`
}

// Distribute recomputes the ranking distribution from tracked positions.
func (k *KeywordData) Distribute() {
	var d RankingDistribution
	for _, kw := range k.TrackedKeywords {
		if kw.Position <= 0 || kw.Position > 50 {
			continue
		}
		d.Top50++
		if kw.Position <= 20 {
			d.Top20++
		}
		if kw.Position <= 10 {
			d.Top10++
		}
		if kw.Position <= 3 {
			d.Top3++
		}
	}
	k.RankingDistribution = d
}

// CompetitorMetrics mirrors a subset of the customer's own metrics for one
// competitor domain.
type CompetitorMetrics struct {
	Domain           string `json:"domain"`
	DomainAuthority  int    `json:"domain_authority"`
	TotalBacklinks   int    `json:"total_backlinks"`
	ReferringDomains int    `json:"referring_domains"`
	OrganicKeywords  int    `json:"organic_keywords"`
	EstimatedTraffic int    `json:"estimated_traffic"`
}

// CompetitorData is the output of the competitors stage.
type CompetitorData struct {
	Source      DataSource          `json:"source"`
	Competitors []CompetitorMetrics `json:"competitors"`
}

// PlatformPresence describes one social platform profile.
type PlatformPresence struct {
	Platform   string `json:"platform"`
	Handle     string `json:"handle,omitempty"`
	URL        string `json:"url,omitempty"`
	Followers  int    `json:"followers"`
	Posts      int    `json:"posts"`
	Engagement string `json:"engagement"` // High | Medium | Low | None
	Found      bool   `json:"found"`
}

// SocialPlatforms is the fixed platform set scanned by the social stage.
var SocialPlatforms = []string{
	"facebook", "instagram", "twitter", "linkedin", "youtube", "pinterest", "tiktok",
}

// SocialData is the output of the social stage.
type SocialData struct {
	Source    DataSource         `json:"source"`
	Platforms []PlatformPresence `json:"platforms"`
}

// CrawledPage is one discovered page from the crawling stage.
type CrawledPage struct {
	URL        string `json:"url"`
	Title      string `json:"title,omitempty"`
	StatusCode int    `json:"status_code"`
}

// CrawlData is the output of the crawling stage.
type CrawlData struct {
	Source DataSource    `json:"source"`
	Pages  []CrawledPage `json:"pages"`
}

// SectionScores holds per-section scores (0-100) plus the overall score.
type SectionScores struct {
	Overall     int `json:"overall"`
	Performance int `json:"performance"`
	Technical   int `json:"technical"`
	Backlinks   int `json:"backlinks"`
	Keywords    int `json:"keywords"`
}

// AuditResult is the accumulated, normalized output of all stages for one job.
// Every section is always present: stage failures leave the collector's
// fallback section in place, never a hole.
type AuditResult struct {
	ID           string           `json:"id"`
	CustomerID   string           `json:"customer_id"`
	JobID        string           `json:"job_id"`
	Domain       string           `json:"domain"`
	Crawl        CrawlData        `json:"crawl"`
	Performance  PerformanceData  `json:"performance"`
	TechnicalSEO TechnicalSEOData `json:"technical_seo"`
	Backlinks    BacklinkData     `json:"backlinks"`
	Keywords     KeywordData      `json:"keywords"`
	Competitors  CompetitorData   `json:"competitors"`
	SocialMedia  SocialData       `json:"social_media"`
	Scores       SectionScores    `json:"scores"`
	GeneratedAt  time.Time        `json:"generated_at"`
}
