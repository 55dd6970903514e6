package dataforseo

// LighthouseTask requests a live Lighthouse audit of a single URL.
// FormFactor is "desktop" or "mobile".
type LighthouseTask struct {
	URL        string
	FormFactor string
	Categories []string
}

// ToPayload converts the task into the wire shape DataForSEO expects.
// Lighthouse uses a for_mobile boolean rather than a form factor string.
func (t LighthouseTask) ToPayload() map[string]any {
	p := map[string]any{"url": t.URL}
	if t.FormFactor == "mobile" {
		p["for_mobile"] = true
	}
	if len(t.Categories) > 0 {
		p["categories"] = t.Categories
	}
	return p
}

// LighthouseResult holds the subset of a Lighthouse report the pipeline
// consumes: category scores and the Core Web Vitals audits.
type LighthouseResult struct {
	Categories map[string]LighthouseCategory `json:"categories"`
	Audits     map[string]LighthouseAudit    `json:"audits"`
}

type LighthouseCategory struct {
	Score float64 `json:"score"` // 0..1
}

type LighthouseAudit struct {
	Score        *float64 `json:"score"`
	NumericValue float64  `json:"numericValue"`
	NumericUnit  string   `json:"numericUnit"`
}

// CategoryScore returns the 0-100 score for a category, or 0 if absent.
func (r *LighthouseResult) CategoryScore(name string) int {
	cat, ok := r.Categories[name]
	if !ok {
		return 0
	}
	return int(cat.Score * 100)
}

// AuditValue returns the numeric value of an audit, or 0 if absent.
func (r *LighthouseResult) AuditValue(name string) float64 {
	a, ok := r.Audits[name]
	if !ok {
		return 0
	}
	return a.NumericValue
}

// BacklinksSummaryResult is the backlinks/summary/live result item.
type BacklinksSummaryResult struct {
	Target            string `json:"target"`
	Rank              int    `json:"rank"`
	Backlinks         int    `json:"backlinks"`
	ReferringDomains  int    `json:"referring_domains"`
	ReferringPages    int    `json:"referring_pages"`
	BrokenBacklinks   int    `json:"broken_backlinks"`
	ReferringDomainsN int    `json:"referring_main_domains"`
}

// RankedKeywordsTask requests the keywords a domain ranks for.
type RankedKeywordsTask struct {
	Target       string `json:"target"`
	LocationCode int    `json:"location_code"`
	LanguageCode string `json:"language_code"`
	Limit        int    `json:"limit,omitempty"`
}

// RankedKeywordsResult is the labs ranked_keywords result item.
type RankedKeywordsResult struct {
	Target     string              `json:"target"`
	TotalCount int                 `json:"total_count"`
	Items      []RankedKeywordItem `json:"items"`
}

type RankedKeywordItem struct {
	KeywordData struct {
		Keyword     string `json:"keyword"`
		KeywordInfo struct {
			SearchVolume int     `json:"search_volume"`
			Competition  float64 `json:"competition"`
			CPC          float64 `json:"cpc"`
		} `json:"keyword_info"`
	} `json:"keyword_data"`
	RankedSerpElement struct {
		SerpItem struct {
			RankAbsolute int    `json:"rank_absolute"`
			URL          string `json:"url"`
		} `json:"serp_item"`
	} `json:"ranked_serp_element"`
}

// Keyword returns the flattened keyword string.
func (i RankedKeywordItem) Keyword() string { return i.KeywordData.Keyword }

// Position returns the absolute SERP rank.
func (i RankedKeywordItem) Position() int { return i.RankedSerpElement.SerpItem.RankAbsolute }

// Volume returns the monthly search volume.
func (i RankedKeywordItem) Volume() int { return i.KeywordData.KeywordInfo.SearchVolume }

// CompetitorsDomainTask requests organic competitors for a domain.
type CompetitorsDomainTask struct {
	Target       string `json:"target"`
	LocationCode int    `json:"location_code"`
	LanguageCode string `json:"language_code"`
	Limit        int    `json:"limit,omitempty"`
}

// CompetitorsDomainResult is the labs competitors_domain result item.
type CompetitorsDomainResult struct {
	Target     string           `json:"target"`
	TotalCount int              `json:"total_count"`
	Items      []CompetitorItem `json:"items"`
}

type CompetitorItem struct {
	Domain      string  `json:"domain"`
	AvgPosition float64 `json:"avg_position"`
	Metrics     struct {
		Organic struct {
			Count int     `json:"count"`
			ETV   float64 `json:"etv"`
			Pos1  int     `json:"pos_1"`
		} `json:"organic"`
	} `json:"metrics"`
}

// InstantPagesResult is the on_page/instant_pages result item.
type InstantPagesResult struct {
	CrawlProgress string            `json:"crawl_progress"`
	Items         []InstantPageItem `json:"items"`
}

type InstantPageItem struct {
	URL        string          `json:"url"`
	StatusCode int             `json:"status_code"`
	Meta       InstantPageMeta `json:"meta"`
	Checks     map[string]bool `json:"checks"`
	PageTiming struct {
		TimeToInteractive int `json:"time_to_interactive"`
		DOMComplete       int `json:"dom_complete"`
	} `json:"page_timing"`
}

type InstantPageMeta struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	Canonical     string `json:"canonical"`
	InternalLinks int    `json:"internal_links_count"`
	ExternalLinks int    `json:"external_links_count"`
	ImagesCount   int    `json:"images_count"`
	ImagesAlt     int    `json:"images_alt_count"`
	Htags         struct {
		H1 []string `json:"h1"`
		H2 []string `json:"h2"`
	} `json:"htags"`
}

// Check returns the value of a named on-page check, false if absent.
func (i InstantPageItem) Check(name string) bool {
	return i.Checks[name]
}

// SerpOrganicTask requests a live Google organic SERP.
type SerpOrganicTask struct {
	Keyword      string `json:"keyword"`
	LocationCode int    `json:"location_code"`
	LanguageCode string `json:"language_code"`
	Depth        int    `json:"depth,omitempty"`
}

// SerpOrganicResult is the serp/google/organic result item.
type SerpOrganicResult struct {
	Keyword string     `json:"keyword"`
	Items   []SerpItem `json:"items"`
}

type SerpItem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	URL    string `json:"url"`
	Domain string `json:"domain"`
}
