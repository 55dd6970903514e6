package report

import (
	"os"
	"sort"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/audit-cli/internal/model"
)

// Rule maps an audit signal to a recommendation shown in the report. Rules
// live in a YAML file so account managers can tune wording without a deploy.
type Rule struct {
	Signal   string `yaml:"signal"`
	Priority string `yaml:"priority"` // high | medium | low
	Title    string `yaml:"title"`
	Text     string `yaml:"text"`
}

type rulesFile struct {
	Rules []Rule `yaml:"rules"`
}

// Recommendation is a rule that fired for a specific audit result.
type Recommendation struct {
	Priority string
	Title    string
	Text     string
}

const defaultRulesYAML = `
rules:
  - signal: no_https
    priority: high
    title: Enable HTTPS
    text: Serve the site over HTTPS with a valid certificate. Search engines penalize unencrypted sites and browsers warn visitors away.
  - signal: not_mobile_responsive
    priority: high
    title: Make the site mobile-responsive
    text: Add a responsive layout and viewport meta tag. Most local searches happen on phones.
  - signal: no_sitemap
    priority: medium
    title: Publish an XML sitemap
    text: Generate and submit an XML sitemap so crawlers discover every page.
  - signal: no_robots
    priority: low
    title: Add a robots.txt
    text: Publish a robots.txt to control crawler access and reference the sitemap.
  - signal: no_canonical
    priority: medium
    title: Add canonical tags
    text: Declare canonical URLs to prevent duplicate-content dilution.
  - signal: missing_meta_descriptions
    priority: medium
    title: Write meta descriptions
    text: Add unique meta descriptions to pages missing them to improve click-through from search results.
  - signal: heading_issues
    priority: low
    title: Fix heading structure
    text: Use exactly one H1 per page and a logical H2/H3 hierarchy.
  - signal: missing_alt_text
    priority: low
    title: Add image alt text
    text: Describe images with alt attributes for accessibility and image search.
  - signal: no_schema
    priority: medium
    title: Add structured data
    text: Mark up the business with Organization or LocalBusiness schema to qualify for rich results.
  - signal: slow_performance
    priority: high
    title: Improve page speed
    text: Compress images, defer non-critical scripts and enable caching. Slow pages lose rankings and visitors.
  - signal: weak_backlinks
    priority: medium
    title: Build backlinks
    text: Earn links from local directories, suppliers and industry publications to grow domain authority.
  - signal: weak_rankings
    priority: medium
    title: Target achievable keywords
    text: No tracked keywords rank in the top 10. Focus content on lower-difficulty terms first.
`

func defaultRules() []Rule {
	var f rulesFile
	// The embedded default is a compile-time constant; a parse failure here is
	// a programming error.
	if err := yaml.Unmarshal([]byte(defaultRulesYAML), &f); err != nil {
		panic(err)
	}
	return f.Rules
}

// LoadRules reads recommendation rules from a YAML file.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "report: read rules %s", path)
	}
	var f rulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrapf(err, "report: parse rules %s", path)
	}
	if len(f.Rules) == 0 {
		return nil, eris.Errorf("report: rules file %s has no rules", path)
	}
	return f.Rules, nil
}

// signals derives the boolean rule inputs from an audit result.
func signals(r *model.AuditResult) map[string]bool {
	return map[string]bool{
		"no_https":                  !r.TechnicalSEO.HTTPSEnabled,
		"not_mobile_responsive":     !r.TechnicalSEO.MobileResponsive,
		"no_sitemap":                !r.TechnicalSEO.XMLSitemap,
		"no_robots":                 !r.TechnicalSEO.RobotsTxt,
		"no_canonical":              !r.TechnicalSEO.CanonicalTags,
		"missing_meta_descriptions": !r.TechnicalSEO.MetaDescriptions.Passed,
		"heading_issues":            !r.TechnicalSEO.HeadingStructure.Passed,
		"missing_alt_text":          !r.TechnicalSEO.ImageAltCoverage.Passed,
		"no_schema":                 !r.TechnicalSEO.SchemaMarkup(),
		"slow_performance":          r.Scores.Performance < 50,
		"weak_backlinks":            r.Backlinks.TotalBacklinks < 100,
		"weak_rankings":             r.Keywords.RankingDistribution.Top10 == 0,
	}
}

var priorityOrder = map[string]int{"high": 0, "medium": 1, "low": 2}

// Recommend evaluates the rules against a result, highest priority first.
func Recommend(rules []Rule, r *model.AuditResult) []Recommendation {
	fired := signals(r)
	var out []Recommendation
	for _, rule := range rules {
		if fired[rule.Signal] {
			out = append(out, Recommendation{
				Priority: rule.Priority,
				Title:    rule.Title,
				Text:     rule.Text,
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return priorityOrder[out[i].Priority] < priorityOrder[out[j].Priority]
	})
	return out
}
