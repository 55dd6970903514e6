package report

import (
	"bytes"
	"encoding/csv"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/audit-cli/internal/model"
)

// Fixed column headers. Downstream consumers diff these exports, so the
// order and spelling are part of the contract.
var (
	technicalIssueColumns = []string{
		"Issue", "Status", "Affected Count", "Priority", "Recommended Fix",
	}
	keywordOpportunityColumns = []string{
		"Keyword", "Search Volume", "Difficulty", "Potential",
	}
	competitorColumns = []string{
		"Domain", "Domain Authority", "Total Backlinks", "Referring Domains",
		"Organic Keywords", "Estimated Traffic",
	}
)

// technicalIssue is one row of the technical issues table.
type technicalIssue struct {
	Name   string
	Signal string
	Passed bool
	Count  int
}

// technicalIssues flattens the technical section into the fixed check list.
func technicalIssues(t model.TechnicalSEOData) []technicalIssue {
	return []technicalIssue{
		{Name: "HTTPS Enabled", Signal: "no_https", Passed: t.HTTPSEnabled},
		{Name: "Mobile Responsive", Signal: "not_mobile_responsive", Passed: t.MobileResponsive},
		{Name: "XML Sitemap", Signal: "no_sitemap", Passed: t.XMLSitemap},
		{Name: "Robots.txt", Signal: "no_robots", Passed: t.RobotsTxt},
		{Name: "Canonical Tags", Signal: "no_canonical", Passed: t.CanonicalTags},
		{Name: "Meta Descriptions", Signal: "missing_meta_descriptions", Passed: t.MetaDescriptions.Passed, Count: t.MetaDescriptions.Count},
		{Name: "Heading Structure", Signal: "heading_issues", Passed: t.HeadingStructure.Passed, Count: t.HeadingStructure.Count},
		{Name: "Image Alt Text", Signal: "missing_alt_text", Passed: t.ImageAltCoverage.Passed, Count: t.ImageAltCoverage.Count},
		{Name: "Schema Markup", Signal: "no_schema", Passed: t.SchemaMarkup()},
	}
}

func issueStatus(passed bool) string {
	if passed {
		return "Pass"
	}
	return "Fail"
}

func (a *Assembler) technicalIssueRows(result *model.AuditResult) [][]string {
	bySignal := make(map[string]Rule, len(a.rules))
	for _, rule := range a.rules {
		bySignal[rule.Signal] = rule
	}

	var rows [][]string
	for _, issue := range technicalIssues(result.TechnicalSEO) {
		priority, fix := "", ""
		if !issue.Passed {
			if rule, ok := bySignal[issue.Signal]; ok {
				priority = rule.Priority
				fix = rule.Text
			}
		}
		rows = append(rows, []string{
			issue.Name,
			issueStatus(issue.Passed),
			strconv.Itoa(issue.Count),
			priority,
			fix,
		})
	}
	return rows
}

func keywordOpportunityRows(result *model.AuditResult) [][]string {
	var rows [][]string
	for _, opp := range result.Keywords.Opportunities {
		rows = append(rows, []string{
			opp.Keyword,
			strconv.Itoa(opp.Volume),
			strconv.Itoa(opp.Difficulty),
			opp.Potential,
		})
	}
	return rows
}

// competitorRows puts the customer's own domain first for side-by-side
// comparison.
func competitorRows(result *model.AuditResult) [][]string {
	rows := [][]string{{
		result.Domain,
		strconv.Itoa(result.Backlinks.DomainAuthority),
		strconv.Itoa(result.Backlinks.TotalBacklinks),
		strconv.Itoa(result.Backlinks.ReferringDomains),
		strconv.Itoa(len(result.Keywords.TrackedKeywords)),
		"",
	}}
	for _, comp := range result.Competitors.Competitors {
		rows = append(rows, []string{
			comp.Domain,
			strconv.Itoa(comp.DomainAuthority),
			strconv.Itoa(comp.TotalBacklinks),
			strconv.Itoa(comp.ReferringDomains),
			strconv.Itoa(comp.OrganicKeywords),
			strconv.Itoa(comp.EstimatedTraffic),
		})
	}
	return rows
}

func writeCSV(header []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, eris.Wrap(err, "report: write csv header")
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, eris.Wrap(err, "report: write csv rows")
	}
	return buf.Bytes(), nil
}

// TechnicalIssuesCSV renders the technical issues table.
func (a *Assembler) TechnicalIssuesCSV(result *model.AuditResult) ([]byte, error) {
	return writeCSV(technicalIssueColumns, a.technicalIssueRows(result))
}

// KeywordOpportunitiesCSV renders the keyword opportunities table.
func (a *Assembler) KeywordOpportunitiesCSV(result *model.AuditResult) ([]byte, error) {
	return writeCSV(keywordOpportunityColumns, keywordOpportunityRows(result))
}

// CompetitorComparisonCSV renders the competitor comparison table.
func (a *Assembler) CompetitorComparisonCSV(result *model.AuditResult) ([]byte, error) {
	return writeCSV(competitorColumns, competitorRows(result))
}
