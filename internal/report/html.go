package report

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/rotisserie/eris"

	"github.com/sells-group/audit-cli/internal/model"
)

// reportView is the template input: one customer, one result, plus the
// derived recommendation and issue lists.
type reportView struct {
	Customer        *model.Customer
	Result          *model.AuditResult
	Issues          []technicalIssue
	Recommendations []Recommendation
	Theme           string
}

var reportFuncs = template.FuncMap{
	"status": issueStatus,
	"pct":    func(n int) string { return fmt.Sprintf("%d%%", n) },
	"grade":  scoreGrade,
}

func scoreGrade(score int) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 75:
		return "B"
	case score >= 60:
		return "C"
	case score >= 40:
		return "D"
	default:
		return "F"
	}
}

var reportTmpl = template.Must(template.New("report").Funcs(reportFuncs).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>SEO Audit Report — {{.Customer.CompanyName}}</title>
<style>
body { font-family: -apple-system, Helvetica, Arial, sans-serif; margin: 0; color: #1f2933; }
.wrap { max-width: 960px; margin: 0 auto; padding: 24px; }
header.{{.Theme}} { background: #0b3d63; color: #fff; padding: 32px 24px; }
h1 { margin: 0 0 4px; font-size: 28px; }
h2 { border-bottom: 2px solid #e4e7eb; padding-bottom: 6px; margin-top: 36px; }
table { border-collapse: collapse; width: 100%; margin: 12px 0; }
th, td { border: 1px solid #e4e7eb; padding: 8px 10px; text-align: left; font-size: 14px; }
th { background: #f5f7fa; }
.score { display: inline-block; min-width: 72px; margin-right: 16px; text-align: center; }
.score b { display: block; font-size: 30px; }
.pass { color: #1b7f4b; } .fail { color: #c0392b; }
.pri-high { color: #c0392b; font-weight: 600; }
.pri-medium { color: #b7791f; font-weight: 600; }
.pri-low { color: #486581; }
footer { margin-top: 48px; font-size: 12px; color: #829ab1; }
</style>
</head>
<body>
<header class="{{.Theme}}">
<div class="wrap">
<h1>SEO Audit Report</h1>
<p>{{.Customer.CompanyName}} — {{.Result.Domain}} — generated {{.Result.GeneratedAt.Format "Jan 2, 2006"}}</p>
</div>
</header>
<div class="wrap">

<h2>Scores</h2>
<p>
<span class="score"><b>{{.Result.Scores.Overall}}</b>Overall ({{grade .Result.Scores.Overall}})</span>
<span class="score"><b>{{.Result.Scores.Performance}}</b>Performance</span>
<span class="score"><b>{{.Result.Scores.Technical}}</b>Technical</span>
<span class="score"><b>{{.Result.Scores.Backlinks}}</b>Backlinks</span>
<span class="score"><b>{{.Result.Scores.Keywords}}</b>Keywords</span>
</p>

<h2>Performance</h2>
<table>
<tr><th></th><th>Performance</th><th>SEO</th><th>Accessibility</th><th>LCP (s)</th><th>CLS</th><th>FID (ms)</th></tr>
<tr><td>Desktop</td><td>{{.Result.Performance.Desktop.Performance}}</td><td>{{.Result.Performance.Desktop.SEO}}</td><td>{{.Result.Performance.Desktop.Accessibility}}</td><td>{{printf "%.1f" .Result.Performance.Desktop.Vitals.LCP}}</td><td>{{printf "%.2f" .Result.Performance.Desktop.Vitals.CLS}}</td><td>{{.Result.Performance.Desktop.Vitals.FID}}</td></tr>
<tr><td>Mobile</td><td>{{.Result.Performance.Mobile.Performance}}</td><td>{{.Result.Performance.Mobile.SEO}}</td><td>{{.Result.Performance.Mobile.Accessibility}}</td><td>{{printf "%.1f" .Result.Performance.Mobile.Vitals.LCP}}</td><td>{{printf "%.2f" .Result.Performance.Mobile.Vitals.CLS}}</td><td>{{.Result.Performance.Mobile.Vitals.FID}}</td></tr>
</table>

<h2>Technical SEO</h2>
<table>
<tr><th>Check</th><th>Status</th><th>Affected</th></tr>
{{range .Issues}}<tr><td>{{.Name}}</td><td class="{{if .Passed}}pass{{else}}fail{{end}}">{{status .Passed}}</td><td>{{if .Count}}{{.Count}}{{end}}</td></tr>
{{end}}</table>

<h2>Backlinks</h2>
<p>{{.Result.Backlinks.TotalBacklinks}} backlinks from {{.Result.Backlinks.ReferringDomains}} referring domains. Estimated domain authority: {{.Result.Backlinks.DomainAuthority}}.</p>

<h2>Keywords</h2>
<p>Ranking distribution: {{.Result.Keywords.RankingDistribution.Top3}} in top 3, {{.Result.Keywords.RankingDistribution.Top10}} in top 10, {{.Result.Keywords.RankingDistribution.Top20}} in top 20, {{.Result.Keywords.RankingDistribution.Top50}} in top 50.</p>
<table>
<tr><th>Keyword</th><th>Position</th><th>Volume</th><th>Difficulty</th></tr>
{{range .Result.Keywords.TrackedKeywords}}<tr><td>{{.Keyword}}</td><td>{{if .Position}}{{.Position}}{{else}}—{{end}}</td><td>{{.Volume}}</td><td>{{.Difficulty}}</td></tr>
{{end}}</table>
{{if .Result.Keywords.Opportunities}}
<h3>Opportunities</h3>
<table>
<tr><th>Keyword</th><th>Volume</th><th>Difficulty</th><th>Potential</th></tr>
{{range .Result.Keywords.Opportunities}}<tr><td>{{.Keyword}}</td><td>{{.Volume}}</td><td>{{.Difficulty}}</td><td>{{.Potential}}</td></tr>
{{end}}</table>
{{end}}

<h2>Competitors</h2>
<table>
<tr><th>Domain</th><th>Authority</th><th>Backlinks</th><th>Referring Domains</th><th>Organic Keywords</th><th>Est. Traffic</th></tr>
{{range .Result.Competitors.Competitors}}<tr><td>{{.Domain}}</td><td>{{.DomainAuthority}}</td><td>{{.TotalBacklinks}}</td><td>{{.ReferringDomains}}</td><td>{{.OrganicKeywords}}</td><td>{{.EstimatedTraffic}}</td></tr>
{{end}}</table>

<h2>Social Media</h2>
<table>
<tr><th>Platform</th><th>Profile</th><th>Followers</th><th>Engagement</th></tr>
{{range .Result.SocialMedia.Platforms}}<tr><td>{{.Platform}}</td><td>{{if .Found}}{{.Handle}}{{else}}not found{{end}}</td><td>{{if .Found}}{{.Followers}}{{end}}</td><td>{{.Engagement}}</td></tr>
{{end}}</table>

<h2>Recommendations</h2>
{{if .Recommendations}}
<table>
<tr><th>Priority</th><th>Recommendation</th><th>Details</th></tr>
{{range .Recommendations}}<tr><td class="pri-{{.Priority}}">{{.Priority}}</td><td>{{.Title}}</td><td>{{.Text}}</td></tr>
{{end}}</table>
{{else}}<p>No outstanding recommendations. Keep doing what you're doing.</p>{{end}}

<footer>Report generated {{.Result.GeneratedAt.Format "2006-01-02 15:04 MST"}} for {{.Customer.Email}}.</footer>
</div>
</body>
</html>
`))

// RenderHTML produces the self-contained HTML report document.
func (a *Assembler) RenderHTML(customer *model.Customer, result *model.AuditResult) ([]byte, error) {
	view := reportView{
		Customer:        customer,
		Result:          result,
		Issues:          technicalIssues(result.TechnicalSEO),
		Recommendations: Recommend(a.rules, result),
		Theme:           a.theme,
	}
	var buf bytes.Buffer
	if err := reportTmpl.Execute(&buf, view); err != nil {
		return nil, eris.Wrapf(err, "report: render html for %s", customer.Slug)
	}
	return buf.Bytes(), nil
}
