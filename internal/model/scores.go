package model

// ComputeScores derives the per-section and overall scores (0-100) from a
// populated audit result.
func ComputeScores(r *AuditResult) SectionScores {
	s := SectionScores{
		Performance: (r.Performance.Desktop.Performance + r.Performance.Mobile.Performance) / 2,
		Technical:   technicalScore(r.TechnicalSEO),
		Backlinks:   backlinkScore(r.Backlinks),
		Keywords:    keywordScore(r.Keywords),
	}
	// Performance and technical health dominate the overall grade.
	s.Overall = (s.Performance*30 + s.Technical*30 + s.Backlinks*20 + s.Keywords*20) / 100
	return s
}

func technicalScore(t TechnicalSEOData) int {
	score := 100
	deduct := func(failed bool, points int) {
		if failed {
			score -= points
		}
	}
	deduct(!t.HTTPSEnabled, 15)
	deduct(!t.MobileResponsive, 15)
	deduct(!t.XMLSitemap, 10)
	deduct(!t.RobotsTxt, 5)
	deduct(!t.CanonicalTags, 10)
	deduct(!t.MetaDescriptions.Passed, 10)
	deduct(!t.HeadingStructure.Passed, 10)
	deduct(!t.ImageAltCoverage.Passed, 10)
	deduct(!t.SchemaMarkup(), 5)
	if score < 0 {
		score = 0
	}
	return score
}

func backlinkScore(b BacklinkData) int {
	switch {
	case b.TotalBacklinks == 0:
		return 10
	case b.TotalBacklinks < 100:
		return 40
	case b.TotalBacklinks < 500:
		return 60
	case b.TotalBacklinks < 1000:
		return 75
	default:
		return 90
	}
}

func keywordScore(k KeywordData) int {
	if len(k.TrackedKeywords) == 0 {
		return 20
	}
	d := k.RankingDistribution
	score := 30 + d.Top10*8 + d.Top3*4
	if score > 95 {
		score = 95
	}
	return score
}
