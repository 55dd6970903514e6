package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStageWeightsSumTo100(t *testing.T) {
	total := 0
	for _, s := range Stages {
		total += StageWeights[s]
	}
	assert.Equal(t, 100, total)
}

func TestCumulativeProgress(t *testing.T) {
	assert.Equal(t, 0, CumulativeProgress(0))
	assert.Equal(t, 5, CumulativeProgress(1))   // initializing
	assert.Equal(t, 15, CumulativeProgress(2))  // + crawling
	assert.Equal(t, 35, CumulativeProgress(3))  // + performance
	assert.Equal(t, 95, CumulativeProgress(7))  // all but report
	assert.Equal(t, 100, CumulativeProgress(8))
	assert.Equal(t, 100, CumulativeProgress(20))

	// Monotonic over the whole range.
	prev := -1
	for n := 0; n <= len(Stages); n++ {
		p := CumulativeProgress(n)
		assert.Greater(t, p, prev)
		prev = p
	}
}

func TestJobActive(t *testing.T) {
	assert.True(t, AuditJob{Status: JobStatusQueued}.Active())
	assert.True(t, AuditJob{Status: JobStatusProcessing}.Active())
	assert.False(t, AuditJob{Status: JobStatusCompleted}.Active())
	assert.False(t, AuditJob{Status: JobStatusFailed}.Active())
}

func TestKeywordDistribute(t *testing.T) {
	k := KeywordData{TrackedKeywords: []TrackedKeyword{
		{Keyword: "a", Position: 1},
		{Keyword: "b", Position: 3},
		{Keyword: "c", Position: 9},
		{Keyword: "d", Position: 20},
		{Keyword: "e", Position: 48},
		{Keyword: "f", Position: 77}, // beyond top 50
		{Keyword: "g", Position: 0},  // not ranking
	}}
	k.Distribute()

	assert.Equal(t, 2, k.RankingDistribution.Top3)
	assert.Equal(t, 3, k.RankingDistribution.Top10)
	assert.Equal(t, 4, k.RankingDistribution.Top20)
	assert.Equal(t, 5, k.RankingDistribution.Top50)
}
