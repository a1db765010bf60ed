package services

import (
	"math"
	"strings"
)

const (
	chillBaseScore    = 5.0
	chillKeywordBonus = 0.5
	stressKeywordCost = 1.0
)

var chillKeywords = []string{
	"chill", "easy", "no stress", "no exam", "no paper", "presentation",
	"kam padna", "last day", "ek raat", "0 hours", "1-2 hours", "no assignment",
}

var stressKeywords = []string{
	"strict", "hectic", "daily", "compulsory", "75%", "difficult",
	"tough", "hard", "stressful", "intensive",
}

// CalculateChillScore scores how low-stress a course sounds from a review's
// content and study-time text. Each keyword counts once no matter how often
// it appears, and matching is plain substring matching, so "uneasy" still
// counts as "easy". The result is clamped to [0,10].
func CalculateChillScore(content, studyTime string) float64 {
	text := strings.ToLower(content + " " + studyTime)

	score := chillBaseScore
	for _, kw := range chillKeywords {
		if strings.Contains(text, kw) {
			score += chillKeywordBonus
		}
	}
	for _, kw := range stressKeywords {
		if strings.Contains(text, kw) {
			score -= stressKeywordCost
		}
	}

	return math.Max(0, math.Min(10, score))
}
