// Package telemetry parses review-telemetry markdown reports into counters.
package telemetry

import (
	"regexp"
	"strconv"
	"strings"
)

// ParsedReview holds the counters extracted from a review markdown body.
type ParsedReview struct {
	CriticalIssues  int
	Improvements    int
	Suggestions     int
	Strengths       int
	Verdict         *string
	ConfidenceScore *float64
}

var (
	criticalHeading    = regexp.MustCompile(`(?i)^###?\s.*(?:Critical|MUST fix)`)
	improvementHeading = regexp.MustCompile(`(?i)^###?\s.*(?:Improvement|SHOULD fix|Hardening|Simplification)`)
	suggestionHeading  = regexp.MustCompile(`(?i)^###?\s.*(?:Suggestion|NICE to have)`)
	strengthHeading    = regexp.MustCompile(`(?i)^###?\s.*(?:Strength|DO NOT change|Already)`)

	anyHeading    = regexp.MustCompile(`^#{1,4}\s`)
	bulletLine    = regexp.MustCompile(`^[-*]\s`)
	verdictLine   = regexp.MustCompile(`(?i)(?:VERDICT|Quality Gate)[:\s]*(\w[\w\s]*)`)
	confidenceVal = regexp.MustCompile(`(?i)Confidence\s*Score[:\s]*(\d+(?:\.\d+)?)`)
)

// ParseReviewMarkdown counts bullets under each recognized heading class and
// pulls out the verdict and confidence score when present. Unknown sections
// are ignored.
func ParseReviewMarkdown(markdown string) ParsedReview {
	parsed := ParsedReview{
		CriticalIssues: countBullets(markdown, criticalHeading),
		Improvements:   countBullets(markdown, improvementHeading),
		Suggestions:    countBullets(markdown, suggestionHeading),
		Strengths:      countBullets(markdown, strengthHeading),
	}

	if m := verdictLine.FindStringSubmatch(markdown); m != nil {
		verdict := strings.TrimSpace(m[1])
		parsed.Verdict = &verdict
	}
	if m := confidenceVal.FindStringSubmatch(markdown); m != nil {
		if score, err := strconv.ParseFloat(m[1], 64); err == nil {
			parsed.ConfidenceScore = &score
		}
	}

	return parsed
}

// countBullets counts bullet lines between a matching heading and the next
// heading of any level.
func countBullets(markdown string, heading *regexp.Regexp) int {
	inSection := false
	count := 0

	for _, line := range strings.Split(markdown, "\n") {
		if heading.MatchString(line) {
			inSection = true
			continue
		}
		if inSection && anyHeading.MatchString(line) {
			inSection = false
			continue
		}
		if inSection && bulletLine.MatchString(strings.TrimSpace(line)) {
			count++
		}
	}

	return count
}
