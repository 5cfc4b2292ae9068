package telemetry

import (
	"strings"
	"testing"
)

const sampleReview = `# Plan Review

## Critical Issues (MUST fix)
- missing nil check in handler
- unbounded queue growth

## Improvements (SHOULD fix)
- extract retry policy into config

### Suggestions (NICE to have)
- rename ambiguous helper
* add a benchmark

## Strengths (DO NOT change)
- clean separation of fetch and persist

VERDICT: approve with changes
Confidence Score: 0.85
`

func TestParseReviewMarkdown(t *testing.T) {
	parsed := ParseReviewMarkdown(sampleReview)

	if parsed.CriticalIssues != 2 {
		t.Errorf("CriticalIssues = %d, want 2", parsed.CriticalIssues)
	}
	if parsed.Improvements != 1 {
		t.Errorf("Improvements = %d, want 1", parsed.Improvements)
	}
	if parsed.Suggestions != 2 {
		t.Errorf("Suggestions = %d, want 2", parsed.Suggestions)
	}
	if parsed.Strengths != 1 {
		t.Errorf("Strengths = %d, want 1", parsed.Strengths)
	}

	if parsed.Verdict == nil || !strings.HasPrefix(*parsed.Verdict, "approve with changes") {
		t.Errorf("Verdict = %v, want approve with changes", parsed.Verdict)
	}
	if parsed.ConfidenceScore == nil || *parsed.ConfidenceScore != 0.85 {
		t.Errorf("ConfidenceScore = %v, want 0.85", parsed.ConfidenceScore)
	}
}

func TestParseReviewMarkdownSectionBoundaries(t *testing.T) {
	md := strings.Join([]string{
		"## Critical Issues",
		"- inside",
		"## Notes",
		"- outside, different section",
		"- still outside",
	}, "\n")

	parsed := ParseReviewMarkdown(md)
	if parsed.CriticalIssues != 1 {
		t.Errorf("CriticalIssues = %d, want 1 (bullets after next heading excluded)", parsed.CriticalIssues)
	}
}

func TestParseReviewMarkdownEmpty(t *testing.T) {
	parsed := ParseReviewMarkdown("")

	if parsed.CriticalIssues != 0 || parsed.Improvements != 0 || parsed.Suggestions != 0 || parsed.Strengths != 0 {
		t.Errorf("expected zero counters, got %+v", parsed)
	}
	if parsed.Verdict != nil {
		t.Errorf("Verdict = %v, want nil", *parsed.Verdict)
	}
	if parsed.ConfidenceScore != nil {
		t.Errorf("ConfidenceScore = %v, want nil", *parsed.ConfidenceScore)
	}
}

func TestParseReviewMarkdownQualityGateAlias(t *testing.T) {
	parsed := ParseReviewMarkdown("Quality Gate: PASS")
	if parsed.Verdict == nil || !strings.HasPrefix(*parsed.Verdict, "PASS") {
		t.Errorf("Verdict = %v, want PASS", parsed.Verdict)
	}
}

func TestParseReviewMarkdownHeadingAliases(t *testing.T) {
	md := strings.Join([]string{
		"## Hardening opportunities",
		"- tighten timeouts",
		"## Already solid",
		"- good logging",
	}, "\n")

	parsed := ParseReviewMarkdown(md)
	if parsed.Improvements != 1 {
		t.Errorf("Improvements = %d, want 1 (Hardening alias)", parsed.Improvements)
	}
	if parsed.Strengths != 1 {
		t.Errorf("Strengths = %d, want 1 (Already alias)", parsed.Strengths)
	}
}
