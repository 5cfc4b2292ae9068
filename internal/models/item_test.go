package models

import "testing"

func TestSourceIsValid(t *testing.T) {
	for _, s := range ValidSources {
		if !s.IsValid() {
			t.Errorf("expected source %q to be valid", s)
		}
	}

	invalid := []Source{"", "twitter", "Reddit"}
	for _, s := range invalid {
		if s.IsValid() {
			t.Errorf("expected source %q to be invalid", s)
		}
	}
}

func TestCategoryIsValid(t *testing.T) {
	valid := []Category{CategoryNews, CategoryFeature, CategoryTip, CategoryPlugin, CategoryVideo}
	for _, c := range valid {
		if !c.IsValid() {
			t.Errorf("expected category %q to be valid", c)
		}
	}

	if Category("blog").IsValid() {
		t.Error("expected unknown category to be invalid")
	}
}

func TestIsValidSentiment(t *testing.T) {
	for _, s := range []string{SentimentPositive, SentimentNeutral, SentimentNegative} {
		if !IsValidSentiment(s) {
			t.Errorf("expected sentiment %q to be valid", s)
		}
	}

	for _, s := range []string{"", "mixed", "POSITIVE"} {
		if IsValidSentiment(s) {
			t.Errorf("expected sentiment %q to be invalid", s)
		}
	}
}

func TestIsValidPatternType(t *testing.T) {
	for _, p := range []string{PatternWorkflow, PatternContextStrategy, PatternModelMix, PatternHookPattern} {
		if !IsValidPatternType(p) {
			t.Errorf("expected pattern %q to be valid", p)
		}
	}

	if IsValidPatternType("antipattern") {
		t.Error("expected unknown pattern to be invalid")
	}
}

func TestEntryTypeIsValid(t *testing.T) {
	valid := []EntryType{EntryHook, EntryPlugin, EntrySkill, EntryMCPServer, EntryAgentConfig}
	for _, e := range valid {
		if !e.IsValid() {
			t.Errorf("expected entry type %q to be valid", e)
		}
	}

	if EntryType("extension").IsValid() {
		t.Error("expected unknown entry type to be invalid")
	}
}
