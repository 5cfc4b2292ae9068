package pipeline

import (
	"testing"

	"github.com/daybrew/pulse/internal/models"
)

func item(url, title string, engagement float64) models.FetchedItem {
	return models.FetchedItem{
		Source:          models.SourceReddit,
		Category:        models.CategoryNews,
		Title:           title,
		URL:             url,
		EngagementScore: engagement,
	}
}

func TestDedupeByURL(t *testing.T) {
	items := []models.FetchedItem{
		item("https://a.example/1", "first post", 5),
		item("https://a.example/2", "second post", 3),
		item("https://a.example/1", "first post again", 9),
	}

	got := Dedupe(items)
	if len(got) != 2 {
		t.Fatalf("expected 2 items, got %d", len(got))
	}

	// The higher-engagement duplicate wins, in the first occurrence's slot.
	if got[0].EngagementScore != 9 {
		t.Errorf("expected duplicate with engagement 9 to win, got %v", got[0].EngagementScore)
	}
	if got[1].URL != "https://a.example/2" {
		t.Errorf("expected survivor order preserved, got %q", got[1].URL)
	}
}

func TestDedupeByNormalizedTitle(t *testing.T) {
	items := []models.FetchedItem{
		item("https://a.example/1", "Big News: Feature Launches!", 2),
		item("https://b.example/1", "big news   feature launches", 7),
		item("https://c.example/1", "Unrelated story", 1),
	}

	got := Dedupe(items)
	if len(got) != 2 {
		t.Fatalf("expected 2 items, got %d", len(got))
	}

	if got[0].URL != "https://b.example/1" {
		t.Errorf("expected higher-engagement title duplicate to win, got %q", got[0].URL)
	}
}

func TestDedupeTitleTruncatesToTenWords(t *testing.T) {
	long := "one two three four five six seven eight nine ten eleven"
	longer := "one two three four five six seven eight nine ten twelve thirteen"

	items := []models.FetchedItem{
		item("https://a.example/1", long, 1),
		item("https://b.example/1", longer, 2),
	}

	got := Dedupe(items)
	if len(got) != 1 {
		t.Fatalf("expected titles sharing the first 10 words to collapse, got %d items", len(got))
	}
}

func TestDedupeTieKeepsFirstSeen(t *testing.T) {
	items := []models.FetchedItem{
		item("https://a.example/1", "same title", 4),
		item("https://b.example/1", "same title", 4),
	}

	got := Dedupe(items)
	if len(got) != 1 {
		t.Fatalf("expected 1 item, got %d", len(got))
	}
	if got[0].URL != "https://a.example/1" {
		t.Errorf("expected first-seen item on tie, got %q", got[0].URL)
	}
}

func TestDedupeEmptyTitlesCollapse(t *testing.T) {
	items := []models.FetchedItem{
		item("https://a.example/1", "", 1),
		item("https://b.example/1", "!!!", 2),
		item("https://c.example/1", "  ", 3),
	}

	got := Dedupe(items)
	if len(got) != 1 {
		t.Fatalf("expected punctuation-only and empty titles to collapse, got %d items", len(got))
	}
	if got[0].EngagementScore != 3 {
		t.Errorf("expected highest-engagement survivor, got %v", got[0].EngagementScore)
	}
}

func TestDedupeIdempotent(t *testing.T) {
	items := []models.FetchedItem{
		item("https://a.example/1", "alpha", 1),
		item("https://a.example/1", "alpha beta", 2),
		item("https://b.example/1", "gamma", 3),
	}

	once := Dedupe(items)
	twice := Dedupe(once)

	if len(once) != len(twice) {
		t.Fatalf("dedupe not idempotent: %d then %d items", len(once), len(twice))
	}
	for i := range once {
		if once[i].URL != twice[i].URL {
			t.Errorf("item %d changed on second pass: %q vs %q", i, once[i].URL, twice[i].URL)
		}
	}
}

func TestDedupeNeverGrows(t *testing.T) {
	items := []models.FetchedItem{
		item("https://a.example/1", "a", 1),
		item("https://b.example/1", "b", 1),
		item("https://c.example/1", "c", 1),
	}

	got := Dedupe(items)
	if len(got) > len(items) {
		t.Fatalf("dedupe grew the slice: %d > %d", len(got), len(items))
	}
}

func TestDedupeDoesNotMutateInput(t *testing.T) {
	items := []models.FetchedItem{
		item("https://a.example/1", "alpha", 1),
		item("https://a.example/1", "alpha", 9),
	}

	_ = Dedupe(items)

	if items[0].EngagementScore != 1 {
		t.Error("input slice was mutated")
	}
}

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Hello, World!", "hello world"},
		{"  Multiple   spaces  ", "multiple spaces"},
		{"MiXeD CaSe", "mixed case"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := normalizeTitle(tt.input); got != tt.want {
			t.Errorf("normalizeTitle(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
