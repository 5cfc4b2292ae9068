package database

import (
	"sort"
	"strings"
	"testing"
)

func TestMigrationVersionsAreUniqueAndOrdered(t *testing.T) {
	seen := make(map[string]bool)
	versions := make([]string, 0, len(migrations))

	for _, m := range migrations {
		if m.version == "" {
			t.Fatal("migration with empty version")
		}
		if seen[m.version] {
			t.Fatalf("duplicate migration version %q", m.version)
		}
		seen[m.version] = true
		versions = append(versions, m.version)

		if strings.TrimSpace(m.sql) == "" {
			t.Errorf("migration %q has empty SQL", m.version)
		}
	}

	if !sort.StringsAreSorted(versions) {
		t.Errorf("migration versions not in sorted order: %v", versions)
	}
}

func TestMigrationsCoverAllTables(t *testing.T) {
	all := strings.Builder{}
	for _, m := range migrations {
		all.WriteString(m.sql)
	}
	schema := all.String()

	tables := []string{
		"items",
		"sentiment_daily",
		"briefing_tldr",
		"ecosystem",
		"changelog_highlights",
		"review_telemetry",
	}
	for _, table := range tables {
		if !strings.Contains(schema, "CREATE TABLE IF NOT EXISTS "+table) {
			t.Errorf("no migration creates table %q", table)
		}
	}
}
