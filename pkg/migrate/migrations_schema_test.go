package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEpisodesMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_episodes.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no episodes migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS episodes",
		"FOREIGN KEY (show_id) REFERENCES shows(id) ON DELETE CASCADE",
		"CHECK (plays >= 0)",
		"CHECK (mixcloud_status IN ('pending', 'uploading', 'uploaded', 'failed'))",
		"DROP TABLE IF EXISTS episodes",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestShowsMigrationContainsWorkflowColumns(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_shows.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no shows migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CHECK (request_status IN ('pending', 'approved', 'rejected'))",
		"CHECK (status IN ('active', 'inactive', 'archived'))",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_shows_slug",
		"promo_audio JSONB",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}
