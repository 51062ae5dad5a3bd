package fixture

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeFixture(t *testing.T, lines ...string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "games.ndjson")
	content := ""
	for _, l := range lines {
		content += l + "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestPullStreamsAllRecords(t *testing.T) {
	path := writeFixture(t,
		`{"provider":"gotsport","team_id":"1","team_name":"FC Dallas"}`,
		`{"provider":"gotsport","team_id":"2","team_name":"Solar SC"}`,
	)

	src := New(path, 0)
	records, errs := src.Pull(context.Background())

	var got []string
	for r := range records {
		got = append(got, r.TeamName)
	}
	for err := range errs {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got) != 2 || got[0] != "FC Dallas" || got[1] != "Solar SC" {
		t.Errorf("got %v, want [FC Dallas, Solar SC]", got)
	}
}

func TestPullResumesFromCheckpoint(t *testing.T) {
	path := writeFixture(t,
		`{"team_id":"1"}`,
		`{"team_id":"2"}`,
		`{"team_id":"3"}`,
	)

	src := New(path, 1)
	records, _ := src.Pull(context.Background())

	var ids []string
	for r := range records {
		ids = append(ids, r.TeamID)
	}
	if len(ids) != 2 || ids[0] != "2" || ids[1] != "3" {
		t.Errorf("got %v, want [2 3]", ids)
	}
}
