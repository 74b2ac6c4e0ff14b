package db

import (
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// createTestStore creates an export database in a temp dir.
func createTestStore(t *testing.T) (*Store, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "game.sqlite")
	store, err := Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store, path
}

func TestWriteSessionAssignsID(t *testing.T) {
	store, _ := createTestStore(t)

	sess, err := store.WriteSession(Session{Source: "/clips/Q1_x_115700.mp4", ExportName: "Q1_x_115700"}, nil)
	if err != nil {
		t.Fatalf("WriteSession: %v", err)
	}
	if sess.ID == "" {
		t.Error("session ID should be generated")
	}
	if sess.CreatedAt.IsZero() {
		t.Error("createdAt should be set")
	}
}

func TestAnnotationsForSession(t *testing.T) {
	store, path := createTestStore(t)

	anns := []Annotation{
		{ID: 3, Type: "Screen", Label: "Screen", Timestamp: 4.5, FormattedTime: "0:04", GameClockTime: "11:40", Team: "Hawks"},
		{ID: 1, Type: "Other", Label: `say "switch"`, Timestamp: 9, FormattedTime: "0:09", GameClockTime: "N/A"},
	}
	sess, err := store.WriteSession(Session{ID: "sess-1", Source: "a.mp4", ExportName: "a", HomeTeam: "Hawks", AwayTeam: "Jazz"}, anns)
	if err != nil {
		t.Fatalf("WriteSession: %v", err)
	}

	ro, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer ro.Close()

	got, err := ro.AnnotationsForSession(sess.ID)
	if err != nil {
		t.Fatalf("AnnotationsForSession: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d annotations, want 2", len(got))
	}
	// Exported order is preserved, not re-sorted by id.
	if got[0].ID != 3 || got[1].ID != 1 {
		t.Errorf("ids = [%d %d], want [3 1]", got[0].ID, got[1].ID)
	}
	if got[1].Label != `say "switch"` {
		t.Errorf("label = %q", got[1].Label)
	}
	if got[0].Team != "Hawks" || got[1].Team != "" {
		t.Errorf("teams = %q, %q", got[0].Team, got[1].Team)
	}
}

func TestAnnotationsByType(t *testing.T) {
	store, _ := createTestStore(t)

	anns := []Annotation{
		{ID: 1, Type: "Nod", Label: "Nod", FormattedTime: "0:01", GameClockTime: "N/A"},
		{ID: 2, Type: "Screen", Label: "Screen", FormattedTime: "0:02", GameClockTime: "N/A"},
		{ID: 3, Type: "Nod", Label: "Nod", FormattedTime: "0:03", GameClockTime: "N/A"},
	}
	if _, err := store.WriteSession(Session{ID: "s", Source: "a.mp4", ExportName: "a"}, anns); err != nil {
		t.Fatalf("WriteSession: %v", err)
	}

	got, err := store.AnnotationsByType("s", "Nod")
	if err != nil {
		t.Fatalf("AnnotationsByType: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d, want 2", len(got))
	}
}

func TestLatestSession(t *testing.T) {
	store, _ := createTestStore(t)

	now := time.Now()
	store.WriteSession(Session{ID: "sess-old", Source: "a.mp4", ExportName: "a", CreatedAt: now.Add(-time.Hour)}, nil)
	store.WriteSession(Session{ID: "sess-new", Source: "b.mp4", ExportName: "b", CreatedAt: now}, nil)

	sess, err := store.LatestSession()
	if err != nil {
		t.Fatalf("LatestSession: %v", err)
	}
	if sess == nil {
		t.Fatal("expected session, got nil")
	}
	if sess.ID != "sess-new" {
		t.Errorf("session ID = %q, want %q", sess.ID, "sess-new")
	}

	all, err := store.Sessions()
	if err != nil {
		t.Fatalf("Sessions: %v", err)
	}
	if len(all) != 2 || all[1].ID != "sess-old" {
		t.Errorf("sessions = %+v", all)
	}
}

func TestLatestSessionNone(t *testing.T) {
	store, _ := createTestStore(t)

	sess, err := store.LatestSession()
	if err != nil {
		t.Fatalf("LatestSession: %v", err)
	}
	if sess != nil {
		t.Errorf("expected nil, got session %q", sess.ID)
	}
}

func TestOpenMissingFile(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "missing.sqlite")); err == nil {
		t.Error("expected error opening a missing database read-only")
	}
}

func TestFileDSNEscapesPath(t *testing.T) {
	tests := []struct {
		path   string
		params url.Values
		want   string
	}{
		{"/exports/game.sqlite", url.Values{"mode": {"ro"}}, "file:///exports/game.sqlite?mode=ro"},
		{"/exports/Q1?#/game.sqlite", url.Values{"mode": {"ro"}}, "file:///exports/Q1%3F%23/game.sqlite?mode=ro"},
		{"/my exports/game.sqlite", nil, "file:///my%20exports/game.sqlite"},
	}
	for _, tc := range tests {
		got, err := fileDSN(tc.path, tc.params)
		if err != nil {
			t.Fatalf("fileDSN(%q): %v", tc.path, err)
		}
		if got != tc.want {
			t.Errorf("fileDSN(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}

func TestStoreInDirectoryWithURICharacters(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "Hawks?Jazz#1")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	path := filepath.Join(dir, "game.sqlite")

	store, err := Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := store.WriteSession(Session{ID: "s1", Source: "a.mp4", ExportName: "a"}, []Annotation{
		{ID: 1, Type: "Nod", Label: "Nod", FormattedTime: "0:00", GameClockTime: "N/A"},
	}); err != nil {
		t.Fatalf("WriteSession: %v", err)
	}
	store.Close()

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("export not written at %s: %v", path, err)
	}

	ro, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer ro.Close()

	anns, err := ro.AnnotationsForSession("s1")
	if err != nil {
		t.Fatalf("AnnotationsForSession: %v", err)
	}
	if len(anns) != 1 || anns[0].Type != "Nod" {
		t.Errorf("annotations = %+v", anns)
	}
}
