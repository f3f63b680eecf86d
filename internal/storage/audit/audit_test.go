package audit

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRepo(t *testing.T) {
	dir := t.TempDir()
	r, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := t.Context()

	got, err := r.History(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("empty repo history = %d commits", len(got))
	}

	write := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("vendors.jsonl", "{}\n")
	ok, err := r.Commit(ctx, Author{Name: "Asha", Email: "asha@example.com"}, "POST /api/vendors")
	if err != nil || !ok {
		t.Fatalf("Commit = %v, %v", ok, err)
	}
	// Nothing changed.
	if ok, err := r.Commit(ctx, Author{}, "GET"); err != nil || ok {
		t.Fatalf("clean Commit = %v, %v", ok, err)
	}
	// Sessions are ignored.
	write("sessions.jsonl", "{}\n")
	if ok, err := r.Commit(ctx, Author{}, "POST /api/auth/login"); err != nil || ok {
		t.Fatalf("ignored file Commit = %v, %v", ok, err)
	}
	if err := os.Remove(filepath.Join(dir, "vendors.jsonl")); err != nil {
		t.Fatal(err)
	}
	if ok, err := r.Commit(ctx, Author{}, "DELETE /api/vendors/1"); err != nil || !ok {
		t.Fatalf("delete Commit = %v, %v", ok, err)
	}

	got, err = r.History(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("history = %d commits, want 2", len(got))
	}
	if got[0].Message != "DELETE /api/vendors/1" || got[0].Author != defaultName {
		t.Errorf("newest = %+v", got[0])
	}
	if got[1].Author != "Asha" || got[1].AuthorEmail != "asha@example.com" {
		t.Errorf("oldest = %+v", got[1])
	}

	// Reopening keeps the history.
	r2, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	if got, err := r2.History(ctx, 1); err != nil || len(got) != 1 {
		t.Errorf("History(1) after reopen = %d, %v", len(got), err)
	}
}
