package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/valter-silva-au/projitive/internal/ledger"
	"github.com/valter-silva-au/projitive/pkg/models"
)

func TestLoad_MissingFileIsEmptyLedger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.md")
	got, err := NewLedgerStore().Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Exists || got.Tasks == nil || len(got.Tasks) != 0 {
		t.Errorf("expected empty non-existing ledger, got %+v", got)
	}
}

func TestSaveAndLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gov", "tasks.md")
	store := NewLedgerStore()
	tasks := []models.Task{
		{ID: "TASK-0001", Title: "First", Status: models.StatusTodo, Links: []string{"a.go"}},
		{ID: "TASK-0002", Title: "Second", Status: models.StatusBlocked,
			Blocker: &models.Blocker{Type: models.BlockerResource, Description: "no runner"}},
	}

	if err := store.Save(path, tasks); err != nil {
		t.Fatalf("save: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != filePerms {
		t.Errorf("perm = %v, want %v", info.Mode().Perm(), os.FileMode(filePerms))
	}

	got, err := store.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !got.Exists || len(got.Tasks) != 2 {
		t.Fatalf("unexpected ledger %+v", got)
	}
	if got.Tasks[1].Blocker == nil || got.Tasks[1].Blocker.Description != "no runner" {
		t.Errorf("blocker lost: %+v", got.Tasks[1])
	}
	if !strings.HasPrefix(got.Markdown, "# Tasks") {
		t.Errorf("new ledgers should start with a heading, got %q", got.Markdown[:20])
	}
}

func TestSave_KeepsSurroundingText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.md")
	original := "# Project tasks\n\nintro\n\n" + ledger.Render(nil) + "\n## Notes\nkeep me\n"
	if err := os.WriteFile(path, []byte(original), 0o644); err != nil {
		t.Fatal(err)
	}

	store := NewLedgerStore()
	if err := store.Save(path, []models.Task{{ID: "TASK-0001", Title: "x", Status: models.StatusTodo}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	data, _ := os.ReadFile(path)
	out := string(data)
	for _, want := range []string{"# Project tasks", "intro", "## Notes\nkeep me", "## TASK-0001 | TODO | x"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, ledger.EmptyPlaceholder) {
		t.Error("old block should be replaced")
	}
}

func TestUpdate_AbortsOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.md")
	store := NewLedgerStore()
	if err := store.Save(path, []models.Task{{ID: "TASK-0001", Title: "x", Status: models.StatusTodo}}); err != nil {
		t.Fatal(err)
	}
	before, _ := os.ReadFile(path)

	boom := errors.New("boom")
	err := store.Update(path, func(tasks []models.Task) ([]models.Task, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	after, _ := os.ReadFile(path)
	if string(before) != string(after) {
		t.Error("ledger changed despite a failed update")
	}
}

func TestUpdate_SerializesWriters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.md")
	store := NewLedgerStore()

	const writers = 8
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.Update(path, func(tasks []models.Task) ([]models.Task, error) {
				id := "TASK-" + strings.Repeat("0", 3) + string(rune('1'+len(tasks)))
				return append(tasks, models.Task{ID: id, Title: "t", Status: models.StatusTodo}), nil
			})
			if err != nil {
				t.Errorf("update: %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := store.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Tasks) != writers {
		t.Errorf("expected %d tasks after concurrent updates, got %d", writers, len(got.Tasks))
	}
}

func TestInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "new", "tasks.md")
	store := NewLedgerStore()

	created, err := store.Init(path)
	if err != nil || !created {
		t.Fatalf("Init = %v, %v", created, err)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), ledger.StartMarker) || !strings.Contains(string(data), ledger.EmptyPlaceholder) {
		t.Errorf("unexpected initial ledger:\n%s", data)
	}

	created, err = store.Init(path)
	if err != nil || created {
		t.Errorf("second Init = %v, %v; want false, nil", created, err)
	}
}

func TestRoadmapReader(t *testing.T) {
	dir := t.TempDir()
	reader := NewRoadmapReader("roadmap.md")

	ids, err := reader.RoadmapIDs(dir)
	if err != nil || ids != nil {
		t.Errorf("missing roadmap = %v, %v; want nil, nil", ids, err)
	}

	if err := os.WriteFile(filepath.Join(dir, "roadmap.md"), []byte("- ROADMAP-0002 b\n- ROADMAP-0001 a\n- ROADMAP-0002 again\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	ids, err = reader.RoadmapIDs(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Join(ids, ",") != "ROADMAP-0002,ROADMAP-0001" {
		t.Errorf("ids = %v", ids)
	}

	if err := os.WriteFile(filepath.Join(dir, "roadmap.md"), []byte("nothing yet\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	ids, err = reader.RoadmapIDs(dir)
	if err != nil || ids == nil || len(ids) != 0 {
		t.Errorf("empty roadmap = %#v, %v; want empty non-nil", ids, err)
	}
}
