package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pitabwire/irrbot/model"
)

type record struct {
	Name  string   `json:"name"`
	Items []string `json:"items"`
}

func newFileTable(t *testing.T) (*FileTable[record], string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "answers.json")
	table, err := NewFileTable[record](path)
	if err != nil {
		t.Fatalf("NewFileTable() error: %v", err)
	}
	return table, path
}

func TestFileTable_MissingFileIsEmpty(t *testing.T) {
	table, path := newFileTable(t)
	ctx := context.Background()

	n, err := table.Len(ctx)
	if err != nil || n != 0 {
		t.Fatalf("Len() = %d, %v; want 0, nil", n, err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("opening must not create the file, stat error = %v", err)
	}
}

func TestFileTable_PutPersistsBeforeReturning(t *testing.T) {
	table, path := newFileTable(t)
	ctx := context.Background()

	if err := table.Put(ctx, "abcd1234", record{Name: "first"}); err != nil {
		t.Fatalf("Put() error: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	var onDisk map[string]record
	if err := json.Unmarshal(raw, &onDisk); err != nil {
		t.Fatalf("file is not a JSON object: %v", err)
	}
	if onDisk["abcd1234"].Name != "first" {
		t.Errorf("on-disk record = %+v", onDisk["abcd1234"])
	}
}

func TestFileTable_ReopenSeesCommittedData(t *testing.T) {
	table, path := newFileTable(t)
	ctx := context.Background()

	_ = table.Put(ctx, "a", record{Name: "A"})
	_ = table.Put(ctx, "b", record{Name: "B"})
	if err := table.Remove(ctx, "a"); err != nil {
		t.Fatalf("Remove() error: %v", err)
	}

	reopened, err := NewFileTable[record](path)
	if err != nil {
		t.Fatalf("NewFileTable() error: %v", err)
	}
	keys, _ := reopened.Keys(ctx)
	if len(keys) != 1 || keys[0] != "b" {
		t.Errorf("Keys() after reopen = %v, want [b]", keys)
	}
}

func TestFileTable_KeyNormalization(t *testing.T) {
	table, _ := newFileTable(t)
	ctx := context.Background()

	if err := table.Put(ctx, 42, record{Name: "int"}); err != nil {
		t.Fatalf("Put() error: %v", err)
	}
	if err := table.Put(ctx, "42", record{Name: "string"}); err != nil {
		t.Fatalf("Put() error: %v", err)
	}

	n, _ := table.Len(ctx)
	if n != 1 {
		t.Fatalf("Len() = %d, want 1 (42 and \"42\" must collide)", n)
	}
	got, ok, _ := table.Get(ctx, 42)
	if !ok || got.Name != "string" {
		t.Errorf("Get(42) = %+v, %v; want last write", got, ok)
	}
}

func TestFileTable_GetReturnsCopy(t *testing.T) {
	table, _ := newFileTable(t)
	ctx := context.Background()

	in := record{Name: "orig", Items: []string{"x"}}
	_ = table.Put(ctx, "k", in)
	in.Items[0] = "mutated-after-put"

	got, _, _ := table.Get(ctx, "k")
	got.Items[0] = "mutated-after-get"

	again, _, _ := table.Get(ctx, "k")
	if again.Items[0] != "x" {
		t.Errorf("stored value aliased caller memory: %+v", again)
	}
}

func TestFileTable_RemoveMissing(t *testing.T) {
	table, _ := newFileTable(t)

	err := table.Remove(context.Background(), "nope")
	if !model.IsNotFound(err) {
		t.Fatalf("Remove() error = %v, want NOT_FOUND", err)
	}
}

func TestFileTable_FailedRenameLeavesFileAndMemoryIntact(t *testing.T) {
	table, path := newFileTable(t)
	ctx := context.Background()

	if err := table.Put(ctx, "keep", record{Name: "committed"}); err != nil {
		t.Fatalf("Put() error: %v", err)
	}
	before, _ := os.ReadFile(path)

	table.rename = func(string, string) error { return errors.New("disk full") }

	if err := table.Put(ctx, "lost", record{Name: "uncommitted"}); err == nil {
		t.Fatal("Put() should fail when rename fails")
	}
	if err := table.Remove(ctx, "keep"); err == nil {
		t.Fatal("Remove() should fail when rename fails")
	}

	after, _ := os.ReadFile(path)
	if string(before) != string(after) {
		t.Errorf("canonical file changed after failed writes:\nbefore: %s\nafter:  %s", before, after)
	}
	if _, ok, _ := table.Get(ctx, "lost"); ok {
		t.Error("failed Put must not be visible in memory")
	}
	if _, ok, _ := table.Get(ctx, "keep"); !ok {
		t.Error("failed Remove must not be visible in memory")
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temp file %s left behind", e.Name())
		}
	}
}

func TestFileTable_Reload(t *testing.T) {
	table, path := newFileTable(t)
	ctx := context.Background()

	if err := os.WriteFile(path, []byte(`{"ext":{"name":"external"}}`), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	if err := table.Reload(ctx); err != nil {
		t.Fatalf("Reload() error: %v", err)
	}
	got, ok, _ := table.Get(ctx, "ext")
	if !ok || got.Name != "external" {
		t.Errorf("Get(ext) = %+v, %v after reload", got, ok)
	}
}

func TestFileTable_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "answers.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	if _, err := NewFileTable[record](path); err == nil {
		t.Fatal("NewFileTable() should fail on a corrupt file")
	}
}

func TestFileTable_SubmissionWithIntegerUserID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "submissions.json")
	raw := `{"1a2b3c4d":{"id":"1a2b3c4d","user_id":123456789012345678,"epoch":1700000000,` +
		`"questions":[{"title":"Class?","type":"multiple_choice","choices":["GT3","GT4"],"answer":"GT3"}]}}`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	table, err := NewFileTable[model.Submission](path)
	if err != nil {
		t.Fatalf("NewFileTable() error: %v", err)
	}
	sub, ok, err := table.Get(context.Background(), "1a2b3c4d")
	if err != nil || !ok {
		t.Fatalf("Get() = %v, %v; want record", ok, err)
	}
	if sub.UserID != "123456789012345678" || sub.Answers()[0] != "GT3" {
		t.Errorf("Get() = %+v", sub)
	}
}

func TestFileTable_NullFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "answers.json")
	if err := os.WriteFile(path, []byte("null"), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	table, err := NewFileTable[record](path)
	if err != nil {
		t.Fatalf("NewFileTable() error: %v", err)
	}
	if err := table.Put(context.Background(), "k", record{}); err != nil {
		t.Errorf("Put() error: %v", err)
	}
}

func TestFileTable_CancelledContext(t *testing.T) {
	table, _ := newFileTable(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := table.Put(ctx, "k", record{}); !errors.Is(err, context.Canceled) {
		t.Errorf("Put() error = %v, want context.Canceled", err)
	}
}

func TestFileTable_HealthCheck(t *testing.T) {
	table, _ := newFileTable(t)
	if err := table.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error: %v", err)
	}
}
