package artifact

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gdkds12/translatePDF/internal/types"
)

func TestStoreRoundTrip(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error: %v", err)
	}

	blocks := []types.Block{
		{ID: "p1_l1", PageNumber: 1, Text: "hello",
			BBox: types.BoundingBox{X: 1, Y: 2, Width: 3, Height: 0.2}},
	}
	if err := store.Save(0, StageBlocks, blocks); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	var loaded []types.Block
	ok, err := store.Load(0, StageBlocks, &loaded)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !ok {
		t.Fatal("Load() reported missing artifact")
	}
	if len(loaded) != 1 || loaded[0] != blocks[0] {
		t.Errorf("Load() = %+v, want %+v", loaded, blocks)
	}
}

func TestStoreMissingArtifact(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error: %v", err)
	}

	var loaded []types.Block
	ok, err := store.Load(7, StageUnits, &loaded)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if ok {
		t.Error("Load() claimed a missing artifact exists")
	}
}

func TestStoreCorruptArtifactTreatedAsAbsent(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error: %v", err)
	}

	path := filepath.Join(store.Dir(), "chunk_000_blocks.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	var loaded []types.Block
	ok, err := store.Load(0, StageBlocks, &loaded)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if ok {
		t.Error("corrupt artifact should read as absent")
	}
}

func TestStoreClear(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error: %v", err)
	}

	if err := store.Save(1, StageParagraphs, []types.Paragraph{{ID: "p"}}); err != nil {
		t.Fatal(err)
	}
	store.Clear(1)

	var loaded []types.Paragraph
	if ok, _ := store.Load(1, StageParagraphs, &loaded); ok {
		t.Error("Clear() left the artifact behind")
	}
}
