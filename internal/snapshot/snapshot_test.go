package snapshot

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/hexworld/engine/internal/hex"
	"github.com/hexworld/engine/internal/tile"
)

func sampleTable(t *testing.T) tile.Table {
	t.Helper()
	gen, err := tile.NewGenerator(77, nil)
	if err != nil {
		t.Fatalf("generator: %v", err)
	}
	s := tile.NewStore(gen, 6)
	for _, h := range hex.Circle(hex.New(-3, 5, -2), 8) {
		s.Discover(h)
	}
	s.At(3).Faction = 1
	return s.Export()
}

func TestWriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saves", "world.snap")
	want := sampleTable(t)
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	if err := Write(path, Header{World: "test", Tick: 42, SavedAt: at}, want); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temporary file left behind: %v", err)
	}

	h, got, err := Read(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if h.Version != Version || h.World != "test" || h.Tick != 42 || !h.SavedAt.Equal(at) {
		t.Fatalf("header = %+v", h)
	}
	if h.Tiles != len(want.Entries) || got.Seed != want.Seed || got.Resolution != want.Resolution {
		t.Fatalf("header counts = %+v", h)
	}
	for i := range want.Entries {
		if got.Entries[i] != want.Entries[i] {
			t.Fatalf("entry %d: got %+v, want %+v", i, got.Entries[i], want.Entries[i])
		}
	}

	only, err := ReadHeader(path)
	if err != nil || only.Tiles != h.Tiles {
		t.Fatalf("read header: %+v, %v", only, err)
	}
}

func TestEmptyTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.snap")
	if err := Write(path, Header{}, tile.Table{Seed: 1, Resolution: 6}); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, got, err := Read(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got.Entries) != 0 || got.Seed != 1 {
		t.Fatalf("got %+v", got)
	}
}

func TestRejectsOtherVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "future.snap")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	enc, err := zstd.NewWriter(f)
	if err != nil {
		t.Fatalf("zstd: %v", err)
	}
	bw := bufio.NewWriter(enc)
	hb, _ := json.Marshal(Header{Version: Version + 1})
	bw.Write(append(hb, '\n'))
	bw.Flush()
	enc.Close()
	f.Close()

	if _, _, err := Read(path); !errors.Is(err, ErrVersion) {
		t.Fatalf("err = %v, want ErrVersion", err)
	}
	if _, err := ReadHeader(path); !errors.Is(err, ErrVersion) {
		t.Fatalf("header err = %v, want ErrVersion", err)
	}
}

func TestReadMissing(t *testing.T) {
	if _, _, err := Read(filepath.Join(t.TempDir(), "none.snap")); !os.IsNotExist(err) {
		t.Fatalf("err = %v", err)
	}
}
