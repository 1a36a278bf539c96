// Package snapshot writes the discovered-tile table to a single compressed
// file: a JSON header line followed by a gob body, both inside zstd.
package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/hexworld/engine/internal/hex"
	"github.com/hexworld/engine/internal/tile"
)

const Version = 1

// ErrVersion is returned when a file was written by an incompatible version.
var ErrVersion = errors.New("unsupported snapshot version")

type Header struct {
	Version    int       `json:"version"`
	World      string    `json:"world"`
	Seed       int64     `json:"seed"`
	Resolution int32     `json:"resolution"`
	Tiles      int       `json:"tiles"`
	Tick       uint64    `json:"tick"`
	SavedAt    time.Time `json:"saved_at"`
}

type tileV1 struct {
	X, Y int32
	Data [tile.RecordSize]byte
}

type bodyV1 struct {
	Tiles []tileV1
}

// Write stores t at path. The file is written beside path and renamed into
// place, so a crash never leaves a truncated snapshot.
func Write(path string, h Header, t tile.Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := write(tmp, h, t); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func write(path string, h Header, t tile.Table) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	err = encode(enc, h, t)
	if cerr := enc.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	return f.Sync()
}

func encode(w io.Writer, h Header, t tile.Table) error {
	bw := bufio.NewWriterSize(w, 256*1024)

	h.Version = Version
	h.Seed = t.Seed
	h.Resolution = t.Resolution
	h.Tiles = len(t.Entries)
	hb, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("encode header: %w", err)
	}
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}

	body := bodyV1{Tiles: make([]tileV1, len(t.Entries))}
	for i, e := range t.Entries {
		body.Tiles[i] = tileV1{X: e.Hex.X, Y: e.Hex.Y, Data: e.Record.Bytes()}
	}
	if err := gob.NewEncoder(bw).Encode(&body); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	return bw.Flush()
}

// ReadHeader decodes only the header line.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()

	return readHeader(bufio.NewReader(dec))
}

func readHeader(br *bufio.Reader) (Header, error) {
	var h Header
	line, err := br.ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("decode header: %w", err)
	}
	if h.Version != Version {
		return h, fmt.Errorf("%w: %d", ErrVersion, h.Version)
	}
	return h, nil
}

// Read loads a snapshot written by Write.
func Read(path string) (Header, tile.Table, error) {
	var t tile.Table
	f, err := os.Open(path)
	if err != nil {
		return Header{}, t, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return Header{}, t, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)
	h, err := readHeader(br)
	if err != nil {
		return h, t, err
	}

	var body bodyV1
	if err := gob.NewDecoder(br).Decode(&body); err != nil {
		return h, t, fmt.Errorf("gob decode: %w", err)
	}
	if len(body.Tiles) != h.Tiles {
		return h, t, fmt.Errorf("snapshot has %d tiles, header says %d", len(body.Tiles), h.Tiles)
	}

	t = tile.Table{Seed: h.Seed, Resolution: h.Resolution, Entries: make([]tile.Entry, len(body.Tiles))}
	for i, bt := range body.Tiles {
		t.Entries[i] = tile.Entry{
			Hex:    hex.Axial(bt.X, bt.Y),
			Record: tile.RecordFromBytes(bt.Data),
		}
	}
	return h, t, nil
}
