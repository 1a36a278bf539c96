// hexsnap inspects world snapshots and moves tile tables between snapshot
// files and the database.
//
// Usage:
//
//	go run ./cmd/hexsnap <command> [-config path] [-snap path] [-out path] [-tiles]
//
// Commands: info, dump, import, export
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/hexworld/engine/internal/config"
	"github.com/hexworld/engine/internal/persist"
	"github.com/hexworld/engine/internal/snapshot"
)

type options struct {
	config string
	snap   string
	out    string
	tiles  bool
}

func printUsage() {
	fmt.Println("Usage: hexsnap <command> [-config path] [-snap path] [-out path] [-tiles]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  info    Print the snapshot header")
	fmt.Println("  dump    Write a YAML summary of the snapshot (-tiles lists every tile)")
	fmt.Println("  import  Copy the snapshot's tile table into the configured database")
	fmt.Println("  export  Write the database's tile table for the configured seed to -snap")
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	cmd := os.Args[1]
	if cmd == "-h" || cmd == "--help" || cmd == "help" {
		printUsage()
		return
	}

	var o options
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	fs.StringVar(&o.config, "config", "config/hexworld.toml", "engine config file")
	fs.StringVar(&o.snap, "snap", "", "snapshot file (default: snapshot.path from config)")
	fs.StringVar(&o.out, "out", "", "YAML output file for dump (default: stdout)")
	fs.BoolVar(&o.tiles, "tiles", false, "list every tile in dump")
	_ = fs.Parse(os.Args[2:])

	commands := map[string]func(options) error{
		"info":   cmdInfo,
		"dump":   cmdDump,
		"import": cmdImport,
		"export": cmdExport,
	}
	fn, ok := commands[cmd]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
	if err := fn(o); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

// snapPath falls back to the configured snapshot path when -snap is empty.
func snapPath(o options) (string, error) {
	if o.snap != "" {
		return o.snap, nil
	}
	cfg, err := config.Load(o.config)
	if err != nil {
		return "", err
	}
	if cfg.Snapshot.Path == "" {
		return "", errors.New("no -snap given and snapshot.path is empty")
	}
	return cfg.Snapshot.Path, nil
}

func cmdInfo(o options) error {
	path, err := snapPath(o)
	if err != nil {
		return err
	}
	h, err := snapshot.ReadHeader(path)
	if err != nil {
		return err
	}
	fmt.Printf("file:       %s\n", path)
	fmt.Printf("version:    %d\n", h.Version)
	fmt.Printf("world:      %s\n", h.World)
	fmt.Printf("seed:       %d\n", h.Seed)
	fmt.Printf("resolution: %d\n", h.Resolution)
	fmt.Printf("tiles:      %d\n", h.Tiles)
	fmt.Printf("tick:       %d\n", h.Tick)
	fmt.Printf("saved at:   %s\n", h.SavedAt.Format(time.RFC3339))
	return nil
}

func cmdDump(o options) error {
	path, err := snapPath(o)
	if err != nil {
		return err
	}
	h, t, err := snapshot.Read(path)
	if err != nil {
		return err
	}
	out, err := yaml.Marshal(buildDump(h, t, o.tiles))
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if o.out == "" {
		_, err = os.Stdout.Write(out)
		return err
	}
	if err := os.WriteFile(o.out, out, 0o644); err != nil {
		return err
	}
	fmt.Printf("Wrote %d tiles to %s\n", len(t.Entries), o.out)
	return nil
}

func openRepo(ctx context.Context, cfg *config.Config) (persist.TileRepo, error) {
	repo, err := persist.Open(ctx, cfg.Database, zap.NewNop())
	if err != nil {
		return nil, err
	}
	if repo == nil {
		return nil, errors.New("database.driver is none")
	}
	return repo, nil
}

func cmdImport(o options) error {
	cfg, err := config.Load(o.config)
	if err != nil {
		return err
	}
	if o.snap == "" {
		o.snap = cfg.Snapshot.Path
	}
	_, t, err := snapshot.Read(o.snap)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	repo, err := openRepo(ctx, cfg)
	if err != nil {
		return err
	}
	defer repo.Close()
	if err := repo.Save(ctx, t); err != nil {
		return err
	}
	fmt.Printf("Imported %d tiles (seed %d) into %s\n", len(t.Entries), t.Seed, cfg.Database.Driver)
	return nil
}

func cmdExport(o options) error {
	cfg, err := config.Load(o.config)
	if err != nil {
		return err
	}
	if o.snap == "" {
		o.snap = cfg.Snapshot.Path
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	repo, err := openRepo(ctx, cfg)
	if err != nil {
		return err
	}
	defer repo.Close()
	t, err := repo.Load(ctx, cfg.World.NoiseSeed())
	if err != nil {
		return err
	}
	h := snapshot.Header{World: cfg.World.Name, SavedAt: time.Now()}
	if err := snapshot.Write(o.snap, h, t); err != nil {
		return err
	}
	fmt.Printf("Exported %d tiles to %s\n", len(t.Entries), o.snap)
	return nil
}
