package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/hexworld/engine/internal/hex"
	"github.com/hexworld/engine/internal/tile"
)

// RuleFunc is the global a rule script defines to adjust generated tiles.
// Rules run in a VM without os, io, file loading or math.random, so a rule
// sees the same inputs every time a seed is regenerated.
const RuleFunc = "classify_tile"

// Engine wraps a single gopher-lua VM running tile rules.
// Single-goroutine access only: tiles are generated on the main goroutine.
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
	fn  lua.LValue

	calls  uint64
	errors uint64
}

// NewEngine creates a Lua engine and loads every .lua file in scriptsDir in
// name order. A missing directory yields an engine with no rule.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	vm := newVM()
	e := &Engine{vm: vm, log: log.With(zap.String("component", "scripting"))}
	if err := e.loadDir(scriptsDir); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load rule scripts: %w", err)
	}
	e.fn = vm.GetGlobal(RuleFunc)
	if e.fn.Type() != lua.LTFunction {
		e.fn = nil
		e.log.Info("no tile rule defined", zap.String("dir", scriptsDir))
	}
	return e, nil
}

// NewEngineFromString loads a single chunk of Lua source. Used by tests and
// for rules embedded in configuration.
func NewEngineFromString(src string, log *zap.Logger) (*Engine, error) {
	vm := newVM()
	if err := vm.DoString(src); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load rule: %w", err)
	}
	e := &Engine{vm: vm, log: log.With(zap.String("component", "scripting"))}
	if fn := vm.GetGlobal(RuleFunc); fn.Type() == lua.LTFunction {
		e.fn = fn
	}
	return e, nil
}

// newVM opens base, table, string and math only. Rules must be a pure
// function of the tile so the same seed regenerates the same world: no os, io
// or package, no file loading, and no math.random.
func newVM() *lua.LState {
	vm := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		vm.Push(vm.NewFunction(lib.open))
		vm.Push(lua.LString(lib.name))
		vm.Call(1, 0)
	}
	for _, name := range []string{"dofile", "loadfile", "require", "module"} {
		vm.SetGlobal(name, lua.LNil)
	}
	if m, ok := vm.GetGlobal(lua.MathLibName).(*lua.LTable); ok {
		m.RawSetString("random", lua.LNil)
		m.RawSetString("randomseed", lua.LNil)
	}

	vm.SetGlobal("API_VERSION", lua.LNumber(1))
	vm.SetGlobal("hex_distance", vm.NewFunction(luaHexDistance))
	return vm
}

func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// HasRule reports whether a classify_tile function was loaded.
func (e *Engine) HasRule() bool { return e.fn != nil }

// Apply implements tile.RuleHook. The rule receives a table with the tile's
// coordinates and generated fields and may return a table overriding biome,
// resource and abundance. Errors keep the generated record.
func (e *Engine) Apply(h hex.Hex, r tile.Record) tile.Record {
	if e.fn == nil {
		return r
	}
	e.calls++

	t := e.vm.NewTable()
	t.RawSetString("x", lua.LNumber(h.X))
	t.RawSetString("y", lua.LNumber(h.Y))
	t.RawSetString("z", lua.LNumber(h.Z))
	t.RawSetString("biome", lua.LString(r.Biome().String()))
	t.RawSetString("resource", lua.LString(r.Resource().String()))
	t.RawSetString("abundance", lua.LNumber(r.Abundance()))
	t.RawSetString("water", lua.LBool(r.IsWater()))

	if err := e.vm.CallByParam(lua.P{
		Fn:      e.fn,
		NRet:    1,
		Protect: true,
	}, t); err != nil {
		e.fail("lua classify_tile error", h, zap.Error(err))
		return r
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	if result == lua.LNil {
		return r
	}
	rt, ok := result.(*lua.LTable)
	if !ok {
		e.fail("lua classify_tile returned non-table", h, zap.String("type", result.Type().String()))
		return r
	}

	if v, ok := rt.RawGetString("biome").(lua.LString); ok {
		b, known := tile.BiomeByName(string(v))
		if !known {
			e.fail("lua classify_tile returned unknown biome", h, zap.String("biome", string(v)))
			return r
		}
		r.SetBiome(b)
	}
	if v, ok := rt.RawGetString("resource").(lua.LString); ok {
		k, known := tile.ResourceByName(string(v))
		if !known {
			e.fail("lua classify_tile returned unknown resource", h, zap.String("resource", string(v)))
			return r
		}
		r.SetResource(k)
	}
	if v, ok := rt.RawGetString("abundance").(lua.LNumber); ok {
		r.SetAbundance(abundanceTier(v))
	}
	return r
}

// abundanceTier clamps before narrowing so 300 maps to 4 rather than wrapping.
// NaN maps to 1.
func abundanceTier(v lua.LNumber) uint8 {
	f := float64(v)
	switch {
	case f >= 4:
		return 4
	case f > 1:
		return uint8(f)
	default:
		return 1
	}
}

func (e *Engine) fail(msg string, h hex.Hex, fields ...zap.Field) {
	e.errors++
	// one log line per failing tile would flood the console
	if e.errors <= 8 {
		e.log.Error(msg, append(fields, zap.Stringer("hex", h))...)
	}
}

// Calls and Errors count rule invocations since the engine was created.
func (e *Engine) Calls() uint64  { return e.calls }
func (e *Engine) Errors() uint64 { return e.errors }

func (e *Engine) Close() { e.vm.Close() }

// hex_distance(x1, y1, z1, x2, y2, z2)
func luaHexDistance(L *lua.LState) int {
	a := hex.Hex{X: int32(L.CheckInt(1)), Y: int32(L.CheckInt(2)), Z: int32(L.CheckInt(3))}
	b := hex.Hex{X: int32(L.CheckInt(4)), Y: int32(L.CheckInt(5)), Z: int32(L.CheckInt(6))}
	L.Push(lua.LNumber(hex.Distance(a, b)))
	return 1
}
