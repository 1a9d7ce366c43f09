// Package loader runs Lua and JavaScript scripts against an engine. The
// script VMs stay alive after loading because scheduled actions call back
// into them on every tick.
package loader

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dop251/goja"
	lua "github.com/yuin/gopher-lua"

	"github.com/nathoo/tickwork/engine"
	"github.com/nathoo/tickwork/engine/scheduler"
)

// Runtime owns the script VMs bound to one engine.
type Runtime struct {
	// Files lists the scripts that ran, in load order.
	Files []string

	eng    *engine.Engine
	logger *slog.Logger

	lua        *lua.LState
	luaActions map[scheduler.ID]*lua.LUserData

	js        *goja.Runtime
	jsActions map[scheduler.ID]*goja.Object
	jsByObj   map[*goja.Object]*scheduler.Action
}

// New creates a runtime with both VMs ready and no scripts run.
func New(eng *engine.Engine, logger *slog.Logger) (*Runtime, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	r := &Runtime{
		eng:        eng,
		logger:     logger,
		luaActions: map[scheduler.ID]*lua.LUserData{},
		jsActions:  map[scheduler.ID]*goja.Object{},
		jsByObj:    map[*goja.Object]*scheduler.Action{},
	}

	// Create sandboxed VM.
	r.lua = lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibs(r.lua)
	sandbox(r.lua)
	r.registerLua()

	r.js = goja.New()
	r.js.SetFieldNameMapper(goja.UncapFieldNameMapper())
	if err := r.registerJS(); err != nil {
		r.Close()
		return nil, fmt.Errorf("registering script API: %w", err)
	}

	return r, nil
}

// Load runs every .lua and .js file in dir: main.lua and main.js first, the
// rest alphabetically.
func Load(dir string, eng *engine.Engine, logger *slog.Logger) (*Runtime, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading scripts directory %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".lua", ".js":
			files = append(files, e.Name())
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .lua or .js files found in %s", dir)
	}

	r, err := New(eng, logger)
	if err != nil {
		return nil, err
	}
	for _, f := range sortedScripts(files) {
		src, err := os.ReadFile(filepath.Join(dir, f))
		if err != nil {
			r.Close()
			return nil, err
		}
		if err := r.Exec(f, string(src)); err != nil {
			r.Close()
			return nil, err
		}
	}
	return r, nil
}

// Exec runs one script. The language is chosen by the extension of name.
func (r *Runtime) Exec(name, src string) error {
	var err error
	switch {
	case strings.HasSuffix(name, ".lua"):
		err = r.lua.DoString(src)
	case strings.HasSuffix(name, ".js"):
		_, err = r.js.RunScript(name, src)
	default:
		return fmt.Errorf("%s: unsupported script type", name)
	}
	if err != nil {
		return fmt.Errorf("executing %s: %w", name, err)
	}
	r.Files = append(r.Files, name)
	r.logger.Debug("script loaded", "file", name)
	return nil
}

// Close releases the Lua VM. Actions still scheduled with script callbacks
// must not run afterwards.
func (r *Runtime) Close() {
	if r.lua != nil {
		r.lua.Close()
		r.lua = nil
	}
	if r.js != nil {
		r.js.Interrupt("runtime closed")
		r.js = nil
	}
}

// openSafeLibs opens only the safe subset of Lua standard libraries.
func openSafeLibs(L *lua.LState) {
	// Base library (print, type, tostring, tonumber, pairs, ipairs, etc.)
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
}

// sandbox removes dangerous globals and functions.
func sandbox(L *lua.LState) {
	dangerous := []string{
		"dofile", "loadfile", "load", "loadstring",
		"rawset", "rawget", "rawequal",
		"collectgarbage",
	}
	for _, name := range dangerous {
		L.SetGlobal(name, lua.LNil)
	}

	// Scripts draw from world.random so runs stay reproducible.
	if mathTbl := L.GetGlobal("math"); mathTbl != lua.LNil {
		if tbl, ok := mathTbl.(*lua.LTable); ok {
			tbl.RawSetString("randomseed", lua.LNil)
			tbl.RawSetString("random", lua.LNil)
		}
	}
}
