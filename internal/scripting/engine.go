package scripting

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/l1jgo/universe/internal/core/ecs"
	"github.com/l1jgo/universe/internal/universe"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM driving the universe from scripts.
// Single-goroutine access only: scripts, request callbacks and entity
// commands all run on the tick goroutine.
type Engine struct {
	vm   *lua.LState
	u    *universe.Universe
	host HostView
	log  *zap.Logger
}

// HostView is the read side of the host scripts may inspect.
// universe.WorldHost implements it.
type HostView interface {
	IsActive(h ecs.Handle) bool
	Tags(h ecs.Handle) map[string]string
}

// NewEngine creates a Lua engine bound to u and loads all scripts from the
// given directory, then its commands/ and world/ subdirectories. host may be
// nil, in which case scripts see no host state.
func NewEngine(scriptsDir string, u *universe.Universe, host HostView, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	vm.SetGlobal("API_VERSION", lua.LNumber(1))
	vm.SetGlobal("commands", vm.NewTable())

	e := &Engine{vm: vm, u: u, host: host, log: log}
	e.registerAPI()

	if err := e.loadDir(scriptsDir); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load scripts: %w", err)
	}
	for _, sub := range []string{"commands", "world"} {
		p := filepath.Join(scriptsDir, sub)
		if err := e.loadDir(p); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load %s scripts: %w", sub, err)
		}
	}

	return e, nil
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
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

func (e *Engine) registerAPI() {
	mod := e.vm.NewTable()
	e.vm.SetFuncs(mod, map[string]lua.LGFunction{
		"chunk_op":  e.luaChunkOp,
		"entity_op": e.luaEntityOp,
		"stats":     e.luaStats,
		"roots":     e.luaRoots,
		"chunk":     e.luaChunk,
		"log":       e.luaLog,
	})
	e.vm.SetGlobal("universe", mod)
}

// Tick calls the global on_tick(tick) hook if a script defined one.
func (e *Engine) Tick(tick uint64) {
	fn, ok := e.vm.GetGlobal("on_tick").(*lua.LFunction)
	if !ok {
		return
	}
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, lua.LNumber(tick)); err != nil {
		e.log.Error("lua on_tick error", zap.Uint64("tick", tick), zap.Error(err))
	}
}

// HasCommand reports whether commands.<name> is a function.
func (e *Engine) HasCommand(name string) bool {
	_, ok := e.command(name)
	return ok
}

func (e *Engine) command(name string) (*lua.LFunction, bool) {
	cmds, ok := e.vm.GetGlobal("commands").(*lua.LTable)
	if !ok {
		return nil, false
	}
	fn, ok := cmds.RawGetString(name).(*lua.LFunction)
	return fn, ok
}

// Command adapts commands.<name> to an entity command. The Lua function
// receives an entity table and fails the command by returning false or an
// error message string.
func (e *Engine) Command(name string) universe.EntityCommand {
	return func(cmd universe.HostCommand) error {
		fn, ok := e.command(name)
		if !ok {
			return fmt.Errorf("lua command %q not defined", name)
		}
		if err := e.vm.CallByParam(lua.P{
			Fn:      fn,
			NRet:    1,
			Protect: true,
		}, e.entityTable(cmd)); err != nil {
			return fmt.Errorf("lua command %s: %w", name, err)
		}
		ret := e.vm.Get(-1)
		e.vm.Pop(1)
		switch v := ret.(type) {
		case lua.LString:
			return errors.New(string(v))
		case lua.LBool:
			if !bool(v) {
				return fmt.Errorf("lua command %s returned false", name)
			}
		}
		return nil
	}
}

func (e *Engine) entityTable(cmd universe.HostCommand) *lua.LTable {
	t := e.vm.NewTable()
	t.RawSetString("id", lua.LString(cmd.Entity.String()))
	t.RawSetString("local_id", lua.LNumber(cmd.Entity.Local))
	t.RawSetString("chunk", e.pathTable(cmd.Entity.Chunk))
	t.RawSetString("tags", e.tagTable(cmd.Handle))
	t.RawSetString("set_tag", e.vm.NewFunction(func(L *lua.LState) int {
		cmd.Host.SetTag(cmd.Handle, L.CheckString(1), L.CheckString(2))
		return 0
	}))
	return t
}

// luaChunkOp implements universe.chunk_op(kind, args [, cb]). It queues a
// single-operation request and returns its id. cb(ok, err, id) runs when
// the request is processed.
func (e *Engine) luaChunkOp(L *lua.LState) int {
	name := L.CheckString(1)
	kind, ok := universe.ParseChunkOperationKind(name)
	if !ok {
		L.ArgError(1, "unknown chunk operation "+name)
		return 0
	}
	args := L.OptTable(2, L.NewTable())
	cb := L.OptFunction(3, nil)

	op, err := chunkOpFromArgs(kind, args)
	if err != nil {
		L.ArgError(2, err.Error())
		return 0
	}
	if cb != nil {
		op = op.WithCallbacks(
			func(id universe.ChunkID) { e.callback(cb, lua.LTrue, lua.LNil, lua.LString(id.String())) },
			func(err error) { e.callback(cb, lua.LFalse, lua.LString(err.Error()), lua.LNil) },
		)
	}
	req := universe.NewChunkOperationRequest(op)
	if err := e.u.SendChunkOperationRequest(req); err != nil {
		L.RaiseError("send chunk request: %v", err)
		return 0
	}
	L.Push(lua.LString(req.ID.String()))
	return 1
}

// luaEntityOp implements universe.entity_op(kind, args [, cb]).
func (e *Engine) luaEntityOp(L *lua.LState) int {
	name := L.CheckString(1)
	kind, ok := universe.ParseEntityOperationKind(name)
	if !ok {
		L.ArgError(1, "unknown entity operation "+name)
		return 0
	}
	args := L.OptTable(2, L.NewTable())
	cb := L.OptFunction(3, nil)

	op, err := e.entityOpFromArgs(kind, args)
	if err != nil {
		L.ArgError(2, err.Error())
		return 0
	}
	if cb != nil {
		op = op.WithCallbacks(
			func(id universe.EntityID) { e.callback(cb, lua.LTrue, lua.LNil, lua.LString(id.String())) },
			func(err error) { e.callback(cb, lua.LFalse, lua.LString(err.Error()), lua.LNil) },
		)
	}
	req := universe.NewEntityOperationRequest(op)
	if err := e.u.SendEntityOperationRequest(req); err != nil {
		L.RaiseError("send entity request: %v", err)
		return 0
	}
	L.Push(lua.LString(req.ID.String()))
	return 1
}

func (e *Engine) luaStats(L *lua.LState) int {
	s := e.u.Stats()
	t := L.NewTable()
	t.RawSetString("chunks", lua.LNumber(s.Chunks))
	t.RawSetString("entities", lua.LNumber(s.Entities))
	t.RawSetString("spawned_chunks", lua.LNumber(s.SpawnedChunks))
	t.RawSetString("spawned_entities", lua.LNumber(s.SpawnedEntities))
	L.Push(t)
	return 1
}

// luaRoots implements universe.roots(): root chunk paths in local id order.
func (e *Engine) luaRoots(L *lua.LState) int {
	out := L.NewTable()
	for _, id := range e.u.RootChunkIDs() {
		out.Append(e.pathTable(id))
	}
	L.Push(out)
	return 1
}

// luaChunk implements universe.chunk(path). It returns nil for an
// unregistered chunk, otherwise a snapshot table; children and entities are
// only present once data is loaded.
func (e *Engine) luaChunk(L *lua.LState) int {
	id, err := pathToChunkID(L.CheckTable(1), "path")
	if err != nil {
		L.ArgError(1, err.Error())
		return 0
	}
	c, ok := e.u.GetRegisteredChunk(id)
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	snap := c.Snapshot()

	t := L.NewTable()
	t.RawSetString("id", lua.LString(snap.ID.String()))
	t.RawSetString("path", e.pathTable(snap.ID))
	t.RawSetString("stage", lua.LString(snap.Stage.String()))
	t.RawSetString("name", lua.LString(snap.Metadata.Name))
	if e.host != nil {
		t.RawSetString("active", lua.LBool(e.host.IsActive(snap.Handle)))
	}
	if snap.Data != nil {
		t.RawSetString("leaf", lua.LBool(snap.Data.Leaf))
		t.RawSetString("run_state", lua.LString(snap.RunState.String()))
		kids := L.NewTable()
		for _, k := range snap.ChildChunks {
			kids.Append(e.pathTable(k))
		}
		t.RawSetString("children", kids)
		ents := L.NewTable()
		for _, id := range snap.Entities {
			ents.Append(lua.LNumber(id.Local))
		}
		t.RawSetString("entities", ents)
	}
	L.Push(t)
	return 1
}

func (e *Engine) pathTable(id universe.ChunkID) *lua.LTable {
	t := e.vm.NewTable()
	for _, l := range id.Path() {
		t.Append(lua.LNumber(l))
	}
	return t
}

// tagTable copies the tags currently on h; empty without a host view.
func (e *Engine) tagTable(h ecs.Handle) *lua.LTable {
	t := e.vm.NewTable()
	if e.host == nil {
		return t
	}
	for k, v := range e.host.Tags(h) {
		t.RawSetString(k, lua.LString(v))
	}
	return t
}

func (e *Engine) luaLog(L *lua.LState) int {
	e.log.Info("lua", zap.String("msg", L.CheckString(1)))
	return 0
}

func (e *Engine) callback(fn *lua.LFunction, args ...lua.LValue) {
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, args...); err != nil {
		e.log.Error("lua request callback error", zap.Error(err))
	}
}

func chunkOpFromArgs(kind universe.ChunkOperationKind, t *lua.LTable) (universe.ChunkOperation, error) {
	switch kind {
	case universe.ChunkRegisterRoot:
		if lBool(t, "auto") {
			return universe.RegisterRootChunkAutoOp(), nil
		}
		local, err := lLocal(t)
		if err != nil {
			return universe.ChunkOperation{}, err
		}
		return universe.RegisterRootChunkOp(universe.LocalChunkID(local)), nil
	case universe.ChunkRegister:
		parent, err := lChunkPath(t, "parent")
		if err != nil {
			return universe.ChunkOperation{}, err
		}
		if lBool(t, "auto") {
			return universe.RegisterChunkAutoOp(parent), nil
		}
		local, err := lLocal(t)
		if err != nil {
			return universe.ChunkOperation{}, err
		}
		return universe.RegisterChunkOp(parent, universe.LocalChunkID(local)), nil
	}

	id, err := lChunkPath(t, "id")
	if err != nil {
		return universe.ChunkOperation{}, err
	}
	switch kind {
	case universe.ChunkUnregister:
		return universe.UnregisterChunkOp(id), nil
	case universe.ChunkLoadMetadata:
		return universe.LoadChunkMetadataOp(id, universe.ChunkMetadata{
			Name:       lStr(t, "name"),
			Properties: lStringMap(t, "metadata"),
		}), nil
	case universe.ChunkUnloadMetadata:
		return universe.UnloadChunkMetadataOp(id), nil
	case universe.ChunkLoadData:
		return universe.LoadChunkDataOp(id, universe.ChunkData{
			Leaf:       lBool(t, "leaf"),
			Properties: lStringMap(t, "properties"),
		}), nil
	case universe.ChunkUnloadData:
		return universe.UnloadChunkDataOp(id), nil
	case universe.ChunkSpawn:
		return universe.SpawnChunkOp(id), nil
	case universe.ChunkDespawn:
		return universe.DespawnChunkOp(id), nil
	}
	return universe.ChunkOperation{}, fmt.Errorf("unsupported chunk operation %s", kind)
}

func (e *Engine) entityOpFromArgs(kind universe.EntityOperationKind, t *lua.LTable) (universe.EntityOperation, error) {
	chunk, err := lChunkPath(t, "chunk")
	if err != nil {
		return universe.EntityOperation{}, err
	}
	if kind == universe.EntityRegister && lBool(t, "auto") {
		return universe.RegisterEntityAutoOp(chunk), nil
	}
	local, err := lLocal(t)
	if err != nil {
		return universe.EntityOperation{}, err
	}
	id := universe.NewEntityID(chunk, universe.LocalEntityID(local))

	switch kind {
	case universe.EntityRegister:
		return universe.RegisterEntityOp(id), nil
	case universe.EntityUnregister:
		return universe.UnregisterEntityOp(id), nil
	case universe.EntityLoadMetadata:
		return universe.LoadEntityMetadataOp(id, universe.EntityMetadata{
			Name:       lStr(t, "name"),
			Properties: lStringMap(t, "metadata"),
		}), nil
	case universe.EntityUnloadMetadata:
		return universe.UnloadEntityMetadataOp(id), nil
	case universe.EntityLoadData:
		return universe.LoadEntityDataOp(id, universe.EntityData{
			Properties: lStringMap(t, "properties"),
		}), nil
	case universe.EntityUnloadData:
		return universe.UnloadEntityDataOp(id), nil
	case universe.EntitySpawn:
		return universe.SpawnEntityOp(id), nil
	case universe.EntityDespawn:
		return universe.DespawnEntityOp(id), nil
	case universe.EntityCommandOp:
		name := lStr(t, "command")
		if name == "" {
			return universe.EntityOperation{}, errors.New("command name required")
		}
		return universe.CommandEntityOp(id, e.Command(name)), nil
	}
	return universe.EntityOperation{}, fmt.Errorf("unsupported entity operation %s", kind)
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}

// --- Lua helpers ---

// lStr reads a string field from a Lua table.
func lStr(t *lua.LTable, key string) string {
	if v := t.RawGetString(key); v != lua.LNil {
		return lua.LVAsString(v)
	}
	return ""
}

func lBool(t *lua.LTable, key string) bool {
	return lua.LVAsBool(t.RawGetString(key))
}

// lStringMap reads a table of string values, nil when absent.
func lStringMap(t *lua.LTable, key string) map[string]string {
	sub, ok := t.RawGetString(key).(*lua.LTable)
	if !ok {
		return nil
	}
	out := make(map[string]string)
	sub.ForEach(func(k, v lua.LValue) {
		out[lua.LVAsString(k)] = lua.LVAsString(v)
	})
	return out
}

// lLocal reads local_id as a 32-bit local identifier.
func lLocal(t *lua.LTable) (uint32, error) {
	n, ok := t.RawGetString("local_id").(lua.LNumber)
	if !ok {
		return 0, errors.New("local_id required")
	}
	return toLocal(n)
}

func toLocal(n lua.LNumber) (uint32, error) {
	f := float64(n)
	if f != math.Trunc(f) || f < 0 || f > math.MaxUint32 {
		return 0, fmt.Errorf("local id %v out of range", f)
	}
	return uint32(f), nil
}

// lChunkPath reads an array of local ids under key as a chunk id.
func lChunkPath(t *lua.LTable, key string) (universe.ChunkID, error) {
	arr, ok := t.RawGetString(key).(*lua.LTable)
	if !ok {
		return universe.ChunkID{}, fmt.Errorf("%s must be a non-empty array of local ids", key)
	}
	return pathToChunkID(arr, key)
}

func pathToChunkID(arr *lua.LTable, key string) (universe.ChunkID, error) {
	if arr.Len() == 0 {
		return universe.ChunkID{}, fmt.Errorf("%s must be a non-empty array of local ids", key)
	}
	path := make([]universe.LocalChunkID, 0, arr.Len())
	for i := 1; i <= arr.Len(); i++ {
		n, ok := arr.RawGetInt(i).(lua.LNumber)
		if !ok {
			return universe.ChunkID{}, fmt.Errorf("%s[%d] is not a number", key, i)
		}
		l, err := toLocal(n)
		if err != nil {
			return universe.ChunkID{}, err
		}
		path = append(path, universe.LocalChunkID(l))
	}
	return universe.ChunkIDFromPath(path), nil
}
