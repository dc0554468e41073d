// Package scripting provides a sandboxed GopherLua environment for scripted
// attack programs. It has no dependency on game domain packages; unit state
// crosses the boundary as UnitInfo snapshots.
package scripting

import (
	"context"
	"sync/atomic"

	lua "github.com/yuin/gopher-lua"
)

// DefaultInstructionLimit is the maximum number of Lua opcodes a single
// program call may execute when no override is configured.
const DefaultInstructionLimit = 100_000

// countingContext cancels itself after Done() has been called limit times.
// GopherLua's main loop calls Done() once per opcode.
type countingContext struct {
	context.Context
	cancel    context.CancelFunc
	remaining *atomic.Int64
}

func (c *countingContext) Done() <-chan struct{} {
	if c.remaining.Add(-1) <= 0 {
		c.cancel()
	}
	return c.Context.Done()
}

func newCountingContext(limit int) (context.Context, context.CancelFunc) {
	base, cancel := context.WithCancel(context.Background())
	rem := &atomic.Int64{}
	rem.Store(int64(limit))
	return &countingContext{Context: base, cancel: cancel, remaining: rem}, cancel
}

// NewSandboxedState creates an LState with only base, table, string and math
// loaded, the file/loader globals removed, and an opcode budget of instLimit
// (0 = DefaultInstructionLimit) shared by everything run on it until the
// budget is reset with ResetBudget.
//
// Postcondition: the caller owns the LState and must Close it.
func NewSandboxedState(instLimit int) *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
	for _, name := range []string{"dofile", "loadfile", "load", "collectgarbage", "require"} {
		L.SetGlobal(name, lua.LNil)
	}
	ResetBudget(L, instLimit)
	return L
}

// ResetBudget installs a fresh opcode budget on L.
func ResetBudget(L *lua.LState, instLimit int) {
	if instLimit <= 0 {
		instLimit = DefaultInstructionLimit
	}
	ctx, _ := newCountingContext(instLimit) //nolint:govet // cancel fires when the budget is spent
	L.SetContext(ctx)
}
