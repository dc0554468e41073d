package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// RegisterModules installs the engine table into L:
//
//	engine.roll(expr)  -> total of a dice expression, or nil on a bad expression
//	engine.log(msg)    -> writes msg to the manager's logger at debug level
func (m *Manager) RegisterModules(L *lua.LState, program string) {
	engine := L.NewTable()
	L.SetField(engine, "roll", L.NewFunction(func(L *lua.LState) int {
		res, err := m.roller.RollExpr(L.CheckString(1))
		if err != nil {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(lua.LNumber(res.Total()))
		return 1
	}))
	L.SetField(engine, "log", L.NewFunction(func(L *lua.LState) int {
		m.logger.Debug("lua", zap.String("program", program), zap.String("msg", L.CheckString(1)))
		return 0
	}))
	L.SetGlobal("engine", engine)
}

// UnitInfo is a snapshot of a unit handed to Lua callbacks.
type UnitInfo struct {
	Name       string
	Type       string
	Health     int
	MaxHealth  int
	BaseAttack int
	AttackType string
	X, Y       int
}

func (u UnitInfo) table(L *lua.LState) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("name", lua.LString(u.Name))
	t.RawSetString("type", lua.LString(u.Type))
	t.RawSetString("health", lua.LNumber(u.Health))
	t.RawSetString("max_health", lua.LNumber(u.MaxHealth))
	t.RawSetString("base_attack", lua.LNumber(u.BaseAttack))
	t.RawSetString("attack_type", lua.LString(u.AttackType))
	t.RawSetString("x", lua.LNumber(u.X))
	t.RawSetString("y", lua.LNumber(u.Y))
	return t
}
