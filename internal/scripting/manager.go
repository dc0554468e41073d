package scripting

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/dice"
)

// ChooseTargetHook is the Lua global a scripted program must define:
//
//	function choose_target(attacker, candidates) return index_or_nil end
const ChooseTargetHook = "choose_target"

// ErrUnknownProgram is returned when no VM is loaded under a program name.
var ErrUnknownProgram = errors.New("scripting: unknown program")

// Manager owns one sandboxed LState per scripted program.
//
// Each LState is single-threaded; calls to the same program are serialized.
type Manager struct {
	mu        sync.Mutex
	states    map[string]*lua.LState
	instLimit int
	roller    *dice.Roller
	logger    *zap.Logger
}

// NewManager creates a Manager with the given per-call opcode budget
// (0 = DefaultInstructionLimit).
//
// Precondition: roller and logger must be non-nil.
func NewManager(roller *dice.Roller, logger *zap.Logger, instLimit int) *Manager {
	return &Manager{
		states:    make(map[string]*lua.LState),
		instLimit: instLimit,
		roller:    roller,
		logger:    logger,
	}
}

// LoadDir loads every *.lua file in dir as its own program, named after the
// file stem ("berserker.lua" → "berserker"), in lexicographic order.
func (m *Manager) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("scripting: reading program dir %q: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	for _, name := range files {
		src, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("scripting: reading %q: %w", name, err)
		}
		if err := m.Load(strings.TrimSuffix(name, ".lua"), string(src)); err != nil {
			return err
		}
	}
	m.logger.Info("scripted programs loaded", zap.String("dir", dir), zap.Int("count", len(files)))
	return nil
}

// Load compiles src into a fresh VM registered as program, replacing any
// previous VM of the same name.
func (m *Manager) Load(program, src string) error {
	L := NewSandboxedState(m.instLimit)
	m.RegisterModules(L, program)
	if err := L.DoString(src); err != nil {
		L.Close()
		return fmt.Errorf("scripting: loading program %q: %w", program, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.states[program]; ok {
		old.Close()
	}
	m.states[program] = L
	return nil
}

// Has reports whether program is loaded.
func (m *Manager) Has(program string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.states[program]
	return ok
}

// ChooseTarget calls program's choose_target hook and returns the zero-based
// index of the chosen candidate. ok is false when the hook returns nil, a
// non-number, or an index outside the candidate list. Lua runtime errors,
// including an exhausted opcode budget, are returned to the caller.
func (m *Manager) ChooseTarget(program string, attacker UnitInfo, candidates []UnitInfo) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	L, ok := m.states[program]
	if !ok {
		return 0, false, fmt.Errorf("%w %q", ErrUnknownProgram, program)
	}
	fn := L.GetGlobal(ChooseTargetHook)
	if fn.Type() != lua.LTFunction {
		return 0, false, fmt.Errorf("scripting: program %q does not define %s", program, ChooseTargetHook)
	}

	list := L.NewTable()
	for _, c := range candidates {
		list.Append(c.table(L))
	}

	ResetBudget(L, m.instLimit)
	if err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, attacker.table(L), list); err != nil {
		return 0, false, fmt.Errorf("scripting: program %q: %w", program, err)
	}
	ret := L.Get(-1)
	L.Pop(1)

	n, isNum := ret.(lua.LNumber)
	if !isNum {
		return 0, false, nil
	}
	if f := float64(n); f != math.Trunc(f) {
		m.logger.Warn("scripted program chose non-integer target",
			zap.String("program", program),
			zap.Float64("index", f),
		)
		return 0, false, nil
	}
	idx := int(n) - 1
	if idx < 0 || idx >= len(candidates) {
		m.logger.Warn("scripted program chose out-of-range target",
			zap.String("program", program),
			zap.Int("index", int(n)),
			zap.Int("candidates", len(candidates)),
		)
		return 0, false, nil
	}
	return idx, true, nil
}

// Close releases every VM.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for name, L := range m.states {
		L.Close()
		delete(m.states, name)
	}
}
