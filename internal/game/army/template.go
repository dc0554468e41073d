package army

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/skirmish/internal/game/dice"
)

// Template is a catalog entry from which units are cloned.
type Template struct {
	ID             string             `yaml:"id"`
	Name           string             `yaml:"name"`
	Type           string             `yaml:"type"`
	Health         int                `yaml:"health"`
	BaseAttack     int                `yaml:"base_attack"`
	Cost           int                `yaml:"cost"`
	AttackType     string             `yaml:"attack_type"`
	AttackBonuses  map[string]float64 `yaml:"attack_bonuses"`
	DefenceBonuses map[string]float64 `yaml:"defence_bonuses"`
	Speed          int                `yaml:"speed"`
	Damage         string             `yaml:"damage"`
	// Program is "melee", "ranged" or "script:<name>". Empty means melee.
	Program string `yaml:"program"`
}

// Efficiency is (BaseAttack + Health) / Cost.
//
// Precondition: Cost > 0.
func (t *Template) Efficiency() float64 {
	return float64(t.BaseAttack+t.Health) / float64(t.Cost)
}

// Validate checks the template's invariants.
//
// Postcondition: Returns nil iff every field is usable by the assembler.
func (t *Template) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("unit template: id must not be empty")
	}
	if t.Name == "" {
		return fmt.Errorf("unit template %q: name must not be empty", t.ID)
	}
	if t.Type == "" {
		return fmt.Errorf("unit template %q: type must not be empty", t.ID)
	}
	if t.Health < 1 {
		return fmt.Errorf("unit template %q: health must be >= 1", t.ID)
	}
	if t.BaseAttack < 0 {
		return fmt.Errorf("unit template %q: base_attack must be >= 0", t.ID)
	}
	if t.Cost < 1 {
		return fmt.Errorf("unit template %q: cost must be >= 1", t.ID)
	}
	if t.Speed < 0 {
		return fmt.Errorf("unit template %q: speed must be >= 0", t.ID)
	}
	if t.Damage != "" {
		if _, err := dice.Parse(t.Damage); err != nil {
			return fmt.Errorf("unit template %q: %w", t.ID, err)
		}
	}
	for k, v := range t.DefenceBonuses {
		if v <= 0 {
			return fmt.Errorf("unit template %q: defence bonus %q must be > 0", t.ID, k)
		}
	}
	switch {
	case t.Program == "", t.Program == ProgramMelee, t.Program == ProgramRanged:
	case strings.HasPrefix(t.Program, ProgramScriptPrefix) && len(t.Program) > len(ProgramScriptPrefix):
	default:
		return fmt.Errorf("unit template %q: unknown program %q", t.ID, t.Program)
	}
	return nil
}

// Program kinds understood by the combat package.
const (
	ProgramMelee        = "melee"
	ProgramRanged       = "ranged"
	ProgramScriptPrefix = "script:"
)

// LoadTemplateFromBytes parses a single unit template from YAML.
func LoadTemplateFromBytes(data []byte) (*Template, error) {
	var tmpl Template
	if err := yaml.Unmarshal(data, &tmpl); err != nil {
		return nil, fmt.Errorf("parsing template YAML: %w", err)
	}
	if err := tmpl.Validate(); err != nil {
		return nil, err
	}
	return &tmpl, nil
}

// LoadTemplates reads every *.yaml file in dir, sorted by file name.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns all templates or the first parse/validate error.
// Duplicate IDs are rejected.
func LoadTemplates(dir string) ([]*Template, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading unit dir %q: %w", dir, err)
	}

	seen := make(map[string]string)
	var templates []*Template
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		tmpl, err := LoadTemplateFromBytes(data)
		if err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
		if prev, dup := seen[tmpl.ID]; dup {
			return nil, fmt.Errorf("loading %q: duplicate template id %q (first in %q)", path, tmpl.ID, prev)
		}
		seen[tmpl.ID] = path
		templates = append(templates, tmpl)
	}
	return templates, nil
}
