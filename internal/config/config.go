// Package config provides Viper-based configuration loading for the battle
// simulator.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// BattleConfig holds board geometry and army generation settings.
type BattleConfig struct {
	GridWidth  int `mapstructure:"grid_width"`
	GridHeight int `mapstructure:"grid_height"`
	// DeployWidth is the number of edge columns each army deploys into.
	DeployWidth int `mapstructure:"deploy_width"`
	// FlankWidth is the number of edge columns melee units may engage.
	FlankWidth      int `mapstructure:"flank_width"`
	MaxUnitsPerType int `mapstructure:"max_units_per_type"`
	// PointBudget is the points each army may spend.
	PointBudget int `mapstructure:"point_budget"`
	// ActionDelay paces every attack; 0 runs the battle flat out.
	ActionDelay time.Duration `mapstructure:"action_delay"`
	// MaxRounds aborts a battle that runs too long; 0 means unlimited.
	MaxRounds int `mapstructure:"max_rounds"`
	// Seed makes army generation reproducible; 0 draws from crypto/rand.
	Seed uint64 `mapstructure:"seed"`
}

// ScriptingConfig holds Lua attack program settings.
type ScriptingConfig struct {
	// ProgramsDir is the directory of *.lua programs; empty disables scripting.
	ProgramsDir string `mapstructure:"programs_dir"`
	// InstructionLimit is the per-call opcode budget; 0 uses the default.
	InstructionLimit int `mapstructure:"instruction_limit"`
}

// ReportsConfig controls battle report persistence.
type ReportsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Config is the top-level application configuration.
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging"`
	Battle    BattleConfig    `mapstructure:"battle"`
	Scripting ScriptingConfig `mapstructure:"scripting"`
	Reports   ReportsConfig   `mapstructure:"reports"`
	Database  DatabaseConfig  `mapstructure:"database"`
}

// Validate checks all configuration invariants. Database settings are only
// checked when reports are enabled.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateBattle(c.Battle); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Scripting.InstructionLimit < 0 {
		errs = append(errs, fmt.Sprintf("scripting.instruction_limit must be >= 0, got %d", c.Scripting.InstructionLimit))
	}
	if c.Reports.Enabled {
		if err := validateDatabase(c.Database); err != nil {
			errs = append(errs, err.Error())
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateBattle(b BattleConfig) error {
	var errs []string
	if b.GridWidth < 1 {
		errs = append(errs, fmt.Sprintf("battle.grid_width must be >= 1, got %d", b.GridWidth))
	}
	if b.GridHeight < 1 {
		errs = append(errs, fmt.Sprintf("battle.grid_height must be >= 1, got %d", b.GridHeight))
	}
	if b.DeployWidth < 1 || 2*b.DeployWidth > b.GridWidth {
		errs = append(errs, fmt.Sprintf("battle.deploy_width must be 1-%d, got %d", b.GridWidth/2, b.DeployWidth))
	}
	if b.FlankWidth < 1 || b.FlankWidth > b.GridWidth {
		errs = append(errs, fmt.Sprintf("battle.flank_width must be 1-%d, got %d", b.GridWidth, b.FlankWidth))
	}
	if b.MaxUnitsPerType < 1 {
		errs = append(errs, fmt.Sprintf("battle.max_units_per_type must be >= 1, got %d", b.MaxUnitsPerType))
	}
	if b.PointBudget < 1 {
		errs = append(errs, fmt.Sprintf("battle.point_budget must be >= 1, got %d", b.PointBudget))
	}
	if b.ActionDelay < 0 {
		errs = append(errs, "battle.action_delay must not be negative")
	}
	if b.MaxRounds < 0 {
		errs = append(errs, fmt.Sprintf("battle.max_rounds must be >= 0, got %d", b.MaxRounds))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result. An empty path uses defaults and the
// environment only.
//
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := NewViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}
	return LoadFromViper(v)
}

// NewViper returns a Viper instance with defaults and SKIRMISH_ environment
// overrides applied.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("SKIRMISH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("battle.grid_width", 27)
	v.SetDefault("battle.grid_height", 21)
	v.SetDefault("battle.deploy_width", 3)
	v.SetDefault("battle.flank_width", 3)
	v.SetDefault("battle.max_units_per_type", 11)
	v.SetDefault("battle.point_budget", 1500)
	v.SetDefault("battle.action_delay", "0s")
	v.SetDefault("battle.max_rounds", 0)
	v.SetDefault("battle.seed", 0)

	v.SetDefault("scripting.programs_dir", "")
	v.SetDefault("scripting.instruction_limit", 0)

	v.SetDefault("reports.enabled", false)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "skirmish")
	v.SetDefault("database.password", "skirmish")
	v.SetDefault("database.name", "skirmish")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")
}
