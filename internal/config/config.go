// Package config loads the todo CLI configuration from JSONC files.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/natefinch/atomic"
	"github.com/tailscale/hujson"

	"github.com/calvinalkan/tododb/pkg/tododb"
)

// FileName is the project config file looked up in the working directory.
const FileName = ".todo.json"

// TraceEnv enables statement tracing when set to a true value.
const TraceEnv = "TODO_SQL_TRACE"

var (
	ErrFileNotFound = errors.New("config file not found")
	ErrFileRead     = errors.New("cannot read config file")
	ErrInvalid      = errors.New("invalid config file")
	ErrDBPathEmpty  = errors.New("db_path cannot be empty")
	ErrDriver       = errors.New("driver must be \"sqlite3\" or \"sqlite\"")
	ErrExists       = errors.New("config file already exists")
)

// Config holds all configuration options.
type Config struct {
	DBPath   string `json:"db_path"`
	Driver   string `json:"driver,omitempty"`
	SQLTrace bool   `json:"sql_trace,omitempty"`
	Demo     bool   `json:"demo,omitempty"`

	// Resolved (not serialized)
	EffectiveCwd string  `json:"-"`
	DBPathAbs    string  `json:"-"` // MemoryPath is kept as is
	Sources      Sources `json:"-"`
}

// Sources tracks which config files were loaded.
type Sources struct {
	Global  string
	Project string
}

// file is the on-disk shape. Pointers tell "unset" from "false".
type file struct {
	DBPath   *string `json:"db_path"`
	Driver   *string `json:"driver"`
	SQLTrace *bool   `json:"sql_trace"`
	Demo     *bool   `json:"demo"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DBPath: ".todo/todo.db",
		Driver: tododb.DriverCGO,
	}
}

// LoadInput holds the inputs for Load.
type LoadInput struct {
	WorkDirOverride string // -C/--cwd; os.Getwd() when empty
	ConfigPath      string // -c/--config
	DBPathOverride  string // --db
	Env             map[string]string
}

// Load resolves configuration with the following precedence (highest wins):
// 1. Defaults
// 2. Global user config ($XDG_CONFIG_HOME/todo/config.json or ~/.config/todo/config.json)
// 3. Project config (.todo.json, if present)
// 4. Explicit config file (-c)
// 5. Flags and environment.
func Load(input LoadInput) (Config, error) {
	workDir := input.WorkDirOverride
	if workDir == "" {
		var err error

		workDir, err = os.Getwd()
		if err != nil {
			return Config{}, fmt.Errorf("cannot get working directory: %w", err)
		}
	}

	cfg := Default()

	if path := globalPath(input.Env); path != "" {
		f, loaded, err := readFile(path, false)
		if err != nil {
			return Config{}, err
		}

		if loaded {
			cfg = merge(cfg, f)
			cfg.Sources.Global = path
		}
	}

	projectPath, mustExist := filepath.Join(workDir, FileName), false
	if input.ConfigPath != "" {
		projectPath, mustExist = input.ConfigPath, true
		if !filepath.IsAbs(projectPath) {
			projectPath = filepath.Join(workDir, projectPath)
		}
	}

	f, loaded, err := readFile(projectPath, mustExist)
	if err != nil {
		return Config{}, err
	}

	if loaded {
		cfg = merge(cfg, f)
		cfg.Sources.Project = projectPath
	}

	if input.DBPathOverride != "" {
		cfg.DBPath = input.DBPathOverride
	}

	if v, ok := input.Env[TraceEnv]; ok {
		on, parseErr := strconv.ParseBool(v)
		if parseErr != nil {
			return Config{}, fmt.Errorf("%s=%q: %w", TraceEnv, v, parseErr)
		}

		cfg.SQLTrace = on
	}

	err = cfg.Validate()
	if err != nil {
		return Config{}, err
	}

	cfg.EffectiveCwd = workDir

	switch {
	case cfg.DBPath == tododb.MemoryPath, filepath.IsAbs(cfg.DBPath):
		cfg.DBPathAbs = cfg.DBPath
	default:
		cfg.DBPathAbs = filepath.Join(workDir, cfg.DBPath)
	}

	return cfg, nil
}

// Validate checks the merged configuration.
func (c Config) Validate() error {
	if c.DBPath == "" {
		return ErrDBPathEmpty
	}

	if c.Driver != tododb.DriverCGO && c.Driver != tododb.DriverPure {
		return fmt.Errorf("%w, got %q", ErrDriver, c.Driver)
	}

	return nil
}

// Format renders the serializable part of c as indented JSON.
func Format(c Config) ([]byte, error) {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}

	return append(data, '\n'), nil
}

// Save writes c to path atomically. Unless overwrite is set, an existing
// file is left untouched and ErrExists is returned.
func Save(path string, c Config, overwrite bool) error {
	err := c.Validate()
	if err != nil {
		return err
	}

	if !overwrite {
		_, statErr := os.Stat(path)
		if statErr == nil {
			return fmt.Errorf("%w: %s", ErrExists, path)
		}
	}

	data, err := Format(c)
	if err != nil {
		return err
	}

	err = atomic.WriteFile(path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("writing config %s: %w", path, err)
	}

	return nil
}

func globalPath(env map[string]string) string {
	if xdg := env["XDG_CONFIG_HOME"]; xdg != "" {
		return filepath.Join(xdg, "todo", "config.json")
	}

	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".config", "todo", "config.json")
	}

	return ""
}

func readFile(path string, mustExist bool) (file, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if mustExist {
				return file{}, false, fmt.Errorf("%w: %s", ErrFileNotFound, path)
			}

			return file{}, false, nil
		}

		return file{}, false, fmt.Errorf("%w: %s: %w", ErrFileRead, path, err)
	}

	f, err := parse(data)
	if err != nil {
		return file{}, false, fmt.Errorf("%w %s: %w", ErrInvalid, path, err)
	}

	return f, true, nil
}

func parse(data []byte) (file, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return file{}, fmt.Errorf("invalid JSONC: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(standardized))
	dec.DisallowUnknownFields()

	var f file

	err = dec.Decode(&f)
	if err != nil {
		return file{}, fmt.Errorf("invalid JSON: %w", err)
	}

	if f.DBPath != nil && *f.DBPath == "" {
		return file{}, ErrDBPathEmpty
	}

	return f, nil
}

func merge(base Config, overlay file) Config {
	if overlay.DBPath != nil {
		base.DBPath = *overlay.DBPath
	}

	if overlay.Driver != nil {
		base.Driver = *overlay.Driver
	}

	if overlay.SQLTrace != nil {
		base.SQLTrace = *overlay.SQLTrace
	}

	if overlay.Demo != nil {
		base.Demo = *overlay.Demo
	}

	return base
}
