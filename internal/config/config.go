/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"mdrpy/internal/transpile"
)

// AppConfig is the configuration persisted as YAML, either in the user scope
// or next to a project. Environment variables are read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.

type BuildConfig struct {
	OutDir  string `yaml:"out_dir" json:"out_dir"` // empty: next to the source file
	Ext     string `yaml:"ext" json:"ext"`
	Workers int    `yaml:"workers" json:"workers"` // 0: one per CPU
	Backup  bool   `yaml:"backup" json:"backup"`   // keep a timestamped copy of replaced scripts
}

type CacheConfig struct {
	Disabled bool   `yaml:"disabled" json:"disabled"`
	DSN      string `yaml:"dsn" json:"dsn"` // empty: sqlite under the build root; postgres:// for a shared cache
}

type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	Source bool   `yaml:"source" json:"source"`
	File   string `yaml:"file" json:"file"`
}

type AppConfig struct {
	ConfigVersion int               `yaml:"config_version" json:"config_version"`
	Script        transpile.Options `yaml:"script" json:"script"`
	Build         BuildConfig       `yaml:"build" json:"build"`
	Cache         CacheConfig       `yaml:"cache" json:"cache"`
	Logging       LoggingConfig     `yaml:"logging" json:"logging"`
}

// ErrInvalidConfig is returned when a config file cannot be parsed or fails validation.
var ErrInvalidConfig = errors.New("invalid config")

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		Script:        transpile.DefaultOptions(),
		Build:         BuildConfig{OutDir: "", Ext: ".rpy", Workers: 0, Backup: false},
		Cache:         CacheConfig{Disabled: false, DSN: ""},
		Logging:       LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
	}
}

// Env var names used as overrides.
const (
	EnvCharacterDelim = "MDRPY_CHARACTER_DELIM"
	EnvOutDir         = "MDRPY_OUT_DIR"
	EnvWorkers        = "MDRPY_WORKERS"
	EnvCacheDSN       = "MDRPY_CACHE_DSN"
	EnvCacheDisabled  = "MDRPY_CACHE_DISABLED"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "MDRPY_LOG_LEVEL"
	EnvLogFormat = "MDRPY_LOG_FORMAT"
	EnvLogSource = "MDRPY_LOG_SOURCE"
	EnvLogFile   = "MDRPY_LOG_FILE"
)

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil || base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "mdrpy", "config.yaml"), nil
}

// Load reads the user config file (if present), then the explicit file (if
// path is not empty), applies environment overrides and validates the result.
// A broken user config is skipped; a broken explicit file is an error.
func Load(path string) (AppConfig, error) {
	cfg := Defaults()
	if userPath, err := ConfigPath(); err == nil {
		if data, err := os.ReadFile(userPath); err == nil {
			if fileCfg, set, err := decodeFile(data); err == nil {
				mergeInto(&cfg, &fileCfg, set)
			}
		}
	}
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		fileCfg, set, err := decodeFile(data)
		if err != nil {
			return cfg, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
		}
		mergeInto(&cfg, &fileCfg, set)
	}
	applyEnvOverrides(&cfg)
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// fileFlags records the boolean keys a config file sets explicitly, so a
// later file that omits them leaves earlier values alone.
type fileFlags struct {
	Build struct {
		Backup *bool `yaml:"backup"`
	} `yaml:"build"`
	Cache struct {
		Disabled *bool `yaml:"disabled"`
	} `yaml:"cache"`
	Logging struct {
		Source *bool `yaml:"source"`
	} `yaml:"logging"`
}

func decodeFile(data []byte) (AppConfig, fileFlags, error) {
	var cfg AppConfig
	var set fileFlags
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, set, err
	}
	if err := yaml.Unmarshal(data, &set); err != nil {
		return cfg, set, err
	}
	return cfg, set, nil
}

// Save writes cfg as YAML to path, creating parent directories.
func Save(path string, cfg AppConfig) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("config path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Marshal renders cfg as YAML.
func Marshal(cfg AppConfig) ([]byte, error) { return yaml.Marshal(cfg) }

func mergeInto(dst *AppConfig, src *AppConfig, set fileFlags) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	// script: sigils individually, the character table wholesale
	if src.Script.CharacterDelim != "" {
		dst.Script.CharacterDelim = src.Script.CharacterDelim
	}
	if src.Script.Syntax.Ignore != "" {
		dst.Script.Syntax.Ignore = src.Script.Syntax.Ignore
	}
	if src.Script.Syntax.Call != "" {
		dst.Script.Syntax.Call = src.Script.Syntax.Call
	}
	if src.Script.Syntax.Jump != "" {
		dst.Script.Syntax.Jump = src.Script.Syntax.Jump
	}
	if src.Script.Characters != nil {
		dst.Script.Characters = src.Script.Characters
	}
	// build
	if strings.TrimSpace(src.Build.OutDir) != "" {
		dst.Build.OutDir = strings.TrimSpace(src.Build.OutDir)
	}
	if strings.TrimSpace(src.Build.Ext) != "" {
		dst.Build.Ext = strings.TrimSpace(src.Build.Ext)
	}
	if src.Build.Workers != 0 {
		dst.Build.Workers = src.Build.Workers
	}
	if set.Build.Backup != nil {
		dst.Build.Backup = *set.Build.Backup
	}
	// cache
	if set.Cache.Disabled != nil {
		dst.Cache.Disabled = *set.Cache.Disabled
	}
	if strings.TrimSpace(src.Cache.DSN) != "" {
		dst.Cache.DSN = strings.TrimSpace(src.Cache.DSN)
	}
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	if set.Logging.Source != nil {
		dst.Logging.Source = *set.Logging.Source
	}
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func parseBool(v string) bool {
	lv := strings.ToLower(strings.TrimSpace(v))
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	// the delimiter may legitimately contain surrounding spaces
	if v := os.Getenv(EnvCharacterDelim); v != "" {
		cfg.Script.CharacterDelim = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvOutDir)); v != "" {
		cfg.Build.OutDir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvWorkers)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Build.Workers = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvCacheDSN)); v != "" {
		cfg.Cache.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvCacheDisabled)); v != "" {
		cfg.Cache.Disabled = parseBool(v)
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	envs := map[string]string{
		"script.character_delim": EnvCharacterDelim,
		"build.out_dir":          EnvOutDir,
		"build.workers":          EnvWorkers,
		"cache.dsn":              EnvCacheDSN,
		"cache.disabled":         EnvCacheDisabled,
		"logging.level":          EnvLogLevel,
		"logging.format":         EnvLogFormat,
		"logging.source":         EnvLogSource,
		"logging.file":           EnvLogFile,
	}
	name, ok := envs[key]
	if !ok || os.Getenv(name) == "" {
		return "", false
	}
	return name, true
}
