/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AppConfig is the project configuration read from rpyslides.yaml.
// Environment variables (and a .env file beside the config) are treated as
// read-only overrides at runtime; command-line flags are applied by the caller.
//
// config_version: bump when the structure changes in a backward-incompatible way.
type AppConfig struct {
	ConfigVersion      int           `yaml:"config_version"`
	Input              string        `yaml:"input"`
	Output             string        `yaml:"output"`
	Format             string        `yaml:"format"` // beamer | pdf | json
	Entry              string        `yaml:"entry"`
	AllowEntryFallback bool          `yaml:"allow_entry_fallback"`
	AssetsDir          string        `yaml:"assets_dir"`
	Title              string        `yaml:"title"`
	Author             string        `yaml:"author"`
	Index              string        `yaml:"index"`
	Logging            LoggingConfig `yaml:"logging"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

// DefaultFileName is looked up in the working directory when no path is given.
const DefaultFileName = "rpyslides.yaml"

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		Input:         "script.rpy",
		Output:        "",
		Format:        "beamer",
		Entry:         "start",
		AssetsDir:     "images",
		Title:         "Visual Novel",
		Index:         "rpyslides.sqlite",
		Logging:       LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvInput         = "RPS_INPUT"
	EnvOutput        = "RPS_OUTPUT"
	EnvFormat        = "RPS_FORMAT"
	EnvEntry         = "RPS_ENTRY"
	EnvEntryFallback = "RPS_ALLOW_ENTRY_FALLBACK"
	EnvAssetsDir     = "RPS_ASSETS_DIR"
	EnvTitle         = "RPS_TITLE"
	EnvAuthor        = "RPS_AUTHOR"
	EnvIndex         = "RPS_INDEX"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "RPS_LOG_LEVEL"
	EnvLogFormat = "RPS_LOG_FORMAT"
	EnvLogSource = "RPS_LOG_SOURCE"
	EnvLogFile   = "RPS_LOG_FILE"
)

// envKeys maps config keys to their override variables, in display order.
var envKeys = []struct{ key, env string }{
	{"input", EnvInput},
	{"output", EnvOutput},
	{"format", EnvFormat},
	{"entry", EnvEntry},
	{"allow_entry_fallback", EnvEntryFallback},
	{"assets_dir", EnvAssetsDir},
	{"title", EnvTitle},
	{"author", EnvAuthor},
	{"index", EnvIndex},
	{"logging.level", EnvLogLevel},
	{"logging.format", EnvLogFormat},
	{"logging.source", EnvLogSource},
	{"logging.file", EnvLogFile},
}

// Load builds the effective configuration: defaults, then the YAML file, then the
// environment. An empty path looks for DefaultFileName in the working directory,
// and a missing default file is not an error. A .env file next to the config file
// is loaded into the environment first; variables already set win.
// The returned string is the config file actually read, or "".
func Load(path string) (AppConfig, string, error) {
	cfg := Defaults()
	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		path = DefaultFileName
	}

	used := ""
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return cfg, "", fmt.Errorf("parse %s: %w", path, err)
		}
		mergeInto(&cfg, &fileCfg)
		used = path
	case explicit || !errors.Is(err, fs.ErrNotExist):
		return cfg, "", fmt.Errorf("read config: %w", err)
	}

	if err := godotenv.Load(filepath.Join(filepath.Dir(path), ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, used, fmt.Errorf("load .env: %w", err)
	}
	applyEnvOverrides(&cfg)
	return cfg, used, nil
}

// Save writes cfg as YAML to path.
func Save(path string, cfg AppConfig) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	setString(&dst.Input, src.Input)
	setString(&dst.Output, src.Output)
	if s := strings.TrimSpace(src.Format); s != "" {
		dst.Format = strings.ToLower(s)
	}
	setString(&dst.Entry, src.Entry)
	// booleans: copy directly from src (file) so user preferences persist
	dst.AllowEntryFallback = src.AllowEntryFallback
	setString(&dst.AssetsDir, src.AssetsDir)
	setString(&dst.Title, src.Title)
	setString(&dst.Author, src.Author)
	setString(&dst.Index, src.Index)
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	setString(&dst.Logging.File, src.Logging.File)
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	envString(&cfg.Input, EnvInput)
	envString(&cfg.Output, EnvOutput)
	if v := strings.TrimSpace(os.Getenv(EnvFormat)); v != "" {
		cfg.Format = strings.ToLower(v)
	}
	envString(&cfg.Entry, EnvEntry)
	envBool(&cfg.AllowEntryFallback, EnvEntryFallback)
	envString(&cfg.AssetsDir, EnvAssetsDir)
	envString(&cfg.Title, EnvTitle)
	envString(&cfg.Author, EnvAuthor)
	envString(&cfg.Index, EnvIndex)
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	envBool(&cfg.Logging.Source, EnvLogSource)
	envString(&cfg.Logging.File, EnvLogFile)
}

func envString(dst *string, name string) {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		*dst = v
	}
}

func envBool(dst *bool, name string) {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		lv := strings.ToLower(v)
		*dst = lv == "1" || lv == "true" || lv == "on" || lv == "yes"
	}
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	for _, k := range envKeys {
		if k.key == key && os.Getenv(k.env) != "" {
			return k.env, true
		}
	}
	return "", false
}

// Keys lists the configuration keys that can be overridden, in display order.
func Keys() []string {
	out := make([]string, len(envKeys))
	for i, k := range envKeys {
		out[i] = k.key
	}
	return out
}

// Value returns the effective value of key as text.
func (c AppConfig) Value(key string) string {
	switch key {
	case "input":
		return c.Input
	case "output":
		return c.Output
	case "format":
		return c.Format
	case "entry":
		return c.Entry
	case "allow_entry_fallback":
		return fmt.Sprint(c.AllowEntryFallback)
	case "assets_dir":
		return c.AssetsDir
	case "title":
		return c.Title
	case "author":
		return c.Author
	case "index":
		return c.Index
	case "logging.level":
		return c.Logging.Level
	case "logging.format":
		return c.Logging.Format
	case "logging.source":
		return fmt.Sprint(c.Logging.Source)
	case "logging.file":
		return c.Logging.File
	}
	return ""
}
