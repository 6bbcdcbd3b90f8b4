package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
)

// LoadOptions controls configuration loading.
type LoadOptions struct {
	// ProjectDir is used to locate .flowtx/config.toml. Defaults to CWD when empty.
	ProjectDir string
	// ConfigPath overrides the project config path if provided.
	ConfigPath string
	// FlagOverrides are highest-priority overrides from CLI flags (dot-notated keys).
	FlagOverrides map[string]any
}

// Load returns the effective configuration after applying precedence:
// defaults < user (~/.flowtx/config.toml) < project (.flowtx/config.toml) < env (FLOWTX_*) < flags.
func Load(opts LoadOptions) (Config, error) {
	v := viper.New()
	setDefaults(v)

	projectDir := opts.ProjectDir
	if projectDir == "" {
		if cwd, err := os.Getwd(); err == nil {
			projectDir = cwd
		}
	}

	// 1) User config
	if err := mergeConfigFile(v, userConfigPath()); err != nil {
		return Config{}, err
	}
	// 2) Project config
	if err := mergeConfigFile(v, projectConfigPath(projectDir, opts.ConfigPath)); err != nil {
		return Config{}, err
	}
	// 3) Environment variables
	if err := applyEnvOverrides(v); err != nil {
		return Config{}, err
	}
	// 4) CLI flags (highest)
	applyFlagOverrides(v, opts.FlagOverrides)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// setDefaults seeds viper with built-in defaults.
func setDefaults(v *viper.Viper) {
	def := DefaultConfig()

	v.SetDefault("flows.dir", def.Flows.Dir)
	v.SetDefault("flows.watch", def.Flows.Watch)

	v.SetDefault("persistence.context_attribute", def.Persistence.ContextAttribute)
	v.SetDefault("persistence.commit_attribute", def.Persistence.CommitAttribute)
	v.SetDefault("persistence.scope_key", def.Persistence.ScopeKey)
	v.SetDefault("persistence.audit", def.Persistence.Audit)

	v.SetDefault("storage.database_path", def.Storage.DatabasePath)

	v.SetDefault("conversations.stale_threshold_minutes", def.Conversations.StaleThresholdMins)
	v.SetDefault("conversations.list_limit", def.Conversations.ListLimit)

	v.SetDefault("log.level", def.Log.Level)
}

// mergeConfigFile merges the TOML config file if it exists.
func mergeConfigFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat config %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("config path %s is a directory", path)
	}
	v.SetConfigFile(path)
	if err := v.MergeInConfig(); err != nil {
		return fmt.Errorf("merge config %s: %w", path, err)
	}
	return nil
}

// applyEnvOverrides reads FLOWTX_* env vars and applies them.
func applyEnvOverrides(v *viper.Viper) error {
	for _, binding := range envBindings {
		val := os.Getenv(binding.Env)
		if val == "" {
			continue
		}
		parsed, err := parseValueByKind(val, binding.Kind)
		if err != nil {
			return fmt.Errorf("env %s: %w", binding.Env, err)
		}
		v.Set(binding.Key, parsed)
	}
	return nil
}

// applyFlagOverrides applies CLI overrides as highest-precedence values.
func applyFlagOverrides(v *viper.Viper, overrides map[string]any) {
	for k, val := range overrides {
		v.Set(k, val)
	}
}

// ConfigPaths returns the user and project config file paths.
func ConfigPaths(projectDir, configOverride string) (string, string) {
	return userConfigPath(), projectConfigPath(projectDir, configOverride)
}

func userConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".flowtx", "config.toml")
}

func projectConfigPath(projectDir, override string) string {
	if override != "" {
		return override
	}
	if projectDir == "" {
		return ".flowtx/config.toml"
	}
	return filepath.Join(projectDir, ".flowtx", "config.toml")
}

// ParseValue parses a raw string into the expected type for a given config key.
func ParseValue(key, raw string) (any, error) {
	kind, ok := keyKinds[key]
	if !ok {
		return nil, fmt.Errorf("unsupported key %q", key)
	}
	return parseValueByKind(raw, kind)
}

// GetValue retrieves a dot-notated value from the Config.
func GetValue(cfg Config, key string) (any, bool) {
	segments := strings.Split(key, ".")
	if len(segments) == 0 {
		return nil, false
	}
	var current any = cfg
	for _, seg := range segments {
		switch c := current.(type) {
		case Config:
			switch seg {
			case "flows":
				current = c.Flows
			case "persistence":
				current = c.Persistence
			case "storage":
				current = c.Storage
			case "conversations":
				current = c.Conversations
			case "log":
				current = c.Log
			default:
				return nil, false
			}
		case FlowsConfig:
			switch seg {
			case "dir":
				return c.Dir, true
			case "watch":
				return c.Watch, true
			default:
				return nil, false
			}
		case PersistenceConfig:
			switch seg {
			case "context_attribute":
				return c.ContextAttribute, true
			case "commit_attribute":
				return c.CommitAttribute, true
			case "scope_key":
				return c.ScopeKey, true
			case "audit":
				return c.Audit, true
			default:
				return nil, false
			}
		case StorageConfig:
			switch seg {
			case "database_path":
				return c.DatabasePath, true
			default:
				return nil, false
			}
		case ConversationsConfig:
			switch seg {
			case "stale_threshold_minutes":
				return c.StaleThresholdMins, true
			case "list_limit":
				return c.ListLimit, true
			default:
				return nil, false
			}
		case LogConfig:
			switch seg {
			case "level":
				return c.Level, true
			default:
				return nil, false
			}
		default:
			return nil, false
		}
	}
	return current, true
}

// WriteValue sets a single key/value into the specified TOML config file (creating it if needed).
func WriteValue(path, key string, value any) error {
	if path == "" {
		return fmt.Errorf("config path is empty")
	}
	var existing map[string]any
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &existing); err != nil {
			return fmt.Errorf("decode config: %w", err)
		}
		if existing == nil {
			existing = map[string]any{}
		}
	} else {
		existing = map[string]any{}
	}

	if err := setNested(existing, key, value); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(path), err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("create config %s: %w", path, err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	enc.Indent = "  "
	if err := enc.Encode(existing); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}

func setNested(m map[string]any, key string, value any) error {
	parts := strings.Split(key, ".")
	if len(parts) == 0 {
		return fmt.Errorf("invalid key %q", key)
	}
	cur := m
	for i, p := range parts {
		if i == len(parts)-1 {
			cur[p] = value
			return nil
		}
		next, ok := cur[p]
		if !ok {
			child := map[string]any{}
			cur[p] = child
			cur = child
			continue
		}
		childMap, ok := next.(map[string]any)
		if !ok {
			return fmt.Errorf("cannot set %s: %s is not a table", key, strings.Join(parts[:i+1], "."))
		}
		cur = childMap
	}
	return nil
}

// Helpers for env + parsing ---------------------------------------------------

type valueKind int

const (
	kindString valueKind = iota
	kindBool
	kindInt
)

var keyKinds = map[string]valueKind{
	"flows.dir":   kindString,
	"flows.watch": kindBool,

	"persistence.context_attribute": kindString,
	"persistence.commit_attribute":  kindString,
	"persistence.scope_key":         kindString,
	"persistence.audit":             kindBool,

	"storage.database_path": kindString,

	"conversations.stale_threshold_minutes": kindInt,
	"conversations.list_limit":              kindInt,

	"log.level": kindString,
}

var envBindings = []struct {
	Env  string
	Key  string
	Kind valueKind
}{
	{"FLOWTX_FLOWS_DIR", "flows.dir", kindString},
	{"FLOWTX_FLOWS_WATCH", "flows.watch", kindBool},

	{"FLOWTX_CONTEXT_ATTRIBUTE", "persistence.context_attribute", kindString},
	{"FLOWTX_COMMIT_ATTRIBUTE", "persistence.commit_attribute", kindString},
	{"FLOWTX_SCOPE_KEY", "persistence.scope_key", kindString},
	{"FLOWTX_AUDIT", "persistence.audit", kindBool},

	{"FLOWTX_DB_PATH", "storage.database_path", kindString},

	{"FLOWTX_STALE_THRESHOLD_MINUTES", "conversations.stale_threshold_minutes", kindInt},
	{"FLOWTX_LIST_LIMIT", "conversations.list_limit", kindInt},

	{"FLOWTX_LOG_LEVEL", "log.level", kindString},
}

func parseValueByKind(raw string, kind valueKind) (any, error) {
	switch kind {
	case kindString:
		return raw, nil
	case kindBool:
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("expected boolean: %w", err)
		}
		return v, nil
	case kindInt:
		v, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("expected integer: %w", err)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("unsupported value kind")
	}
}
