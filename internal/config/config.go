// Package config implements hierarchical configuration for flowtx.
// Precedence: defaults < user (~/.flowtx/config.toml) < project (.flowtx/config.toml) < env (FLOWTX_*) < flags.
package config

// Config is the top-level configuration structure.
type Config struct {
	Flows         FlowsConfig         `toml:"flows" mapstructure:"flows"`
	Persistence   PersistenceConfig   `toml:"persistence" mapstructure:"persistence"`
	Storage       StorageConfig       `toml:"storage" mapstructure:"storage"`
	Conversations ConversationsConfig `toml:"conversations" mapstructure:"conversations"`
	Log           LogConfig           `toml:"log" mapstructure:"log"`
}

// FlowsConfig controls how flow definitions are located and loaded.
type FlowsConfig struct {
	// Dir is the directory holding flow definition TOML files.
	Dir string `toml:"dir" mapstructure:"dir"`
	// Watch reloads definitions when files in Dir change.
	Watch bool `toml:"watch" mapstructure:"watch"`
}

// PersistenceConfig controls the session-per-conversation listener.
type PersistenceConfig struct {
	// ContextAttribute marks a flow as needing a persistence context.
	ContextAttribute string `toml:"context_attribute" mapstructure:"context_attribute"`
	// CommitAttribute on an end state controls commit vs rollback.
	CommitAttribute string `toml:"commit_attribute" mapstructure:"commit_attribute"`
	// ScopeKey is the conversation-scope key holding the session.
	ScopeKey string `toml:"scope_key" mapstructure:"scope_key"`
	// Audit records conversation lifecycle in the store.
	Audit bool `toml:"audit" mapstructure:"audit"`
}

// StorageConfig holds store settings.
type StorageConfig struct {
	// DatabasePath overrides the default .flowtx/state.db location.
	DatabasePath string `toml:"database_path" mapstructure:"database_path"`
}

// ConversationsConfig holds conversation housekeeping settings.
type ConversationsConfig struct {
	// StaleThresholdMins is the inactivity window before a conversation
	// record is considered abandoned.
	StaleThresholdMins int `toml:"stale_threshold_minutes" mapstructure:"stale_threshold_minutes"`
	// ListLimit caps how many records listing commands return.
	ListLimit int `toml:"list_limit" mapstructure:"list_limit"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `toml:"level" mapstructure:"level"`
}
