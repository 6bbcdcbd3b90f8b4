package config

// Built-in defaults for flowtx configuration.

// DefaultConfig returns the built-in default configuration.
func DefaultConfig() Config {
	return Config{
		Flows: FlowsConfig{
			Dir:   ".flowtx/flows",
			Watch: false,
		},
		Persistence: PersistenceConfig{
			ContextAttribute: "persistenceContext",
			CommitAttribute:  "commit",
			ScopeKey:         "persist.session",
			Audit:            true,
		},
		Storage: StorageConfig{
			DatabasePath: "",
		},
		Conversations: ConversationsConfig{
			StaleThresholdMins: 60,
			ListLimit:          50,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
