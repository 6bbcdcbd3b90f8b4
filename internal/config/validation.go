package config

import "strings"

// Validate checks the configuration for semantic errors.
func Validate(cfg Config) error {
	var errs []string

	if cfg.Flows.Dir == "" {
		errs = append(errs, "flows.dir must not be empty")
	}

	if cfg.Persistence.ContextAttribute == "" {
		errs = append(errs, "persistence.context_attribute must not be empty")
	}
	if cfg.Persistence.CommitAttribute == "" {
		errs = append(errs, "persistence.commit_attribute must not be empty")
	}
	if cfg.Persistence.ScopeKey == "" {
		errs = append(errs, "persistence.scope_key must not be empty")
	}

	if cfg.Conversations.StaleThresholdMins <= 0 {
		errs = append(errs, "conversations.stale_threshold_minutes must be > 0")
	}
	if cfg.Conversations.ListLimit <= 0 {
		errs = append(errs, "conversations.list_limit must be > 0")
	}

	if !oneOf(cfg.Log.Level, "debug", "info", "warn", "warning", "error", "fatal") {
		errs = append(errs, "log.level must be one of debug|info|warn|error|fatal")
	}

	if len(errs) > 0 {
		return &ValidationError{Problems: errs}
	}
	return nil
}

// ValidationError aggregates config validation problems.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "config validation failed: " + strings.Join(e.Problems, "; ")
}

func oneOf(val string, options ...string) bool {
	for _, opt := range options {
		if val == opt {
			return true
		}
	}
	return false
}
