package extension

import "time"

// Config holds the Tally extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.tally" or "tally" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// MaxProviders caps the number of providers that can ever register.
	// Zero means unlimited.
	MaxProviders uint64 `json:"max_providers" mapstructure:"max_providers" yaml:"max_providers"`

	// WithdrawalLockout is the rolling period a provider must wait between
	// earnings withdrawals (default: 720h, thirty days).
	WithdrawalLockout time.Duration `json:"withdrawal_lockout" mapstructure:"withdrawal_lockout" yaml:"withdrawal_lockout"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		WithdrawalLockout: 30 * 24 * time.Hour,
	}
}
