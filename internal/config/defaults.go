package config

import "time"

const (
	// Filesystem paths
	DefaultConfigPath = "/etc/migration-console/config.yml"
	DefaultDataDir    = "/var/lib/migration-console"

	// Service defaults
	DefaultBindAddress = "127.0.0.1"
	DefaultPort        = 8089

	// Backend defaults
	DefaultBackendURL     = "https://localhost:8443"
	DefaultTimeoutSeconds = 30

	// Table defaults
	DefaultPerPage = 20

	// Filter count debounce
	DefaultDebounceMS = 500

	// Activity retention
	DefaultRetentionDays = 30
)

// ActivityDBName is the SQLite file under the data directory.
const ActivityDBName = "activity.db"

// Default returns a configuration populated with defaults.
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			BaseURL:        DefaultBackendURL,
			TimeoutSeconds: DefaultTimeoutSeconds,
		},
		Service: ServiceConfig{
			BindAddress: DefaultBindAddress,
			Port:        DefaultPort,
		},
		Tables:   TablesConfig{DefaultPerPage: DefaultPerPage},
		Filter:   FilterConfig{DebounceMS: DefaultDebounceMS},
		Activity: ActivityConfig{RetentionDays: DefaultRetentionDays},
		DataDir:  DefaultDataDir,
	}
}

// Timeout returns the backend request timeout.
func (b BackendConfig) Timeout() time.Duration {
	return time.Duration(b.TimeoutSeconds) * time.Second
}

// Debounce returns the filter quiescence window.
func (f FilterConfig) Debounce() time.Duration {
	return time.Duration(f.DebounceMS) * time.Millisecond
}

// Retention returns how long activity rows are kept.
func (a ActivityConfig) Retention() time.Duration {
	return time.Duration(a.RetentionDays) * 24 * time.Hour
}
